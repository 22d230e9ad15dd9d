package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"

	"github.com/tmcgann/fabworks/internal/agent"
	"github.com/tmcgann/fabworks/internal/llm"
)

// LLMClassifier delegates the routing decision to a model call whose output
// is constrained to the registered agent names.
type LLMClassifier struct {
	client llm.Messager
	log    zerolog.Logger
}

// NewLLMClassifier creates a model-backed classifier.
func NewLLMClassifier(client llm.Messager, log zerolog.Logger) *LLMClassifier {
	return &LLMClassifier{client: client, log: log}
}

var _ Classifier = (*LLMClassifier)(nil)

const ambiguousAnswer = "ambiguous"

// Classify asks the model to pick one agent. Any answer that is not a
// registered agent name, including an explicit "ambiguous", yields
// ErrAmbiguous.
func (c *LLMClassifier) Classify(ctx context.Context, request string, reg *agent.Registry) (string, error) {
	var prompt strings.Builder
	prompt.WriteString("You are a supervisor routing requests to one of these specialists:\n\n")
	for _, d := range reg.All() {
		fmt.Fprintf(&prompt, "- %s: %s\n", d.Name, d.Summary)
	}
	fmt.Fprintf(&prompt,
		"\nReply with exactly one specialist name from: %s.\n"+
			"If the request does not clearly belong to a single specialist, reply with exactly %q.\n"+
			"Reply with the single word only, no punctuation or explanation.",
		strings.Join(reg.Names(), ", "), ambiguousAnswer)

	resp, err := c.client.CreateMessage(ctx, anthropic.MessageNewParams{
		MaxTokens: 16,
		System: []anthropic.TextBlockParam{
			{Text: prompt.String()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(request)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("routing request: %w", err)
	}

	var answer string
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			answer += text.Text
		}
	}
	answer = strings.ToLower(strings.TrimSpace(answer))

	if _, ok := reg.Get(answer); ok {
		c.log.Debug().Str("agent", answer).Msg("routed request")
		return answer, nil
	}

	c.log.Debug().Str("answer", answer).Msg("router could not commit to an agent")
	return "", fmt.Errorf("router answered %q: %w", answer, ErrAmbiguous)
}
