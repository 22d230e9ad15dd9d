package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"

	"github.com/tmcgann/fabworks/internal/agent"
)

// answerMessager always answers with the given text.
type answerMessager struct {
	answer string
}

func (m *answerMessager) CreateMessage(context.Context, anthropic.MessageNewParams) (*anthropic.Message, error) {
	raw := fmt.Sprintf(`{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "m",
		"stop_reason": "end_turn",
		"content": [{"type": "text", "text": %q}],
		"usage": {"input_tokens": 5, "output_tokens": 2}
	}`, m.answer)
	var msg anthropic.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func testRegistry(t *testing.T) *agent.Registry {
	t.Helper()
	reg, err := agent.NewRegistry(agent.BuiltinDescriptors()...)
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	return reg
}

func TestClassify_RegisteredName(t *testing.T) {
	c := NewLLMClassifier(&answerMessager{answer: "workitem"}, zerolog.Nop())

	name, err := c.Classify(context.Background(), "create work items for feature Sales Dashboard", testRegistry(t))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if name != "workitem" {
		t.Errorf("name = %q, want workitem", name)
	}
}

func TestClassify_NormalizesAnswer(t *testing.T) {
	c := NewLLMClassifier(&answerMessager{answer: "  Requirements \n"}, zerolog.Nop())

	name, err := c.Classify(context.Background(), "generate requirements from the SOW", testRegistry(t))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if name != "requirements" {
		t.Errorf("name = %q, want requirements", name)
	}
}

func TestClassify_AmbiguousAnswer(t *testing.T) {
	c := NewLLMClassifier(&answerMessager{answer: "ambiguous"}, zerolog.Nop())

	_, err := c.Classify(context.Background(), "do the thing with requirements and work items", testRegistry(t))
	if !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("err = %v, want ErrAmbiguous", err)
	}
}

func TestClassify_UnregisteredAnswer(t *testing.T) {
	c := NewLLMClassifier(&answerMessager{answer: "math_expert"}, zerolog.Nop())

	_, err := c.Classify(context.Background(), "add two numbers", testRegistry(t))
	if !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("err = %v, want ErrAmbiguous for unknown agent", err)
	}
}

func TestSessionKey_DerivedFromContent(t *testing.T) {
	a := SessionKey("close all tasks under Sales Dashboard")
	b := SessionKey("close all tasks under Sales Dashboard")
	c := SessionKey("a different request")

	// Identical content collides on the same session; that is the scheme's
	// documented behavior.
	if a != b {
		t.Errorf("identical requests produced different keys %q / %q", a, b)
	}
	if a == c {
		t.Error("different requests should produce different keys")
	}
}
