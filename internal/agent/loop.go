package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"

	"github.com/tmcgann/fabworks/internal/llm"
)

// ToolResult is the outcome of one tool invocation, flattened to the
// operator-readable text the model receives.
type ToolResult struct {
	Content string
	IsError bool
}

// Toolbox resolves tool schemas and executes tool calls. Implementations are
// expected to be safe for sequential reuse across loop iterations.
type Toolbox interface {
	// Definitions returns the schemas for the named tools. Unknown names
	// are skipped.
	Definitions(names []string) []anthropic.ToolUnionParam
	// Execute runs one tool call.
	Execute(ctx context.Context, name string, input json.RawMessage) ToolResult
}

// StreamEvent is emitted during loop execution for streaming front-ends.
type StreamEvent struct {
	Type    string // "text", "tool_use", "tool_result", "done", "error"
	Content string
	Tool    string
	Input   json.RawMessage
}

// Record is one entry of the aggregated response transcript.
type Record struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// Transcript record kinds.
const (
	KindAgentOutput = "agent-output"
	KindToolOutput  = "tool-output"
)

// Result contains the outcome of a loop execution.
type Result struct {
	// Output is the agent's final text.
	Output string
	// Transcript is the ordered agent/tool output record list.
	Transcript []Record
	ToolCalls  int
	Iterations int
}

// Loop runs one agent: repeated Messages calls with the agent's tool set
// until the model ends its turn. Tool calls are dispatched sequentially, in
// response order.
type Loop struct {
	client        llm.Messager
	toolbox       Toolbox
	maxIterations int
	maxTokens     int64
	log           zerolog.Logger
	onStream      func(StreamEvent)
}

// LoopConfig configures a Loop.
type LoopConfig struct {
	Client  llm.Messager
	Toolbox Toolbox
	// MaxIterations caps API calls per request (0 = default 20).
	MaxIterations int
	Logger        zerolog.Logger
}

// NewLoop creates a loop with the given configuration.
func NewLoop(cfg LoopConfig) *Loop {
	maxIter := cfg.MaxIterations
	if maxIter == 0 {
		maxIter = 20
	}
	return &Loop{
		client:        cfg.Client,
		toolbox:       cfg.Toolbox,
		maxIterations: maxIter,
		maxTokens:     8192,
		log:           cfg.Logger,
	}
}

// SetStreamHandler sets a callback for events during execution.
func (l *Loop) SetStreamHandler(fn func(StreamEvent)) {
	l.onStream = fn
}

func (l *Loop) emit(event StreamEvent) {
	if l.onStream != nil {
		l.onStream(event)
	}
}

// Run executes the descriptor's agent against the user request.
func (l *Loop) Run(ctx context.Context, d Descriptor, request string) (*Result, error) {
	result := &Result{}
	tools := l.toolbox.Definitions(d.Tools)

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(request)),
	}

	for result.Iterations < l.maxIterations {
		result.Iterations++

		resp, err := l.client.CreateMessage(ctx, anthropic.MessageNewParams{
			MaxTokens: l.maxTokens,
			System: []anthropic.TextBlockParam{
				{Text: d.Prompt},
			},
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			l.emit(StreamEvent{Type: "error", Content: err.Error()})
			return result, fmt.Errorf("agent %s: API call failed: %w", d.Name, err)
		}

		var assistantBlocks []anthropic.ContentBlockParamUnion
		var toolResultBlocks []anthropic.ContentBlockParamUnion
		var textOutput string

		for _, block := range resp.Content {
			switch variant := block.AsAny().(type) {
			case anthropic.TextBlock:
				textOutput += variant.Text
				l.emit(StreamEvent{Type: "text", Content: variant.Text})
				result.Transcript = append(result.Transcript, Record{Kind: KindAgentOutput, Content: variant.Text})
				assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(variant.Text))

			case anthropic.ToolUseBlock:
				result.ToolCalls++
				l.emit(StreamEvent{Type: "tool_use", Tool: variant.Name, Input: variant.Input})
				assistantBlocks = append(assistantBlocks,
					anthropic.NewToolUseBlock(variant.ID, variant.Input, variant.Name))

				toolResult := l.toolbox.Execute(ctx, variant.Name, variant.Input)
				l.emit(StreamEvent{Type: "tool_result", Tool: variant.Name, Content: toolResult.Content})
				result.Transcript = append(result.Transcript, Record{Kind: KindToolOutput, Content: toolResult.Content})
				l.log.Debug().
					Str("agent", d.Name).
					Str("tool", variant.Name).
					Bool("is_error", toolResult.IsError).
					Msg("tool executed")

				toolResultBlocks = append(toolResultBlocks,
					anthropic.NewToolResultBlock(variant.ID, toolResult.Content, toolResult.IsError))
			}
		}

		if resp.StopReason == anthropic.StopReasonEndTurn {
			result.Output = textOutput
			l.emit(StreamEvent{Type: "done"})
			return result, nil
		}

		messages = append(messages, anthropic.NewAssistantMessage(assistantBlocks...))
		if len(toolResultBlocks) > 0 {
			messages = append(messages, anthropic.NewUserMessage(toolResultBlocks...))
		}
	}

	return result, fmt.Errorf("agent %s: max iterations (%d) reached", d.Name, l.maxIterations)
}
