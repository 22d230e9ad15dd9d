package agent

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"
)

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(
		Descriptor{Name: "a", Summary: "x"},
		Descriptor{Name: "a", Summary: "y"},
	)
	if err == nil {
		t.Fatal("expected error for duplicate agent names")
	}
}

func TestBuiltinRegistry(t *testing.T) {
	reg, err := NewRegistry(BuiltinDescriptors()...)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	names := reg.Names()
	want := []string{"pbip", "requirements", "workitem"}
	if len(names) != len(want) {
		t.Fatalf("Names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	wi, ok := reg.Get("workitem")
	if !ok {
		t.Fatal("workitem agent not registered")
	}
	if len(wi.Tools) == 0 || wi.Prompt == "" || wi.Summary == "" {
		t.Errorf("workitem descriptor incomplete: %+v", wi)
	}
}

func TestLoadRegistry_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	overlay := `agents:
  - name: workitem
    summary: Custom tracker summary
`
	if err := os.WriteFile(path, []byte(overlay), 0o644); err != nil {
		t.Fatalf("writing overlay: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry failed: %v", err)
	}
	wi, _ := reg.Get("workitem")
	if wi.Summary != "Custom tracker summary" {
		t.Errorf("Summary = %q, want overlay applied", wi.Summary)
	}
	if wi.Prompt == "" {
		t.Error("overlay must not clear the built-in prompt")
	}
	if len(wi.Tools) != 7 {
		t.Errorf("overlay must not change tool sets, got %v", wi.Tools)
	}
}

func TestLoadRegistry_UnknownAgent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	os.WriteFile(path, []byte("agents:\n  - name: nosuch\n    summary: x\n"), 0o644)

	if _, err := LoadRegistry(path); err == nil {
		t.Fatal("expected error for unknown agent in overlay")
	}
}

// scriptedMessager returns canned Messages responses in order.
type scriptedMessager struct {
	responses []*anthropic.Message
	calls     int
	lastTools []anthropic.ToolUnionParam
}

func (s *scriptedMessager) CreateMessage(_ context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	s.lastTools = params.Tools
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func message(t *testing.T, raw string) *anthropic.Message {
	t.Helper()
	var m anthropic.Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("building test message: %v", err)
	}
	return &m
}

// recordingToolbox exposes one tool and records invocations.
type recordingToolbox struct {
	executed []string
}

func (tb *recordingToolbox) Definitions(names []string) []anthropic.ToolUnionParam {
	defs := make([]anthropic.ToolUnionParam, 0, len(names))
	for _, name := range names {
		defs = append(defs, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        name,
				InputSchema: anthropic.ToolInputSchemaParam{Properties: map[string]interface{}{}},
			},
		})
	}
	return defs
}

func (tb *recordingToolbox) Execute(_ context.Context, name string, _ json.RawMessage) ToolResult {
	tb.executed = append(tb.executed, name)
	return ToolResult{Content: "connection OK"}
}

func TestLoop_RunsToolCycle(t *testing.T) {
	messager := &scriptedMessager{responses: []*anthropic.Message{
		message(t, `{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "m",
			"stop_reason": "tool_use",
			"content": [
				{"type": "text", "text": "Checking access."},
				{"type": "tool_use", "id": "tu_1", "name": "check_connection", "input": {}}
			],
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`),
		message(t, `{
			"id": "msg_2", "type": "message", "role": "assistant", "model": "m",
			"stop_reason": "end_turn",
			"content": [{"type": "text", "text": "Connection verified."}],
			"usage": {"input_tokens": 20, "output_tokens": 8}
		}`),
	}}
	toolbox := &recordingToolbox{}

	loop := NewLoop(LoopConfig{Client: messager, Toolbox: toolbox, Logger: zerolog.Nop()})

	var events []string
	loop.SetStreamHandler(func(ev StreamEvent) { events = append(events, ev.Type) })

	d := Descriptor{Name: "workitem", Prompt: "prompt", Tools: []string{"check_connection"}}
	result, err := loop.Run(context.Background(), d, "verify tracker access")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Iterations != 2 {
		t.Errorf("Iterations = %d, want 2", result.Iterations)
	}
	if result.ToolCalls != 1 {
		t.Errorf("ToolCalls = %d, want 1", result.ToolCalls)
	}
	if result.Output != "Connection verified." {
		t.Errorf("Output = %q", result.Output)
	}

	if len(toolbox.executed) != 1 || toolbox.executed[0] != "check_connection" {
		t.Errorf("executed tools = %v", toolbox.executed)
	}
	if len(messager.lastTools) != 1 {
		t.Errorf("loop offered %d tools, want only the descriptor's 1", len(messager.lastTools))
	}

	wantTranscript := []Record{
		{Kind: KindAgentOutput, Content: "Checking access."},
		{Kind: KindToolOutput, Content: "connection OK"},
		{Kind: KindAgentOutput, Content: "Connection verified."},
	}
	if len(result.Transcript) != len(wantTranscript) {
		t.Fatalf("transcript = %+v, want %d records", result.Transcript, len(wantTranscript))
	}
	for i, want := range wantTranscript {
		if result.Transcript[i] != want {
			t.Errorf("Transcript[%d] = %+v, want %+v", i, result.Transcript[i], want)
		}
	}

	joined := strings.Join(events, ",")
	if !strings.Contains(joined, "tool_use") || !strings.Contains(joined, "tool_result") || !strings.HasSuffix(joined, "done") {
		t.Errorf("stream events = %v", events)
	}
}

func TestLoop_MaxIterations(t *testing.T) {
	toolResponse := `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "m",
		"stop_reason": "tool_use",
		"content": [{"type": "tool_use", "id": "tu_1", "name": "check_connection", "input": {}}],
		"usage": {"input_tokens": 1, "output_tokens": 1}
	}`
	messager := &scriptedMessager{responses: []*anthropic.Message{
		message(t, toolResponse), message(t, toolResponse), message(t, toolResponse),
	}}

	loop := NewLoop(LoopConfig{Client: messager, Toolbox: &recordingToolbox{}, MaxIterations: 3, Logger: zerolog.Nop()})
	d := Descriptor{Name: "workitem", Tools: []string{"check_connection"}}

	_, err := loop.Run(context.Background(), d, "spin")
	if err == nil || !strings.Contains(err.Error(), "max iterations") {
		t.Fatalf("err = %v, want max iterations error", err)
	}
}
