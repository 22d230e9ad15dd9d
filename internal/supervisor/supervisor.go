// Package supervisor ties routing and agent execution into one request
// pipeline: classify the request, resolve the agent, run its tool loop, and
// return the aggregated transcript.
package supervisor

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tmcgann/fabworks/internal/agent"
	"github.com/tmcgann/fabworks/internal/router"
)

// Response is the aggregated outcome of one request.
type Response struct {
	// SessionID is derived from the request content, so retrying the same
	// text correlates to the same session.
	SessionID string         `json:"session_id"`
	Agent     string         `json:"agent"`
	Records   []agent.Record `json:"records"`
}

// Supervisor routes requests to task agents and runs them.
type Supervisor struct {
	classifier router.Classifier
	registry   *agent.Registry
	loop       *agent.Loop
	log        zerolog.Logger
}

// Config wires a Supervisor.
type Config struct {
	Classifier router.Classifier
	Registry   *agent.Registry
	Loop       *agent.Loop
	Logger     zerolog.Logger
}

// New creates a Supervisor.
func New(cfg Config) *Supervisor {
	return &Supervisor{
		classifier: cfg.Classifier,
		registry:   cfg.Registry,
		loop:       cfg.Loop,
		log:        cfg.Logger,
	}
}

// SetStreamHandler forwards loop events to fn for streaming front-ends.
func (s *Supervisor) SetStreamHandler(fn func(agent.StreamEvent)) {
	s.loop.SetStreamHandler(fn)
}

// Registry returns the agent registry backing this supervisor.
func (s *Supervisor) Registry() *agent.Registry { return s.registry }

// clarification is returned instead of an error when the router cannot map
// the request to a single agent. The caller shows it to the user and waits
// for a rephrased request.
func (s *Supervisor) clarification() []agent.Record {
	text := "I could not determine which specialist should handle this request. Available specialists:\n"
	for _, d := range s.registry.All() {
		text += fmt.Sprintf("- %s: %s\n", d.Name, d.Summary)
	}
	text += "Please rephrase the request to make the intent clear."
	return []agent.Record{{Kind: agent.KindAgentOutput, Content: text}}
}

// Ask routes the request and executes the selected agent. An ambiguous
// request is not an error: the response carries a clarification record and
// an empty agent name.
func (s *Supervisor) Ask(ctx context.Context, request string) (*Response, error) {
	resp := &Response{SessionID: router.SessionKey(request)}

	name, err := s.classifier.Classify(ctx, request, s.registry)
	if err != nil {
		if errors.Is(err, router.ErrAmbiguous) {
			s.log.Info().Str("session", resp.SessionID).Msg("ambiguous request, asking for clarification")
			resp.Records = s.clarification()
			return resp, nil
		}
		return nil, fmt.Errorf("classifying request: %w", err)
	}

	desc, ok := s.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("classifier selected unregistered agent %q", name)
	}
	resp.Agent = name

	s.log.Info().
		Str("session", resp.SessionID).
		Str("agent", name).
		Msg("dispatching request")

	result, err := s.loop.Run(ctx, desc, request)
	if result != nil {
		resp.Records = result.Transcript
	}
	if err != nil {
		return resp, fmt.Errorf("agent %s failed: %w", name, err)
	}
	return resp, nil
}
