// Package router maps a free-text request to exactly one registered agent.
//
// The selection is a model call behind the Classifier interface, so the
// routing decision is testable with a deterministic stub. There is no
// keyword fallback: when the model cannot commit to a registered agent the
// router reports ErrAmbiguous and the caller surfaces a clarification prompt
// instead of guessing a default.
package router

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tmcgann/fabworks/internal/agent"
)

// ErrAmbiguous indicates the request could not be mapped to a single
// registered agent.
var ErrAmbiguous = errors.New("request does not map to a single agent")

// Classifier selects one agent name from the registry for a request.
type Classifier interface {
	Classify(ctx context.Context, request string, reg *agent.Registry) (string, error)
}

// sessionNamespace scopes the content-derived session keys.
var sessionNamespace = uuid.MustParse("9f2c1a52-7cb6-4a51-8b33-5e1f0d6c2ab4")

// SessionKey derives the correlation key for a request from its content.
// Two requests with identical text intentionally share a session; this is a
// documented weakness of the scheme, not an isolation guarantee.
func SessionKey(request string) string {
	return uuid.NewSHA1(sessionNamespace, []byte(request)).String()
}
