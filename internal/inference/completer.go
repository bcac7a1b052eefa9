// Package inference provides the language model boundary.
//
// The model is treated as an opaque, non-deterministic function from prompt
// to text. Callers own prompt construction and output interpretation; this
// package only moves text across the wire.
package inference

import (
	"context"
	"errors"
)

// ErrUnavailable wraps transport-level failures (network, auth, rate limit).
// Callers treat it as a degraded-capability signal, never a crash.
var ErrUnavailable = errors.New("inference collaborator unavailable")

// Completer is the single operation consumed by the triage core.
type Completer interface {
	// Complete sends a prompt and returns the raw model text.
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}
