package api

import (
	"context"
)

// Agent defines the interface for the core reasoning engine.
//
// Process runs one full exchange for the given conversation: it persists the
// user message, drives the bounded tool-calling loop against the model, and
// always returns a non-empty textual answer (falling back to a synthesized
// or apologetic reply when the model cannot produce one).
type Agent interface {
	Process(ctx context.Context, sessionID string, content string) string
}
