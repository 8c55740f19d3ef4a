package api

import (
	"context"
)

// Tool defines the structural interface for any capability that the agent
// can execute. It includes metadata for prompt injection (JSON Schema)
// and the execution logic itself.
//
// Execute returns the textual result handed back to the model. Failures the
// model should see (bad input, denied command, missing page) belong in the
// returned string; the error return is reserved for infrastructure faults.
type Tool interface {
	Name() string
	Description() string
	// Parameters maps property names to their JSON Schema fragments.
	Parameters() map[string]any
	// RequiredParameters lists the property names the model must supply.
	RequiredParameters() []string
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// ToolRegistry defines the interface for managing and accessing tools.
type ToolRegistry interface {
	Register(tool Tool)
	Unregister(name string)
	Get(name string) (Tool, bool)
	GetAll() []Tool
}
