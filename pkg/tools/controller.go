package tools

import "context"

// ActionRequest describes one host action to perform.
type ActionRequest struct {
	Action string         `json:"action"` // Action name, e.g. "run_command"
	Params map[string]any `json:"params"` // Parameters required by the action
}

// ActionResponse carries the outcome of an action.
type ActionResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Controller is the generic host-control interface, following an action
// dispatching model so one tool can front platform-specific workers.
type Controller interface {
	// Execute runs a named action. The context bounds execution time.
	Execute(ctx context.Context, req ActionRequest) (*ActionResponse, error)

	// Capabilities returns every action this controller supports.
	Capabilities() []string
}
