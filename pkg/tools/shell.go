package tools

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ShellTool runs shell commands on the host through a platform Controller,
// guarded by the permission system.
type ShellTool struct {
	controller Controller
	perms      *PermissionSystem
	timeout    time.Duration
}

// NewShellTool wires a controller and a permission gate. timeout bounds one
// command; zero means 30 seconds.
func NewShellTool(c Controller, perms *PermissionSystem, timeout time.Duration) *ShellTool {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShellTool{
		controller: c,
		perms:      perms,
		timeout:    timeout,
	}
}

func (t *ShellTool) Name() string {
	return "run_command"
}

func (t *ShellTool) Description() string {
	return fmt.Sprintf("Executes a shell command on the host machine and returns its output. Current OS: %s", runtime.GOOS)
}

func (t *ShellTool) Parameters() map[string]any {
	return map[string]any{
		"command": map[string]any{
			"type":        "string",
			"description": "The shell command to execute.",
		},
	}
}

func (t *ShellTool) RequiredParameters() []string {
	return []string{"command"}
}

// Execute runs the command. Policy refusals and execution failures come back
// as result text, not Go errors, so the model can react to them.
func (t *ShellTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	command, ok := args["command"].(string)
	if !ok || strings.TrimSpace(command) == "" {
		return "", fmt.Errorf("missing string parameter 'command'")
	}

	if !t.perms.Allow(command) {
		return fmt.Sprintf("Permission Denied: Command '%s' is not allowed.", command), nil
	}

	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.controller.Execute(cctx, ActionRequest{
		Action: "run_command",
		Params: map[string]any{"command": command},
	})
	if err != nil {
		return fmt.Sprintf("Error executing command: %v", err), nil
	}
	if !resp.Success {
		output, _ := resp.Data.(string)
		if output != "" {
			return fmt.Sprintf("Error executing command: %s\nOutput:\n%s", resp.Error, output), nil
		}
		return fmt.Sprintf("Error executing command: %s", resp.Error), nil
	}

	return fmt.Sprintf("Output:\n%v", resp.Data), nil
}
