//go:build windows

package os

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"relay/pkg/tools"
)

// WindowsWorker implements the tools.Controller interface specifically for
// Windows environments. It maintains stateful session data like the
// current working directory to support sequential shell commands (e.g., 'cd').
type WindowsWorker struct {
	workingDir string // Tracks the persistent location for command execution context
}

func NewOSWorker() tools.Controller {
	cwd, _ := os.Getwd()
	return &WindowsWorker{
		workingDir: cwd,
	}
}

func (w *WindowsWorker) Capabilities() []string {
	return []string{
		"run_command", // Execute PowerShell/Shell commands
	}
}

// Execute dispatches the generic ActionRequest to Windows-native
// implementations.
func (w *WindowsWorker) Execute(ctx context.Context, req tools.ActionRequest) (*tools.ActionResponse, error) {
	switch req.Action {
	case "run_command":
		cmdStr, ok := req.Params["command"].(string)
		if !ok {
			return nil, fmt.Errorf("missing string parameter 'command'")
		}
		output, err := w.runCommand(ctx, cmdStr)
		if err != nil {
			return &tools.ActionResponse{Success: false, Data: output, Error: err.Error()}, nil
		}
		return &tools.ActionResponse{Success: true, Data: output}, nil

	default:
		return nil, fmt.Errorf("unsupported action: %s", req.Action)
	}
}

// runCommand executes a string-based shell command via PowerShell.
// It manages environment variable expansion (converting %VAR% to $env:VAR)
// and handles UTF-8 encoding synchronization between Go and PowerShell.
//
// Key features:
// - Stateful: Appends a PWD command to track directory changes (e.g., after 'cd').
// - Resilient: Merges Stdout and Stderr for comprehensive logging.
// - Transparent: Strips the internal PWD metadata from the output before returning.
func (w *WindowsWorker) runCommand(ctx context.Context, cmdStr string) (string, error) {
	// Convert %VAR% to PowerShell format $env:VAR
	re := regexp.MustCompile(`%([^%]+)%`)
	expandedCmd := re.ReplaceAllString(cmdStr, `$env:$1`)

	// Force PowerShell output to UTF8 and execute the core command
	// [Console]::OutputEncoding affects the output stream, $OutputEncoding affects internal byte conversion
	utf8Cmd := "[Console]::OutputEncoding = [System.Text.Encoding]::UTF8; $OutputEncoding = [System.Text.Encoding]::UTF8; " + expandedCmd

	// Default to powershell execution, and return current directory (pwd) to update state
	// Use ; to separate multiple commands
	fullCmd := fmt.Sprintf("%s; $ExecutionContext.SessionState.Path.CurrentLocation.Path", utf8Cmd)

	slog.Info("Executing command", "dir", w.workingDir, "command", fullCmd)

	cmd := exec.CommandContext(ctx, "powershell", "-Command", fullCmd)
	cmd.Dir = w.workingDir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		return out.String(), fmt.Errorf("command timed out")
	}

	output := out.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > 0 {
		// Last line should be the new PWD
		newCwd := strings.TrimSpace(lines[len(lines)-1])
		// Verify if path exists and is a directory
		if info, statErr := os.Stat(newCwd); statErr == nil && info.IsDir() {
			w.workingDir = newCwd
			// Remove the PWD info from output to avoid interfering with AI
			output = strings.Join(lines[:len(lines)-1], "\n")

			// If output is empty (e.g., cd command), return the new directory to inform AI
			if strings.TrimSpace(output) == "" {
				output = fmt.Sprintf("Current directory: %s", w.workingDir)
			}
		}
	}

	return output, err
}
