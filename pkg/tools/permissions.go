package tools

import (
	"log/slog"
	"regexp"
)

// Permission modes for shell command execution.
const (
	PermissionAsk   = "ask"   // Pattern-check only; no interactive prompt is available
	PermissionAllow = "allow" // Allow everything except destructive patterns
	PermissionDeny  = "deny"  // Deny every command
)

// dangerousPatterns match commands that are never allowed, regardless of
// mode. Matching is case-insensitive and covers both Unix and PowerShell
// destructive idioms.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)rm\s+-rf`),
	regexp.MustCompile(`(?i)mkfs`),
	regexp.MustCompile(`(?i)dd\s+if=`),
	regexp.MustCompile(`(?i):\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;`), // fork bomb
	regexp.MustCompile(`(?i)>\s*/dev/sd`),
	regexp.MustCompile(`(?i)Format-Volume`),
	regexp.MustCompile(`(?i)Remove-Item.*-Recurse`),
}

// PermissionSystem gates shell command execution.
type PermissionSystem struct {
	mode string
}

// NewPermissionSystem creates a gate for the given mode. Unknown modes
// fall back to ask.
func NewPermissionSystem(mode string) *PermissionSystem {
	switch mode {
	case PermissionAsk, PermissionAllow, PermissionDeny:
	default:
		if mode != "" {
			slog.Warn("Unknown permission mode, falling back to ask", "mode", mode)
		}
		mode = PermissionAsk
	}
	return &PermissionSystem{mode: mode}
}

// Mode returns the configured permission mode.
func (p *PermissionSystem) Mode() string {
	return p.mode
}

// IsDangerous reports whether the command matches a destructive pattern.
func (p *PermissionSystem) IsDangerous(command string) bool {
	for _, re := range dangerousPatterns {
		if re.MatchString(command) {
			return true
		}
	}
	return false
}

// Allow decides whether a command may run. Dangerous commands are always
// refused. In deny mode nothing runs. In ask mode there is no interactive
// prompt in this runtime, so it behaves like allow after the pattern check.
func (p *PermissionSystem) Allow(command string) bool {
	if p.IsDangerous(command) {
		slog.Warn("Blocked dangerous command", "command", command)
		return false
	}
	switch p.mode {
	case PermissionDeny:
		slog.Warn("Command denied by permission mode", "command", command)
		return false
	default:
		return true
	}
}
