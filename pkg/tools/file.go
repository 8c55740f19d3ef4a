package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// expandHome resolves a leading ~ against the current user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// ReadFileTool reads a text file from disk.
type ReadFileTool struct{}

func NewReadFileTool() *ReadFileTool { return &ReadFileTool{} }

func (t *ReadFileTool) Name() string {
	return "read_file"
}

func (t *ReadFileTool) Description() string {
	return "Reads the content of a file at the given path."
}

func (t *ReadFileTool) Parameters() map[string]any {
	return map[string]any{
		"filepath": map[string]any{
			"type":        "string",
			"description": "Path to the file to read. Supports ~ for the home directory.",
		},
	}
}

func (t *ReadFileTool) RequiredParameters() []string {
	return []string{"filepath"}
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path, ok := args["filepath"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("missing string parameter 'filepath'")
	}

	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		return fmt.Sprintf("Error reading file: %v", err), nil
	}
	return string(data), nil
}

// WriteFileTool writes text content to disk, creating parent directories as
// needed.
type WriteFileTool struct{}

func NewWriteFileTool() *WriteFileTool { return &WriteFileTool{} }

func (t *WriteFileTool) Name() string {
	return "write_file"
}

func (t *WriteFileTool) Description() string {
	return "Writes content to a file at the given path, creating parent directories if needed."
}

func (t *WriteFileTool) Parameters() map[string]any {
	return map[string]any{
		"filepath": map[string]any{
			"type":        "string",
			"description": "Path of the file to write. Supports ~ for the home directory.",
		},
		"content": map[string]any{
			"type":        "string",
			"description": "Content to write to the file.",
		},
	}
}

func (t *WriteFileTool) RequiredParameters() []string {
	return []string{"filepath", "content"}
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path, ok := args["filepath"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("missing string parameter 'filepath'")
	}
	content, ok := args["content"].(string)
	if !ok {
		return "", fmt.Errorf("missing string parameter 'content'")
	}

	resolved := expandHome(path)
	if dir := filepath.Dir(resolved); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Sprintf("Error writing file: %v", err), nil
		}
	}
	if err := os.WriteFile(resolved, []byte(content), 0644); err != nil {
		return fmt.Sprintf("Error writing file: %v", err), nil
	}
	return fmt.Sprintf("Successfully wrote to %s", path), nil
}
