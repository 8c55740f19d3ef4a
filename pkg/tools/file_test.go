package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "note.txt")

	w := NewWriteFileTool()
	out, err := w.Execute(context.Background(), map[string]any{
		"filepath": path,
		"content":  "remember this",
	})
	require.NoError(t, err)
	assert.Equal(t, "Successfully wrote to "+path, out)

	r := NewReadFileTool()
	out, err = r.Execute(context.Background(), map[string]any{"filepath": path})
	require.NoError(t, err)
	assert.Equal(t, "remember this", out)
}

func TestReadFileMissingReturnsErrorText(t *testing.T) {
	r := NewReadFileTool()
	out, err := r.Execute(context.Background(), map[string]any{
		"filepath": filepath.Join(t.TempDir(), "absent.txt"),
	})
	// Missing files are reported to the model, not as Go errors.
	require.NoError(t, err)
	assert.Contains(t, out, "Error reading file:")
}

func TestReadFileMissingParameter(t *testing.T) {
	r := NewReadFileTool()
	_, err := r.Execute(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestWriteFileMissingContent(t *testing.T) {
	w := NewWriteFileTool()
	_, err := w.Execute(context.Background(), map[string]any{"filepath": "x.txt"})
	assert.Error(t, err)
}

func TestWriteFileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	w := NewWriteFileTool()

	_, err := w.Execute(context.Background(), map[string]any{"filepath": path, "content": "one"})
	require.NoError(t, err)
	_, err = w.Execute(context.Background(), map[string]any{"filepath": path, "content": "two"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, expandHome("~"))
	assert.Equal(t, filepath.Join(home, "docs"), expandHome("~/docs"))
	assert.Equal(t, "/tmp/x", expandHome("/tmp/x"))
	assert.Equal(t, "~oddity", expandHome("~oddity"))
}
