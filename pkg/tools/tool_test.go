package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	name     string
	params   map[string]any
	required []string
}

func (t *fakeTool) Name() string                 { return t.name }
func (t *fakeTool) Description() string          { return "fake " + t.name }
func (t *fakeTool) Parameters() map[string]any   { return t.params }
func (t *fakeTool) RequiredParameters() []string { return t.required }
func (t *fakeTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return "ok", nil
}

func TestRegistryRegisterGetUnregister(t *testing.T) {
	r := NewToolRegistry()
	r.Register(&fakeTool{name: "alpha"})

	tool, ok := r.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", tool.Name())

	_, ok = r.Get("missing")
	assert.False(t, ok)

	r.Unregister("alpha")
	_, ok = r.Get("alpha")
	assert.False(t, ok)
}

func TestDescriptorsSortedAndSchemaShaped(t *testing.T) {
	r := NewToolRegistry()
	r.Register(&fakeTool{
		name:     "zeta",
		params:   map[string]any{"x": map[string]any{"type": "string"}},
		required: []string{"x"},
	})
	r.Register(&fakeTool{name: "alpha", params: map[string]any{}})

	defs := r.Descriptors()
	require.Len(t, defs, 2)
	assert.Equal(t, "alpha", defs[0].Name)
	assert.Equal(t, "zeta", defs[1].Name)

	// Schema wrapper is always a full object with required present.
	assert.Equal(t, "object", defs[0].Parameters["type"])
	assert.Equal(t, []string{}, defs[0].Parameters["required"])
	assert.Equal(t, []string{"x"}, defs[1].Parameters["required"])
}

// fakeController scripts the platform command surface.
type fakeController struct {
	resp *ActionResponse
	err  error
	last ActionRequest
}

func (c *fakeController) Execute(ctx context.Context, req ActionRequest) (*ActionResponse, error) {
	c.last = req
	if c.err != nil {
		return nil, c.err
	}
	return c.resp, nil
}

func (c *fakeController) Capabilities() []string { return []string{"run_command"} }

func TestShellToolSuccess(t *testing.T) {
	ctrl := &fakeController{resp: &ActionResponse{Success: true, Data: "hello\n"}}
	tool := NewShellTool(ctrl, NewPermissionSystem(PermissionAllow), 0)

	out, err := tool.Execute(context.Background(), map[string]any{"command": "echo hello"})
	require.NoError(t, err)
	assert.Equal(t, "Output:\nhello\n", out)
	assert.Equal(t, "run_command", ctrl.last.Action)
	assert.Equal(t, "echo hello", ctrl.last.Params["command"])
}

func TestShellToolPermissionDenied(t *testing.T) {
	ctrl := &fakeController{resp: &ActionResponse{Success: true, Data: ""}}
	tool := NewShellTool(ctrl, NewPermissionSystem(PermissionDeny), 0)

	out, err := tool.Execute(context.Background(), map[string]any{"command": "ls"})
	require.NoError(t, err)
	assert.Equal(t, "Permission Denied: Command 'ls' is not allowed.", out)
	// The controller is never reached.
	assert.Empty(t, ctrl.last.Action)
}

func TestShellToolFailureCarriesOutput(t *testing.T) {
	ctrl := &fakeController{resp: &ActionResponse{
		Success: false,
		Data:    "ls: cannot access 'nope': No such file or directory\n",
		Error:   "exit status 2",
	}}
	tool := NewShellTool(ctrl, NewPermissionSystem(PermissionAllow), 0)

	out, err := tool.Execute(context.Background(), map[string]any{"command": "ls nope"})
	require.NoError(t, err)
	assert.Contains(t, out, "Error executing command: exit status 2")
	assert.Contains(t, out, "No such file or directory")
}

func TestShellToolControllerError(t *testing.T) {
	ctrl := &fakeController{err: errors.New("worker unavailable")}
	tool := NewShellTool(ctrl, NewPermissionSystem(PermissionAllow), 0)

	out, err := tool.Execute(context.Background(), map[string]any{"command": "ls"})
	require.NoError(t, err)
	assert.Equal(t, "Error executing command: worker unavailable", out)
}

func TestShellToolMissingCommand(t *testing.T) {
	ctrl := &fakeController{}
	tool := NewShellTool(ctrl, NewPermissionSystem(PermissionAllow), 0)

	_, err := tool.Execute(context.Background(), map[string]any{})
	assert.Error(t, err)

	_, err = tool.Execute(context.Background(), map[string]any{"command": "   "})
	assert.Error(t, err)
}
