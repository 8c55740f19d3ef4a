package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"relay/pkg/llm"
	"relay/pkg/session"
	"relay/pkg/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedCall captures one backend invocation for later inspection.
type recordedCall struct {
	messages []llm.Message
	tools    []llm.ToolDef
}

// scriptedClient replays a fixed sequence of responses. When the script is
// shorter than the call count, the last response repeats.
type scriptedClient struct {
	responses []*llm.ChatResponse
	err       error
	calls     []recordedCall
}

func (c *scriptedClient) Provider() string { return "scripted" }

func (c *scriptedClient) Chat(ctx context.Context, messages []llm.Message, defs []llm.ToolDef) (*llm.ChatResponse, error) {
	copied := make([]llm.Message, len(messages))
	copy(copied, messages)
	c.calls = append(c.calls, recordedCall{messages: copied, tools: defs})
	if c.err != nil {
		return nil, c.err
	}
	idx := len(c.calls) - 1
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	return c.responses[idx], nil
}

func (c *scriptedClient) IsTransientError(err error) bool { return false }

type stubTool struct {
	name    string
	execute func(args map[string]any) (string, error)
	calls   int
}

func (t *stubTool) Name() string                { return t.name }
func (t *stubTool) Description() string         { return "test tool" }
func (t *stubTool) Parameters() map[string]any  { return map[string]any{} }
func (t *stubTool) RequiredParameters() []string { return nil }

func (t *stubTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	t.calls++
	return t.execute(args)
}

func newTestOrchestrator(t *testing.T, client llm.Client, toolSet ...tools.Tool) (*Orchestrator, *session.Store) {
	t.Helper()
	store, err := session.NewStore(t.TempDir())
	require.NoError(t, err)

	registry := tools.NewToolRegistry()
	for _, tool := range toolSet {
		registry.Register(tool)
	}

	orch := NewOrchestrator(client, store, registry, Options{MaxToolRounds: 3})
	return orch, store
}

func toolCallResponse(name, args string) *llm.ChatResponse {
	return &llm.ChatResponse{
		ToolCalls: []llm.ToolCall{{
			ID:       "call_1",
			Name:     name,
			Function: llm.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func TestProcessPlainReply(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{{Content: "Hello there."}}}
	orch, store := newTestOrchestrator(t, client)

	reply := orch.Process(context.Background(), "s1", "hi")
	assert.Equal(t, "Hello there.", reply)
	assert.Len(t, client.calls, 1)

	// Only the user message and the final reply are persisted.
	history, err := store.Load("s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, llm.RoleUser, history[0].Role)
	assert.Equal(t, "hi", history[0].Content)
	assert.Equal(t, llm.RoleAssistant, history[1].Role)
	assert.Equal(t, "Hello there.", history[1].Content)
}

func TestProcessEmptyReplyFallsBack(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{{Content: "   \n"}}}
	orch, _ := newTestOrchestrator(t, client)

	reply := orch.Process(context.Background(), "s1", "hi")
	assert.Equal(t, fallbackNoResponse, reply)
}

func TestProcessRoundBudgetForcesFinalAnswer(t *testing.T) {
	tool := &stubTool{name: "probe", execute: func(map[string]any) (string, error) {
		return "probe output", nil
	}}
	// The model never stops calling tools on its own.
	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolCallResponse("probe", `{}`),
		toolCallResponse("probe", `{}`),
		toolCallResponse("probe", `{}`),
		{Content: "Here is what I found."},
	}}
	orch, store := newTestOrchestrator(t, client, tool)

	reply := orch.Process(context.Background(), "s1", "dig in")
	assert.Equal(t, "Here is what I found.", reply)

	// Three tool rounds plus exactly one closing call.
	require.Len(t, client.calls, 4)
	assert.Equal(t, 3, tool.calls)

	// The closing call withholds tools and carries the nudge.
	final := client.calls[3]
	assert.Nil(t, final.tools)
	last := final.messages[len(final.messages)-1]
	assert.Equal(t, llm.RoleSystem, last.Role)
	assert.Equal(t, finalNudge, last.Content)

	history, err := store.Load("s1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestProcessForcedRoundEmptyUsesToolResults(t *testing.T) {
	tool := &stubTool{name: "probe"}
	tool.execute = func(map[string]any) (string, error) {
		return fmt.Sprintf("result-%d", tool.calls), nil
	}
	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolCallResponse("probe", `{}`),
		toolCallResponse("probe", `{}`),
		toolCallResponse("probe", `{}`),
		{Content: ""},
	}}
	orch, _ := newTestOrchestrator(t, client, tool)

	// With the summary empty, the last two tool results stand in for it.
	reply := orch.Process(context.Background(), "s1", "dig in")
	assert.Equal(t, "result-2\n\nresult-3", reply)
}

func TestProcessTruncatesOversizedToolResults(t *testing.T) {
	huge := strings.Repeat("x", 5000)
	tool := &stubTool{name: "probe", execute: func(map[string]any) (string, error) {
		return huge, nil
	}}
	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolCallResponse("probe", `{}`),
		{Content: "done"},
	}}
	orch, _ := newTestOrchestrator(t, client, tool)
	orch.Process(context.Background(), "s1", "go")

	require.Len(t, client.calls, 2)
	msgs := client.calls[1].messages
	result := msgs[len(msgs)-1]
	require.Equal(t, llm.RoleTool, result.Role)
	assert.True(t, strings.HasSuffix(result.Content, truncationNotice))
	assert.Len(t, result.Content, 4000+len(truncationNotice))
}

func TestProcessTruncationKeepsRuneBoundary(t *testing.T) {
	// A multi-byte rune straddles the byte limit; the cut must back up to
	// the rune start instead of splitting it.
	huge := strings.Repeat("x", 3999) + strings.Repeat("世", 100)
	tool := &stubTool{name: "probe", execute: func(map[string]any) (string, error) {
		return huge, nil
	}}
	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolCallResponse("probe", `{}`),
		{Content: "done"},
	}}
	orch, _ := newTestOrchestrator(t, client, tool)
	orch.Process(context.Background(), "s1", "go")

	require.Len(t, client.calls, 2)
	msgs := client.calls[1].messages
	result := msgs[len(msgs)-1]
	require.Equal(t, llm.RoleTool, result.Role)
	assert.True(t, strings.HasSuffix(result.Content, truncationNotice))

	body := strings.TrimSuffix(result.Content, truncationNotice)
	assert.True(t, utf8.ValidString(body))
	assert.Len(t, body, 3999)
}

func TestProcessUnknownToolFedBackToModel(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolCallResponse("nope", `{}`),
		{Content: "recovered"},
	}}
	orch, _ := newTestOrchestrator(t, client)

	reply := orch.Process(context.Background(), "s1", "go")
	assert.Equal(t, "recovered", reply)

	msgs := client.calls[1].messages
	result := msgs[len(msgs)-1]
	assert.Equal(t, "Error: Tool nope not found.", result.Content)
}

func TestProcessBackendErrorReturnsApology(t *testing.T) {
	client := &scriptedClient{err: errors.New("connection refused")}
	orch, store := newTestOrchestrator(t, client)

	reply := orch.Process(context.Background(), "s1", "hi")
	assert.Equal(t, errorApology, reply)

	// The persisted copy carries the debug annotation the user never sees.
	history, err := store.Load("s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, errorApology+" (Debug: connection refused)", history[1].Content)
}

func TestDispatchToolErrorBecomesResultText(t *testing.T) {
	tool := &stubTool{name: "probe", execute: func(map[string]any) (string, error) {
		return "", errors.New("disk full")
	}}
	client := &scriptedClient{}
	orch, _ := newTestOrchestrator(t, client, tool)

	result := orch.dispatch(context.Background(), llm.ToolCall{
		Name:     "probe",
		Function: llm.FunctionCall{Name: "probe", Arguments: `{}`},
	})
	assert.Equal(t, "Error executing tool probe: disk full", result)
}

func TestDispatchInvalidArguments(t *testing.T) {
	tool := &stubTool{name: "probe", execute: func(map[string]any) (string, error) {
		return "ok", nil
	}}
	client := &scriptedClient{}
	orch, _ := newTestOrchestrator(t, client, tool)

	result := orch.dispatch(context.Background(), llm.ToolCall{
		Name:     "probe",
		Function: llm.FunctionCall{Name: "probe", Arguments: `{not json`},
	})
	assert.True(t, strings.HasPrefix(result, "Error executing tool probe: invalid arguments:"))
	assert.Zero(t, tool.calls)
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	tool := &stubTool{name: "probe", execute: func(map[string]any) (string, error) {
		panic("boom")
	}}
	client := &scriptedClient{}
	orch, _ := newTestOrchestrator(t, client, tool)

	result := orch.dispatch(context.Background(), llm.ToolCall{
		Name:     "probe",
		Function: llm.FunctionCall{Name: "probe", Arguments: `{}`},
	})
	assert.Equal(t, "Error executing tool probe: panic: boom", result)
}
