package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyClient fails a fixed number of times before succeeding.
type flakyClient struct {
	failures  int
	transient bool
	calls     int
}

func (c *flakyClient) Provider() string { return "flaky" }

func (c *flakyClient) Chat(ctx context.Context, messages []Message, tools []ToolDef) (*ChatResponse, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, errors.New("temporarily overloaded")
	}
	return &ChatResponse{Content: "ok"}, nil
}

func (c *flakyClient) IsTransientError(err error) bool { return c.transient }

func TestFallbackFirstClientSucceeds(t *testing.T) {
	primary := &flakyClient{}
	backup := &flakyClient{}
	f := &FallbackClient{Clients: []Client{primary, backup}, MaxRetries: 3}

	resp, err := f.Chat(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, backup.calls)
}

func TestFallbackRetriesTransientErrors(t *testing.T) {
	primary := &flakyClient{failures: 2, transient: true}
	f := &FallbackClient{Clients: []Client{primary}, MaxRetries: 3, RetryDelay: time.Millisecond}

	resp, err := f.Chat(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 3, primary.calls)
}

func TestFallbackSkipsToNextOnPermanentError(t *testing.T) {
	// Non-transient errors burn no retries on the failing provider.
	primary := &flakyClient{failures: 10, transient: false}
	backup := &flakyClient{}
	f := &FallbackClient{Clients: []Client{primary, backup}, MaxRetries: 3, RetryDelay: time.Millisecond}

	resp, err := f.Chat(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, backup.calls)
}

func TestFallbackAllProvidersFail(t *testing.T) {
	a := &flakyClient{failures: 10, transient: true}
	b := &flakyClient{failures: 10, transient: true}
	f := &FallbackClient{Clients: []Client{a, b}, MaxRetries: 2, RetryDelay: time.Millisecond}

	_, err := f.Chat(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all fallback providers failed")
	assert.Equal(t, 2, a.calls)
	assert.Equal(t, 2, b.calls)
}

func TestFallbackOwnErrorsAreNotTransient(t *testing.T) {
	f := &FallbackClient{}
	assert.False(t, f.IsTransientError(errors.New("anything")))
}

func TestHasToolCalls(t *testing.T) {
	var nilResp *ChatResponse
	assert.False(t, nilResp.HasToolCalls())
	assert.False(t, (&ChatResponse{Content: "text"}).HasToolCalls())
	assert.True(t, (&ChatResponse{ToolCalls: []ToolCall{{ID: "1"}}}).HasToolCalls())
}

func TestWireFunctions(t *testing.T) {
	defs := []ToolDef{{
		Name:        "probe",
		Description: "does things",
		Parameters:  map[string]any{"type": "object"},
	}}
	wire := WireFunctions(defs)
	require.Len(t, wire, 1)
	assert.Equal(t, "function", wire[0]["type"])
	fn := wire[0]["function"].(map[string]any)
	assert.Equal(t, "probe", fn["name"])
	assert.Equal(t, "does things", fn["description"])
}
