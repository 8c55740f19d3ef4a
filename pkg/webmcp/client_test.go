package webmcp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePool scripts the browser surface without a real browser.
type fakePool struct {
	pageCalls  []string
	evalResult any
	evalErr    error
	pageErr    error
	closed     []string
}

func (p *fakePool) Page(url string, forceNew bool) error {
	p.pageCalls = append(p.pageCalls, url)
	return p.pageErr
}

func (p *fakePool) Eval(url string, script string, arg any) (any, error) {
	if p.evalErr != nil {
		return nil, p.evalErr
	}
	return p.evalResult, nil
}

func (p *fakePool) ClosePage(url string) error {
	p.closed = append(p.closed, url)
	return nil
}

func discoveryPayload(title string, count int) map[string]any {
	tools := make([]any, 0, count)
	for i := 0; i < count; i++ {
		tools = append(tools, map[string]any{
			"name":        "tool",
			"description": "does things",
			"parameters":  map[string]any{},
			"source":      "webmcp",
		})
	}
	return map[string]any{
		"hasTools":  count > 0,
		"toolCount": count,
		"tools":     tools,
		"url":       "https://example.com",
		"title":     title,
	}
}

func TestDiscoverCachesResult(t *testing.T) {
	pool := &fakePool{evalResult: discoveryPayload("Example", 2)}
	c := NewClient(pool)

	first := c.Discover("https://example.com", false)
	require.Empty(t, first.Error)
	assert.False(t, first.FromCache)
	assert.Equal(t, 2, first.ToolCount)
	assert.Len(t, pool.pageCalls, 1)

	second := c.Discover("https://example.com", false)
	assert.True(t, second.FromCache)
	assert.Equal(t, 2, second.ToolCount)
	// The cached path never touches the browser again.
	assert.Len(t, pool.pageCalls, 1)
}

func TestDiscoverResultDetachedFromCache(t *testing.T) {
	pool := &fakePool{evalResult: discoveryPayload("Example", 2)}
	c := NewClient(pool)

	first := c.Discover("https://example.com", false)
	require.Len(t, first.Tools, 2)

	// Mutating a returned result must not corrupt the cached entry.
	first.Tools[0].Name = "mutated"
	first.Tools = first.Tools[:1]

	second := c.Discover("https://example.com", false)
	require.True(t, second.FromCache)
	require.Len(t, second.Tools, 2)
	assert.Equal(t, "tool", second.Tools[0].Name)
}

func TestDiscoverForceRefreshBypassesCache(t *testing.T) {
	pool := &fakePool{evalResult: discoveryPayload("Example", 1)}
	c := NewClient(pool)

	c.Discover("https://example.com", false)
	refreshed := c.Discover("https://example.com", true)
	assert.False(t, refreshed.FromCache)
	assert.Len(t, pool.pageCalls, 2)
}

func TestDiscoverPageErrorInResult(t *testing.T) {
	pool := &fakePool{pageErr: errors.New("navigation timeout")}
	c := NewClient(pool)

	result := c.Discover("https://broken.example", false)
	assert.Equal(t, "navigation timeout", result.Error)
	assert.Empty(t, result.Tools)

	// Failed discoveries are never cached.
	assert.Empty(t, c.CachedTools())
}

func TestDiscoverEmptyPayload(t *testing.T) {
	pool := &fakePool{evalResult: nil}
	c := NewClient(pool)

	result := c.Discover("https://blank.example", false)
	assert.Empty(t, result.Error)
	assert.Equal(t, "No tool data returned from page", result.Note)
	assert.Empty(t, c.CachedTools())
}

func TestExecuteSuccess(t *testing.T) {
	pool := &fakePool{evalResult: map[string]any{
		"success": true,
		"result":  "42",
		"source":  "webmcp",
	}}
	c := NewClient(pool)

	result := c.Execute("https://example.com", "add", map[string]any{"a": 1, "b": 41})
	assert.True(t, result.Success)
	assert.Equal(t, "42", result.Result)
}

func TestExecuteEvalError(t *testing.T) {
	pool := &fakePool{evalErr: errors.New("page closed")}
	c := NewClient(pool)

	result := c.Execute("https://example.com", "add", nil)
	assert.False(t, result.Success)
	assert.Equal(t, "page closed", result.Error)
}

func TestExecuteEmptyEvaluation(t *testing.T) {
	pool := &fakePool{evalResult: map[string]any{}}
	c := NewClient(pool)

	result := c.Execute("https://example.com", "add", nil)
	assert.False(t, result.Success)
	assert.Equal(t, "No result returned", result.Error)
}

func TestClearCacheSingleURL(t *testing.T) {
	pool := &fakePool{evalResult: discoveryPayload("Example", 1)}
	c := NewClient(pool)

	c.Discover("https://a.example", false)
	c.Discover("https://b.example", false)

	c.ClearCache("https://a.example")
	cached := c.CachedTools()
	assert.NotContains(t, cached, "https://a.example")
	assert.Contains(t, cached, "https://b.example")
	assert.Equal(t, []string{"https://a.example"}, pool.closed)
}

func TestClearCacheAll(t *testing.T) {
	pool := &fakePool{evalResult: discoveryPayload("Example", 1)}
	c := NewClient(pool)

	c.Discover("https://a.example", false)
	c.Discover("https://b.example", false)

	c.ClearCache("")
	assert.Empty(t, c.CachedTools())
}
