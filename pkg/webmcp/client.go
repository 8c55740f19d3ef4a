package webmcp

import (
	"fmt"
	"log/slog"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Pool is the narrow browser surface the client needs. Pages stay inside
// the pool; only JSON-compatible evaluation results cross this boundary.
type Pool interface {
	// Page loads the URL into the pool cache (forceNew reloads it fresh).
	Page(url string, forceNew bool) error
	// Eval evaluates a script on the page for the URL, loading it first
	// if needed. arg, when non-nil, is passed to the script function.
	Eval(url string, script string, arg any) (any, error)
	// ClosePage releases the page held for the URL.
	ClosePage(url string) error
}

// DiscoveredTool is one capability found on a page.
type DiscoveredTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Source      string         `json:"source"`
	// Content carries inline page text for the __page_content pseudo-tool.
	Content string `json:"content,omitempty"`
}

// DiscoveryResult is the complete outcome of scanning one URL. Failures are
// represented in Error rather than returned as Go errors, so the model
// always receives a structured result.
type DiscoveryResult struct {
	HasTools  bool             `json:"hasTools"`
	ToolCount int              `json:"toolCount"`
	Tools     []DiscoveredTool `json:"tools"`
	URL       string           `json:"url"`
	Title     string           `json:"title"`
	FromCache bool             `json:"fromCache"`
	Error     string           `json:"error,omitempty"`
	Note      string           `json:"note,omitempty"`
}

// ExecutionResult is the structured outcome of one tool invocation.
type ExecutionResult struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
	Source  string `json:"source,omitempty"`
}

// CachedSite summarizes one cached discovery for listing.
type CachedSite struct {
	Title     string        `json:"title"`
	ToolCount int           `json:"toolCount"`
	Tools     []ToolSummary `json:"tools"`
}

// ToolSummary is the name/description pair shown in cache listings.
type ToolSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Client discovers and executes page-exposed tools through a browser pool,
// with a per-URL discovery cache. Safe for concurrent use.
type Client struct {
	pool  Pool
	mu    sync.Mutex
	cache map[string]*DiscoveryResult
}

// NewClient wraps a browser pool.
func NewClient(pool Pool) *Client {
	return &Client{
		pool:  pool,
		cache: make(map[string]*DiscoveryResult),
	}
}

// Discover scans a URL for exposed tools. Cached results are served with
// FromCache set unless forceRefresh bypasses (and replaces) the cache.
// Discover never fails: any error comes back inside the result.
func (c *Client) Discover(url string, forceRefresh bool) *DiscoveryResult {
	if !forceRefresh {
		c.mu.Lock()
		if cached, ok := c.cache[url]; ok {
			c.mu.Unlock()
			out := cached.clone()
			out.FromCache = true
			return out
		}
		c.mu.Unlock()
	}

	if err := c.pool.Page(url, forceRefresh); err != nil {
		return errorResult(url, err)
	}

	raw, err := c.pool.Eval(url, discoverToolsJS, nil)
	if err != nil {
		return errorResult(url, err)
	}

	result, err := decodeDiscovery(raw)
	if err != nil || result == nil {
		slog.Debug("Discovery returned no usable data", "url", url, "error", err)
		return &DiscoveryResult{
			Tools:     []DiscoveredTool{},
			URL:       url,
			Note:      "No tool data returned from page",
			FromCache: false,
		}
	}

	result.FromCache = false
	c.mu.Lock()
	c.cache[url] = result
	c.mu.Unlock()

	return result.clone()
}

// Execute invokes a named tool on the page for the URL. The page is
// resolved through the pool (reusing the cached page when present); no
// re-discovery happens. Execute never fails as a Go error.
func (c *Client) Execute(url, toolName string, args map[string]any) *ExecutionResult {
	if args == nil {
		args = map[string]any{}
	}

	raw, err := c.pool.Eval(url, executeToolJS, map[string]any{
		"toolName": toolName,
		"args":     args,
	})
	if err != nil {
		return &ExecutionResult{Success: false, Error: err.Error()}
	}

	var result ExecutionResult
	if err := reencode(raw, &result); err != nil {
		return &ExecutionResult{Success: false, Error: fmt.Sprintf("unreadable execution result: %v", err)}
	}
	if !result.Success && result.Error == "" && result.Result == nil {
		return &ExecutionResult{Success: false, Error: "No result returned"}
	}
	return &result
}

// CachedTools summarizes every cached discovery, keyed by URL.
func (c *Client) CachedTools() map[string]CachedSite {
	c.mu.Lock()
	defer c.mu.Unlock()

	summary := make(map[string]CachedSite, len(c.cache))
	for url, data := range c.cache {
		site := CachedSite{
			Title:     data.Title,
			ToolCount: data.ToolCount,
			Tools:     make([]ToolSummary, 0, len(data.Tools)),
		}
		for _, t := range data.Tools {
			site.Tools = append(site.Tools, ToolSummary{Name: t.Name, Description: t.Description})
		}
		summary[url] = site
	}
	return summary
}

// ClearCache drops the cached discovery for one URL (releasing its page),
// or every cached discovery when url is empty.
func (c *Client) ClearCache(url string) {
	c.mu.Lock()
	if url != "" {
		delete(c.cache, url)
	} else {
		c.cache = make(map[string]*DiscoveryResult)
	}
	c.mu.Unlock()

	if url != "" {
		if err := c.pool.ClosePage(url); err != nil {
			slog.Debug("Page release failed", "url", url, "error", err)
		}
	}
}

// clone detaches the Tools slice so callers can mutate the result without
// corrupting the cached entry.
func (r *DiscoveryResult) clone() *DiscoveryResult {
	out := *r
	out.Tools = append([]DiscoveredTool(nil), r.Tools...)
	return &out
}

func errorResult(url string, err error) *DiscoveryResult {
	return &DiscoveryResult{
		Tools:     []DiscoveredTool{},
		URL:       url,
		Error:     err.Error(),
		FromCache: false,
	}
}

func decodeDiscovery(raw any) (*DiscoveryResult, error) {
	if raw == nil {
		return nil, nil
	}
	var result DiscoveryResult
	if err := reencode(raw, &result); err != nil {
		return nil, err
	}
	if result.URL == "" && result.ToolCount == 0 && len(result.Tools) == 0 && result.Title == "" {
		return nil, nil
	}
	if result.Tools == nil {
		result.Tools = []DiscoveredTool{}
	}
	return &result, nil
}

// reencode converts an arbitrary evaluation value into a typed structure
// via a JSON round trip.
func reencode(raw any, dst any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
