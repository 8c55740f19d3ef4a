package tools

import (
	"context"
	"fmt"

	"relay/pkg/webmcp"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WebDiscoverTool scans a web page for tools it exposes to agents.
type WebDiscoverTool struct {
	client *webmcp.Client
}

func NewWebDiscoverTool(client *webmcp.Client) *WebDiscoverTool {
	return &WebDiscoverTool{client: client}
}

func (t *WebDiscoverTool) Name() string {
	return "web_discover_tools"
}

func (t *WebDiscoverTool) Description() string {
	return "Visits a URL and discovers tools the page exposes to agents (native model context API, meta tags, annotated elements, JSON-LD actions). Results are cached per URL."
}

func (t *WebDiscoverTool) Parameters() map[string]any {
	return map[string]any{
		"url": map[string]any{
			"type":        "string",
			"description": "The page URL to scan.",
		},
		"force_refresh": map[string]any{
			"type":        "boolean",
			"description": "Reload the page and rescan even if a cached result exists.",
		},
	}
}

func (t *WebDiscoverTool) RequiredParameters() []string {
	return []string{"url"}
}

func (t *WebDiscoverTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	url, ok := args["url"].(string)
	if !ok || url == "" {
		return "", fmt.Errorf("missing string parameter 'url'")
	}
	forceRefresh, _ := args["force_refresh"].(bool)

	result := t.client.Discover(url, forceRefresh)
	return marshalResult(result)
}

// WebExecuteTool invokes a previously discovered tool on a web page.
type WebExecuteTool struct {
	client *webmcp.Client
}

func NewWebExecuteTool(client *webmcp.Client) *WebExecuteTool {
	return &WebExecuteTool{client: client}
}

func (t *WebExecuteTool) Name() string {
	return "web_execute_tool"
}

func (t *WebExecuteTool) Description() string {
	return "Executes a named tool on a web page discovered via web_discover_tools."
}

func (t *WebExecuteTool) Parameters() map[string]any {
	return map[string]any{
		"url": map[string]any{
			"type":        "string",
			"description": "The page URL the tool lives on.",
		},
		"tool_name": map[string]any{
			"type":        "string",
			"description": "Name of the tool to execute.",
		},
		"arguments": map[string]any{
			"type":        "object",
			"description": "Arguments to pass to the tool.",
		},
	}
}

func (t *WebExecuteTool) RequiredParameters() []string {
	return []string{"url", "tool_name"}
}

func (t *WebExecuteTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	url, ok := args["url"].(string)
	if !ok || url == "" {
		return "", fmt.Errorf("missing string parameter 'url'")
	}
	toolName, ok := args["tool_name"].(string)
	if !ok || toolName == "" {
		return "", fmt.Errorf("missing string parameter 'tool_name'")
	}
	toolArgs, _ := args["arguments"].(map[string]any)

	result := t.client.Execute(url, toolName, toolArgs)
	return marshalResult(result)
}

// WebListTool lists every cached site discovery.
type WebListTool struct {
	client *webmcp.Client
}

func NewWebListTool(client *webmcp.Client) *WebListTool {
	return &WebListTool{client: client}
}

func (t *WebListTool) Name() string {
	return "web_list_tools"
}

func (t *WebListTool) Description() string {
	return "Lists the tools discovered so far, grouped by site."
}

func (t *WebListTool) Parameters() map[string]any {
	return map[string]any{}
}

func (t *WebListTool) RequiredParameters() []string {
	return nil
}

func (t *WebListTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	cached := t.client.CachedTools()
	if len(cached) == 0 {
		return "No web tools discovered yet. Use web_discover_tools with a URL first.", nil
	}
	return marshalResult(cached)
}

// WebClearCacheTool drops cached discoveries (and their pages).
type WebClearCacheTool struct {
	client *webmcp.Client
}

func NewWebClearCacheTool(client *webmcp.Client) *WebClearCacheTool {
	return &WebClearCacheTool{client: client}
}

func (t *WebClearCacheTool) Name() string {
	return "web_clear_cache"
}

func (t *WebClearCacheTool) Description() string {
	return "Clears the web tool discovery cache for one URL, or for every site when no URL is given."
}

func (t *WebClearCacheTool) Parameters() map[string]any {
	return map[string]any{
		"url": map[string]any{
			"type":        "string",
			"description": "URL to clear. Omit to clear everything.",
		},
	}
}

func (t *WebClearCacheTool) RequiredParameters() []string {
	return nil
}

func (t *WebClearCacheTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	url, _ := args["url"].(string)
	t.client.ClearCache(url)
	if url != "" {
		return fmt.Sprintf("Cache cleared for %s", url), nil
	}
	return "Cache cleared.", nil
}

func marshalResult(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(data), nil
}
