package tools

import (
	"context"
	"fmt"
	"strings"

	"relay/pkg/memory"
)

// SaveMemoryTool persists one fact into long-term memory.
type SaveMemoryTool struct {
	store memory.Service
}

func NewSaveMemoryTool(store memory.Service) *SaveMemoryTool {
	return &SaveMemoryTool{store: store}
}

func (t *SaveMemoryTool) Name() string {
	return "save_memory"
}

func (t *SaveMemoryTool) Description() string {
	return "Saves an important fact about the user or conversation to long-term memory."
}

func (t *SaveMemoryTool) Parameters() map[string]any {
	return map[string]any{
		"content": map[string]any{
			"type":        "string",
			"description": "The fact to remember.",
		},
	}
}

func (t *SaveMemoryTool) RequiredParameters() []string {
	return []string{"content"}
}

func (t *SaveMemoryTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	content, ok := args["content"].(string)
	if !ok || strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("missing string parameter 'content'")
	}
	if t.store == nil {
		return "Memory store not configured.", nil
	}
	if err := t.store.Add(ctx, content, nil); err != nil {
		return fmt.Sprintf("Error saving memory: %v", err), nil
	}
	return "Memory saved successfully.", nil
}

// SearchMemoryTool retrieves the most relevant remembered facts.
type SearchMemoryTool struct {
	store memory.Service
	k     int
}

// NewSearchMemoryTool binds a memory service. k is the number of results to
// return; zero means 3.
func NewSearchMemoryTool(store memory.Service, k int) *SearchMemoryTool {
	if k <= 0 {
		k = 3
	}
	return &SearchMemoryTool{store: store, k: k}
}

func (t *SearchMemoryTool) Name() string {
	return "memory_search"
}

func (t *SearchMemoryTool) Description() string {
	return "Searches long-term memory for facts relevant to a query."
}

func (t *SearchMemoryTool) Parameters() map[string]any {
	return map[string]any{
		"query": map[string]any{
			"type":        "string",
			"description": "What to look for in memory.",
		},
	}
}

func (t *SearchMemoryTool) RequiredParameters() []string {
	return []string{"query"}
}

func (t *SearchMemoryTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("missing string parameter 'query'")
	}
	if t.store == nil {
		return "Memory store not configured.", nil
	}

	entries, err := t.store.Search(ctx, query, t.k)
	if err != nil {
		return fmt.Sprintf("Error searching memory: %v", err), nil
	}
	if len(entries) == 0 {
		return "No relevant memories found.", nil
	}

	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		texts = append(texts, e.Text)
	}
	return fmt.Sprintf("Found memory: %s", strings.Join(texts, "\n")), nil
}
