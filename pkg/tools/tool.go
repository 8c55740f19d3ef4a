package tools

import (
	"sort"
	"sync"

	"relay/pkg/api"
	"relay/pkg/llm"
)

// Re-export the tool contract from the api package.
type Tool = api.Tool

// ToolRegistry acts as a central inventory for all tools available to the agent.
type ToolRegistry struct {
	mu    sync.RWMutex    // Protects concurrent access to the tools map
	tools map[string]Tool // Internal map of tool name to implementation
}

// NewToolRegistry creates a new tool registry
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry
func (tr *ToolRegistry) Register(tool Tool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.tools[tool.Name()] = tool
}

// Unregister removes a tool from the registry
func (tr *ToolRegistry) Unregister(name string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	delete(tr.tools, name)
}

// Get retrieves a tool by name
func (tr *ToolRegistry) Get(name string) (Tool, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	tool, ok := tr.tools[name]
	return tool, ok
}

// GetAll returns all registered tools
func (tr *ToolRegistry) GetAll() []Tool {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	tools := make([]Tool, 0, len(tr.tools))
	for _, tool := range tr.tools {
		tools = append(tools, tool)
	}
	return tools
}

// Descriptors renders every registered tool as a provider-neutral
// definition, sorted by name so the prompt is deterministic.
func (tr *ToolRegistry) Descriptors() []llm.ToolDef {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	defs := make([]llm.ToolDef, 0, len(tr.tools))
	for _, tool := range tr.tools {
		required := tool.RequiredParameters()
		if required == nil {
			required = []string{}
		}
		defs = append(defs, llm.ToolDef{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters: map[string]any{
				"type":       "object",
				"properties": tool.Parameters(),
				"required":   required,
			},
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
