package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"relay/pkg/llm"
	"relay/pkg/memory"
	"relay/pkg/session"
	"relay/pkg/tools"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// finalNudge is injected as a system message once the tool round budget
	// is spent, before the single closing call made without tools.
	finalNudge = "You must now respond to the user with the information gathered. Do not call any more tools."

	truncationNotice = "\n\n[... truncated for length. Present the above results to the user.]"

	fallbackNoResponse = "I processed the request but have no additional response."
	fallbackNoSummary  = "I processed the request but couldn't generate a summary."
	errorApology       = "I encountered an error communicating with my local brain."
)

// Orchestrator drives the bounded tool-calling loop: it persists the user
// message, offers the registry's tools to the model for a fixed number of
// rounds, executes whatever the model calls, and always produces a final
// text reply. Only the user message and the final assistant reply are
// persisted; intermediate tool traffic stays in memory.
type Orchestrator struct {
	client       llm.Client
	store        *session.Store
	registry     *tools.ToolRegistry
	memory       memory.Service // nil when long-term memory is disabled
	systemPrompt string

	maxRounds     int
	resultLimit   int
	memoryResults int
}

// Options tunes the loop. Zero values fall back to defaults.
type Options struct {
	SystemPrompt  string
	MaxToolRounds int // rounds with tools offered, default 3
	ResultLimit   int // tool result byte cap, default 4000
	MemoryResults int // memories folded into context, default 3
	Memory        memory.Service
}

// NewOrchestrator wires the loop dependencies together.
func NewOrchestrator(client llm.Client, store *session.Store, registry *tools.ToolRegistry, opts Options) *Orchestrator {
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = 3
	}
	if opts.ResultLimit <= 0 {
		opts.ResultLimit = 4000
	}
	if opts.MemoryResults <= 0 {
		opts.MemoryResults = 3
	}
	return &Orchestrator{
		client:        client,
		store:         store,
		registry:      registry,
		memory:        opts.Memory,
		systemPrompt:  opts.SystemPrompt,
		maxRounds:     opts.MaxToolRounds,
		resultLimit:   opts.ResultLimit,
		memoryResults: opts.MemoryResults,
	}
}

// Process handles one user message end to end and returns the reply text.
// It never returns an empty string: every failure mode degrades to a
// human-readable fallback.
func (o *Orchestrator) Process(ctx context.Context, sessionID, content string) string {
	// Persist before calling the backend. A crash mid-loop must never lose
	// the user's message.
	if err := o.store.Append(sessionID, llm.NewUserMessage(content)); err != nil {
		slog.Error("Failed to persist user message", "session", sessionID, "error", err)
	}

	history, err := o.store.Load(sessionID)
	if err != nil {
		slog.Error("Failed to load session history", "session", sessionID, "error", err)
	}

	transcript := make([]llm.Message, 0, len(history)+2)
	if o.systemPrompt != "" {
		transcript = append(transcript, llm.NewSystemMessage(o.systemPrompt))
	}
	if len(history) > 0 {
		// The just-persisted user message is the history tail; the augmented
		// copy below replaces it in the outgoing transcript only.
		transcript = append(transcript, history[:len(history)-1]...)
	}
	transcript = append(transcript, llm.NewUserMessage(o.augmentWithMemories(ctx, content)))

	defs := o.registry.Descriptors()
	var lastResults []string

	for round := 0; round < o.maxRounds; round++ {
		resp, err := o.client.Chat(ctx, transcript, defs)
		if err != nil {
			return o.finishWithError(sessionID, err)
		}

		if !resp.HasToolCalls() {
			reply := strings.TrimSpace(resp.Content)
			if reply == "" {
				reply = fallbackNoResponse
			}
			return o.finish(sessionID, reply)
		}

		slog.Info("🔧 Model requested tools", "session", sessionID, "round", round+1, "count", len(resp.ToolCalls))

		assistant := llm.NewAssistantMessage(resp.Content)
		assistant.ToolCalls = resp.ToolCalls
		transcript = append(transcript, assistant)

		for _, tc := range resp.ToolCalls {
			result := o.dispatch(ctx, tc)
			if len(result) > o.resultLimit {
				result = truncate(result, o.resultLimit)
			}
			lastResults = append(lastResults, result)
			if len(lastResults) > 2 {
				lastResults = lastResults[len(lastResults)-2:]
			}
			transcript = append(transcript, llm.NewToolMessage(tc.ID, tc.Name, result))
		}
	}

	// Round budget spent. One closing call with tools withheld; any tool
	// calls the model still emits are ignored.
	transcript = append(transcript, llm.NewSystemMessage(finalNudge))
	resp, err := o.client.Chat(ctx, transcript, nil)
	if err != nil {
		return o.finishWithError(sessionID, err)
	}

	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		if len(lastResults) > 0 {
			reply = strings.Join(lastResults, "\n\n")
		} else {
			reply = fallbackNoSummary
		}
	}
	return o.finish(sessionID, reply)
}

// augmentWithMemories folds relevant long-term memories into the outgoing
// copy of the user message. The persisted record keeps the literal text.
func (o *Orchestrator) augmentWithMemories(ctx context.Context, content string) string {
	if o.memory == nil {
		return content
	}
	entries, err := o.memory.Search(ctx, content, o.memoryResults)
	if err != nil {
		slog.Warn("Memory lookup failed", "error", err)
		return content
	}
	if len(entries) == 0 {
		return content
	}

	var b strings.Builder
	b.WriteString("Relevant memories about this user:\n")
	for _, e := range entries {
		b.WriteString("- ")
		b.WriteString(e.Text)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(content)
	return b.String()
}

// dispatch executes one tool call. Every failure becomes result text so the
// model can react to it; a panicking tool never takes the loop down.
func (o *Orchestrator) dispatch(ctx context.Context, tc llm.ToolCall) (result string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Tool panicked", "tool", tc.Name, "panic", r)
			result = fmt.Sprintf("Error executing tool %s: panic: %v", tc.Name, r)
		}
	}()

	tool, ok := o.registry.Get(tc.Name)
	if !ok {
		return fmt.Sprintf("Error: Tool %s not found.", tc.Name)
	}

	args := make(map[string]any)
	if raw := strings.TrimSpace(tc.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return fmt.Sprintf("Error executing tool %s: invalid arguments: %v", tc.Name, err)
		}
	}

	slog.Info("⚡ Executing tool", "tool", tc.Name)
	out, err := tool.Execute(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error executing tool %s: %v", tc.Name, err)
	}
	return out
}

// truncate caps s at limit bytes, backing up to a rune boundary so the
// transcript never carries a split multi-byte character.
func truncate(s string, limit int) string {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncationNotice
}

// finish persists the assistant reply and returns it.
func (o *Orchestrator) finish(sessionID, reply string) string {
	if err := o.store.Append(sessionID, llm.NewAssistantMessage(reply)); err != nil {
		slog.Error("Failed to persist assistant reply", "session", sessionID, "error", err)
	}
	return reply
}

// finishWithError returns the user-facing apology while persisting a copy
// annotated with the underlying error for later debugging.
func (o *Orchestrator) finishWithError(sessionID string, err error) string {
	slog.Error("❌ Backend call failed", "session", sessionID, "error", err)
	annotated := fmt.Sprintf("%s (Debug: %v)", errorApology, err)
	if appendErr := o.store.Append(sessionID, llm.NewAssistantMessage(annotated)); appendErr != nil {
		slog.Error("Failed to persist error reply", "session", sessionID, "error", appendErr)
	}
	return errorApology
}
