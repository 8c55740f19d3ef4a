package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// json is the package-wide JSON codec, unified on json-iterator.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Usage carries the token accounting reported by a provider.
type Usage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	StopReason       string `json:"stop_reason,omitempty"`
}

// ChatResponse is the complete (non-streaming) result of one model call.
// Content and ToolCalls may both be set; an empty response has neither.
type ChatResponse struct {
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	StopReason string     `json:"stop_reason,omitempty"`
	Usage      *Usage     `json:"usage,omitempty"`
}

// HasToolCalls reports whether the model requested tool execution.
func (r *ChatResponse) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// Client is the generic LLM client interface.
type Client interface {
	// Provider returns the short provider name ("openai", "gemini", ...).
	Provider() string

	// Chat performs one blocking model call over the full transcript.
	// tools may be nil to withhold tool calling for this request.
	Chat(ctx context.Context, messages []Message, tools []ToolDef) (*ChatResponse, error)

	// IsTransientError reports whether the error is worth retrying
	// (503, rate limit, network timeout and similar).
	IsTransientError(err error) bool
}

// FallbackClient tries multiple clients in priority order.
type FallbackClient struct {
	Clients    []Client
	MaxRetries int
	RetryDelay time.Duration
}

func (f *FallbackClient) Provider() string {
	return "fallback"
}

func (f *FallbackClient) Chat(ctx context.Context, messages []Message, tools []ToolDef) (*ChatResponse, error) {
	var lastErr error
	for i, client := range f.Clients {
		if i > 0 {
			log.Printf("⚠️ Previous provider failed. Trying fallback provider #%d...", i+1)
		}

		maxRetries := f.MaxRetries
		if maxRetries <= 0 {
			maxRetries = 1
		}

		for retry := 1; retry <= maxRetries; retry++ {
			if retry > 1 {
				log.Printf("🔄 Retrying provider #%d (attempt %d/%d)...", i+1, retry, maxRetries)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Duration(retry-1) * f.RetryDelay):
				}
			}

			resp, err := client.Chat(ctx, messages, tools)
			if err == nil {
				return resp, nil
			}

			lastErr = err

			if client.IsTransientError(err) && retry < maxRetries {
				log.Printf("❌ Provider #%d failed with transient error: %v. Retrying...", i+1, err)
				continue
			}

			// Non-transient error, or retry budget exhausted: move on
			// to the next provider in the chain.
			log.Printf("❌ Provider #%d failed: %v", i+1, err)
			break
		}
	}
	return nil, fmt.Errorf("all fallback providers failed. Last error: %v", lastErr)
}

// IsTransientError implements the Client interface. A FallbackClient error
// means every child already failed, so it is treated as non-transient.
func (f *FallbackClient) IsTransientError(err error) bool {
	return false
}
