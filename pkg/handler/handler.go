package handler

import (
	"context"
	"log/slog"
	"time"

	"relay/pkg/api"
)

// ChatHandler bridges the gateway and the agent: each incoming message is
// processed on its own goroutine and the reply is routed back through the
// channel it came from. It implements api.GatewayHandler.
type ChatHandler struct {
	agent     api.Agent
	responder api.MessageResponder
	timeout   time.Duration
}

// NewChatHandler creates a handler for the given agent. timeout bounds one
// full agent run; zero means 10 minutes.
func NewChatHandler(agent api.Agent, timeout time.Duration) *ChatHandler {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &ChatHandler{
		agent:   agent,
		timeout: timeout,
	}
}

// SetResponder implements api.ResponderAware. The gateway injects itself
// here during Build.
func (h *ChatHandler) SetResponder(responder api.MessageResponder) {
	h.responder = responder
}

// OnMessage is the entry point for incoming messages. Processing happens on
// a separate goroutine so one slow conversation never blocks the gateway
// loop or other sessions.
func (h *ChatHandler) OnMessage(msg *api.UnifiedMessage) {
	if h.responder == nil {
		slog.Error("No responder configured, dropping message", "channel", msg.Session.ChannelID)
		return
	}

	go func() {
		start := time.Now()
		sessionID := msg.Session.SessionID()
		slog.Info("Message received", "channel", msg.Session.ChannelID, "user", msg.Session.Username, "session", sessionID)

		// Best effort: platforms without signal support ignore this.
		if err := h.responder.SendSignal(msg.Session, "typing"); err != nil {
			slog.Debug("Signal send failed", "error", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()

		reply := h.agent.Process(ctx, sessionID, msg.Content)

		if err := h.responder.SendReply(msg.Session, reply); err != nil {
			slog.Error("Failed to send reply", "channel", msg.Session.ChannelID, "error", err)
		}

		slog.Info("Agent loop finished", "session", sessionID, "duration", time.Since(start).String())
	}()
}
