package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"relay/pkg/api"
	"relay/pkg/utils"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for decoupled UI
	},
}

type WebConfig struct {
	Port int `json:"port"` // Default: 9453
}

// IncomingMessage is the JSON payload accepted on both the WebSocket and
// the POST /chat endpoint. Plain text frames are also accepted on the
// WebSocket for backward compatibility.
type IncomingMessage struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// SafeConn serializes writes to one WebSocket connection.
type SafeConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (sc *SafeConn) WriteMessage(messageType int, data []byte) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.Conn.WriteMessage(messageType, data)
}

// WebChannel exposes the agent over HTTP: a synchronous POST /chat endpoint
// and a WebSocket at /ws. Replies are routed back by the request ID (HTTP)
// or connection ID (WebSocket) carried in SessionContext.UserID.
type WebChannel struct {
	config         WebConfig
	server         *http.Server
	requestTimeout time.Duration
	connections    map[string]*SafeConn   // Map connection ID -> WS Connection
	pending        map[string]chan string // Map request ID -> HTTP reply channel
	mu             sync.RWMutex
}

func NewWebChannel(cfg WebConfig, requestTimeout time.Duration) *WebChannel {
	if cfg.Port == 0 {
		cfg.Port = 9453
	}
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Minute
	}
	return &WebChannel{
		config:         cfg,
		requestTimeout: requestTimeout,
		connections:    make(map[string]*SafeConn),
		pending:        make(map[string]chan string),
	}
}

func (c *WebChannel) ID() string {
	return "web"
}

func (c *WebChannel) Start(ctx api.ChannelContext) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		c.handleWebSocket(w, r, ctx)
	})
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		c.handleChat(w, r, ctx)
	})

	addr := fmt.Sprintf(":%d", c.config.Port)
	c.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	slog.Info("Web API listening", "port", c.config.Port)

	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Web API server error", "error", err)
		}
	}()

	return nil
}

func (c *WebChannel) Stop() error {
	if c.server != nil {
		return c.server.Close()
	}
	return nil
}

// Send routes a reply to either a pending HTTP request or a live WebSocket
// connection, depending on where the message originated.
func (c *WebChannel) Send(session api.SessionContext, message string) error {
	c.mu.RLock()
	replyCh, isPending := c.pending[session.UserID]
	conn, isConnected := c.connections[session.UserID]
	c.mu.RUnlock()

	if isPending {
		select {
		case replyCh <- message:
		default:
			// Request already timed out and nobody is listening
		}
		return nil
	}

	if isConnected {
		payload, err := json.Marshal(map[string]string{
			"type": "reply",
			"text": message,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal reply: %w", err)
		}
		return conn.WriteMessage(websocket.TextMessage, payload)
	}

	return fmt.Errorf("web client %s not connected", session.UserID)
}

// SendSignal implements the gateway.SignalingChannel interface
func (c *WebChannel) SendSignal(session api.SessionContext, signal string) error {
	c.mu.RLock()
	conn, ok := c.connections[session.UserID]
	c.mu.RUnlock()

	if !ok {
		// HTTP requests have no signal surface; ignore silently
		return nil
	}

	msg := map[string]string{
		"type":  "signal",
		"value": signal,
	}
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, jsonData)
}

// handleChat serves the synchronous request/response endpoint: the HTTP
// request blocks until the agent reply comes back through Send.
func (c *WebChannel) handleChat(w http.ResponseWriter, r *http.Request, ctx api.ChannelContext) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var incoming IncomingMessage
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(incoming.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	chatID := incoming.SessionID
	if chatID == "" {
		chatID = "global"
	}

	// The request ID doubles as the reply routing key
	requestID := utils.GenerateID()
	replyCh := make(chan string, 1)

	c.mu.Lock()
	c.pending[requestID] = replyCh
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, requestID)
		c.mu.Unlock()
	}()

	session := api.SessionContext{
		ChannelID: "web",
		UserID:    requestID,
		ChatID:    chatID,
		Username:  "WebUser",
	}

	ctx.OnMessage(c.ID(), &api.UnifiedMessage{
		Session: session,
		Content: incoming.Message,
	})

	select {
	case reply := <-replyCh:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"response": reply})
	case <-time.After(c.requestTimeout):
		http.Error(w, "request timed out", http.StatusGatewayTimeout)
	case <-r.Context().Done():
		// Client went away; the reply is dropped when it arrives
	}
}

func (c *WebChannel) handleWebSocket(w http.ResponseWriter, r *http.Request, ctx api.ChannelContext) {
	rawConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WS Upgrade failed", "error", err)
		return
	}

	// Wrap connection
	conn := &SafeConn{Conn: rawConn}

	// Connection ID doubles as the reply routing key
	connID := utils.GenerateID()

	// Register connection
	c.mu.Lock()
	c.connections[connID] = conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.connections, connID)
		c.mu.Unlock()
		conn.Close()
	}()

	for {
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var content string
		chatID := "global"

		// Try to parse as JSON first
		var incoming IncomingMessage
		if err := json.Unmarshal(msgBytes, &incoming); err == nil && incoming.Message != "" {
			content = incoming.Message
			if incoming.SessionID != "" {
				chatID = incoming.SessionID
			}
		} else {
			// Fallback: treat as plain text (backward compatibility)
			content = string(msgBytes)
		}

		if strings.TrimSpace(content) == "" {
			continue
		}

		session := api.SessionContext{
			ChannelID: "web",
			UserID:    connID,
			ChatID:    chatID,
			Username:  "WebUser",
		}

		ctx.OnMessage(c.ID(), &api.UnifiedMessage{
			Session: session,
			Content: content,
		})
	}
}
