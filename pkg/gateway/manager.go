package gateway

import (
	"fmt"
	"log"
	"sync"
	"time"

	"relay/pkg/monitor"
)

// GatewayManager owns every registered Channel and routes messages between
// the channels and the core handler. Inbound messages flow through a bounded
// buffer so a burst from one platform cannot block the channel receive loops.
type GatewayManager struct {
	channels      map[string]Channel
	msgHandler    MessageHandler
	monitor       monitor.Monitor
	channelBuffer int // inbound buffer size
	inbound       chan *UnifiedMessage
	done          chan struct{}
	stopOnce      sync.Once
	mu            sync.RWMutex
}

// NewGatewayManager creates a new GatewayManager
func NewGatewayManager() *GatewayManager {
	return &GatewayManager{
		channels:      make(map[string]Channel),
		channelBuffer: 100, // default
		done:          make(chan struct{}),
	}
}

// SetChannelBuffer sets the inbound buffer size. Effective only before
// StartAll.
func (g *GatewayManager) SetChannelBuffer(size int) {
	if size > 0 {
		g.channelBuffer = size
	}
}

// SetMessageHandler sets the core message processing logic
func (g *GatewayManager) SetMessageHandler(handler MessageHandler) {
	g.msgHandler = handler
}

// SetMonitor sets the traffic monitor
func (g *GatewayManager) SetMonitor(m monitor.Monitor) {
	g.monitor = m
}

// Register registers a Channel
func (g *GatewayManager) Register(c Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[c.ID()] = c
}

// GetChannel returns a specific Channel (used for actively sending messages)
func (g *GatewayManager) GetChannel(id string) (Channel, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.channels[id]
	return c, ok
}

// StartAll starts the dispatch loop and every registered Channel
func (g *GatewayManager) StartAll() error {
	g.mu.Lock()
	if g.inbound == nil {
		g.inbound = make(chan *UnifiedMessage, g.channelBuffer)
		go g.dispatchLoop(g.inbound)
	}
	g.mu.Unlock()

	g.mu.RLock()
	defer g.mu.RUnlock()

	for id, c := range g.channels {
		log.Printf("Starting channel: %s", id)
		// Start the Channel, passing self as its context
		if err := c.Start(g); err != nil {
			return fmt.Errorf("failed to start channel %s: %w", id, err)
		}
	}
	return nil
}

// dispatchLoop drains the inbound buffer and hands each message to the core
// handler. It exits when StopAll fires.
func (g *GatewayManager) dispatchLoop(inbound <-chan *UnifiedMessage) {
	for {
		select {
		case <-g.done:
			return
		case msg := <-inbound:
			if g.msgHandler != nil {
				g.msgHandler(msg)
			} else {
				log.Println("[Gateway] Warning: No message handler set")
			}
		}
	}
}

// StopAll stops every Channel and the dispatch loop
func (g *GatewayManager) StopAll() {
	g.mu.RLock()
	for id, c := range g.channels {
		log.Printf("Stopping channel: %s", id)
		if err := c.Stop(); err != nil {
			log.Printf("Error stopping channel %s: %v", id, err)
		}
	}
	g.mu.RUnlock()

	g.stopOnce.Do(func() { close(g.done) })
}

// SendReply routes a reply back through the originating Channel
func (g *GatewayManager) SendReply(session SessionContext, content string) error {
	log.Printf("[Gateway] -> Reply to %s (%s): %s", session.ChannelID, session.Username, content)

	// Broadcast to the monitor
	if g.monitor != nil {
		g.monitor.OnMessage(monitor.MonitorMessage{
			Timestamp:   time.Now(),
			MessageType: "ASSISTANT",
			ChannelID:   session.ChannelID,
			Username:    session.Username,
			Content:     content,
		})
	}

	c, ok := g.GetChannel(session.ChannelID)
	if !ok {
		return fmt.Errorf("channel %s not found", session.ChannelID)
	}
	return c.Send(session, content)
}

// SendSignal sends a control signal (e.g. typing) to a Channel
func (g *GatewayManager) SendSignal(session SessionContext, signal string) error {
	c, ok := g.GetChannel(session.ChannelID)
	if !ok {
		return fmt.Errorf("channel %s not found", session.ChannelID)
	}

	// Check whether the Channel supports the signaling interface
	if sc, ok := c.(SignalingChannel); ok {
		log.Printf("[Gateway] -> Signal to %s (%s): %s", session.ChannelID, session.Username, signal)
		return sc.SendSignal(session, signal)
	}

	// Unsupported channels ignore signals silently
	return nil
}

// OnMessage implements the ChannelContext interface, receiving messages from Channels
func (g *GatewayManager) OnMessage(channelID string, msg *UnifiedMessage) {
	log.Printf("[Gateway] <- Received from %s [%s(%s)]: %s",
		channelID, msg.Session.Username, msg.Session.UserID, msg.Content)

	// Broadcast to the monitor
	if g.monitor != nil {
		g.monitor.OnMessage(monitor.MonitorMessage{
			Timestamp:   time.Now(),
			MessageType: "USER",
			ChannelID:   channelID,
			Username:    msg.Session.Username,
			Content:     msg.Content,
		})
	}

	g.mu.RLock()
	inbound := g.inbound
	g.mu.RUnlock()

	if inbound == nil {
		log.Println("[Gateway] Warning: message received before start, dropping")
		return
	}

	// Queue for the dispatch loop; a closed gateway drops the message.
	select {
	case inbound <- msg:
	case <-g.done:
	}
}
