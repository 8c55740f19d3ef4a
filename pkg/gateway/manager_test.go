package gateway

import (
	"testing"
	"time"

	"relay/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoChannel records what the gateway sends through it.
type echoChannel struct {
	id      string
	sent    []string
	signals []string
}

func (c *echoChannel) ID() string                        { return c.id }
func (c *echoChannel) Start(ctx api.ChannelContext) error { return nil }
func (c *echoChannel) Stop() error                        { return nil }

func (c *echoChannel) Send(session api.SessionContext, message string) error {
	c.sent = append(c.sent, message)
	return nil
}

func (c *echoChannel) SendSignal(session api.SessionContext, signal string) error {
	c.signals = append(c.signals, signal)
	return nil
}

func testMessage(channelID, content string) *api.UnifiedMessage {
	return &api.UnifiedMessage{
		Session: api.SessionContext{ChannelID: channelID, ChatID: "1", Username: "tester"},
		Content: content,
	}
}

func TestInboundBufferSizedFromConfig(t *testing.T) {
	g := NewGatewayManager()
	g.SetChannelBuffer(4)
	g.SetMessageHandler(func(*api.UnifiedMessage) {})
	require.NoError(t, g.StartAll())
	defer g.StopAll()

	assert.Equal(t, 4, cap(g.inbound))
}

func TestMessagesFlowThroughDispatchLoop(t *testing.T) {
	g := NewGatewayManager()
	got := make(chan *api.UnifiedMessage, 1)
	g.SetMessageHandler(func(m *api.UnifiedMessage) { got <- m })
	require.NoError(t, g.StartAll())
	defer g.StopAll()

	g.OnMessage("test", testMessage("test", "hello"))

	select {
	case m := <-got:
		assert.Equal(t, "hello", m.Content)
	case <-time.After(time.Second):
		t.Fatal("message was not dispatched")
	}
}

func TestMessageBeforeStartIsDropped(t *testing.T) {
	g := NewGatewayManager()
	called := false
	g.SetMessageHandler(func(*api.UnifiedMessage) { called = true })

	// No StartAll: the message has nowhere to go and must not block.
	g.OnMessage("test", testMessage("test", "too early"))
	assert.False(t, called)
}

func TestMessageAfterStopDoesNotBlock(t *testing.T) {
	g := NewGatewayManager()
	g.SetChannelBuffer(1)
	g.SetMessageHandler(func(*api.UnifiedMessage) {})
	require.NoError(t, g.StartAll())
	g.StopAll()

	done := make(chan struct{})
	go func() {
		// Fill the buffer past capacity; the done signal must unblock us.
		g.OnMessage("test", testMessage("test", "a"))
		g.OnMessage("test", testMessage("test", "b"))
		g.OnMessage("test", testMessage("test", "c"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnMessage blocked after StopAll")
	}
}

func TestSendReplyRoutesToOriginChannel(t *testing.T) {
	g := NewGatewayManager()
	ch := &echoChannel{id: "test"}
	g.Register(ch)

	session := api.SessionContext{ChannelID: "test", ChatID: "1"}
	require.NoError(t, g.SendReply(session, "pong"))
	assert.Equal(t, []string{"pong"}, ch.sent)

	err := g.SendReply(api.SessionContext{ChannelID: "missing"}, "pong")
	assert.Error(t, err)
}

func TestSendSignalRouting(t *testing.T) {
	g := NewGatewayManager()
	ch := &echoChannel{id: "signals"}
	g.Register(ch)

	session := api.SessionContext{ChannelID: "signals", ChatID: "1"}
	require.NoError(t, g.SendSignal(session, "typing"))
	assert.Equal(t, []string{"typing"}, ch.signals)
}
