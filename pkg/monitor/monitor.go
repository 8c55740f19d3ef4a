package monitor

import "time"

// MonitorMessage represents one monitored message
type MonitorMessage struct {
	Timestamp   time.Time
	MessageType string // "USER" or "ASSISTANT"
	ChannelID   string
	Username    string
	Content     string
}

// Monitor defines the behavior of a traffic monitor
type Monitor interface {
	// Start starts the monitor
	Start() error

	// Stop stops the monitor
	Stop() error

	// OnMessage receives and displays a monitoring message
	OnMessage(msg MonitorMessage)
}
