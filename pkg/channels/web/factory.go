package web

import (
	"fmt"
	"time"

	"relay/pkg/channels"
	"relay/pkg/config"
	"relay/pkg/gateway"

	jsoniter "github.com/json-iterator/go"
)

// WebFactory creates Web Channels
type WebFactory struct{}

// Create implements ChannelFactory
func (f *WebFactory) Create(rawConfig jsoniter.RawMessage, system *config.SystemConfig) (gateway.Channel, error) {
	var pCfg WebConfig
	if err := json.Unmarshal(rawConfig, &pCfg); err != nil {
		return nil, fmt.Errorf("failed to parse web config: %w", err)
	}

	// Synchronous HTTP requests wait as long as one full agent run may take
	timeout := time.Duration(system.LLMTimeoutMs) * time.Millisecond
	return NewWebChannel(pCfg, timeout), nil
}

func init() {
	channels.RegisterChannel("web", &WebFactory{})
}
