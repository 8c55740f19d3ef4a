package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relay/pkg/agent"
	"relay/pkg/browser"
	"relay/pkg/channels"
	_ "relay/pkg/channels/telegram" // Register channel factories
	_ "relay/pkg/channels/web"
	"relay/pkg/config"
	"relay/pkg/gateway"
	"relay/pkg/handler"
	"relay/pkg/llm"
	_ "relay/pkg/llm/gemini" // Register LLM provider factories
	_ "relay/pkg/llm/ollama"
	_ "relay/pkg/llm/openailm"
	"relay/pkg/memory"
	"relay/pkg/monitor"
	"relay/pkg/session"
	"relay/pkg/tools"
	toolsos "relay/pkg/tools/os"
	"relay/pkg/webmcp"

	jsoniter "github.com/json-iterator/go"
)

func main() {
	monitor.PrintBanner()

	// --- 0. Configuration ---
	cfg, sysCfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}
	monitor.SetupSlog(sysCfg.LogLevel)

	// --- 1. LLM client ---
	client, err := llm.NewFromConfig(cfg.LLM, sysCfg)
	if err != nil {
		log.Fatalf("❌ Failed to init LLM client: %v", err)
	}
	slog.Info("LLM client ready", "provider", client.Provider())

	// --- 2. Conversation store ---
	store, err := session.NewStore(cfg.SessionDir)
	if err != nil {
		log.Fatalf("❌ Failed to init session store: %v", err)
	}

	// --- 3. Long-term memory (optional) ---
	var memSvc memory.Service
	if cfg.Memory.Enabled && cfg.Memory.APIKey != "" {
		embedder, err := memory.NewGeminiEmbedder(context.Background(), cfg.Memory.APIKey, cfg.Memory.Model)
		if err != nil {
			slog.Error("Failed to init embedder, memory disabled", "error", err)
		} else {
			memStore, err := memory.NewStore(cfg.Memory.Dir, embedder)
			if err != nil {
				slog.Error("Failed to init memory store, memory disabled", "error", err)
			} else {
				memSvc = memStore
				slog.Info("Long-term memory enabled", "entries", memStore.Len())
			}
		}
	}

	// --- 4. Tools ---
	registry := tools.NewToolRegistry()
	var browserMgr *browser.Manager
	if sysCfg.EnableTools {
		perms := tools.NewPermissionSystem(sysCfg.PermissionMode)
		registry.Register(tools.NewShellTool(toolsos.NewOSWorker(), perms, time.Duration(sysCfg.CommandTimeoutMs)*time.Millisecond))
		registry.Register(tools.NewReadFileTool())
		registry.Register(tools.NewWriteFileTool())

		if memSvc != nil {
			registry.Register(tools.NewSaveMemoryTool(memSvc))
			registry.Register(tools.NewSearchMemoryTool(memSvc, sysCfg.MemoryResults))
		}

		if sysCfg.EnableWebTools {
			// The browser boots lazily on first use; creating the manager is cheap.
			browserMgr = browser.NewManager(
				sysCfg.BrowserHeadless,
				time.Duration(sysCfg.BrowserTimeoutMs)*time.Millisecond,
				time.Duration(sysCfg.PageSettleMs)*time.Millisecond,
			)
			webClient := webmcp.NewClient(browserMgr)
			registry.Register(tools.NewWebDiscoverTool(webClient))
			registry.Register(tools.NewWebExecuteTool(webClient))
			registry.Register(tools.NewWebListTool(webClient))
			registry.Register(tools.NewWebClearCacheTool(webClient))
		}
	}
	slog.Info("Tools registered", "count", len(registry.GetAll()))

	// --- 5. Agent ---
	orch := agent.NewOrchestrator(client, store, registry, agent.Options{
		SystemPrompt:  cfg.SystemPrompt,
		MaxToolRounds: sysCfg.MaxToolRounds,
		ResultLimit:   sysCfg.ToolResultLimit,
		MemoryResults: sysCfg.MemoryResults,
		Memory:        memSvc,
	})

	// --- 6. Gateway ---
	chatHandler := handler.NewChatHandler(orch, time.Duration(sysCfg.LLMTimeoutMs)*time.Millisecond)

	gw, err := gateway.NewGatewayBuilder().
		WithSystemConfig(sysCfg).
		WithMonitor(monitor.NewCLIMonitor()).
		WithChannelConfigs(cfg.Channels).
		WithChannelLoader(func(g *gateway.GatewayManager, configs map[string]jsoniter.RawMessage) {
			channels.LoadFromConfig(g, configs, sysCfg)
		}).
		WithHandler(chatHandler).
		Build()
	if err != nil {
		log.Fatalf("❌ Failed to build gateway: %v", err)
	}

	// --- 7. Config watcher: pick up log level changes without restart ---
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	events := config.WatchConfig(watchCtx, "system.json")
	go func() {
		for range events {
			sys := config.LoadSystemConfig("system.json")
			monitor.SetupSlog(sys.LogLevel)
			slog.Info("System config reloaded", "log_level", sys.LogLevel)
		}
	}()

	// --- 8. Wait for shutdown ---
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("\nReceived shutdown signal. Stopping services...")

	gw.StopAll()
	if browserMgr != nil {
		if err := browserMgr.Close(); err != nil {
			slog.Warn("Browser shutdown reported an error", "error", err)
		}
	}
	log.Println("Bye!")
}
