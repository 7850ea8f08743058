// Concilium server — exposes the multi-expert deliberation engine over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/concilium-ai/concilium/pkg/api"
	"github.com/concilium-ai/concilium/pkg/config"
	"github.com/concilium-ai/concilium/pkg/deliberation"
	"github.com/concilium-ai/concilium/pkg/expert"
	"github.com/concilium-ai/concilium/pkg/llm"
	"github.com/concilium-ai/concilium/pkg/summary"
	"github.com/concilium-ai/concilium/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env from the config directory before anything reads the environment.
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	slog.Info("Starting concilium",
		"version", version.Full(),
		"http_port", httpPort,
		"config_dir", *configDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	pipeline, clients, err := buildPipeline(cfg)
	if err != nil {
		slog.Error("Failed to build diagnosis pipeline", "error", err)
		os.Exit(1)
	}
	defer func() {
		for _, client := range clients {
			if err := client.Close(); err != nil {
				slog.Error("Error closing LLM client", "error", err)
			}
		}
	}()
	slog.Info("Diagnosis pipeline initialized", "expert_groups", len(cfg.ExpertGroups))

	server := api.NewServer(pipeline)
	if err := server.Run(ctx, ":"+httpPort); err != nil {
		slog.Error("HTTP server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Concilium stopped")
}

// buildPipeline wires one LLM client per configured agent, the expert
// researchers, the per-group reviewers, and the summarizer into the
// deliberation pipeline. The returned clients are closed by the caller on
// shutdown.
func buildPipeline(cfg *config.Config) (*deliberation.Pipeline, []llm.Client, error) {
	var clients []llm.Client
	newClient := func(agent *config.AgentConfig) (llm.Client, error) {
		client, err := llm.NewClient(agent)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
		return client, nil
	}

	registry := expert.NewRegistry()
	invokers := map[string]deliberation.ExpertInvoker{}
	targets := map[string]deliberation.ReviewTarget{}

	for _, id := range cfg.ExpertGroupIDs() {
		group := cfg.ExpertGroups[id]

		mainClient, err := newClient(group.MainAgent)
		if err != nil {
			return nil, clients, fmt.Errorf("expert group %s: %w", id, err)
		}
		tools, err := registry.Select(group.MainAgent.AdditionalTools, group.MainAgent.ExcludeTools)
		if err != nil {
			return nil, clients, fmt.Errorf("expert group %s: %w", id, err)
		}
		invokers[id] = expert.NewDeepResearcher(mainClient, group.MainAgent.SystemPrompt, tools, 0)

		// The sub-agent reviews; groups without one review with their main
		// agent's model.
		reviewAgent := group.SubAgent
		if reviewAgent == nil {
			reviewAgent = group.MainAgent
		}
		reviewClient, err := newClient(reviewAgent)
		if err != nil {
			return nil, clients, fmt.Errorf("expert group %s reviewer: %w", id, err)
		}
		targets[id] = deliberation.ReviewTarget{
			Client:       reviewClient,
			SystemPrompt: reviewAgent.SystemPrompt,
		}
	}

	summaryClient, err := newClient(cfg.SummaryAgent)
	if err != nil {
		return nil, clients, fmt.Errorf("summary agent: %w", err)
	}
	summarizer := summary.NewSummarizer(summaryClient, cfg.SummaryAgent.SystemPrompt, cfg.MDT.PerCallTimeout)

	var preDiagnosis llm.Client
	if cfg.PreDiagnosisAgent != nil {
		preDiagnosis, err = newClient(cfg.PreDiagnosisAgent)
		if err != nil {
			return nil, clients, fmt.Errorf("pre-diagnosis agent: %w", err)
		}
	}

	return deliberation.NewPipeline(cfg, invokers, targets, summarizer, preDiagnosis), clients, nil
}
