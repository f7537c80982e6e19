package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/placechat/placechat/internal/chat"
	"github.com/placechat/placechat/internal/config"
	"github.com/placechat/placechat/internal/llm"
	"github.com/placechat/placechat/internal/maps"
	"github.com/placechat/placechat/internal/search"
	"github.com/placechat/placechat/internal/server"
	"github.com/placechat/placechat/internal/session"
	"github.com/placechat/placechat/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides config)")

	return cmd
}

func runServe(parent context.Context, cfg *config.Config) error {
	level := &slog.LevelVar{}
	level.Set(parseLogLevel(cfg.LogLevel))
	if verbose {
		level.Set(slog.LevelDebug)
	}
	logger := telemetry.NewLogger(os.Stdout, level)

	metrics := telemetry.NewMetrics()

	client, err := newLLMClient(cfg.LLM)
	if err != nil {
		return err
	}

	searcher := buildSearcher(cfg, logger)

	store := session.NewStore(logger)
	sweeper, err := session.NewSweeper(store, cfg.Sessions.SweepSchedule, cfg.Sessions.MaxIdle.Std(), logger)
	if err != nil {
		return fmt.Errorf("session sweeper: %w", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	router := chat.NewRouter(searcher, logger)
	chatter := chat.NewOrchestrator(client, cfg.LLM.Model, router, store, metrics, logger)

	srv := server.New(server.Options{
		Addr:           cfg.Listen,
		Searcher:       searcher,
		Chatter:        chatter,
		Metrics:        metrics,
		Logger:         logger,
		AutoRunDefault: cfg.Chat.AutoRunTools,
	})

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Live reload only adjusts what is safe to change in place; the
	// rest takes effect on restart.
	if configFile != "" {
		watcher := config.NewWatcher(configFile, logger, func(next *config.Config) {
			level.Set(parseLogLevel(next.LogLevel))
		})
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func newLLMClient(cfg config.LLMConfig) (llm.Client, error) {
	switch cfg.Provider {
	case "anthropic":
		if cfg.APIKey != "" {
			return llm.NewAnthropicClientWithKey(cfg.APIKey), nil
		}
		return llm.NewAnthropicClient(), nil
	case "openai":
		if cfg.BaseURL != "" {
			return llm.NewOpenAICompatibleClient(cfg.BaseURL, cfg.APIKey), nil
		}
		return llm.NewOpenAIClient(cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func buildSearcher(cfg *config.Config, logger *slog.Logger) *search.Orchestrator {
	var opts []maps.ClientOption
	if cfg.Maps.GeocodeURL != "" {
		opts = append(opts, maps.WithGeocodeURL(cfg.Maps.GeocodeURL))
	}
	if cfg.Maps.TextSearchURL != "" {
		opts = append(opts, maps.WithTextSearchURL(cfg.Maps.TextSearchURL))
	}

	client := maps.NewClient(cfg.Maps.APIKey, opts...)
	resolver := maps.NewResolver(client, logger)
	aggregator := maps.NewAggregator(client, logger)
	return search.NewOrchestrator(resolver, aggregator, logger)
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
