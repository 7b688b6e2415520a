package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/consent-core/api"
	"github.com/use-agent/consent-core/cache"
	"github.com/use-agent/consent-core/config"
	"github.com/use-agent/consent-core/geoip"
	"github.com/use-agent/consent-core/llm"
	"github.com/use-agent/consent-core/models"
	"github.com/use-agent/consent-core/orchestrator"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("consent-core starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
	)

	// ── 3. Initialise shared caches ──────────────────────────────────
	resultCache := cache.New[models.ScanResult](cfg.Cache.ResultTTL, cfg.Cache.MaxEntries, cfg.Cache.SweepPeriod)
	aiCache := cache.New[models.DetectionResult](cfg.Cache.AITTL, cfg.Cache.MaxEntries, cfg.Cache.SweepPeriod)

	// ── 4. Initialise geo-IP resolver and LLM client ────────────────
	geoResolver := geoip.NewResolver(cfg.GeoIP.BaseURL, cfg.GeoIP.Timeout)

	var llmClient *llm.Client
	if cfg.AI.APIKey != "" {
		llmClient = llm.NewClient(nil)
		slog.Info("AI fallback and GPC visual audit enabled", "model", cfg.AI.Model)
	} else {
		slog.Warn("no AI API key configured, AI fallback and GPC visual audit disabled")
	}

	// ── 5. Initialise the scan orchestrator ──────────────────────────
	scanner := orchestrator.New(orchestrator.Dependencies{
		Config:      cfg,
		ResultCache: resultCache,
		AICache:     aiCache,
		GeoIP:       geoResolver,
		LLMClient:   llmClient,
	})

	// ── 6. Setup router ───────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(scanner, resultCache, cfg, startTime)

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight scans 30 seconds to complete; a headless browser
	// session takes longer to drain than a typical HTTP handler.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("consent-core stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
