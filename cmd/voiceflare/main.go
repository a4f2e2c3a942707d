package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/yagizdas/voiceflare/internal/capture"
	"github.com/yagizdas/voiceflare/internal/config"
	"github.com/yagizdas/voiceflare/internal/metrics"
	"github.com/yagizdas/voiceflare/internal/pipeline"
	"github.com/yagizdas/voiceflare/internal/respond"
	"github.com/yagizdas/voiceflare/internal/server"
	"github.com/yagizdas/voiceflare/internal/session"
	"github.com/yagizdas/voiceflare/internal/stt"
	"github.com/yagizdas/voiceflare/internal/transport/discord"
	"github.com/yagizdas/voiceflare/internal/tts"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "voiceflare"
	serviceVersion    = "1.0.0"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	logger.Info("Configuration loaded",
		slog.String("guild_id", cfg.Discord.GuildID),
		slog.String("channel_id", cfg.Discord.ChannelID),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("target_sample_rate", cfg.Audio.TargetSampleRate),
		slog.Float64("min_clip_seconds", cfg.Audio.MinClipSeconds),
		slog.Int("silence_finalize_ms", cfg.Audio.SilenceFinalizeMs),
		slog.Int("trigger_phrases", len(cfg.Triggers.Phrases)),
		slog.String("stt_endpoint", cfg.STT.Endpoint),
		slog.String("tts_engine", cfg.TTS.Engine),
		slog.String("log_level", cfg.Logging.Level),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Pipeline queues. Unbounded, so the capture path never blocks on slow
	// downstream stages.
	clipQueue := pipeline.NewQueue[pipeline.ClipJob]()
	playQueue := pipeline.NewQueue[pipeline.PlaybackItem]()

	// Capture path
	speakers := capture.NewRegistry(cfg.Audio.SampleRate, cfg.Audio.PrerollMaxChunks, appMetrics)
	sink := capture.NewSink(speakers, appMetrics, logger)

	sessionID := uuid.New().String()

	finalizer := capture.NewFinalizer(capture.FinalizerConfig{
		SessionID:       sessionID,
		Tick:            cfg.Audio.GetFinalizeTick(),
		SilenceFinalize: cfg.Audio.GetSilenceFinalize(),
		MinClipSeconds:  cfg.Audio.MinClipSeconds,
	}, speakers, clipQueue, appMetrics, logger)

	// Downstream stages
	sttClient, err := stt.NewClient(cfg.STT, appMetrics, logger)
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	responder, err := respond.NewGenerator(cfg.Responder, logger)
	if err != nil {
		logger.Error("Failed to create response generator", slog.String("error", err.Error()))
		os.Exit(1)
	}

	synth, err := tts.NewEngine(cfg.TTS, logger)
	if err != nil {
		logger.Error("Failed to create synthesis engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sessions := session.NewRegistry()

	transcribeWorker := pipeline.NewTranscribeWorker(clipQueue, playQueue, cfg,
		sttClient, responder, synth, appMetrics, logger)
	playbackWorker := pipeline.NewPlaybackWorker(playQueue, sessions, appMetrics, logger)

	// Voice transport
	gateway, err := discord.NewGateway(cfg.Discord, logger)
	if err != nil {
		logger.Error("Failed to create gateway", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := gateway.Open(); err != nil {
		logger.Error("Failed to connect gateway", slog.String("error", err.Error()))
		os.Exit(1)
	}

	voiceSess := discord.NewVoiceSession(sessionID, gateway,
		cfg.Discord.GuildID, cfg.Discord.ChannelID, sink, logger)

	supervisor := session.NewSupervisor(sessionID, cfg.Connection, voiceSess, appMetrics, logger)
	voiceSess.SetListenEndHandler(supervisor.OnListenEnd)

	if err := voiceSess.Start(ctx); err != nil {
		logger.Error("Failed to start voice session", slog.String("error", err.Error()))
		gateway.Close()
		os.Exit(1)
	}

	sessions.Add(&session.Session{
		ID:         sessionID,
		GuildID:    cfg.Discord.GuildID,
		ChannelID:  cfg.Discord.ChannelID,
		StartTime:  time.Now(),
		Supervisor: supervisor,
		Link:       voiceSess,
	})

	// Background stages
	go finalizer.Run(ctx)
	go transcribeWorker.Run(ctx)
	go playbackWorker.Run(ctx)

	// HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, sessions, speakers,
			sttClient.GetStats, appMetrics)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	if cfg.Sounds.Startup != "" {
		go func() {
			if err := voiceSess.Play(ctx, cfg.Sounds.Startup); err != nil {
				logger.Warn("Failed to play startup sound", slog.String("error", err.Error()))
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("session_id", sessionID))

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
		shutdownCancel()
	}

	if cfg.Sounds.Shutdown != "" {
		soundCtx, soundCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := voiceSess.Play(soundCtx, cfg.Sounds.Shutdown); err != nil {
			logger.Warn("Failed to play shutdown sound", slog.String("error", err.Error()))
		}
		soundCancel()
	}

	// Stops the supervisor so the teardown below is not mistaken for a
	// connection failure
	sessions.Remove(sessionID)
	voiceSess.Stop()

	if err := gateway.Close(); err != nil {
		logger.Error("Error closing gateway", slog.String("error", err.Error()))
	}

	// Stop background stages
	cancel()

	stats := sttClient.GetStats()
	logger.Info("Final transcription statistics",
		slog.Uint64("total_requests", stats.TotalRequests),
		slog.Uint64("success_requests", stats.SuccessRequests),
		slog.Uint64("failed_requests", stats.FailedRequests),
		slog.Float64("success_rate", stats.SuccessRate),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
