package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yagizdas/voiceflare/internal/capture"
	"github.com/yagizdas/voiceflare/internal/config"
	"github.com/yagizdas/voiceflare/internal/metrics"
	"github.com/yagizdas/voiceflare/internal/session"
	"github.com/yagizdas/voiceflare/internal/stt"
)

// HTTPServer provides HTTP API endpoints for monitoring
type HTTPServer struct {
	server   *http.Server
	logger   *slog.Logger
	config   *config.Config
	sessions *session.Registry
	speakers *capture.Registry
	sttStats func() stt.ClientStats
	metrics  *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger, appConfig *config.Config,
	sessions *session.Registry, speakers *capture.Registry, sttStats func() stt.ClientStats,
	m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger.With(slog.String("component", "http")),
		config:    appConfig,
		sessions:  sessions,
		speakers:  speakers,
		sttStats:  sttStats,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/sessions", h.withMetrics("/sessions", h.handleSessions))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)
		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("starting HTTP API server", slog.String("address", h.server.Addr))

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("stopping HTTP API server")
	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sttStats := h.sttStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    "voiceflare",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"sessions": map[string]interface{}{
				"status": "running",
				"active": h.sessions.Count(),
			},
			"capture": map[string]interface{}{
				"status":           "running",
				"tracked_speakers": h.speakers.Count(),
			},
			"transcription": map[string]interface{}{
				"status":          "running",
				"total_requests":  sttStats.TotalRequests,
				"success_rate":    sttStats.SuccessRate,
				"active_requests": sttStats.ActiveRequests,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleSessions implements the /sessions endpoint
func (h *HTTPServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	infos := h.sessions.Snapshot()

	response := map[string]interface{}{
		"total_sessions": len(infos),
		"timestamp":      time.Now().UTC(),
		"sessions":       infos,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration: tokens and API keys are omitted
	sanitizedConfig := map[string]interface{}{
		"audio": map[string]interface{}{
			"sample_rate":         h.config.Audio.SampleRate,
			"target_sample_rate":  h.config.Audio.TargetSampleRate,
			"min_clip_seconds":    h.config.Audio.MinClipSeconds,
			"silence_finalize_ms": h.config.Audio.SilenceFinalizeMs,
			"preroll_max_chunks":  h.config.Audio.PrerollMaxChunks,
			"finalize_tick_ms":    h.config.Audio.FinalizeTickMs,
		},
		"triggers": map[string]interface{}{
			"phrases": h.config.Triggers.Phrases,
		},
		"stt": map[string]interface{}{
			"endpoint":       h.config.STT.Endpoint,
			"timeout":        h.config.STT.Timeout,
			"max_retries":    h.config.STT.MaxRetries,
			"max_concurrent": h.config.STT.MaxConcurrent,
			"language":       h.config.STT.Language,
			"model":          h.config.STT.Model,
		},
		"responder": map[string]interface{}{
			"model":                   h.config.Responder.Model,
			"timeout":                 h.config.Responder.Timeout,
			"temperature":             h.config.Responder.Temperature,
			"max_tokens":              h.config.Responder.MaxTokens,
			"alternative_probability": h.config.Responder.AlternativeProbability,
		},
		"tts": map[string]interface{}{
			"engine":     h.config.TTS.Engine,
			"output_dir": h.config.TTS.OutputDir,
		},
		"connection": map[string]interface{}{
			"max_restart_attempts":     h.config.Connection.MaxRestartAttempts,
			"restart_cooldown_seconds": h.config.Connection.RestartCooldownSeconds,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	speakers := make([]map[string]interface{}, 0, h.speakers.Count())
	for _, sp := range h.speakers.Snapshot() {
		speakers = append(speakers, map[string]interface{}{
			"speaker_id":   sp.ID,
			"display_name": h.speakers.DisplayName(sp.ID),
			"last_audio":   sp.Buffer.LastAudio().UTC(),
			"buffer":       sp.Buffer.GetStats(),
		})
	}

	stats := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"sessions": map[string]interface{}{
			"active_count": h.sessions.Count(),
		},
		"capture": map[string]interface{}{
			"tracked_speakers": h.speakers.Count(),
			"speakers":         speakers,
		},
		"transcription": h.sttStats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Voiceflare Voice Agent",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":         "API documentation",
			"GET /health":   "Service health check",
			"GET /sessions": "List active voice sessions",
			"GET /config":   "Get service configuration",
			"GET /stats":    "Get service statistics",
			"GET /metrics":  "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
