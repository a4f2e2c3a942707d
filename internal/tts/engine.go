package tts

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/yagizdas/voiceflare/internal/config"
)

// Engine renders text to a WAV file on disk and returns its path. The
// caller owns the file and is responsible for removing it after playback.
type Engine interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// NewEngine builds the configured synthesis engine
func NewEngine(cfg config.TTSConfig, logger *slog.Logger) (Engine, error) {
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = os.TempDir()
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	switch cfg.Engine {
	case "piper":
		if cfg.Piper == nil {
			return nil, fmt.Errorf("piper engine selected but piper config missing")
		}
		return newPiperEngine(*cfg.Piper, outputDir, logger)
	case "espeak":
		return newEspeakEngine(outputDir, logger), nil
	default:
		return nil, fmt.Errorf("unknown synthesis engine %q", cfg.Engine)
	}
}
