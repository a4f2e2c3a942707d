package tts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yagizdas/voiceflare/internal/config"
)

// synthesisTimeout bounds a single subprocess run
const synthesisTimeout = 30 * time.Second

// piperEngine shells out to the piper binary, feeding text on stdin
type piperEngine struct {
	executable string
	modelPath  string
	outputDir  string
	logger     *slog.Logger
}

func newPiperEngine(cfg config.PiperConfig, outputDir string, logger *slog.Logger) (*piperEngine, error) {
	if cfg.ExecutablePath == "" {
		return nil, fmt.Errorf("piper executable path cannot be empty")
	}
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("piper model path cannot be empty")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("piper model not found: %w", err)
	}

	return &piperEngine{
		executable: cfg.ExecutablePath,
		modelPath:  cfg.ModelPath,
		outputDir:  outputDir,
		logger:     logger.With(slog.String("component", "tts"), slog.String("engine", "piper")),
	}, nil
}

// Synthesize renders text to a WAV file and returns its path
func (e *piperEngine) Synthesize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text cannot be empty")
	}

	outPath := filepath.Join(e.outputDir, "tts-"+uuid.New().String()+".wav")

	ctx, cancel := context.WithTimeout(ctx, synthesisTimeout)
	defer cancel()

	started := time.Now()
	cmd := exec.CommandContext(ctx, e.executable,
		"--model", e.modelPath,
		"--output_file", outPath)
	cmd.Stdin = strings.NewReader(text)

	if output, err := cmd.CombinedOutput(); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("piper failed: %w (output: %s)", err, string(output))
	}

	e.logger.Debug("synthesis complete",
		slog.String("path", outPath),
		slog.Duration("took", time.Since(started)))

	return outPath, nil
}
