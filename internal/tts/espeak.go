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
)

// espeakEngine shells out to espeak. Lower quality than piper but has no
// model file to ship, so it works as a fallback on bare hosts.
type espeakEngine struct {
	outputDir string
	logger    *slog.Logger
}

func newEspeakEngine(outputDir string, logger *slog.Logger) *espeakEngine {
	return &espeakEngine{
		outputDir: outputDir,
		logger:    logger.With(slog.String("component", "tts"), slog.String("engine", "espeak")),
	}
}

// Synthesize renders text to a WAV file and returns its path
func (e *espeakEngine) Synthesize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text cannot be empty")
	}

	outPath := filepath.Join(e.outputDir, "tts-"+uuid.New().String()+".wav")

	ctx, cancel := context.WithTimeout(ctx, synthesisTimeout)
	defer cancel()

	started := time.Now()
	cmd := exec.CommandContext(ctx, "espeak", "-w", outPath, text)

	if output, err := cmd.CombinedOutput(); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("espeak failed: %w (output: %s)", err, string(output))
	}

	e.logger.Debug("synthesis complete",
		slog.String("path", outPath),
		slog.Duration("took", time.Since(started)))

	return outPath, nil
}
