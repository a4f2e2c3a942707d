package capture

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yagizdas/voiceflare/internal/metrics"
	"github.com/yagizdas/voiceflare/internal/pipeline"
)

// FinalizerConfig contains the utterance segmentation parameters
type FinalizerConfig struct {
	SessionID       string
	Tick            time.Duration // sweep interval
	SilenceFinalize time.Duration // silence after speech stop before a clip closes
	MinClipSeconds  float64       // shorter clips are discarded
}

// Finalizer sweeps the speaker registry on a fixed tick. A speaker whose
// silence has lasted past the threshold gets finalized: long enough clips
// become ClipJobs on the transcription queue, short ones are discarded. The
// sweep only ever pushes to an unbounded queue, so a slow transcription
// stage can never stall it.
type Finalizer struct {
	cfg      FinalizerConfig
	registry *Registry
	out      *pipeline.Queue[pipeline.ClipJob]
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewFinalizer creates an utterance finalizer
func NewFinalizer(cfg FinalizerConfig, registry *Registry, out *pipeline.Queue[pipeline.ClipJob],
	m *metrics.Metrics, logger *slog.Logger) *Finalizer {
	return &Finalizer{
		cfg:      cfg,
		registry: registry,
		out:      out,
		metrics:  m,
		logger:   logger.With(slog.String("component", "finalizer")),
	}
}

// Run sweeps buffers until the context ends
func (f *Finalizer) Run(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.Tick)
	defer ticker.Stop()

	f.logger.Info("finalizer started",
		slog.Duration("tick", f.cfg.Tick),
		slog.Duration("silence_finalize", f.cfg.SilenceFinalize),
		slog.Float64("min_clip_seconds", f.cfg.MinClipSeconds))

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("finalizer stopped")
			return
		case <-ticker.C:
			f.Sweep()
		}
	}
}

// Sweep checks every speaker buffer once and finalizes those past the
// silence threshold
func (f *Finalizer) Sweep() {
	now := time.Now()

	for _, sp := range f.registry.Snapshot() {
		if sp.Buffer.Speaking() {
			continue
		}

		stopTime := sp.Buffer.StopTime()
		if stopTime.IsZero() {
			continue
		}

		if now.Sub(stopTime) < f.cfg.SilenceFinalize {
			continue
		}

		duration := sp.Buffer.DurationSeconds()
		if duration < f.cfg.MinClipSeconds {
			if duration > 0 {
				f.metrics.RecordClipDiscarded()
				f.logger.Debug("discarding short clip",
					slog.String("speaker_id", sp.ID),
					slog.Float64("duration", duration))
			}
			sp.Buffer.Clear()
			continue
		}

		pcm, channels := sp.Buffer.Finalize()
		if len(pcm) == 0 {
			continue
		}

		// DisplayName is written from the transport goroutine, so it is
		// read through the registry lock rather than the snapshot pointer
		job := pipeline.ClipJob{
			ID:          uuid.New().String(),
			SessionID:   f.cfg.SessionID,
			SpeakerID:   sp.ID,
			DisplayName: f.registry.DisplayName(sp.ID),
			PCM:         pcm,
			Channels:    channels,
		}

		f.out.Push(job)
		f.metrics.RecordClipFinalized(duration, len(pcm))
		f.metrics.SetTranscribeQueueDepth(f.out.Len())

		f.logger.Info("clip finalized",
			slog.String("clip_id", job.ID),
			slog.String("speaker_id", sp.ID),
			slog.Float64("duration", duration),
			slog.Int("bytes", len(pcm)),
			slog.Int("channels", channels))
	}
}
