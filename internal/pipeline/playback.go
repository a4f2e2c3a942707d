package pipeline

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/yagizdas/voiceflare/internal/audio"
	"github.com/yagizdas/voiceflare/internal/metrics"
)

// playbackPollInterval is how often the worker re-checks a busy voice link
const playbackPollInterval = 100 * time.Millisecond

// VoiceLink is the playback surface of a voice connection
type VoiceLink interface {
	// Playing reports whether audio is currently being played on the link
	Playing() bool
	// Play plays the audio file at path, blocking until playback finishes
	Play(ctx context.Context, path string) error
}

// LinkResolver maps a session ID to its current voice link
type LinkResolver interface {
	Link(sessionID string) (VoiceLink, bool)
}

// PlaybackWorker drains the playback queue one item at a time, waiting for
// the target voice link to go idle before each playback so responses never
// overlap. The synthesized file is removed after every attempt, successful
// or not.
type PlaybackWorker struct {
	in      *Queue[PlaybackItem]
	links   LinkResolver
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPlaybackWorker creates a playback worker
func NewPlaybackWorker(in *Queue[PlaybackItem], links LinkResolver,
	m *metrics.Metrics, logger *slog.Logger) *PlaybackWorker {
	return &PlaybackWorker{
		in:      in,
		links:   links,
		metrics: m,
		logger:  logger.With(slog.String("component", "playback_worker")),
	}
}

// Run processes playback items until the context ends
func (w *PlaybackWorker) Run(ctx context.Context) {
	w.logger.Info("playback worker started")

	for {
		item, err := w.in.Pop(ctx)
		if err != nil {
			w.logger.Info("playback worker stopped")
			return
		}
		w.metrics.SetPlaybackQueueDepth(w.in.Len())

		w.play(ctx, item)
	}
}

func (w *PlaybackWorker) play(ctx context.Context, item PlaybackItem) {
	defer func() {
		if err := os.Remove(item.Path); err != nil && !os.IsNotExist(err) {
			w.logger.Warn("failed to remove synthesized file",
				slog.String("path", item.Path),
				slog.String("error", err.Error()))
		}
	}()

	// Synthesis engines occasionally emit truncated files; catch them here
	// instead of failing mid-stream
	data, err := os.ReadFile(item.Path)
	if err != nil {
		w.metrics.RecordPlaybackFailure()
		w.logger.Error("cannot read synthesized file",
			slog.String("path", item.Path),
			slog.String("error", err.Error()))
		return
	}
	if err := audio.ValidateWAV(data); err != nil {
		w.metrics.RecordPlaybackFailure()
		w.logger.Error("synthesized file is not a valid WAV, discarding",
			slog.String("path", item.Path),
			slog.String("error", err.Error()))
		return
	}
	duration, _ := audio.GetWAVDuration(data)

	link, ok := w.links.Link(item.SessionID)
	if !ok {
		w.logger.Info("no voice link for session, discarding playback",
			slog.String("session_id", item.SessionID))
		return
	}

	for link.Playing() {
		select {
		case <-time.After(playbackPollInterval):
		case <-ctx.Done():
			return
		}
	}

	if err := link.Play(ctx, item.Path); err != nil {
		w.metrics.RecordPlaybackFailure()
		w.logger.Error("playback failed",
			slog.String("session_id", item.SessionID),
			slog.String("path", item.Path),
			slog.String("error", err.Error()))
		return
	}

	w.metrics.RecordPlaybackCompleted()
	w.logger.Info("playback completed",
		slog.String("session_id", item.SessionID),
		slog.Float64("duration", duration))
}
