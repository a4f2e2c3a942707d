package capture

import (
	"log/slog"

	"github.com/yagizdas/voiceflare/internal/audio"
	"github.com/yagizdas/voiceflare/internal/metrics"
)

// Fragment size envelope. Anything outside is noise or a transport glitch
// and gets dropped without touching the buffers.
const (
	minFragmentBytes = 100
	maxFragmentBytes = 50000
)

// Sink is the boundary the voice transport feeds. Every method returns
// quickly, never blocks on downstream stages, and never lets a panic escape
// into the transport's receive loop. Invalid fragments are dropped silently;
// each drop increments a counter by reason.
type Sink struct {
	registry *Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewSink creates a capture sink feeding the given registry
func NewSink(registry *Registry, m *metrics.Metrics, logger *slog.Logger) *Sink {
	return &Sink{
		registry: registry,
		metrics:  m,
		logger:   logger.With(slog.String("component", "capture_sink")),
	}
}

// OnAudio ingests one PCM fragment for a speaker. channelHint of 1 or 2 is
// trusted; otherwise the channel count is guessed from the fragment length.
func (s *Sink) OnAudio(speakerID string, pcm []byte, channelHint int) {
	defer s.recoverDrop()

	if len(pcm) < minFragmentBytes {
		s.metrics.RecordFragmentDropped("too_small")
		return
	}

	if len(pcm) > maxFragmentBytes {
		s.metrics.RecordFragmentDropped("too_large")
		return
	}

	channels := audio.GuessChannels(len(pcm), channelHint)
	if channels != 1 && channels != 2 {
		s.metrics.RecordFragmentDropped("bad_channels")
		return
	}

	s.metrics.RecordFragmentReceived()

	sp := s.registry.GetOrCreate(speakerID, "")
	sp.Buffer.AddPCM(pcm, channels)
}

// OnSpeakingStart marks a speaker as active. displayName may be empty.
func (s *Sink) OnSpeakingStart(speakerID, displayName string) {
	defer s.recoverDrop()

	sp := s.registry.GetOrCreate(speakerID, displayName)
	sp.Buffer.StartSpeaking()

	s.logger.Debug("speaking started",
		slog.String("speaker_id", speakerID),
		slog.String("display_name", displayName))
}

// OnSpeakingStop marks a speaker as silent
func (s *Sink) OnSpeakingStop(speakerID string) {
	defer s.recoverDrop()

	sp, exists := s.registry.Get(speakerID)
	if !exists {
		return
	}
	sp.Buffer.StopSpeaking()

	s.logger.Debug("speaking stopped", slog.String("speaker_id", speakerID))
}

// Reset drops every speaker buffer, including speaking flags and preroll.
// In-flight utterances are lost, which is the point: a rebuilt connection
// starts from silence.
func (s *Sink) Reset() {
	s.registry.Clear()
	s.logger.Info("capture sink reset, speaker buffers dropped")
}

// recoverDrop keeps sink panics out of the transport's receive loop
func (s *Sink) recoverDrop() {
	if r := recover(); r != nil {
		s.metrics.RecordFragmentDropped("panic")
		s.logger.Error("panic in capture sink", slog.Any("panic", r))
	}
}
