package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/yagizdas/voiceflare/internal/audio"
	"github.com/yagizdas/voiceflare/internal/config"
	"github.com/yagizdas/voiceflare/internal/metrics"
)

// minClipBytes is the smallest PCM payload worth transcribing
const minClipBytes = 100

// fileReadyTimeout bounds how long the worker waits for a synthesized file
const fileReadyTimeout = 5 * time.Second

// Transcriber converts a WAV-encoded clip into text
type Transcriber interface {
	Transcribe(ctx context.Context, wavData []byte, clipID string) (string, error)
}

// Responder generates a spoken response for a matched trigger
type Responder interface {
	Generate(ctx context.Context, speakerName, targetName, phrase, victimName string) (string, error)
}

// Synthesizer renders text to an audio file and returns its path
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// TranscribeWorker drains the clip queue one job at a time: transcription,
// trigger matching, response generation, and synthesis all happen on this
// single goroutine, so utterances are handled strictly in arrival order.
type TranscribeWorker struct {
	in  *Queue[ClipJob]
	out *Queue[PlaybackItem]

	cfg       *config.Config
	stt       Transcriber
	responder Responder
	synth     Synthesizer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewTranscribeWorker creates a transcription worker
func NewTranscribeWorker(in *Queue[ClipJob], out *Queue[PlaybackItem], cfg *config.Config,
	stt Transcriber, responder Responder, synth Synthesizer,
	m *metrics.Metrics, logger *slog.Logger) *TranscribeWorker {
	return &TranscribeWorker{
		in:        in,
		out:       out,
		cfg:       cfg,
		stt:       stt,
		responder: responder,
		synth:     synth,
		metrics:   m,
		logger:    logger.With(slog.String("component", "transcribe_worker")),
	}
}

// Run processes clip jobs until the context ends. A failing job is logged
// and dropped; the worker itself never stops on job errors.
func (w *TranscribeWorker) Run(ctx context.Context) {
	w.logger.Info("transcribe worker started")

	for {
		job, err := w.in.Pop(ctx)
		if err != nil {
			w.logger.Info("transcribe worker stopped")
			return
		}
		w.metrics.SetTranscribeQueueDepth(w.in.Len())

		if err := w.process(ctx, job); err != nil {
			w.logger.Error("clip processing failed",
				slog.String("clip_id", job.ID),
				slog.String("speaker_id", job.SpeakerID),
				slog.String("error", err.Error()))
		}
	}
}

func (w *TranscribeWorker) process(ctx context.Context, job ClipJob) error {
	if len(job.PCM) < minClipBytes {
		w.logger.Debug("skipping undersized clip",
			slog.String("clip_id", job.ID),
			slog.Int("bytes", len(job.PCM)))
		return nil
	}

	if w.cfg.Debug.DumpWAVFiles {
		w.dumpClip(job)
	}

	mono, err := audio.PrepareForTranscription(job.PCM, job.Channels,
		w.cfg.Audio.SampleRate, w.cfg.Audio.TargetSampleRate)
	if err != nil {
		return fmt.Errorf("failed to prepare clip audio: %w", err)
	}

	wavData, err := audio.EncodeWAV(mono, w.cfg.Audio.TargetSampleRate, 1)
	if err != nil {
		return fmt.Errorf("failed to encode clip: %w", err)
	}

	text, err := w.stt.Transcribe(ctx, wavData, job.ID)
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}

	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	if IsFiller(normalized) {
		w.metrics.RecordFillerRejected()
		w.logger.Debug("rejected filler transcript",
			slog.String("clip_id", job.ID),
			slog.String("transcript", normalized))
		return nil
	}

	phrase, matched := MatchTrigger(normalized, w.cfg.Triggers.Phrases)
	if !matched {
		w.logger.Debug("no trigger in transcript",
			slog.String("clip_id", job.ID),
			slog.String("transcript", normalized))
		return nil
	}
	w.metrics.RecordTriggerMatched(phrase)

	profile, known := w.cfg.UserByID(job.SpeakerID)
	if !known {
		w.logger.Info("trigger from unknown speaker, discarding",
			slog.String("clip_id", job.ID),
			slog.String("speaker_id", job.SpeakerID),
			slog.String("phrase", phrase))
		return nil
	}

	if w.cfg.IsFriendlyFire(phrase, job.SpeakerID) {
		w.metrics.RecordFriendlyFireSuppressed()
		w.logger.Info("friendly fire, suppressing response",
			slog.String("speaker", profile.Name),
			slog.String("phrase", phrase))
		return nil
	}

	speakerName := profile.Name
	if speakerName == "" {
		speakerName = job.DisplayName
	}
	victim := w.cfg.VictimForPhrase(phrase)

	started := time.Now()
	response, err := w.responder.Generate(ctx, speakerName, profile.TargetName, phrase, victim)
	if err != nil {
		w.metrics.RecordResponseFailure()
		return fmt.Errorf("response generation failed: %w", err)
	}
	w.metrics.RecordResponseGenerated(time.Since(started).Seconds())

	w.logger.Info("response generated",
		slog.String("speaker", speakerName),
		slog.String("phrase", phrase),
		slog.Duration("took", time.Since(started)))

	path, err := w.synth.Synthesize(ctx, response)
	if err != nil {
		w.metrics.RecordSynthesisFailure()
		return fmt.Errorf("synthesis failed: %w", err)
	}

	if err := audio.WaitFileReady(path, fileReadyTimeout); err != nil {
		w.metrics.RecordSynthesisFailure()
		return fmt.Errorf("synthesized file never became ready: %w", err)
	}

	w.out.Push(PlaybackItem{SessionID: job.SessionID, Path: path})
	w.metrics.SetPlaybackQueueDepth(w.out.Len())

	return nil
}

func (w *TranscribeWorker) dumpClip(job ClipJob) {
	path := filepath.Join(w.cfg.Debug.DumpDirectory, fmt.Sprintf("clip-%s.wav", job.ID))
	if err := audio.WriteWAVFile(path, job.PCM, w.cfg.Audio.SampleRate, job.Channels); err != nil {
		w.logger.Warn("failed to dump clip",
			slog.String("clip_id", job.ID),
			slog.String("error", err.Error()))
	}
}
