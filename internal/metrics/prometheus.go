package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice agent
type Metrics struct {
	// Capture metrics
	FragmentsReceived prometheus.Counter
	FragmentsDropped  *prometheus.CounterVec
	ActiveSpeakers    prometheus.Gauge

	// Utterance metrics
	ClipsFinalized prometheus.Counter
	ClipsDiscarded prometheus.Counter
	ClipDuration   prometheus.Histogram
	ClipSize       prometheus.Histogram

	// Pipeline queue metrics
	TranscribeQueueDepth prometheus.Gauge
	PlaybackQueueDepth   prometheus.Gauge

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram
	TranscriptionRetries   prometheus.Counter

	// Trigger metrics
	TriggersMatched        *prometheus.CounterVec
	FriendlyFireSuppressed prometheus.Counter
	FillerRejected         prometheus.Counter

	// Response and synthesis metrics
	ResponsesGenerated prometheus.Counter
	ResponseFailures   prometheus.Counter
	ResponseDuration   prometheus.Histogram
	SynthesisFailures  prometheus.Counter

	// Playback metrics
	PlaybacksCompleted prometheus.Counter
	PlaybackFailures   prometheus.Counter

	// Voice link metrics
	RestartsScheduled prometheus.Counter
	RestartsFailed    prometheus.Counter
	SessionsFailed    prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Capture metrics
		FragmentsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceflare_fragments_received_total",
			Help: "Total number of PCM fragments received from the voice link",
		}),
		FragmentsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceflare_fragments_dropped_total",
			Help: "Total number of PCM fragments silently dropped at the capture sink",
		}, []string{"reason"}),
		ActiveSpeakers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voiceflare_active_speakers",
			Help: "Current number of speakers with a live buffer",
		}),

		// Utterance metrics
		ClipsFinalized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceflare_clips_finalized_total",
			Help: "Total number of utterance clips finalized and queued",
		}),
		ClipsDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceflare_clips_discarded_total",
			Help: "Total number of utterance clips discarded as too short",
		}),
		ClipDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voiceflare_clip_duration_seconds",
			Help:    "Duration of finalized utterance clips",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~2 minutes
		}),
		ClipSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voiceflare_clip_size_bytes",
			Help:    "Size of finalized utterance clips in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),

		// Pipeline queue metrics
		TranscribeQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voiceflare_transcribe_queue_depth",
			Help: "Current number of clips waiting for transcription",
		}),
		PlaybackQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voiceflare_playback_queue_depth",
			Help: "Current number of synthesized responses waiting for playback",
		}),

		// Transcription metrics
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceflare_transcription_requests_total",
			Help: "Total number of transcription requests sent",
		}),
		TranscriptionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceflare_transcription_successes_total",
			Help: "Total number of successful transcription requests",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceflare_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voiceflare_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		TranscriptionRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceflare_transcription_retries_total",
			Help: "Total number of transcription request retries",
		}),

		// Trigger metrics
		TriggersMatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceflare_triggers_matched_total",
			Help: "Total number of trigger phrase matches in transcripts",
		}, []string{"phrase"}),
		FriendlyFireSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceflare_friendly_fire_suppressed_total",
			Help: "Total number of responses suppressed by friendly fire rules",
		}),
		FillerRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceflare_filler_rejected_total",
			Help: "Total number of transcripts rejected as filler words",
		}),

		// Response and synthesis metrics
		ResponsesGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceflare_responses_generated_total",
			Help: "Total number of responses generated",
		}),
		ResponseFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceflare_response_failures_total",
			Help: "Total number of failed response generations",
		}),
		ResponseDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voiceflare_response_duration_seconds",
			Help:    "Duration of response generation requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		SynthesisFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceflare_synthesis_failures_total",
			Help: "Total number of failed speech syntheses",
		}),

		// Playback metrics
		PlaybacksCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceflare_playbacks_completed_total",
			Help: "Total number of completed playbacks",
		}),
		PlaybackFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceflare_playback_failures_total",
			Help: "Total number of failed playbacks",
		}),

		// Voice link metrics
		RestartsScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceflare_restarts_scheduled_total",
			Help: "Total number of voice link restarts scheduled",
		}),
		RestartsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceflare_restarts_failed_total",
			Help: "Total number of voice link restart attempts that failed",
		}),
		SessionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceflare_sessions_failed_total",
			Help: "Total number of sessions that exhausted restart attempts",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceflare_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voiceflare_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// RecordFragmentReceived increments the fragments received counter
func (m *Metrics) RecordFragmentReceived() {
	m.FragmentsReceived.Inc()
}

// RecordFragmentDropped increments the drop counter for a given reason
func (m *Metrics) RecordFragmentDropped(reason string) {
	m.FragmentsDropped.WithLabelValues(reason).Inc()
}

// SetActiveSpeakers sets the current number of live speaker buffers
func (m *Metrics) SetActiveSpeakers(count int) {
	m.ActiveSpeakers.Set(float64(count))
}

// RecordClipFinalized records a finalized utterance clip
func (m *Metrics) RecordClipFinalized(durationSeconds float64, sizeBytes int) {
	m.ClipsFinalized.Inc()
	m.ClipDuration.Observe(durationSeconds)
	m.ClipSize.Observe(float64(sizeBytes))
}

// RecordClipDiscarded increments the discarded clips counter
func (m *Metrics) RecordClipDiscarded() {
	m.ClipsDiscarded.Inc()
}

// SetTranscribeQueueDepth sets the transcription queue depth gauge
func (m *Metrics) SetTranscribeQueueDepth(depth int) {
	m.TranscribeQueueDepth.Set(float64(depth))
}

// SetPlaybackQueueDepth sets the playback queue depth gauge
func (m *Metrics) SetPlaybackQueueDepth(depth int) {
	m.PlaybackQueueDepth.Set(float64(depth))
}

// RecordTranscriptionRequest increments transcription requests counter
func (m *Metrics) RecordTranscriptionRequest() {
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records a successful transcription
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionRetry increments the retry counter
func (m *Metrics) RecordTranscriptionRetry() {
	m.TranscriptionRetries.Inc()
}

// RecordTriggerMatched records a trigger phrase match
func (m *Metrics) RecordTriggerMatched(phrase string) {
	m.TriggersMatched.WithLabelValues(phrase).Inc()
}

// RecordFriendlyFireSuppressed increments the suppression counter
func (m *Metrics) RecordFriendlyFireSuppressed() {
	m.FriendlyFireSuppressed.Inc()
}

// RecordFillerRejected increments the filler rejection counter
func (m *Metrics) RecordFillerRejected() {
	m.FillerRejected.Inc()
}

// RecordResponseGenerated records a successful response generation
func (m *Metrics) RecordResponseGenerated(durationSeconds float64) {
	m.ResponsesGenerated.Inc()
	m.ResponseDuration.Observe(durationSeconds)
}

// RecordResponseFailure increments the response failure counter
func (m *Metrics) RecordResponseFailure() {
	m.ResponseFailures.Inc()
}

// RecordSynthesisFailure increments the synthesis failure counter
func (m *Metrics) RecordSynthesisFailure() {
	m.SynthesisFailures.Inc()
}

// RecordPlaybackCompleted increments the completed playbacks counter
func (m *Metrics) RecordPlaybackCompleted() {
	m.PlaybacksCompleted.Inc()
}

// RecordPlaybackFailure increments the playback failure counter
func (m *Metrics) RecordPlaybackFailure() {
	m.PlaybackFailures.Inc()
}

// RecordRestartScheduled increments the restarts scheduled counter
func (m *Metrics) RecordRestartScheduled() {
	m.RestartsScheduled.Inc()
}

// RecordRestartFailed increments the failed restarts counter
func (m *Metrics) RecordRestartFailed() {
	m.RestartsFailed.Inc()
}

// RecordSessionFailed increments the terminal session failures counter
func (m *Metrics) RecordSessionFailed() {
	m.SessionsFailed.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}
