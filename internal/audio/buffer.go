package audio

import (
	"sync"
	"time"
)

// SpeakerBuffer accumulates PCM audio for a single speaker. A bounded
// preroll ring always tracks the most recent fragments so the onset of
// speech is not clipped; when speaking starts, the preroll is prepended to
// the utterance exactly once, and fragments keep appending until finalize.
type SpeakerBuffer struct {
	sampleRate int

	chunks       [][]byte // fragments of the current utterance, in arrival order
	preroll      [][]byte // bounded FIFO of fragments received before speech onset
	prerollMax   int
	prerollUsed  bool // preroll already folded into the current utterance
	speaking     bool
	stopTime     time.Time // when speaking last stopped; zero while speaking
	lastAudio    time.Time // last fragment arrival
	lastChannels int       // channel count of the most recent fragment

	mu sync.Mutex
}

// BufferStats represents buffer state for monitoring
type BufferStats struct {
	Speaking     bool    `json:"speaking"`
	ChunkCount   int     `json:"chunk_count"`
	PrerollCount int     `json:"preroll_count"`
	DurationSecs float64 `json:"duration_seconds"`
	LastChannels int     `json:"last_channels"`
}

// NewSpeakerBuffer creates a buffer for one speaker. prerollMax bounds how
// many silent-period fragments are retained ahead of speech onset.
func NewSpeakerBuffer(sampleRate, prerollMax int) *SpeakerBuffer {
	if prerollMax < 1 {
		prerollMax = 1
	}
	return &SpeakerBuffer{
		sampleRate: sampleRate,
		prerollMax: prerollMax,
		lastAudio:  time.Now(),
	}
}

// AddPCM appends a PCM fragment. The preroll ring always receives the
// fragment, evicting the oldest when full; the current utterance receives it
// only while the speaker is marked as speaking.
func (b *SpeakerBuffer) AddPCM(pcm []byte, channels int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastAudio = time.Now()
	b.lastChannels = channels

	b.preroll = append(b.preroll, pcm)
	if len(b.preroll) > b.prerollMax {
		b.preroll = b.preroll[len(b.preroll)-b.prerollMax:]
	}

	if b.speaking {
		b.chunks = append(b.chunks, pcm)
	}
}

// StartSpeaking marks the speaker as active and clears any pending stop
// mark. On the first call of an utterance the preroll contents are prepended
// to the utterance, oldest first; repeated calls never prepend again.
func (b *SpeakerBuffer) StartSpeaking() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.speaking = true
	b.stopTime = time.Time{}

	if !b.prerollUsed && len(b.preroll) > 0 {
		b.chunks = append(b.chunks, b.preroll...)
		b.prerollUsed = true
	}
}

// StopSpeaking marks the speaker as silent and records when silence began
func (b *SpeakerBuffer) StopSpeaking() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.speaking = false
	b.stopTime = time.Now()
}

// Speaking reports whether the speaker is currently marked as active
func (b *SpeakerBuffer) Speaking() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.speaking
}

// StopTime returns when the speaker last stopped; zero if speaking or never stopped
func (b *SpeakerBuffer) StopTime() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopTime
}

// DurationSeconds returns the accumulated utterance length in seconds.
// The arithmetic treats every sample as mono (totalBytes/2/sampleRate);
// stereo fragments therefore count double. Downstream thresholds are tuned
// against this measure, so it stays channel-blind on purpose.
func (b *SpeakerBuffer) DurationSeconds() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.durationLocked()
}

func (b *SpeakerBuffer) durationLocked() float64 {
	total := 0
	for _, chunk := range b.chunks {
		total += len(chunk)
	}
	return float64(total) / 2 / float64(b.sampleRate)
}

// Finalize returns the concatenated utterance and the channel count of its
// most recent fragment, then resets the buffer for the next utterance. A
// second Finalize without new audio returns an empty slice.
func (b *SpeakerBuffer) Finalize() ([]byte, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := 0
	for _, chunk := range b.chunks {
		total += len(chunk)
	}

	pcm := make([]byte, 0, total)
	for _, chunk := range b.chunks {
		pcm = append(pcm, chunk...)
	}
	channels := b.lastChannels

	b.resetLocked()

	return pcm, channels
}

// Clear discards the accumulated utterance without returning it
func (b *SpeakerBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

// resetLocked closes out an utterance. The preroll ring keeps running so
// the next utterance's onset is still covered.
func (b *SpeakerBuffer) resetLocked() {
	b.chunks = nil
	b.prerollUsed = false
	b.stopTime = time.Time{}
}

// GetStats returns current buffer state for monitoring
func (b *SpeakerBuffer) GetStats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BufferStats{
		Speaking:     b.speaking,
		ChunkCount:   len(b.chunks),
		PrerollCount: len(b.preroll),
		DurationSecs: b.durationLocked(),
		LastChannels: b.lastChannels,
	}
}

// LastAudio returns the arrival time of the most recent fragment
func (b *SpeakerBuffer) LastAudio() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAudio
}
