package capture

import (
	"sync"

	"github.com/yagizdas/voiceflare/internal/audio"
	"github.com/yagizdas/voiceflare/internal/metrics"
)

// Speaker pairs a speaker ID with its buffer and last known display name
type Speaker struct {
	ID          string
	DisplayName string
	Buffer      *audio.SpeakerBuffer
}

// Registry tracks one SpeakerBuffer per speaker. Lookups take a read lock;
// iteration works on a snapshot slice so buffers can be added concurrently
// while the finalizer walks the previous set.
type Registry struct {
	speakers map[string]*Speaker
	mu       sync.RWMutex

	sampleRate int
	prerollMax int
	metrics    *metrics.Metrics
}

// NewRegistry creates an empty speaker registry
func NewRegistry(sampleRate, prerollMax int, m *metrics.Metrics) *Registry {
	return &Registry{
		speakers:   make(map[string]*Speaker),
		sampleRate: sampleRate,
		prerollMax: prerollMax,
		metrics:    m,
	}
}

// GetOrCreate returns the speaker entry, creating its buffer on first sight.
// A non-empty displayName updates the stored name.
func (r *Registry) GetOrCreate(speakerID, displayName string) *Speaker {
	r.mu.RLock()
	sp, exists := r.speakers[speakerID]
	r.mu.RUnlock()

	if exists {
		if displayName != "" {
			r.mu.Lock()
			sp.DisplayName = displayName
			r.mu.Unlock()
		}
		return sp
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the write lock
	if sp, exists := r.speakers[speakerID]; exists {
		if displayName != "" {
			sp.DisplayName = displayName
		}
		return sp
	}

	sp = &Speaker{
		ID:          speakerID,
		DisplayName: displayName,
		Buffer:      audio.NewSpeakerBuffer(r.sampleRate, r.prerollMax),
	}
	r.speakers[speakerID] = sp
	r.metrics.SetActiveSpeakers(len(r.speakers))

	return sp
}

// Get returns the speaker entry if present
func (r *Registry) Get(speakerID string) (*Speaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sp, exists := r.speakers[speakerID]
	return sp, exists
}

// DisplayName returns the stored display name for a speaker
func (r *Registry) DisplayName(speakerID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if sp, exists := r.speakers[speakerID]; exists {
		return sp.DisplayName
	}
	return ""
}

// Snapshot returns a copy of the current speaker set for iteration
func (r *Registry) Snapshot() []*Speaker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	speakers := make([]*Speaker, 0, len(r.speakers))
	for _, sp := range r.speakers {
		speakers = append(speakers, sp)
	}
	return speakers
}

// Remove drops a speaker's buffer
func (r *Registry) Remove(speakerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.speakers[speakerID]; !exists {
		return false
	}
	delete(r.speakers, speakerID)
	r.metrics.SetActiveSpeakers(len(r.speakers))
	return true
}

// Count returns the number of tracked speakers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.speakers)
}

// Clear drops all speaker buffers
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.speakers = make(map[string]*Speaker)
	r.metrics.SetActiveSpeakers(0)
}
