package session

import (
	"sync"
	"time"

	"github.com/yagizdas/voiceflare/internal/pipeline"
)

// Session pairs a voice session with its supervisor and playback link
type Session struct {
	ID         string
	GuildID    string
	ChannelID  string
	StartTime  time.Time
	Supervisor *Supervisor
	Link       pipeline.VoiceLink
}

// Info is a session snapshot for monitoring APIs
type Info struct {
	ID        string    `json:"id"`
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	StartTime time.Time `json:"start_time"`
	State     string    `json:"state"`
	Attempts  int       `json:"restart_attempts"`
}

// Registry maps session IDs to live sessions. It also serves the playback
// worker's link lookups.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Add registers a session, replacing any previous entry for the same ID
func (r *Registry) Add(sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ID] = sess
}

// Get returns the session if present
func (r *Registry) Get(sessionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, exists := r.sessions[sessionID]
	return sess, exists
}

// Remove drops a session, stopping its supervisor first
func (r *Registry) Remove(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[sessionID]
	if !exists {
		return false
	}
	sess.Supervisor.Stop()
	delete(r.sessions, sessionID)
	return true
}

// Link resolves the playback link for a session. Implements the playback
// worker's resolver contract.
func (r *Registry) Link(sessionID string) (pipeline.VoiceLink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, exists := r.sessions[sessionID]
	if !exists || sess.Link == nil {
		return nil, false
	}
	return sess.Link, true
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns monitoring info for all live sessions
func (r *Registry) Snapshot() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.sessions))
	for _, sess := range r.sessions {
		infos = append(infos, Info{
			ID:        sess.ID,
			GuildID:   sess.GuildID,
			ChannelID: sess.ChannelID,
			StartTime: sess.StartTime,
			State:     sess.Supervisor.State().String(),
			Attempts:  sess.Supervisor.Attempts(),
		})
	}
	return infos
}
