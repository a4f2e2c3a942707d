package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yagizdas/voiceflare/internal/config"
	"github.com/yagizdas/voiceflare/internal/metrics"
)

// State is the lifecycle state of a supervised voice link
type State int

const (
	StateDisconnected State = iota
	StateListening
	StateRestartScheduled
	StateFailed
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateListening:
		return "listening"
	case StateRestartScheduled:
		return "restart_scheduled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// maxRestartDelay caps the exponential backoff ladder
const maxRestartDelay = 30 * time.Second

// restartTimeout bounds a single restart attempt
const restartTimeout = 30 * time.Second

// Restarter rebuilds the voice link and capture path for a session: tear
// down the old sink, settle, construct a fresh sink bound to the same
// session, and reattach the listener.
type Restarter interface {
	Restart(ctx context.Context) error
}

// Supervisor drives the restart state machine for one voice session.
// A graceful listener end resets the attempt counter; an erroneous end
// schedules a restart with exponential backoff. Attempt counting works in a
// cooldown window: failures spaced further apart than the window start the
// ladder over at 1. Scheduling a restart cancels any pending one, so
// restarts never overlap. Once the counter reaches the configured maximum
// no further restart is scheduled: the supervisor goes terminal and stays
// down until Reset.
type Supervisor struct {
	sessionID   string
	maxAttempts int
	cooldown    time.Duration
	restarter   Restarter
	metrics     *metrics.Metrics
	logger      *slog.Logger

	// Injectable for tests
	now      func() time.Time
	schedule ScheduleFunc

	mu            sync.Mutex
	state         State
	attempts      int
	lastRestart   time.Time
	cancelPending func()
}

// NewSupervisor creates a supervisor for one voice session
func NewSupervisor(sessionID string, cfg config.ConnectionConfig, restarter Restarter,
	m *metrics.Metrics, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		sessionID:   sessionID,
		maxAttempts: cfg.MaxRestartAttempts,
		cooldown:    cfg.GetRestartCooldown(),
		restarter:   restarter,
		metrics:     m,
		logger: logger.With(
			slog.String("component", "supervisor"),
			slog.String("session_id", sessionID)),
		now:      time.Now,
		schedule: defaultSchedule,
		state:    StateListening,
	}
}

// SessionID returns the supervised session's ID
func (s *Supervisor) SessionID() string {
	return s.sessionID
}

// State returns the current lifecycle state
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attempts returns the current restart attempt count
func (s *Supervisor) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// OnListenEnd is the listener-termination callback. A nil error is a
// graceful end: the attempt counter resets and the session goes idle. An
// error enters the backoff decision.
func (s *Supervisor) OnListenEnd(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateFailed {
		return
	}

	if err == nil {
		s.attempts = 0
		s.state = StateDisconnected
		s.logger.Info("listener ended gracefully")
		return
	}

	s.logger.Warn("listener ended with error", slog.String("error", err.Error()))
	s.scheduleRestartLocked()
}

// scheduleRestartLocked runs the backoff decision. Caller holds s.mu.
func (s *Supervisor) scheduleRestartLocked() {
	now := s.now()

	// Failures spaced beyond the cooldown window restart the ladder.
	// The counter deliberately survives successful restarts inside the
	// window, so a link that keeps dying right after coming back still
	// climbs toward the ceiling.
	if s.lastRestart.IsZero() || now.Sub(s.lastRestart) > s.cooldown {
		s.attempts = 0
	}
	s.attempts++
	s.lastRestart = now

	if s.attempts >= s.maxAttempts {
		s.state = StateFailed
		if s.cancelPending != nil {
			s.cancelPending()
			s.cancelPending = nil
		}
		s.metrics.RecordSessionFailed()
		s.logger.Error("restart attempts exhausted, session failed",
			slog.Int("max_attempts", s.maxAttempts))
		return
	}

	delay := backoffDelay(s.attempts)

	// Superseding an already-pending restart cancels it first, so two
	// restarts can never run for the same session.
	if s.cancelPending != nil {
		s.cancelPending()
	}

	s.state = StateRestartScheduled
	s.metrics.RecordRestartScheduled()
	s.logger.Info("restart scheduled",
		slog.Int("attempt", s.attempts),
		slog.Duration("delay", delay))

	s.cancelPending = s.schedule(delay, s.executeRestart)
}

// executeRestart runs when the backoff delay fires
func (s *Supervisor) executeRestart() {
	s.mu.Lock()
	if s.state != StateRestartScheduled {
		s.mu.Unlock()
		return
	}
	s.cancelPending = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), restartTimeout)
	defer cancel()

	err := s.restarter.Restart(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.metrics.RecordRestartFailed()
		s.logger.Error("restart attempt failed", slog.String("error", err.Error()))
		s.scheduleRestartLocked()
		return
	}

	s.state = StateListening
	s.logger.Info("voice link restarted",
		slog.Int("attempt", s.attempts))
}

// Reset clears a terminal Failed state after external intervention, such as
// a manual rejoin
func (s *Supervisor) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelPending != nil {
		s.cancelPending()
		s.cancelPending = nil
	}
	s.state = StateListening
	s.attempts = 0
	s.lastRestart = time.Time{}
	s.logger.Info("supervisor reset")
}

// Stop cancels any pending restart, used during shutdown
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelPending != nil {
		s.cancelPending()
		s.cancelPending = nil
	}
	s.state = StateDisconnected
}

// backoffDelay returns min(2^(attempt-1), 30) seconds
func backoffDelay(attempt int) time.Duration {
	d := time.Second
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxRestartDelay {
			return maxRestartDelay
		}
	}
	return d
}
