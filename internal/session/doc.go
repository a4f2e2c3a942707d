// Package session supervises voice link lifecycles. Each active voice
// session owns a Supervisor that reacts to listener termination with
// exponential backoff restarts, and a Registry maps session IDs to their
// supervisors and playback links so multiple sessions can run concurrently.
package session
