package session

import "time"

// ScheduleFunc runs fn once after d. The returned cancel stops the timer if
// it has not fired yet. Injected so tests can drive restart timing without
// real sleeps, and so a superseded restart can always be cancelled before a
// new one is scheduled.
type ScheduleFunc func(d time.Duration, fn func()) (cancel func())

func defaultSchedule(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
