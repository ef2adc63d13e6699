package model

import "time"

// JobKind identifies a recurring notification job. The set is closed: the
// scheduler dispatches with an exhaustive switch, and the schedules table
// enforces it with a CHECK constraint.
type JobKind string

const (
	// JobDailySummary sends one spending summary per day.
	JobDailySummary JobKind = "daily_summary"
	// JobReminder nudges the user to log expenses every few hours during
	// the waking window.
	JobReminder JobKind = "reminder"
)

// Valid reports whether k is a known job kind.
func (k JobKind) Valid() bool {
	return k == JobDailySummary || k == JobReminder
}

// WakingWindow is the daily [StartHour, EndHour) range, in the gateway's
// fixed reference timezone (UTC), during which notifications may fire.
type WakingWindow struct {
	StartHour int
	EndHour   int
}

// Contains reports whether t falls inside the window.
func (w WakingWindow) Contains(t time.Time) bool {
	h := t.UTC().Hour()
	return h >= w.StartHour && h < w.EndHour
}

// NextStart returns the first window opening at or after t.
func (w WakingWindow) NextStart(t time.Time) time.Time {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), w.StartHour, 0, 0, 0, time.UTC)
	if t.After(start) {
		start = start.AddDate(0, 0, 1)
	}
	return start
}

// Schedule is one user's durable record for one job kind. NextFireAt and
// LastFiredAt are nil until the job is first armed / first fired.
type Schedule struct {
	UserID       int64
	Kind         JobKind
	Enabled      bool
	Interval     time.Duration
	Window       WakingWindow
	NotifyTarget string // delivery address captured at opt-in
	NextFireAt   *time.Time
	LastFiredAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Due reports whether the schedule should fire at now.
func (s Schedule) Due(now time.Time) bool {
	return s.Enabled && s.NextFireAt != nil && !s.NextFireAt.After(now)
}

// NextFire computes the instant the job fires after prev. It advances by
// interval from the later of prev and now, then clamps forward to the next
// window opening if the result lands outside the waking window. The result
// is always strictly after now, so a record can never re-fire in the same
// tick and next_fire_at never moves backward.
func NextFire(prev, now time.Time, interval time.Duration, w WakingWindow) time.Time {
	base := prev
	if now.After(base) {
		base = now
	}
	candidate := base.Add(interval).UTC()
	if w.Contains(candidate) {
		return candidate
	}
	return w.NextStart(candidate)
}

// FirstFire computes the initial next_fire_at when a job is armed: the next
// window-compliant instant at least one interval after now.
func FirstFire(now time.Time, interval time.Duration, w WakingWindow) time.Time {
	return NextFire(now, now, interval, w)
}
