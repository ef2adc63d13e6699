package driven

import (
	"context"
	"time"

	"github.com/akaul/splitgate/internal/domain/model"
)

// ScheduleStore defines the driven port for durable per-user job records.
// Every operation is scoped by (user, kind); records are never deleted, so
// re-enabling a job resumes its history.
type ScheduleStore interface {
	// Upsert inserts or replaces the schedule for (UserID, Kind). A nil
	// LastFiredAt keeps the stored fire history.
	Upsert(ctx context.Context, s model.Schedule) error

	// Get returns the schedule for (userID, kind), or (nil, nil) if the user
	// never opted in.
	Get(ctx context.Context, userID int64, kind model.JobKind) (*model.Schedule, error)

	// GetAllForUser returns every schedule record the user has, enabled or not.
	GetAllForUser(ctx context.Context, userID int64) ([]model.Schedule, error)

	// ListDue returns enabled schedules whose next_fire_at is at or before now.
	ListDue(ctx context.Context, now time.Time) ([]model.Schedule, error)

	// SetEnabled flips the enabled flag without touching fire times or
	// history. A no-op if the record does not exist.
	SetEnabled(ctx context.Context, userID int64, kind model.JobKind, enabled bool) error

	// UpdateFireTimes records the outcome of a fire: last_fired_at and the
	// freshly computed next_fire_at. It is a compare-and-set keyed on the
	// next_fire_at value the caller read (prevNextFireAt): it never
	// re-enables a disabled record and never overwrites a record that was
	// concurrently re-armed.
	UpdateFireTimes(ctx context.Context, userID int64, kind model.JobKind, prevNextFireAt, nextFireAt, lastFiredAt time.Time) error
}
