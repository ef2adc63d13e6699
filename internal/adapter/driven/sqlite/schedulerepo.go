package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akaul/splitgate/internal/domain/model"
	"github.com/akaul/splitgate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ScheduleStore = (*ScheduleRepo)(nil)

// ScheduleRepo is the SQLite implementation of the ScheduleStore port
// interface. Records are keyed by (user_id, kind) and never deleted;
// disabling a job only flips the enabled flag.
type ScheduleRepo struct {
	db *DB
}

// NewScheduleRepo creates a new ScheduleRepo.
func NewScheduleRepo(db *DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

// Upsert inserts or replaces the schedule for (UserID, Kind). A nil
// LastFiredAt keeps the stored fire history, so a re-enable never erases
// when the job last ran.
func (r *ScheduleRepo) Upsert(ctx context.Context, s model.Schedule) error {
	const query = `INSERT INTO schedules
		(user_id, kind, enabled, interval_secs, window_start_hour, window_end_hour,
		 notify_target, next_fire_at, last_fired_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, kind) DO UPDATE SET
			enabled = excluded.enabled,
			interval_secs = excluded.interval_secs,
			window_start_hour = excluded.window_start_hour,
			window_end_hour = excluded.window_end_hour,
			notify_target = excluded.notify_target,
			next_fire_at = excluded.next_fire_at,
			last_fired_at = COALESCE(excluded.last_fired_at, last_fired_at),
			updated_at = CURRENT_TIMESTAMP`

	_, err := r.db.Writer.ExecContext(ctx, query,
		s.UserID, string(s.Kind), s.Enabled, int64(s.Interval.Seconds()),
		s.Window.StartHour, s.Window.EndHour, s.NotifyTarget,
		nullableTime(s.NextFireAt), nullableTime(s.LastFiredAt),
		time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert schedule %d/%s: %w", s.UserID, s.Kind, err)
	}
	return nil
}

// Get returns the schedule for (userID, kind), or (nil, nil) if the user
// never opted in.
func (r *ScheduleRepo) Get(ctx context.Context, userID int64, kind model.JobKind) (*model.Schedule, error) {
	const query = scheduleColumns + ` WHERE user_id = ? AND kind = ?`

	row := r.db.Reader.QueryRowContext(ctx, query, userID, string(kind))
	s, err := scanSchedule(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule %d/%s: %w", userID, kind, err)
	}
	return s, nil
}

// GetAllForUser returns every schedule record the user has, enabled or not.
func (r *ScheduleRepo) GetAllForUser(ctx context.Context, userID int64) ([]model.Schedule, error) {
	const query = scheduleColumns + ` WHERE user_id = ? ORDER BY kind`

	rows, err := r.db.Reader.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list schedules for user %d: %w", userID, err)
	}
	defer rows.Close()

	return collectSchedules(rows)
}

// ListDue returns enabled schedules whose next_fire_at is at or before now.
func (r *ScheduleRepo) ListDue(ctx context.Context, now time.Time) ([]model.Schedule, error) {
	const query = scheduleColumns + ` WHERE enabled = 1 AND next_fire_at IS NOT NULL AND next_fire_at <= ?
		ORDER BY next_fire_at`

	rows, err := r.db.Reader.QueryContext(ctx, query, formatFireTime(now))
	if err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	defer rows.Close()

	return collectSchedules(rows)
}

// SetEnabled flips the enabled flag without touching fire times or history.
func (r *ScheduleRepo) SetEnabled(ctx context.Context, userID int64, kind model.JobKind, enabled bool) error {
	const query = `UPDATE schedules SET enabled = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND kind = ?`
	_, err := r.db.Writer.ExecContext(ctx, query, enabled, userID, string(kind))
	if err != nil {
		return fmt.Errorf("set schedule enabled %d/%s: %w", userID, kind, err)
	}
	return nil
}

// UpdateFireTimes records the outcome of a fire. The WHERE clause is a
// compare-and-set: it leaves disabled records alone so a disable that raced
// the fire wins, and it only applies while next_fire_at still holds the
// value the scheduler read, so a concurrent opt-in that re-armed the record
// wins over the scheduler's stale computation.
func (r *ScheduleRepo) UpdateFireTimes(ctx context.Context, userID int64, kind model.JobKind, prevNextFireAt, nextFireAt, lastFiredAt time.Time) error {
	const query = `UPDATE schedules SET next_fire_at = ?, last_fired_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND kind = ? AND enabled = 1 AND next_fire_at = ?`
	_, err := r.db.Writer.ExecContext(ctx, query,
		formatFireTime(nextFireAt), formatFireTime(lastFiredAt),
		userID, string(kind), formatFireTime(prevNextFireAt))
	if err != nil {
		return fmt.Errorf("update fire times %d/%s: %w", userID, kind, err)
	}
	return nil
}

const scheduleColumns = `SELECT user_id, kind, enabled, interval_secs, window_start_hour, window_end_hour,
	notify_target, next_fire_at, last_fired_at, created_at, updated_at FROM schedules`

// scanSchedule builds a Schedule from one row; scan is row.Scan or rows.Scan.
func scanSchedule(scan func(dest ...any) error) (*model.Schedule, error) {
	var s model.Schedule
	var kind string
	var intervalSecs int64
	var nextFire, lastFired sql.NullString
	var createdAt, updatedAt string

	err := scan(&s.UserID, &kind, &s.Enabled, &intervalSecs,
		&s.Window.StartHour, &s.Window.EndHour, &s.NotifyTarget,
		&nextFire, &lastFired, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	s.Kind = model.JobKind(kind)
	s.Interval = time.Duration(intervalSecs) * time.Second

	if s.NextFireAt, err = parseNullTime(nextFire); err != nil {
		return nil, fmt.Errorf("parse next_fire_at: %w", err)
	}
	if s.LastFiredAt, err = parseNullTime(lastFired); err != nil {
		return nil, fmt.Errorf("parse last_fired_at: %w", err)
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &s, nil
}

func collectSchedules(rows *sql.Rows) ([]model.Schedule, error) {
	var schedules []model.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return schedules, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// fireTimeLayout is the stored text form of fire times. A single fixed,
// second-granularity layout keeps the compare-and-set in UpdateFireTimes
// and the <= comparison in ListDue exact: the same instant always renders
// to the same bytes.
const fireTimeLayout = "2006-01-02 15:04:05"

func formatFireTime(t time.Time) string {
	return t.UTC().Format(fireTimeLayout)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatFireTime(*t)
}
