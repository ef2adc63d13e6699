package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/akaul/splitgate/internal/domain/model"
	"github.com/akaul/splitgate/internal/domain/port/driven"
)

// JobConfig carries the deployment-level job parameters. Per-user records
// snapshot these at opt-in, so changing the deployment defaults does not
// rewrite existing schedules.
type JobConfig struct {
	ReminderInterval time.Duration
	Window           model.WakingWindow
	SummaryHour      int
	SummaryMinute    int
}

// NotificationService handles opt-in, opt-out, and status for the
// notification jobs.
type NotificationService struct {
	schedules driven.ScheduleStore
	notifier  driven.Notifier
	cfg       JobConfig
	now       func() time.Time
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(schedules driven.ScheduleStore, notifier driven.Notifier, cfg JobConfig) *NotificationService {
	return &NotificationService{
		schedules: schedules,
		notifier:  notifier,
		cfg:       cfg,
		now:       time.Now,
	}
}

// EnableReminder opts the user into periodic expense reminders delivered to
// target, and sends an immediate confirmation so the user knows the target
// works.
func (s *NotificationService) EnableReminder(ctx context.Context, userID int64, target string) (*model.Schedule, error) {
	now := s.now().UTC()
	next := model.FirstFire(now, s.cfg.ReminderInterval, s.cfg.Window)

	schedule := model.Schedule{
		UserID:       userID,
		Kind:         model.JobReminder,
		Enabled:      true,
		Interval:     s.cfg.ReminderInterval,
		Window:       s.cfg.Window,
		NotifyTarget: target,
		NextFireAt:   &next,
	}
	if err := s.schedules.Upsert(ctx, schedule); err != nil {
		return nil, fmt.Errorf("enable reminder: %w", err)
	}

	confirmation := fmt.Sprintf(
		"Reminders enabled! I'll nudge you every %s between %02d:00-%02d:00 UTC to log expenses.",
		formatInterval(s.cfg.ReminderInterval), s.cfg.Window.StartHour, s.cfg.Window.EndHour)
	if err := s.notifier.Deliver(ctx, target, confirmation); err != nil {
		slog.Warn("reminder confirmation delivery failed", "user_id", userID, "error", err)
	}

	return &schedule, nil
}

// EnableDailySummary opts the user into the daily spending summary and
// sends an immediate confirmation.
func (s *NotificationService) EnableDailySummary(ctx context.Context, userID int64, target string) (*model.Schedule, error) {
	now := s.now().UTC()
	next := nextSummaryAt(now, s.cfg.SummaryHour, s.cfg.SummaryMinute)

	schedule := model.Schedule{
		UserID:       userID,
		Kind:         model.JobDailySummary,
		Enabled:      true,
		Interval:     24 * time.Hour,
		Window:       model.WakingWindow{StartHour: s.cfg.SummaryHour, EndHour: s.cfg.SummaryHour + 1},
		NotifyTarget: target,
		NextFireAt:   &next,
	}
	if err := s.schedules.Upsert(ctx, schedule); err != nil {
		return nil, fmt.Errorf("enable daily summary: %w", err)
	}

	confirmation := fmt.Sprintf(
		"Daily summary enabled! I'll send your monthly spending recap every day at %02d:%02d UTC.",
		s.cfg.SummaryHour, s.cfg.SummaryMinute)
	if err := s.notifier.Deliver(ctx, target, confirmation); err != nil {
		slog.Warn("summary confirmation delivery failed", "user_id", userID, "error", err)
	}

	return &schedule, nil
}

// Disable opts the user out of one job kind. The record survives with its
// history; re-enabling starts a fresh cadence.
func (s *NotificationService) Disable(ctx context.Context, userID int64, kind model.JobKind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown job kind %q", kind)
	}
	if err := s.schedules.SetEnabled(ctx, userID, kind, false); err != nil {
		return fmt.Errorf("disable %s: %w", kind, err)
	}
	return nil
}

// Status returns all of the user's schedule records, enabled or not.
func (s *NotificationService) Status(ctx context.Context, userID int64) ([]model.Schedule, error) {
	schedules, err := s.schedules.GetAllForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("notification status: %w", err)
	}
	return schedules, nil
}

// nextSummaryAt returns the next occurrence of HH:MM UTC strictly after now.
func nextSummaryAt(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

// formatInterval renders a duration as "4h" / "90m" for user-facing text.
func formatInterval(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dm", int(d.Minutes()))
}
