package application

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/akaul/splitgate/internal/domain/model"
	"github.com/akaul/splitgate/internal/domain/port/driven"
)

// reminderMessages are rotated through so repeated nudges do not read as
// copy-paste spam.
var reminderMessages = []string{
	"Had any expenses today? Drop them here before you forget!",
	"Quick check-in: any spending to log since last time?",
	"Bought anything recently? Send it over while it's fresh!",
	"Don't let expenses pile up! Log them while they're fresh.",
	"Friendly nudge: any bills, meals, or purchases to track?",
	"Keeping your expenses up to date? Send me what you've spent!",
	"Any coffee, food, or shopping to log? I'm here when you're ready.",
}

// Scheduler drives the durable per-user notification jobs. Each tick it
// loads due schedules, fires them, and advances their fire times. A failed
// delivery is logged and the occurrence is treated as missed; the schedule
// still advances so one broken target cannot wedge the loop.
type Scheduler struct {
	schedules     driven.ScheduleStore
	grants        driven.GrantStore
	notifier      driven.Notifier
	clientFactory driven.ExpenseClientFactory
	summary       *SummaryService
	tick          time.Duration
	now           func() time.Time
	pick          func(n int) int
}

// NewScheduler creates a Scheduler ticking at the given interval.
func NewScheduler(
	schedules driven.ScheduleStore,
	grants driven.GrantStore,
	notifier driven.Notifier,
	clientFactory driven.ExpenseClientFactory,
	summary *SummaryService,
	tick time.Duration,
) *Scheduler {
	return &Scheduler{
		schedules:     schedules,
		grants:        grants,
		notifier:      notifier,
		clientFactory: clientFactory,
		summary:       summary,
		tick:          tick,
		now:           time.Now,
		pick:          rand.IntN,
	}
}

// Start begins the scheduling loop. It runs an immediate pass so jobs that
// came due while the process was down fire promptly, then ticks on the
// configured interval. Start blocks until the context is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	if err := s.runDue(ctx); err != nil {
		slog.Error("initial schedule pass failed", "error", err)
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-ticker.C:
			if err := s.runDue(ctx); err != nil {
				slog.Error("schedule pass failed", "error", err)
			}
		}
	}
}

// runDue fires every due schedule once and advances its fire times.
func (s *Scheduler) runDue(ctx context.Context) error {
	now := s.now().UTC()

	due, err := s.schedules.ListDue(ctx, now)
	if err != nil {
		return err
	}

	for _, schedule := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := s.fire(ctx, schedule); err != nil {
			slog.Error("job delivery failed",
				"user_id", schedule.UserID, "kind", schedule.Kind, "error", err)
		}

		// The occurrence is spent whether or not delivery succeeded. A
		// record with a next_fire_at far in the past still advances to a
		// single future instant instead of replaying every missed slot.
		next := model.NextFire(*schedule.NextFireAt, now, schedule.Interval, schedule.Window)
		if err := s.schedules.UpdateFireTimes(ctx, schedule.UserID, schedule.Kind, *schedule.NextFireAt, next, now); err != nil {
			slog.Error("advance fire times failed",
				"user_id", schedule.UserID, "kind", schedule.Kind, "error", err)
			continue
		}

		slog.Info("job fired",
			"user_id", schedule.UserID, "kind", schedule.Kind, "next_fire_at", next)
	}

	return nil
}

// fire builds and delivers the notification for one schedule.
func (s *Scheduler) fire(ctx context.Context, schedule model.Schedule) error {
	switch schedule.Kind {
	case model.JobReminder:
		msg := reminderMessages[s.pick(len(reminderMessages))]
		return s.notifier.Deliver(ctx, schedule.NotifyTarget, msg)

	case model.JobDailySummary:
		grant, err := s.grants.ResolveUser(ctx, schedule.UserID)
		if err != nil {
			return err
		}
		if grant == nil {
			slog.Warn("summary skipped, user holds no live grant", "user_id", schedule.UserID)
			return nil
		}

		text, err := s.summary.MonthlySummary(ctx, s.clientFactory(grant.AccessToken))
		if err != nil {
			return err
		}
		if text == "" {
			// Nothing spent this month; stay quiet.
			return nil
		}
		return s.notifier.Deliver(ctx, schedule.NotifyTarget, text)

	default:
		slog.Error("unknown job kind", "user_id", schedule.UserID, "kind", schedule.Kind)
		return nil
	}
}
