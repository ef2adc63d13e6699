package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akaul/splitgate/internal/domain/model"
)

func testJobConfig() JobConfig {
	return JobConfig{
		ReminderInterval: 4 * time.Hour,
		Window:           testWindow,
		SummaryHour:      14,
		SummaryMinute:    30,
	}
}

func TestNotificationService_EnableReminder(t *testing.T) {
	store := &mockScheduleStore{}
	notifier := &mockNotifier{}
	svc := NewNotificationService(store, notifier, testJobConfig())
	svc.now = fixedNow

	schedule, err := svc.EnableReminder(context.Background(), 42, "discord-123")
	require.NoError(t, err)

	assert.True(t, schedule.Enabled)
	assert.Equal(t, model.JobReminder, schedule.Kind)
	assert.Equal(t, "discord-123", schedule.NotifyTarget)
	require.NotNil(t, schedule.NextFireAt)
	assert.Equal(t, fixedNow().Add(4*time.Hour), *schedule.NextFireAt)

	stored, err := store.Get(context.Background(), 42, model.JobReminder)
	require.NoError(t, err)
	require.NotNil(t, stored)

	require.Len(t, notifier.deliveries, 1, "opt-in confirms immediately")
	assert.Contains(t, notifier.deliveries[0].Text, "Reminders enabled")
	assert.Contains(t, notifier.deliveries[0].Text, "every 4h")
	assert.Contains(t, notifier.deliveries[0].Text, "09:00-21:00 UTC")
}

func TestNotificationService_EnableDailySummary(t *testing.T) {
	store := &mockScheduleStore{}
	notifier := &mockNotifier{}
	svc := NewNotificationService(store, notifier, testJobConfig())
	svc.now = fixedNow // 12:00 UTC, before today's 14:30 slot

	schedule, err := svc.EnableDailySummary(context.Background(), 42, "discord-123")
	require.NoError(t, err)

	require.NotNil(t, schedule.NextFireAt)
	assert.Equal(t, time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC), *schedule.NextFireAt)
	assert.Equal(t, 24*time.Hour, schedule.Interval)

	require.Len(t, notifier.deliveries, 1)
	assert.Contains(t, notifier.deliveries[0].Text, "14:30 UTC")
}

func TestNotificationService_EnableDailySummaryAfterSlotRollsToTomorrow(t *testing.T) {
	store := &mockScheduleStore{}
	svc := NewNotificationService(store, &mockNotifier{}, testJobConfig())
	svc.now = func() time.Time { return time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC) }

	schedule, err := svc.EnableDailySummary(context.Background(), 42, "discord-123")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 29, 14, 30, 0, 0, time.UTC), *schedule.NextFireAt)
}

func TestNotificationService_ConfirmationFailureDoesNotAbortOptIn(t *testing.T) {
	store := &mockScheduleStore{}
	notifier := &mockNotifier{err: assert.AnError}
	svc := NewNotificationService(store, notifier, testJobConfig())
	svc.now = fixedNow

	_, err := svc.EnableReminder(context.Background(), 42, "discord-123")
	require.NoError(t, err, "the schedule is durable even if the confirmation bounces")

	stored, err := store.Get(context.Background(), 42, model.JobReminder)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestNotificationService_Disable(t *testing.T) {
	store := &mockScheduleStore{}
	svc := NewNotificationService(store, &mockNotifier{}, testJobConfig())
	svc.now = fixedNow

	_, err := svc.EnableReminder(context.Background(), 42, "discord-123")
	require.NoError(t, err)

	require.NoError(t, svc.Disable(context.Background(), 42, model.JobReminder))

	stored, err := store.Get(context.Background(), 42, model.JobReminder)
	require.NoError(t, err)
	assert.False(t, stored.Enabled)
}

func TestNotificationService_DisableUnknownKind(t *testing.T) {
	svc := NewNotificationService(&mockScheduleStore{}, &mockNotifier{}, testJobConfig())

	err := svc.Disable(context.Background(), 42, model.JobKind("weekly_report"))
	assert.Error(t, err)
}

func TestNotificationService_Status(t *testing.T) {
	store := &mockScheduleStore{}
	svc := NewNotificationService(store, &mockNotifier{}, testJobConfig())
	svc.now = fixedNow

	_, err := svc.EnableReminder(context.Background(), 42, "discord-123")
	require.NoError(t, err)
	_, err = svc.EnableDailySummary(context.Background(), 42, "discord-123")
	require.NoError(t, err)

	all, err := svc.Status(context.Background(), 42)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
