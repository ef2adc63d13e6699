package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akaul/splitgate/internal/domain/model"
)

func newSchedule(userID int64, kind model.JobKind) model.Schedule {
	next := time.Now().UTC().Add(4 * time.Hour).Truncate(time.Second)
	return model.Schedule{
		UserID:       userID,
		Kind:         kind,
		Enabled:      true,
		Interval:     4 * time.Hour,
		Window:       model.WakingWindow{StartHour: 9, EndHour: 21},
		NotifyTarget: "discord:1234",
		NextFireAt:   &next,
	}
}

func TestScheduleRepo_UpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)
	ctx := context.Background()

	s := newSchedule(42, model.JobReminder)
	require.NoError(t, repo.Upsert(ctx, s))

	got, err := repo.Get(ctx, 42, model.JobReminder)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Enabled)
	assert.Equal(t, 4*time.Hour, got.Interval)
	assert.Equal(t, 9, got.Window.StartHour)
	assert.Equal(t, 21, got.Window.EndHour)
	assert.Equal(t, "discord:1234", got.NotifyTarget)
	require.NotNil(t, got.NextFireAt)
	assert.Equal(t, *s.NextFireAt, *got.NextFireAt)
	assert.Nil(t, got.LastFiredAt)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestScheduleRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)

	got, err := repo.Get(context.Background(), 99, model.JobReminder)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestScheduleRepo_UpsertReplaces(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)
	ctx := context.Background()

	s := newSchedule(42, model.JobReminder)
	require.NoError(t, repo.Upsert(ctx, s))

	s.Interval = 6 * time.Hour
	s.NotifyTarget = "discord:5678"
	require.NoError(t, repo.Upsert(ctx, s))

	got, err := repo.Get(ctx, 42, model.JobReminder)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 6*time.Hour, got.Interval)
	assert.Equal(t, "discord:5678", got.NotifyTarget)
}

func TestScheduleRepo_KindsAreIndependent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, newSchedule(42, model.JobReminder)))
	require.NoError(t, repo.Upsert(ctx, newSchedule(42, model.JobDailySummary)))

	all, err := repo.GetAllForUser(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.SetEnabled(ctx, 42, model.JobReminder, false))

	reminder, err := repo.Get(ctx, 42, model.JobReminder)
	require.NoError(t, err)
	assert.False(t, reminder.Enabled)

	summary, err := repo.Get(ctx, 42, model.JobDailySummary)
	require.NoError(t, err)
	assert.True(t, summary.Enabled, "disabling one kind must not touch the other")
}

func TestScheduleRepo_RejectsUnknownKind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)

	s := newSchedule(42, model.JobKind("weekly_report"))
	err := repo.Upsert(context.Background(), s)
	assert.Error(t, err, "CHECK constraint should reject unknown kinds")
}

func TestScheduleRepo_ListDue(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	due := newSchedule(1, model.JobReminder)
	past := now.Add(-time.Minute)
	due.NextFireAt = &past
	require.NoError(t, repo.Upsert(ctx, due))

	future := newSchedule(2, model.JobReminder)
	require.NoError(t, repo.Upsert(ctx, future))

	disabled := newSchedule(3, model.JobReminder)
	disabled.Enabled = false
	disabled.NextFireAt = &past
	require.NoError(t, repo.Upsert(ctx, disabled))

	unarmed := newSchedule(4, model.JobReminder)
	unarmed.NextFireAt = nil
	require.NoError(t, repo.Upsert(ctx, unarmed))

	got, err := repo.ListDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].UserID)
}

func TestScheduleRepo_UpdateFireTimes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	s := newSchedule(42, model.JobReminder)
	require.NoError(t, repo.Upsert(ctx, s))

	next := now.Add(4 * time.Hour)
	require.NoError(t, repo.UpdateFireTimes(ctx, 42, model.JobReminder, *s.NextFireAt, next, now))

	got, err := repo.Get(ctx, 42, model.JobReminder)
	require.NoError(t, err)
	require.NotNil(t, got.NextFireAt)
	require.NotNil(t, got.LastFiredAt)
	assert.Equal(t, next, *got.NextFireAt)
	assert.Equal(t, now, *got.LastFiredAt)
}

func TestScheduleRepo_UpdateFireTimesSkipsRearmedRecord(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	// The scheduler read the record while it was due...
	s := newSchedule(42, model.JobReminder)
	staleNext := now.Add(-time.Minute)
	s.NextFireAt = &staleNext
	require.NoError(t, repo.Upsert(ctx, s))

	// ...but an opt-in re-armed it before the advance landed.
	rearmed := now.Add(2 * time.Hour)
	s.NextFireAt = &rearmed
	require.NoError(t, repo.Upsert(ctx, s))

	require.NoError(t, repo.UpdateFireTimes(ctx, 42, model.JobReminder, staleNext, now.Add(4*time.Hour), now))

	got, err := repo.Get(ctx, 42, model.JobReminder)
	require.NoError(t, err)
	require.NotNil(t, got.NextFireAt)
	assert.Equal(t, rearmed, *got.NextFireAt, "the fresher opt-in value must survive the stale advance")
	assert.Nil(t, got.LastFiredAt)
}

func TestScheduleRepo_UpsertPreservesFireHistory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	s := newSchedule(42, model.JobReminder)
	require.NoError(t, repo.Upsert(ctx, s))
	require.NoError(t, repo.UpdateFireTimes(ctx, 42, model.JobReminder, *s.NextFireAt, now.Add(4*time.Hour), now))
	require.NoError(t, repo.SetEnabled(ctx, 42, model.JobReminder, false))

	// Re-enable through the same opt-in path: fresh fire time, nil history.
	rearmed := now.Add(8 * time.Hour)
	s.NextFireAt = &rearmed
	s.LastFiredAt = nil
	require.NoError(t, repo.Upsert(ctx, s))

	got, err := repo.Get(ctx, 42, model.JobReminder)
	require.NoError(t, err)
	require.NotNil(t, got.LastFiredAt)
	assert.Equal(t, now, *got.LastFiredAt, "re-enabling must not erase when the job last fired")
	require.NotNil(t, got.NextFireAt)
	assert.Equal(t, rearmed, *got.NextFireAt)
}

func TestScheduleRepo_UpdateFireTimesSkipsDisabled(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	s := newSchedule(42, model.JobReminder)
	require.NoError(t, repo.Upsert(ctx, s))
	require.NoError(t, repo.SetEnabled(ctx, 42, model.JobReminder, false))

	require.NoError(t, repo.UpdateFireTimes(ctx, 42, model.JobReminder, *s.NextFireAt, now.Add(time.Hour), now))

	got, err := repo.Get(ctx, 42, model.JobReminder)
	require.NoError(t, err)
	assert.Nil(t, got.LastFiredAt, "a disable that raced the fire should win")
	assert.Equal(t, *s.NextFireAt, *got.NextFireAt)
}

func TestScheduleRepo_SetEnabledMissingIsNoop(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)

	err := repo.SetEnabled(context.Background(), 99, model.JobReminder, true)
	assert.NoError(t, err)
}
