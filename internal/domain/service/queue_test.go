package service

import (
	"context"
	"testing"

	"postqueue/internal/domain"
	"postqueue/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPost_RequiresRegisteredChannel(t *testing.T) {
	s := setupServiceTest(t, at(t, "2025-06-15 12:00"))

	err := s.queue.AddPost(context.Background(), &entity.Post{
		OwnerID:   1,
		ChannelID: "@unregistered",
		MediaPath: "a.jpg",
	})
	assert.ErrorIs(t, err, domain.ErrChannelAccessDenied)
}

func TestAddPost_RejectsBadRecurrenceInterval(t *testing.T) {
	s := setupServiceTest(t, at(t, "2025-06-15 12:00"))
	s.registerChannel(t, 1, "@news")

	err := s.queue.AddPost(context.Background(), &entity.Post{
		OwnerID:   1,
		ChannelID: "@news",
		MediaPath: "a.jpg",
		Recurring: &entity.Recurrence{IntervalHours: 0},
	})
	assert.Error(t, err)
}

func TestListQueuedAndScheduled_SplitBySlot(t *testing.T) {
	s := setupServiceTest(t, at(t, "2025-06-15 12:00"))
	ctx := context.Background()
	s.registerChannel(t, 1, "@news")

	queued := s.addPost(t, &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "q.jpg"})
	scheduled := s.addPost(t, &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "s.jpg", ScheduledAt: atPtr(t, "2025-06-16 10:00")})

	got, err := s.queue.ListQueued(ctx, 1, "@news")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, queued.ID, got[0].ID)

	got, err = s.queue.ListScheduled(ctx, 1, "@news")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, scheduled.ID, got[0].ID)

	got, err = s.queue.ListPending(ctx, 1, "@news")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestClearQueued_LeavesScheduledAndDeletesMedia(t *testing.T) {
	s := setupServiceTest(t, at(t, "2025-06-15 12:00"))
	ctx := context.Background()
	s.registerChannel(t, 1, "@news")

	s.addPost(t, &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "q.jpg"})
	scheduled := s.addPost(t, &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "s.jpg", ScheduledAt: atPtr(t, "2025-06-16 10:00")})

	cleared, err := s.queue.ClearQueued(ctx, 1, "@news")
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)
	assert.Equal(t, []string{"q.jpg"}, s.media.deleted)

	remaining, err := s.queue.ListPending(ctx, 1, "@news")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, scheduled.ID, remaining[0].ID)
}

func TestClearScheduled_LeavesQueued(t *testing.T) {
	s := setupServiceTest(t, at(t, "2025-06-15 12:00"))
	ctx := context.Background()
	s.registerChannel(t, 1, "@news")

	queued := s.addPost(t, &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "q.jpg"})
	s.addPost(t, &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "s.jpg", ScheduledAt: atPtr(t, "2025-06-16 10:00")})

	cleared, err := s.queue.ClearScheduled(ctx, 1, "@news")
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	remaining, err := s.queue.ListPending(ctx, 1, "@news")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, queued.ID, remaining[0].ID)
}

func TestWindowFor_DefaultsWhenUnset(t *testing.T) {
	s := setupServiceTest(t, at(t, "2025-06-15 12:00"))

	cfg, err := s.queue.WindowFor(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultStartHour, cfg.StartHour)
	assert.Equal(t, domain.DefaultEndHour, cfg.EndHour)
	assert.Equal(t, domain.DefaultIntervalHours, cfg.IntervalHours)
}

func TestSetWindow_RejectsInvalid(t *testing.T) {
	s := setupServiceTest(t, at(t, "2025-06-15 12:00"))
	ctx := context.Background()

	tests := []entity.WindowConfig{
		{StartHour: 20, EndHour: 10, IntervalHours: 2},
		{StartHour: -1, EndHour: 10, IntervalHours: 2},
		{StartHour: 10, EndHour: 25, IntervalHours: 2},
		{StartHour: 10, EndHour: 20, IntervalHours: 0},
		{StartHour: 10, EndHour: 12, IntervalHours: 5},
	}
	for _, cfg := range tests {
		assert.ErrorIs(t, s.queue.SetWindow(ctx, 1, cfg), domain.ErrInvalidWindow, "%+v", cfg)
	}
}

func TestSetWindow_PersistsPerOwner(t *testing.T) {
	s := setupServiceTest(t, at(t, "2025-06-15 12:00"))
	ctx := context.Background()

	want := entity.WindowConfig{StartHour: 8, EndHour: 22, IntervalHours: 3}
	require.NoError(t, s.queue.SetWindow(ctx, 1, want))

	got, err := s.queue.WindowFor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Another owner still sees defaults.
	other, err := s.queue.WindowFor(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultStartHour, other.StartHour)
}

func TestAddChannel_Idempotent(t *testing.T) {
	s := setupServiceTest(t, at(t, "2025-06-15 12:00"))
	ctx := context.Background()

	first := &entity.Channel{OwnerID: 1, ChannelID: "@news", Name: "News"}
	require.NoError(t, s.queue.AddChannel(ctx, first))

	second := &entity.Channel{OwnerID: 1, ChannelID: "@news"}
	require.NoError(t, s.queue.AddChannel(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	channels, err := s.queue.ListChannels(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, channels, 1)
}
