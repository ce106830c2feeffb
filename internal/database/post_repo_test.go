package database

import (
	"context"
	"testing"
	"time"

	"postqueue/internal/domain/contract"
	"postqueue/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", value, time.UTC)
	require.NoError(t, err)
	return ts
}

func testTimePtr(t *testing.T, value string) *time.Time {
	t.Helper()
	ts := testTime(t, value)
	return &ts
}

func TestPostRepository_CreateAndGet(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := newPostRepo(db.conn)
	ctx := context.Background()

	post := &entity.Post{
		OwnerID:     1,
		ChannelID:   "@news",
		MediaPath:   "a.jpg",
		MediaType:   "photo",
		Caption:     "hello",
		ScheduledAt: testTimePtr(t, "2025-06-16 10:00"),
	}

	err := repo.Create(ctx, post)
	require.NoError(t, err, "Failed to create post")
	assert.NotZero(t, post.ID, "Expected post ID to be set after creation")

	stored, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, post.OwnerID, stored.OwnerID)
	assert.Equal(t, post.ChannelID, stored.ChannelID)
	assert.Equal(t, post.Caption, stored.Caption)
	assert.Equal(t, entity.PostStatusPending, stored.Status)
	require.NotNil(t, stored.ScheduledAt)
	assert.WithinDuration(t, *post.ScheduledAt, *stored.ScheduledAt, time.Second)
	assert.Nil(t, stored.Recurring)
	assert.Nil(t, stored.PostedAt)
}

func TestPostRepository_GetByID_NotFound(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := newPostRepo(db.conn)

	post, err := repo.GetByID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestPostRepository_RecurrenceRoundTrip(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := newPostRepo(db.conn)
	ctx := context.Background()

	post := &entity.Post{
		OwnerID:   1,
		ChannelID: "@news",
		MediaPath: "a.jpg",
		Recurring: &entity.Recurrence{
			IntervalHours: 6,
			EndDate:       testTime(t, "2025-07-01 00:00"),
			TargetCount:   10,
			PostedCount:   3,
		},
	}
	require.NoError(t, repo.Create(ctx, post))

	stored, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Recurring)
	assert.Equal(t, 6, stored.Recurring.IntervalHours)
	assert.Equal(t, 10, stored.Recurring.TargetCount)
	assert.Equal(t, 3, stored.Recurring.PostedCount)
	assert.WithinDuration(t, testTime(t, "2025-07-01 00:00"), stored.Recurring.EndDate, time.Second)
}

func TestPostRepository_ListFilters(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := newPostRepo(db.conn)
	ctx := context.Background()

	mk := func(ownerID int64, channelID string, scheduledAt *time.Time) *entity.Post {
		p := &entity.Post{OwnerID: ownerID, ChannelID: channelID, MediaPath: "a.jpg", ScheduledAt: scheduledAt}
		require.NoError(t, repo.Create(ctx, p))
		return p
	}

	early := mk(1, "@news", testTimePtr(t, "2025-06-15 10:00"))
	late := mk(1, "@news", testTimePtr(t, "2025-06-15 18:00"))
	queued := mk(1, "@news", nil)
	mk(1, "@memes", testTimePtr(t, "2025-06-15 12:00"))
	mk(2, "@other", testTimePtr(t, "2025-06-15 12:00"))

	cutoff := testTime(t, "2025-06-15 14:00")

	posts, err := repo.List(ctx, contract.PostFilter{OwnerID: 1})
	require.NoError(t, err)
	assert.Len(t, posts, 4)
	assert.Equal(t, queued.ID, posts[3].ID, "unscheduled posts sort last")

	posts, err = repo.List(ctx, contract.PostFilter{OwnerID: 1, ChannelID: "@news", ScheduledBefore: &cutoff})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, early.ID, posts[0].ID)

	posts, err = repo.List(ctx, contract.PostFilter{OwnerID: 1, ChannelID: "@news", ScheduledAtOrAfter: &cutoff})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, late.ID, posts[0].ID)

	posts, err = repo.List(ctx, contract.PostFilter{OwnerID: 1, UnscheduledOnly: true})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, queued.ID, posts[0].ID)

	posts, err = repo.List(ctx, contract.PostFilter{OwnerID: 1, ChannelID: "@news", ScheduledOnly: true})
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestPostRepository_BulkUpdateSchedulesOnlyPending(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := newPostRepo(db.conn)
	ctx := context.Background()

	pending := &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "a.jpg", ScheduledAt: testTimePtr(t, "2025-06-15 10:00")}
	require.NoError(t, repo.Create(ctx, pending))

	posted := &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "b.jpg", ScheduledAt: testTimePtr(t, "2025-06-15 12:00")}
	require.NoError(t, repo.Create(ctx, posted))
	require.NoError(t, repo.MarkPosted(ctx, posted.ID, testTime(t, "2025-06-15 12:00")))

	newSlot := testTime(t, "2025-06-16 10:00")
	updated, err := repo.BulkUpdateSchedules(ctx, []contract.PostSchedule{
		{PostID: pending.ID, ScheduledAt: newSlot},
		{PostID: posted.ID, ScheduledAt: newSlot},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated, "posted rows are immutable")

	stored, err := repo.GetByID(ctx, posted.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, testTime(t, "2025-06-15 12:00"), *stored.ScheduledAt, time.Second)
}

func TestPostRepository_NextDue(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := newPostRepo(db.conn)
	ctx := context.Background()

	none, err := repo.NextDue(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	later := &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "a.jpg", ScheduledAt: testTimePtr(t, "2025-06-15 18:00")}
	require.NoError(t, repo.Create(ctx, later))
	sooner := &entity.Post{OwnerID: 2, ChannelID: "@other", MediaPath: "b.jpg", ScheduledAt: testTimePtr(t, "2025-06-15 10:00")}
	require.NoError(t, repo.Create(ctx, sooner))
	queued := &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "c.jpg"}
	require.NoError(t, repo.Create(ctx, queued))

	next, err := repo.NextDue(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, sooner.ID, next.ID)

	require.NoError(t, repo.MarkPosted(ctx, sooner.ID, testTime(t, "2025-06-15 10:00")))

	next, err = repo.NextDue(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, later.ID, next.ID, "posted rows leave the due queue")
}

func TestPostRepository_OverdueSummaries(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := newPostRepo(db.conn)
	ctx := context.Background()

	for _, slot := range []string{"2025-06-15 08:00", "2025-06-15 09:00"} {
		p := &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "a.jpg", ScheduledAt: testTimePtr(t, slot)}
		require.NoError(t, repo.Create(ctx, p))
	}
	p := &entity.Post{OwnerID: 2, ChannelID: "@other", MediaPath: "b.jpg", ScheduledAt: testTimePtr(t, "2025-06-15 09:30")}
	require.NoError(t, repo.Create(ctx, p))
	future := &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "c.jpg", ScheduledAt: testTimePtr(t, "2025-06-15 18:00")}
	require.NoError(t, repo.Create(ctx, future))

	summaries, err := repo.OverdueSummaries(ctx, testTime(t, "2025-06-15 12:00"))
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, int64(1), summaries[0].OwnerID)
	assert.Equal(t, "@news", summaries[0].ChannelID)
	assert.Equal(t, 2, summaries[0].Count)

	assert.Equal(t, int64(2), summaries[1].OwnerID)
	assert.Equal(t, 1, summaries[1].Count)
}

func TestPostRepository_MarkFailed(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := newPostRepo(db.conn)
	ctx := context.Background()

	post := &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "a.jpg", ScheduledAt: testTimePtr(t, "2025-06-15 10:00")}
	require.NoError(t, repo.Create(ctx, post))

	require.NoError(t, repo.MarkFailed(ctx, post.ID, "network error"))

	stored, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PostStatusFailed, stored.Status)
	assert.Equal(t, "network error", stored.FailureReason)
}

func TestPostRepository_DeleteAndDeletePending(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := newPostRepo(db.conn)
	ctx := context.Background()

	a := &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "a.jpg"}
	require.NoError(t, repo.Create(ctx, a))
	b := &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "b.jpg"}
	require.NoError(t, repo.Create(ctx, b))
	posted := &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "c.jpg"}
	require.NoError(t, repo.Create(ctx, posted))
	require.NoError(t, repo.MarkPosted(ctx, posted.ID, testTime(t, "2025-06-15 10:00")))

	require.NoError(t, repo.Delete(ctx, []int64{a.ID}))
	gone, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	n, err := repo.DeletePending(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the remaining pending post is deleted")

	kept, err := repo.GetByID(ctx, posted.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept, "posted history is kept")
}

func TestPostRepository_DeleteEmptyIDs(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := newPostRepo(db.conn)
	assert.NoError(t, repo.Delete(context.Background(), nil))
}

func TestPostRepository_LatestScheduled(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := newPostRepo(db.conn)
	ctx := context.Background()

	latest, err := repo.LatestScheduled(ctx, 1, "@news")
	require.NoError(t, err)
	assert.Nil(t, latest)

	for _, slot := range []string{"2025-06-15 10:00", "2025-06-15 18:00", "2025-06-15 14:00"} {
		p := &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "a.jpg", ScheduledAt: testTimePtr(t, slot)}
		require.NoError(t, repo.Create(ctx, p))
	}

	latest, err = repo.LatestScheduled(ctx, 1, "@news")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.WithinDuration(t, testTime(t, "2025-06-15 18:00"), *latest, time.Second)
}
