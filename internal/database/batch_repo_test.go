package database

import (
	"context"
	"testing"

	"postqueue/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchRepository_CreateAndGet(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := newBatchRepo(db.conn)
	ctx := context.Background()

	batch := &entity.Batch{OwnerID: 1, ChannelID: "@news", Name: "summer"}
	err := repo.Create(ctx, batch)
	require.NoError(t, err, "Failed to create batch")
	assert.NotZero(t, batch.ID)
	assert.Equal(t, entity.BatchStatusPending, batch.Status)

	stored, err := repo.GetByID(ctx, batch.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "summer", stored.Name)
	assert.Equal(t, "@news", stored.ChannelID)
	assert.NotZero(t, stored.CreatedAt)
}

func TestBatchRepository_GetByID_NotFound(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := newBatchRepo(db.conn)

	batch, err := repo.GetByID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, batch)
}

func TestBatchRepository_ListByOwnerCountsPending(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := newBatchRepo(db.conn)
	postRepo := newPostRepo(db.conn)
	ctx := context.Background()

	batch := &entity.Batch{OwnerID: 1, ChannelID: "@news", Name: "counted"}
	require.NoError(t, repo.Create(ctx, batch))

	for i := 0; i < 2; i++ {
		p := &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "a.jpg", BatchID: batch.ID}
		require.NoError(t, postRepo.Create(ctx, p))
	}
	posted := &entity.Post{OwnerID: 1, ChannelID: "@news", MediaPath: "b.jpg", BatchID: batch.ID}
	require.NoError(t, postRepo.Create(ctx, posted))
	require.NoError(t, postRepo.MarkPosted(ctx, posted.ID, testTime(t, "2025-06-15 10:00")))

	other := &entity.Batch{OwnerID: 2, ChannelID: "@other", Name: "not mine"}
	require.NoError(t, repo.Create(ctx, other))

	batches, err := repo.ListByOwner(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 2, batches[0].PendingCount, "posted rows are excluded from the pending count")
}

func TestBatchRepository_UpdateStatus(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := newBatchRepo(db.conn)
	ctx := context.Background()

	batch := &entity.Batch{OwnerID: 1, ChannelID: "@news", Name: "b"}
	require.NoError(t, repo.Create(ctx, batch))

	require.NoError(t, repo.UpdateStatus(ctx, batch.ID, entity.BatchStatusScheduled))

	stored, err := repo.GetByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BatchStatusScheduled, stored.Status)
}

func TestBatchRepository_Delete(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := newBatchRepo(db.conn)
	ctx := context.Background()

	batch := &entity.Batch{OwnerID: 1, ChannelID: "@news", Name: "b"}
	require.NoError(t, repo.Create(ctx, batch))

	require.NoError(t, repo.Delete(ctx, batch.ID))

	stored, err := repo.GetByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}
