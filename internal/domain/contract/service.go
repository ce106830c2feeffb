package contract

import (
	"context"
	"time"

	"postqueue/internal/domain/entity"
)

type QueueService interface {
	AddPost(ctx context.Context, post *entity.Post) error
	ListPending(ctx context.Context, ownerID int64, channelID string) ([]*entity.Post, error)
	ListQueued(ctx context.Context, ownerID int64, channelID string) ([]*entity.Post, error)
	ListScheduled(ctx context.Context, ownerID int64, channelID string) ([]*entity.Post, error)
	ClearQueued(ctx context.Context, ownerID int64, channelID string) (int, error)
	ClearScheduled(ctx context.Context, ownerID int64, channelID string) (int, error)
	WindowFor(ctx context.Context, ownerID int64) (entity.WindowConfig, error)
	SetWindow(ctx context.Context, ownerID int64, cfg entity.WindowConfig) error
	AddChannel(ctx context.Context, channel *entity.Channel) error
	ListChannels(ctx context.Context, ownerID int64) ([]*entity.Channel, error)
	RemoveChannel(ctx context.Context, ownerID int64, channelID string) error
}

type ScheduleService interface {
	RescheduleOverdue(ctx context.Context, ownerID int64, channelID string) (int, error)
	GenerateSlots(ctx context.Context, ownerID int64, n int) ([]time.Time, error)
	CreateBatch(ctx context.Context, batch *entity.Batch) error
	AddPostToBatch(ctx context.Context, ownerID, batchID int64, post *entity.Post) error
	ListBatches(ctx context.Context, ownerID int64) ([]*entity.Batch, error)
	ScheduleBatch(ctx context.Context, batchID int64, slots []time.Time) (entity.BatchScheduleReport, error)
	DeleteBatch(ctx context.Context, ownerID, batchID int64) error
	AdvanceRecurrence(ctx context.Context, post *entity.Post) (*entity.Post, error)
}

type BackupService interface {
	Snapshot(ctx context.Context, ownerID int64, name string) (*entity.Backup, error)
	Restore(ctx context.Context, ownerID int64, name string, opts entity.RestoreOptions) (*entity.RestoreReport, error)
	ListBackups(ctx context.Context, ownerID int64) ([]*entity.Backup, error)
	DeleteBackup(ctx context.Context, ownerID int64, name string) error
}
