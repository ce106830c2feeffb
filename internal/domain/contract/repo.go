package contract

import (
	"context"
	"time"

	"postqueue/internal/domain/entity"
)

// DataManager aggregates all repository interfaces
type DataManager interface {
	WithTransaction(ctx context.Context, fn func(dm DataManager) error) error
	Post() PostRepo
	Batch() BatchRepo
	Channel() ChannelRepo
	Settings() SettingsRepo
	Backup() BackupRepo
}

// PostFilter is a typed predicate for post queries. Only set fields are
// applied, composed as parameterized conditions at the store boundary.
type PostFilter struct {
	OwnerID            int64
	ChannelID          string
	Status             entity.PostStatus
	ScheduledOnly      bool
	UnscheduledOnly    bool
	ScheduledBefore    *time.Time // scheduled_at < t
	ScheduledAtOrAfter *time.Time // scheduled_at >= t
}

// PostSchedule pairs a post id with its new slot for bulk updates.
type PostSchedule struct {
	PostID      int64
	ScheduledAt time.Time
}

// OverdueSummary counts overdue pending posts per owner and channel.
type OverdueSummary struct {
	OwnerID   int64
	ChannelID string
	Count     int
}

// PostRepo defines the contract for the post queue store.
// List results are ordered by scheduled_at ascending with id ascending as
// tie-breaker (unscheduled posts last, by id), so every caller observes
// the same deterministic queue order.
type PostRepo interface {
	Create(ctx context.Context, post *entity.Post) error
	GetByID(ctx context.Context, id int64) (*entity.Post, error)
	List(ctx context.Context, f PostFilter) ([]*entity.Post, error)
	ListByBatch(ctx context.Context, batchID int64) ([]*entity.Post, error)
	LatestScheduled(ctx context.Context, ownerID int64, channelID string) (*time.Time, error)
	NextDue(ctx context.Context) (*entity.Post, error)
	OverdueSummaries(ctx context.Context, before time.Time) ([]OverdueSummary, error)
	UpdateSchedule(ctx context.Context, id int64, at time.Time) error
	BulkUpdateSchedules(ctx context.Context, schedules []PostSchedule) (int, error)
	MarkPosted(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	IncrementPostedCount(ctx context.Context, id int64) error
	Delete(ctx context.Context, ids []int64) error
	DeletePending(ctx context.Context, ownerID int64) (int, error)
	DetachBatch(ctx context.Context, batchID int64) error
}

// BatchRepo defines the contract for the batch repository
type BatchRepo interface {
	Create(ctx context.Context, batch *entity.Batch) error
	GetByID(ctx context.Context, id int64) (*entity.Batch, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*entity.Batch, error)
	UpdateStatus(ctx context.Context, id int64, status entity.BatchStatus) error
	Delete(ctx context.Context, id int64) error
}

// ChannelRepo defines the contract for the owner channel registry
type ChannelRepo interface {
	Create(ctx context.Context, channel *entity.Channel) error
	GetByOwnerAndChannel(ctx context.Context, ownerID int64, channelID string) (*entity.Channel, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*entity.Channel, error)
	Delete(ctx context.Context, ownerID int64, channelID string) error
}

// SettingsRepo stores per-owner publishing windows.
type SettingsRepo interface {
	GetWindow(ctx context.Context, ownerID int64) (*entity.WindowConfig, error)
	UpsertWindow(ctx context.Context, ownerID int64, cfg entity.WindowConfig) error
}

// BackupRepo stores serialized queue snapshots keyed by owner and name.
type BackupRepo interface {
	Upsert(ctx context.Context, ownerID int64, name string, payload []byte) error
	Get(ctx context.Context, ownerID int64, name string) ([]byte, error)
	List(ctx context.Context, ownerID int64) ([]*entity.Backup, error)
	Delete(ctx context.Context, ownerID int64, name string) (bool, error)
}
