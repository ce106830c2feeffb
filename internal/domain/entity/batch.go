package entity

import "time"

type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "pending"
	BatchStatusScheduled BatchStatus = "scheduled"
)

// Batch is a named, ordered group of posts scheduled together as one unit.
type Batch struct {
	ID        int64
	OwnerID   int64
	ChannelID string
	Name      string
	Status    BatchStatus
	CreatedAt time.Time

	// PendingCount is populated on list queries only.
	PendingCount int
}

// Channel is a destination an owner has registered for publishing.
type Channel struct {
	ID        int64
	OwnerID   int64
	ChannelID string
	Name      string
	IsDefault bool
	CreatedAt time.Time
}
