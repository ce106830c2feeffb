package entity

import "time"

// Backup describes a stored queue snapshot.
type Backup struct {
	Name      string
	CreatedAt time.Time
	PostCount int
}

// PostSnapshot is the serialized form of a pending post inside a backup
// payload. Field names are stable and timestamps use RFC3339 so payloads
// stay sortable and human-diffable.
type PostSnapshot struct {
	MediaPath     string `json:"media_path"`
	MediaType     string `json:"media_type"`
	Caption       string `json:"caption,omitempty"`
	ScheduledAt   string `json:"scheduled_at,omitempty"`
	ChannelID     string `json:"channel_id"`
	BatchID       int64  `json:"batch_id,omitempty"`
	IsRecurring   bool   `json:"is_recurring,omitempty"`
	IntervalHours int    `json:"recurring_interval_hours,omitempty"`
	EndDate       string `json:"recurring_end_date,omitempty"`
	TargetCount   int    `json:"recurring_target_count,omitempty"`
	PostedCount   int    `json:"recurring_posted_count,omitempty"`
}

// RestoreOptions controls how a backup is replayed into the queue.
type RestoreOptions struct {
	// ReplaceExisting clears the owner's current pending posts first.
	ReplaceExisting bool
	// RestoreMissingMedia inserts posts whose media cannot be resolved
	// as failed records instead of skipping them.
	RestoreMissingMedia bool
}

// RestoreReport summarizes a restore operation. Per-item problems are
// counted, never fatal.
type RestoreReport struct {
	Restored     int
	Skipped      int
	MissingMedia int
	Message      string
}

// BatchScheduleReport summarizes a batch scheduling pass. Skipped counts
// posts left unscheduled because fewer slots than posts were supplied.
type BatchScheduleReport struct {
	Scheduled int
	Skipped   int
}
