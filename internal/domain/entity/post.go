package entity

import "time"

type PostStatus string

const (
	PostStatusPending PostStatus = "pending"
	PostStatusPosted  PostStatus = "posted"
	PostStatusFailed  PostStatus = "failed"
)

// Recurrence describes a repeating publication series. A nil Recurrence
// on a Post means the post is one-shot.
type Recurrence struct {
	IntervalHours int
	EndDate       time.Time // zero means no end date
	TargetCount   int       // 0 means no occurrence limit
	PostedCount   int
}

// Post is a media item queued for publication to a channel.
// ScheduledAt == nil means the post is queued but not yet assigned a slot.
type Post struct {
	ID            int64
	OwnerID       int64
	ChannelID     string
	MediaPath     string
	MediaType     string
	Caption       string
	ScheduledAt   *time.Time
	Status        PostStatus
	Recurring     *Recurrence
	BatchID       int64 // 0 means the post belongs to no batch
	FailureReason string
	CreatedAt     time.Time
	PostedAt      *time.Time
}

// Scheduled reports whether the post holds a publication slot.
func (p *Post) Scheduled() bool {
	return p.ScheduledAt != nil
}
