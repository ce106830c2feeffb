package contract

import (
	"context"

	"postqueue/internal/domain/entity"
)

// Publisher delivers posts to their destination channel. Retries on
// delivery failure are the publisher's own concern; the core only records
// the reported outcome.
type Publisher interface {
	// Publish sends the post's media and caption to post.ChannelID.
	// mediaPath is the already-resolved local path of the media file.
	Publish(ctx context.Context, post *entity.Post, mediaPath string) error

	// NotifyOwner sends a plain status message to the owner's chat.
	NotifyOwner(ctx context.Context, ownerID int64, text string) error
}
