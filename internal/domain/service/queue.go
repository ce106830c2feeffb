package service

import (
	"context"
	"fmt"
	"time"

	"postqueue/internal/domain"
	"postqueue/internal/domain/contract"
	"postqueue/internal/domain/entity"

	"github.com/rs/zerolog"
)

type queueService struct {
	dm    contract.DataManager
	media contract.MediaStore
	log   zerolog.Logger
	now   func() time.Time
}

func newQueueService(dm contract.DataManager, media contract.MediaStore, log zerolog.Logger, now func() time.Time) *queueService {
	return &queueService{
		dm:    dm,
		media: media,
		log:   log.With().Str("component", "queue").Logger(),
		now:   now,
	}
}

// AddPost enqueues a new post, scheduled when ScheduledAt is set and
// queued otherwise. The target channel must be registered by the owner.
func (s *queueService) AddPost(ctx context.Context, post *entity.Post) error {
	if err := s.requireChannel(ctx, post.OwnerID, post.ChannelID); err != nil {
		return err
	}

	if rec := post.Recurring; rec != nil && rec.IntervalHours < 1 {
		return fmt.Errorf("recurrence interval must be at least 1 hour, got %d", rec.IntervalHours)
	}

	if post.BatchID != 0 {
		batch, err := s.dm.Batch().GetByID(ctx, post.BatchID)
		if err != nil {
			return fmt.Errorf("failed to look up batch %d: %w", post.BatchID, err)
		}
		if batch == nil {
			return domain.ErrBatchNotFound
		}
		if batch.OwnerID != post.OwnerID {
			return domain.ErrChannelAccessDenied
		}
	}

	if err := s.dm.Post().Create(ctx, post); err != nil {
		return err
	}

	s.log.Info().
		Int64("post_id", post.ID).
		Int64("owner_id", post.OwnerID).
		Str("channel_id", post.ChannelID).
		Bool("scheduled", post.Scheduled()).
		Msg("post enqueued")
	return nil
}

func (s *queueService) ListPending(ctx context.Context, ownerID int64, channelID string) ([]*entity.Post, error) {
	return s.dm.Post().List(ctx, contract.PostFilter{
		OwnerID:   ownerID,
		ChannelID: channelID,
		Status:    entity.PostStatusPending,
	})
}

func (s *queueService) ListQueued(ctx context.Context, ownerID int64, channelID string) ([]*entity.Post, error) {
	return s.dm.Post().List(ctx, contract.PostFilter{
		OwnerID:         ownerID,
		ChannelID:       channelID,
		Status:          entity.PostStatusPending,
		UnscheduledOnly: true,
	})
}

func (s *queueService) ListScheduled(ctx context.Context, ownerID int64, channelID string) ([]*entity.Post, error) {
	return s.dm.Post().List(ctx, contract.PostFilter{
		OwnerID:       ownerID,
		ChannelID:     channelID,
		Status:        entity.PostStatusPending,
		ScheduledOnly: true,
	})
}

// ClearQueued removes the owner's unscheduled pending posts and their
// backing media. Scheduled posts are preserved.
func (s *queueService) ClearQueued(ctx context.Context, ownerID int64, channelID string) (int, error) {
	return s.clear(ctx, contract.PostFilter{
		OwnerID:         ownerID,
		ChannelID:       channelID,
		Status:          entity.PostStatusPending,
		UnscheduledOnly: true,
	})
}

// ClearScheduled removes the owner's scheduled pending posts and their
// backing media. Queued posts are preserved.
func (s *queueService) ClearScheduled(ctx context.Context, ownerID int64, channelID string) (int, error) {
	return s.clear(ctx, contract.PostFilter{
		OwnerID:       ownerID,
		ChannelID:     channelID,
		Status:        entity.PostStatusPending,
		ScheduledOnly: true,
	})
}

func (s *queueService) clear(ctx context.Context, f contract.PostFilter) (int, error) {
	var mediaPaths []string
	cleared := 0

	err := s.dm.WithTransaction(ctx, func(dm contract.DataManager) error {
		posts, err := dm.Post().List(ctx, f)
		if err != nil {
			return err
		}
		if len(posts) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(posts))
		for _, p := range posts {
			ids = append(ids, p.ID)
			mediaPaths = append(mediaPaths, p.MediaPath)
		}
		if err := dm.Post().Delete(ctx, ids); err != nil {
			return err
		}
		cleared = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}

	// Media cleanup is best-effort once the rows are gone.
	for _, path := range mediaPaths {
		if err := s.media.Delete(path); err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("failed to delete media file")
		}
	}

	s.log.Info().
		Int64("owner_id", f.OwnerID).
		Str("channel_id", f.ChannelID).
		Int("cleared", cleared).
		Msg("cleared posts")
	return cleared, nil
}

func (s *queueService) WindowFor(ctx context.Context, ownerID int64) (entity.WindowConfig, error) {
	return windowFor(ctx, s.dm, ownerID)
}

// SetWindow validates and stores the owner's publishing window. Invalid
// windows are rejected here so scheduling never sees one.
func (s *queueService) SetWindow(ctx context.Context, ownerID int64, cfg entity.WindowConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidWindow, err)
	}
	return s.dm.Settings().UpsertWindow(ctx, ownerID, cfg)
}

func (s *queueService) AddChannel(ctx context.Context, channel *entity.Channel) error {
	existing, err := s.dm.Channel().GetByOwnerAndChannel(ctx, channel.OwnerID, channel.ChannelID)
	if err != nil {
		return err
	}
	if existing != nil {
		channel.ID = existing.ID
		return nil
	}
	return s.dm.Channel().Create(ctx, channel)
}

func (s *queueService) ListChannels(ctx context.Context, ownerID int64) ([]*entity.Channel, error) {
	return s.dm.Channel().ListByOwner(ctx, ownerID)
}

func (s *queueService) RemoveChannel(ctx context.Context, ownerID int64, channelID string) error {
	return s.dm.Channel().Delete(ctx, ownerID, channelID)
}

func (s *queueService) requireChannel(ctx context.Context, ownerID int64, channelID string) error {
	channel, err := s.dm.Channel().GetByOwnerAndChannel(ctx, ownerID, channelID)
	if err != nil {
		return fmt.Errorf("failed to verify channel: %w", err)
	}
	if channel == nil {
		return domain.ErrChannelAccessDenied
	}
	return nil
}
