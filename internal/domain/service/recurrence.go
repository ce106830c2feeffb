package service

import (
	"context"

	"postqueue/internal/domain/contract"
	"postqueue/internal/domain/entity"
)

// AdvanceRecurrence creates the next occurrence of a just-published
// recurring post. The occurrence keeps the original's media and caption
// and lands on the slot one recurrence interval after the published one.
// A nil post result means the series completed.
func (s *scheduleService) AdvanceRecurrence(ctx context.Context, post *entity.Post) (*entity.Post, error) {
	rec := post.Recurring
	if rec == nil {
		return nil, nil
	}

	// The just-published occurrence counts even when the series ends
	// here, so terminal records carry the full occurrence tally.
	newCount := rec.PostedCount + 1
	if rec.TargetCount > 0 && newCount >= rec.TargetCount {
		if err := s.dm.Post().IncrementPostedCount(ctx, post.ID); err != nil {
			return nil, err
		}
		s.log.Info().
			Int64("post_id", post.ID).
			Int("posted_count", newCount).
			Msg("recurring series reached target count")
		return nil, nil
	}

	cfg, err := windowFor(ctx, s.dm, post.OwnerID)
	if err != nil {
		return nil, err
	}
	// The recurrence interval takes precedence over the window's spacing;
	// the window still bounds which hours are publishable.
	cfg.IntervalHours = rec.IntervalHours

	prev := s.now()
	if post.ScheduledAt != nil {
		prev = post.ScheduledAt.In(s.loc)
	}
	next := AdvanceSlot(prev, cfg)

	if !rec.EndDate.IsZero() && next.After(rec.EndDate) {
		if err := s.dm.Post().IncrementPostedCount(ctx, post.ID); err != nil {
			return nil, err
		}
		s.log.Info().
			Int64("post_id", post.ID).
			Time("next", next).
			Msg("recurring series passed its end date")
		return nil, nil
	}

	occurrence := &entity.Post{
		OwnerID:     post.OwnerID,
		ChannelID:   post.ChannelID,
		MediaPath:   post.MediaPath,
		MediaType:   post.MediaType,
		Caption:     post.Caption,
		ScheduledAt: &next,
		Status:      entity.PostStatusPending,
		Recurring: &entity.Recurrence{
			IntervalHours: rec.IntervalHours,
			EndDate:       rec.EndDate,
			TargetCount:   rec.TargetCount,
			PostedCount:   newCount,
		},
	}

	err = s.dm.WithTransaction(ctx, func(dm contract.DataManager) error {
		if err := dm.Post().IncrementPostedCount(ctx, post.ID); err != nil {
			return err
		}
		return dm.Post().Create(ctx, occurrence)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("post_id", post.ID).
		Int64("next_post_id", occurrence.ID).
		Time("scheduled_at", next).
		Msg("recurring post advanced")
	return occurrence, nil
}
