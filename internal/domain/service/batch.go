package service

import (
	"context"
	"fmt"
	"time"

	"postqueue/internal/domain"
	"postqueue/internal/domain/contract"
	"postqueue/internal/domain/entity"
)

func (s *scheduleService) CreateBatch(ctx context.Context, batch *entity.Batch) error {
	channel, err := s.dm.Channel().GetByOwnerAndChannel(ctx, batch.OwnerID, batch.ChannelID)
	if err != nil {
		return fmt.Errorf("failed to verify channel: %w", err)
	}
	if channel == nil {
		return domain.ErrChannelAccessDenied
	}

	batch.Status = entity.BatchStatusPending
	if err := s.dm.Batch().Create(ctx, batch); err != nil {
		return err
	}

	s.log.Info().
		Int64("batch_id", batch.ID).
		Int64("owner_id", batch.OwnerID).
		Str("name", batch.Name).
		Msg("batch created")
	return nil
}

// AddPostToBatch enqueues a post as a member of the owner's batch. The
// post stays unscheduled until the batch itself is scheduled.
func (s *scheduleService) AddPostToBatch(ctx context.Context, ownerID, batchID int64, post *entity.Post) error {
	batch, err := s.requireBatch(ctx, ownerID, batchID)
	if err != nil {
		return err
	}

	post.OwnerID = ownerID
	post.ChannelID = batch.ChannelID
	post.BatchID = batchID
	post.ScheduledAt = nil
	return s.dm.Post().Create(ctx, post)
}

func (s *scheduleService) ListBatches(ctx context.Context, ownerID int64) ([]*entity.Batch, error) {
	return s.dm.Batch().ListByOwner(ctx, ownerID)
}

// ScheduleBatch assigns the supplied slots to the batch's unscheduled
// posts in queue order. Posts beyond the supplied slots stay unscheduled
// and are reported as skipped. Assignment and the batch status change
// commit together.
func (s *scheduleService) ScheduleBatch(ctx context.Context, batchID int64, slots []time.Time) (entity.BatchScheduleReport, error) {
	var report entity.BatchScheduleReport

	batch, err := s.dm.Batch().GetByID(ctx, batchID)
	if err != nil {
		return report, err
	}
	if batch == nil {
		return report, domain.ErrBatchNotFound
	}

	unlock := s.locks.Lock(batch.OwnerID, batch.ChannelID)
	defer unlock()

	err = s.dm.WithTransaction(ctx, func(dm contract.DataManager) error {
		posts, err := dm.Post().ListByBatch(ctx, batchID)
		if err != nil {
			return err
		}

		updates := make([]contract.PostSchedule, 0, len(posts))
		for _, p := range posts {
			if p.Status != entity.PostStatusPending || p.Scheduled() {
				continue
			}
			if len(updates) >= len(slots) {
				report.Skipped++
				continue
			}
			updates = append(updates, contract.PostSchedule{PostID: p.ID, ScheduledAt: slots[len(updates)]})
		}

		if len(updates) > 0 {
			if _, err := dm.Post().BulkUpdateSchedules(ctx, updates); err != nil {
				return err
			}
		}
		report.Scheduled = len(updates)

		return dm.Batch().UpdateStatus(ctx, batchID, entity.BatchStatusScheduled)
	})
	if err != nil {
		return entity.BatchScheduleReport{}, err
	}

	s.log.Info().
		Int64("batch_id", batchID).
		Int("scheduled", report.Scheduled).
		Int("skipped", report.Skipped).
		Msg("batch scheduled")
	return report, nil
}

// DeleteBatch removes the batch and its still-pending posts. Posts that
// already published keep their history and are detached from the batch.
func (s *scheduleService) DeleteBatch(ctx context.Context, ownerID, batchID int64) error {
	batch, err := s.requireBatch(ctx, ownerID, batchID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(ownerID, batch.ChannelID)
	defer unlock()

	return s.dm.WithTransaction(ctx, func(dm contract.DataManager) error {
		posts, err := dm.Post().ListByBatch(ctx, batchID)
		if err != nil {
			return err
		}

		var pending []int64
		for _, p := range posts {
			if p.Status == entity.PostStatusPending {
				pending = append(pending, p.ID)
			}
		}
		if len(pending) > 0 {
			if err := dm.Post().Delete(ctx, pending); err != nil {
				return err
			}
		}

		if err := dm.Post().DetachBatch(ctx, batchID); err != nil {
			return err
		}
		return dm.Batch().Delete(ctx, batchID)
	})
}

func (s *scheduleService) requireBatch(ctx context.Context, ownerID, batchID int64) (*entity.Batch, error) {
	batch, err := s.dm.Batch().GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil || batch.OwnerID != ownerID {
		return nil, domain.ErrBatchNotFound
	}
	return batch, nil
}
