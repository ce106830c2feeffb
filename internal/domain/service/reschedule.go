package service

import (
	"context"
	"time"

	"postqueue/internal/domain/contract"
	"postqueue/internal/domain/entity"

	"github.com/rs/zerolog"
)

type scheduleService struct {
	dm    contract.DataManager
	log   zerolog.Logger
	loc   *time.Location
	locks *ownerLocks
	now   func() time.Time
}

func newScheduleService(dm contract.DataManager, log zerolog.Logger, loc *time.Location, locks *ownerLocks, now func() time.Time) *scheduleService {
	return &scheduleService{
		dm:    dm,
		log:   log.With().Str("component", "schedule").Logger(),
		loc:   loc,
		locks: locks,
		now:   now,
	}
}

// RescheduleOverdue moves every overdue pending post of the owner (and
// channel, when given) to fresh slots behind the existing future queue,
// then shifts all future posts forward by the time the insertion
// occupies. Both phases run in one transaction: a failed write leaves the
// queue untouched and reports zero moved.
func (s *scheduleService) RescheduleOverdue(ctx context.Context, ownerID int64, channelID string) (int, error) {
	unlock := s.locks.Lock(ownerID, channelID)
	defer unlock()

	now := s.now()
	moved := 0

	err := s.dm.WithTransaction(ctx, func(dm contract.DataManager) error {
		cfg, err := windowFor(ctx, dm, ownerID)
		if err != nil {
			return err
		}

		overdue, err := dm.Post().List(ctx, contract.PostFilter{
			OwnerID:         ownerID,
			ChannelID:       channelID,
			Status:          entity.PostStatusPending,
			ScheduledBefore: &now,
		})
		if err != nil {
			return err
		}
		if len(overdue) == 0 {
			return nil
		}

		future, err := dm.Post().List(ctx, contract.PostFilter{
			OwnerID:            ownerID,
			ChannelID:          channelID,
			Status:             entity.PostStatusPending,
			ScheduledAtOrAfter: &now,
		})
		if err != nil {
			return err
		}

		// Phase A: backfill overdue posts onto the next free slots,
		// starting after the last already-scheduled future post when one
		// exists.
		slot := NextValidSlot(now, cfg)
		if len(future) > 0 {
			last := future[len(future)-1].ScheduledAt.In(s.loc)
			slot = AdvanceSlot(last, cfg)
		}

		updates := make([]contract.PostSchedule, 0, len(overdue)+len(future))
		for _, p := range overdue {
			updates = append(updates, contract.PostSchedule{PostID: p.ID, ScheduledAt: slot})
			slot = AdvanceSlot(slot, cfg)
		}

		// Phase B: shift the previously-future posts forward by exactly
		// the room the backfill consumed, re-validating each against the
		// window.
		shift := time.Duration(len(overdue)*cfg.IntervalHours) * time.Hour
		for _, p := range future {
			shifted := shiftIntoWindow(p.ScheduledAt.In(s.loc).Add(shift), cfg)
			updates = append(updates, contract.PostSchedule{PostID: p.ID, ScheduledAt: shifted})
		}

		if _, err := dm.Post().BulkUpdateSchedules(ctx, updates); err != nil {
			return err
		}

		moved = len(overdue)
		s.log.Info().
			Int64("owner_id", ownerID).
			Str("channel_id", channelID).
			Int("moved", moved).
			Int("shifted", len(future)).
			Msg("rescheduled overdue posts")
		return nil
	})
	if err != nil {
		return 0, err
	}

	return moved, nil
}

// GenerateSlots produces n consecutive valid slots for the owner's
// window, continuing after the latest already-scheduled post so new
// assignments never double-book an occupied slot.
func (s *scheduleService) GenerateSlots(ctx context.Context, ownerID int64, n int) ([]time.Time, error) {
	cfg, err := windowFor(ctx, s.dm, ownerID)
	if err != nil {
		return nil, err
	}

	seed := s.now()
	latest, err := s.dm.Post().LatestScheduled(ctx, ownerID, "")
	if err != nil {
		return nil, err
	}
	if latest != nil {
		if next := AdvanceSlot(latest.In(s.loc), cfg); next.After(seed) {
			seed = next
		}
	}
	return SlotSequence(seed, cfg, n), nil
}
