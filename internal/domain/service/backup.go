package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"postqueue/internal/domain"
	"postqueue/internal/domain/contract"
	"postqueue/internal/domain/entity"

	"github.com/rs/zerolog"
)

type backupService struct {
	dm    contract.DataManager
	media contract.MediaStore
	log   zerolog.Logger
	loc   *time.Location
	locks *ownerLocks
	now   func() time.Time
}

func newBackupService(dm contract.DataManager, media contract.MediaStore, log zerolog.Logger, loc *time.Location, locks *ownerLocks, now func() time.Time) *backupService {
	return &backupService{
		dm:    dm,
		media: media,
		log:   log.With().Str("component", "backup").Logger(),
		loc:   loc,
		locks: locks,
		now:   now,
	}
}

// Snapshot serializes the owner's pending posts into a named backup.
// Saving under an existing name replaces that backup.
func (s *backupService) Snapshot(ctx context.Context, ownerID int64, name string) (*entity.Backup, error) {
	if name == "" {
		name = s.now().Format(time.RFC3339)
	}

	unlock := s.locks.Lock(ownerID, "")
	defer unlock()

	posts, err := s.dm.Post().List(ctx, contract.PostFilter{
		OwnerID: ownerID,
		Status:  entity.PostStatusPending,
	})
	if err != nil {
		return nil, err
	}

	snapshots := make([]entity.PostSnapshot, 0, len(posts))
	for _, p := range posts {
		snap := entity.PostSnapshot{
			MediaPath: p.MediaPath,
			MediaType: p.MediaType,
			Caption:   p.Caption,
			ChannelID: p.ChannelID,
			BatchID:   p.BatchID,
		}
		if p.ScheduledAt != nil {
			snap.ScheduledAt = p.ScheduledAt.In(s.loc).Format(time.RFC3339)
		}
		if rec := p.Recurring; rec != nil {
			snap.IsRecurring = true
			snap.IntervalHours = rec.IntervalHours
			snap.TargetCount = rec.TargetCount
			snap.PostedCount = rec.PostedCount
			if !rec.EndDate.IsZero() {
				snap.EndDate = rec.EndDate.In(s.loc).Format(time.RFC3339)
			}
		}
		snapshots = append(snapshots, snap)
	}

	payload, err := json.Marshal(snapshots)
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup payload: %w", err)
	}

	if err := s.dm.Backup().Upsert(ctx, ownerID, name, payload); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("owner_id", ownerID).
		Str("name", name).
		Int("posts", len(snapshots)).
		Msg("backup saved")

	return &entity.Backup{
		Name:      name,
		CreatedAt: s.now(),
		PostCount: len(snapshots),
	}, nil
}

// Restore replays a named backup into the owner's queue. Per-item
// problems (missing media, unknown channel, malformed timestamps) are
// counted in the report, never fatal; the inserts themselves commit as
// one transaction.
func (s *backupService) Restore(ctx context.Context, ownerID int64, name string, opts entity.RestoreOptions) (*entity.RestoreReport, error) {
	unlock := s.locks.Lock(ownerID, "")
	defer unlock()

	payload, err := s.dm.Backup().Get(ctx, ownerID, name)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, domain.ErrBackupNotFound
	}

	var snapshots []entity.PostSnapshot
	if err := json.Unmarshal(payload, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to decode backup %q: %w", name, err)
	}

	channels, err := s.dm.Channel().ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	registered := make(map[string]bool, len(channels))
	for _, ch := range channels {
		registered[ch.ChannelID] = true
	}

	batches, err := s.dm.Batch().ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	knownBatches := make(map[int64]bool, len(batches))
	for _, b := range batches {
		knownBatches[b.ID] = true
	}

	report := &entity.RestoreReport{}

	err = s.dm.WithTransaction(ctx, func(dm contract.DataManager) error {
		if opts.ReplaceExisting {
			if _, err := dm.Post().DeletePending(ctx, ownerID); err != nil {
				return err
			}
		}

		for _, snap := range snapshots {
			if !registered[snap.ChannelID] {
				report.Skipped++
				continue
			}

			post := &entity.Post{
				OwnerID:   ownerID,
				ChannelID: snap.ChannelID,
				MediaType: snap.MediaType,
				Caption:   snap.Caption,
				Status:    entity.PostStatusPending,
			}

			// Batch membership survives as long as the batch still
			// exists; a link to a since-deleted batch is dropped.
			if snap.BatchID != 0 && knownBatches[snap.BatchID] {
				post.BatchID = snap.BatchID
			}

			if snap.ScheduledAt != "" {
				at, err := time.ParseInLocation(time.RFC3339, snap.ScheduledAt, s.loc)
				if err != nil {
					report.Skipped++
					continue
				}
				at = at.In(s.loc)
				post.ScheduledAt = &at
			}

			if snap.IsRecurring {
				rec := &entity.Recurrence{
					IntervalHours: snap.IntervalHours,
					TargetCount:   snap.TargetCount,
					PostedCount:   snap.PostedCount,
				}
				if snap.EndDate != "" {
					end, err := time.ParseInLocation(time.RFC3339, snap.EndDate, s.loc)
					if err != nil {
						report.Skipped++
						continue
					}
					rec.EndDate = end.In(s.loc)
				}
				post.Recurring = rec
			}

			resolved, ok := s.media.Resolve(snap.MediaPath)
			switch {
			case ok:
				post.MediaPath = resolved
			case opts.RestoreMissingMedia:
				post.MediaPath = snap.MediaPath
				post.Status = entity.PostStatusFailed
				post.FailureReason = "media file missing at restore"
				report.MissingMedia++
			default:
				report.MissingMedia++
				report.Skipped++
				continue
			}

			if err := dm.Post().Create(ctx, post); err != nil {
				return err
			}
			report.Restored++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.Message = fmt.Sprintf("restored %d posts from %q", report.Restored, name)
	s.log.Info().
		Int64("owner_id", ownerID).
		Str("name", name).
		Int("restored", report.Restored).
		Int("skipped", report.Skipped).
		Int("missing_media", report.MissingMedia).
		Msg("backup restored")
	return report, nil
}

func (s *backupService) ListBackups(ctx context.Context, ownerID int64) ([]*entity.Backup, error) {
	return s.dm.Backup().List(ctx, ownerID)
}

func (s *backupService) DeleteBackup(ctx context.Context, ownerID int64, name string) error {
	deleted, err := s.dm.Backup().Delete(ctx, ownerID, name)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrBackupNotFound
	}
	return nil
}
