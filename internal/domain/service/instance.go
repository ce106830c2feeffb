package service

import (
	"context"
	"time"

	"postqueue/internal/domain"
	"postqueue/internal/domain/contract"
	"postqueue/internal/domain/entity"

	"github.com/rs/zerolog"
)

type Instance struct {
	Queue    contract.QueueService
	Schedule contract.ScheduleService
	Backup   contract.BackupService
}

func NewInstance(dm contract.DataManager, media contract.MediaStore, log zerolog.Logger, loc *time.Location) *Instance {
	if loc == nil {
		loc = time.Local
	}
	locks := newOwnerLocks()
	now := func() time.Time { return time.Now().In(loc) }

	return &Instance{
		Queue:    newQueueService(dm, media, log, now),
		Schedule: newScheduleService(dm, log, loc, locks, now),
		Backup:   newBackupService(dm, media, log, loc, locks, now),
	}
}

// windowFor resolves the owner's publishing window, substituting the
// default when none is configured. A missing config is never an error.
func windowFor(ctx context.Context, dm contract.DataManager, ownerID int64) (entity.WindowConfig, error) {
	cfg, err := dm.Settings().GetWindow(ctx, ownerID)
	if err != nil {
		return entity.WindowConfig{}, err
	}
	if cfg == nil {
		return entity.WindowConfig{
			StartHour:     domain.DefaultStartHour,
			EndHour:       domain.DefaultEndHour,
			IntervalHours: domain.DefaultIntervalHours,
		}, nil
	}
	return *cfg, nil
}
