package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"postqueue/internal/domain/contract"
	"postqueue/internal/domain/entity"
)

type settingsRepo struct {
	db dbConn
}

func newSettingsRepo(db dbConn) contract.SettingsRepo {
	return &settingsRepo{db: db}
}

func (r *settingsRepo) GetWindow(ctx context.Context, ownerID int64) (*entity.WindowConfig, error) {
	cfg := &entity.WindowConfig{}
	query := `
		SELECT start_hour, end_hour, interval_hours
		FROM scheduling_config
		WHERE owner_id = ?
	`

	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(
		&cfg.StartHour,
		&cfg.EndHour,
		&cfg.IntervalHours,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduling config: %w", err)
	}

	return cfg, nil
}

func (r *settingsRepo) UpsertWindow(ctx context.Context, ownerID int64, cfg entity.WindowConfig) error {
	query := `
		INSERT INTO scheduling_config (owner_id, start_hour, end_hour, interval_hours, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			start_hour = excluded.start_hour,
			end_hour = excluded.end_hour,
			interval_hours = excluded.interval_hours,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		ownerID,
		cfg.StartHour,
		cfg.EndHour,
		cfg.IntervalHours,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert scheduling config: %w", err)
	}
	return nil
}
