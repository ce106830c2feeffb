package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"postqueue/internal/domain/contract"
	"postqueue/internal/domain/entity"
)

type backupRepo struct {
	db dbConn
}

func newBackupRepo(db dbConn) contract.BackupRepo {
	return &backupRepo{db: db}
}

func (r *backupRepo) Upsert(ctx context.Context, ownerID int64, name string, payload []byte) error {
	query := `
		INSERT INTO post_backups (owner_id, backup_name, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(owner_id, backup_name) DO UPDATE SET
			payload = excluded.payload,
			created_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.ExecContext(ctx, query, ownerID, name, string(payload)); err != nil {
		return fmt.Errorf("failed to store backup: %w", err)
	}
	return nil
}

func (r *backupRepo) Get(ctx context.Context, ownerID int64, name string) ([]byte, error) {
	query := `SELECT payload FROM post_backups WHERE owner_id = ? AND backup_name = ?`

	var payload string
	err := r.db.QueryRowContext(ctx, query, ownerID, name).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get backup: %w", err)
	}

	return []byte(payload), nil
}

func (r *backupRepo) List(ctx context.Context, ownerID int64) ([]*entity.Backup, error) {
	query := `
		SELECT backup_name, created_at, payload
		FROM post_backups
		WHERE owner_id = ?
		ORDER BY created_at DESC, backup_name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	defer rows.Close()

	var backups []*entity.Backup
	for rows.Next() {
		backup := &entity.Backup{}
		var payload string
		if err := rows.Scan(&backup.Name, &backup.CreatedAt, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan backup: %w", err)
		}

		var snapshots []entity.PostSnapshot
		if err := json.Unmarshal([]byte(payload), &snapshots); err != nil {
			return nil, fmt.Errorf("failed to decode backup %q: %w", backup.Name, err)
		}
		backup.PostCount = len(snapshots)

		backups = append(backups, backup)
	}

	return backups, rows.Err()
}

func (r *backupRepo) Delete(ctx context.Context, ownerID int64, name string) (bool, error) {
	query := `DELETE FROM post_backups WHERE owner_id = ? AND backup_name = ?`

	result, err := r.db.ExecContext(ctx, query, ownerID, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete backup: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count deleted backups: %w", err)
	}
	return n > 0, nil
}
