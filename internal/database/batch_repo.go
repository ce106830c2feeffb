package database

import (
	"context"
	"database/sql"
	"fmt"

	"postqueue/internal/domain/contract"
	"postqueue/internal/domain/entity"
)

type batchRepo struct {
	db dbConn
}

func newBatchRepo(db dbConn) contract.BatchRepo {
	return &batchRepo{db: db}
}

func (r *batchRepo) Create(ctx context.Context, batch *entity.Batch) error {
	if batch.Status == "" {
		batch.Status = entity.BatchStatusPending
	}

	query := `
		INSERT INTO post_batches (owner_id, channel_id, batch_name, status)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		batch.OwnerID,
		batch.ChannelID,
		batch.Name,
		batch.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	batch.ID = id
	return nil
}

func (r *batchRepo) GetByID(ctx context.Context, id int64) (*entity.Batch, error) {
	batch := &entity.Batch{}
	query := `
		SELECT id, owner_id, channel_id, batch_name, status, created_at
		FROM post_batches
		WHERE id = ?
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&batch.ID,
		&batch.OwnerID,
		&batch.ChannelID,
		&batch.Name,
		&batch.Status,
		&batch.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return batch, nil
}

func (r *batchRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*entity.Batch, error) {
	query := `
		SELECT b.id, b.owner_id, b.channel_id, b.batch_name, b.status, b.created_at,
			COUNT(p.id) AS pending_count
		FROM post_batches b
		LEFT JOIN posts p ON p.batch_id = b.id AND p.status = 'pending'
		WHERE b.owner_id = ?
		GROUP BY b.id
		ORDER BY b.created_at DESC, b.id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []*entity.Batch
	for rows.Next() {
		batch := &entity.Batch{}
		err := rows.Scan(
			&batch.ID,
			&batch.OwnerID,
			&batch.ChannelID,
			&batch.Name,
			&batch.Status,
			&batch.CreatedAt,
			&batch.PendingCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, batch)
	}

	return batches, rows.Err()
}

func (r *batchRepo) UpdateStatus(ctx context.Context, id int64, status entity.BatchStatus) error {
	query := `UPDATE post_batches SET status = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, status, id); err != nil {
		return fmt.Errorf("failed to update batch status: %w", err)
	}
	return nil
}

func (r *batchRepo) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM post_batches WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}
