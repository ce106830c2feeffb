package database

import (
	"context"
	"database/sql"
	"fmt"

	"postqueue/internal/domain/contract"
	"postqueue/internal/domain/entity"
)

type channelRepo struct {
	db dbConn
}

func newChannelRepo(db dbConn) contract.ChannelRepo {
	return &channelRepo{db: db}
}

func (r *channelRepo) Create(ctx context.Context, channel *entity.Channel) error {
	query := `
		INSERT INTO user_channels (owner_id, channel_id, channel_name, is_default)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		channel.OwnerID,
		channel.ChannelID,
		channel.Name,
		channel.IsDefault,
	)
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	channel.ID = id
	return nil
}

func (r *channelRepo) GetByOwnerAndChannel(ctx context.Context, ownerID int64, channelID string) (*entity.Channel, error) {
	channel := &entity.Channel{}
	query := `
		SELECT id, owner_id, channel_id, channel_name, is_default, created_at
		FROM user_channels
		WHERE owner_id = ? AND channel_id = ?
	`

	err := r.db.QueryRowContext(ctx, query, ownerID, channelID).Scan(
		&channel.ID,
		&channel.OwnerID,
		&channel.ChannelID,
		&channel.Name,
		&channel.IsDefault,
		&channel.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	return channel, nil
}

func (r *channelRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*entity.Channel, error) {
	query := `
		SELECT id, owner_id, channel_id, channel_name, is_default, created_at
		FROM user_channels
		WHERE owner_id = ?
		ORDER BY is_default DESC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []*entity.Channel
	for rows.Next() {
		channel := &entity.Channel{}
		err := rows.Scan(
			&channel.ID,
			&channel.OwnerID,
			&channel.ChannelID,
			&channel.Name,
			&channel.IsDefault,
			&channel.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, channel)
	}

	return channels, rows.Err()
}

func (r *channelRepo) Delete(ctx context.Context, ownerID int64, channelID string) error {
	query := `DELETE FROM user_channels WHERE owner_id = ? AND channel_id = ?`

	if _, err := r.db.ExecContext(ctx, query, ownerID, channelID); err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	return nil
}
