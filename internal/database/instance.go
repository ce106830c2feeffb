package database

import (
	"context"
	"fmt"

	"postqueue/internal/domain/contract"
)

// instance implements DataManager interface
type instance struct {
	db           *DB
	postRepo     contract.PostRepo
	batchRepo    contract.BatchRepo
	channelRepo  contract.ChannelRepo
	settingsRepo contract.SettingsRepo
	backupRepo   contract.BackupRepo
}

// NewInstance creates a new database instance with all repositories
func NewInstance(db *DB) contract.DataManager {
	i := &instance{db: db}
	i.attachRepos(db.conn)
	return i
}

func (i *instance) attachRepos(conn dbConn) {
	i.postRepo = newPostRepo(conn)
	i.batchRepo = newBatchRepo(conn)
	i.channelRepo = newChannelRepo(conn)
	i.settingsRepo = newSettingsRepo(conn)
	i.backupRepo = newBackupRepo(conn)
}

// repoInstancesWithConn creates repository instances bound to a custom dbConn
func repoInstancesWithConn(conn dbConn) *instance {
	i := &instance{}
	i.attachRepos(conn)
	return i
}

func (i *instance) Post() contract.PostRepo         { return i.postRepo }
func (i *instance) Batch() contract.BatchRepo       { return i.batchRepo }
func (i *instance) Channel() contract.ChannelRepo   { return i.channelRepo }
func (i *instance) Settings() contract.SettingsRepo { return i.settingsRepo }
func (i *instance) Backup() contract.BackupRepo     { return i.backupRepo }

// WithTransaction executes a function within a database transaction.
// Reads issued through the transactional DataManager see the same
// snapshot the subsequent writes act on; any error rolls everything back.
func (i *instance) WithTransaction(ctx context.Context, fn func(dm contract.DataManager) error) error {
	if i.db == nil {
		// Already inside a transaction; reuse the current scope so
		// nested service calls compose into one atomic unit.
		return fn(i)
	}

	tx, err := i.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txInstance := repoInstancesWithConn(tx)
	if err := fn(txInstance); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("error rolling back transaction: %v, original error: %w", rbErr, err)
		}
		return err
	}

	return tx.Commit()
}
