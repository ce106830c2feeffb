package domain

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrBatchNotFound is returned when a batch id does not exist.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrBackupNotFound is returned when a named backup does not exist.
	ErrBackupNotFound = errors.New("backup not found")

	// ErrChannelAccessDenied is returned when an owner targets a channel
	// they have not registered.
	ErrChannelAccessDenied = errors.New("channel access denied")

	// ErrInvalidWindow is returned when a publishing window fails
	// validation at write time.
	ErrInvalidWindow = errors.New("invalid publishing window")
)
