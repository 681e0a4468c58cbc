package domain

import "errors"

var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("account not found")
	ErrSyncRunning = errors.New("sync already running")
)
