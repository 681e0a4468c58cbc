package constants

import "time"

const (
	DatabaseTimeout = 5 * time.Second
)

const (
	// SQLite allows a single writer; keep the pool small.
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 0 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	SoloQueueType = "RANKED_SOLO_5x5"
)
