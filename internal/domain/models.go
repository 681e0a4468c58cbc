package domain

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

type Region string

const (
	RegionEUNE Region = "EUNE"
	RegionEUW  Region = "EUW"
	RegionTR   Region = "TR"
	RegionPBE  Region = "PBE"
)

func (r Region) Valid() bool {
	switch r {
	case RegionEUNE, RegionEUW, RegionTR, RegionPBE:
		return true
	}
	return false
}

// Account is one tracked game account. Secret holds the cleartext credential in
// memory; it is obfuscated by the repository before it touches disk.
type Account struct {
	ID         int64
	Region     Region
	Category   string
	Handle     string
	Secret     string
	Level      int
	Contact    string
	RankLabel  string
	Wins       int
	Losses     int
	Winrate    float64
	ExternalID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// mirrors the creation dialog's e-mail check
var contactPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func (a *Account) Validate() error {
	if strings.TrimSpace(a.Handle) == "" {
		return fmt.Errorf("%w: handle cannot be empty", ErrValidation)
	}
	if !contactPattern.MatchString(strings.TrimSpace(a.Contact)) {
		return fmt.Errorf("%w: invalid e-mail address", ErrValidation)
	}
	if !a.Region.Valid() {
		return fmt.Errorf("%w: unsupported region %q", ErrValidation, a.Region)
	}
	return nil
}

// Winrate is wins/(wins+losses)*100 rounded to one decimal, 0 when no games
// were played. The persisted winrate column is always recomputed through this.
func Winrate(wins, losses int) float64 {
	total := wins + losses
	if total == 0 {
		return 0
	}
	return math.Round(float64(wins)/float64(total)*1000) / 10
}

// SyncDelta is the per-account result of one sync run, applied to the store as
// a single batch and then discarded.
type SyncDelta struct {
	AccountID int64
	Level     int
	Wins      int
	Losses    int
	RankLabel string
}
