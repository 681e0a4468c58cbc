package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"lol-account-manager/internal/api"
	"lol-account-manager/internal/config"
	"lol-account-manager/internal/constants"
	"lol-account-manager/internal/domain"
	"lol-account-manager/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RiotAPI is the slice of the Riot client the sync job depends on.
type RiotAPI interface {
	AccountByRiotID(ctx context.Context, routing, name, tag string) (*api.RiotAccount, error)
	SummonerByPUUID(ctx context.Context, platform, puuid string) (*api.Summoner, error)
	LeagueEntriesBySummoner(ctx context.Context, platform, summonerID string) ([]api.LeagueEntry, error)
}

// SyncService refreshes level/rank/win-loss for every account that carries a
// name#tag external id. At most one run may be outstanding; per-account
// failures are absorbed and reflected only by omission from the delta list.
type SyncService struct {
	riot       RiotAPI
	repo       *repository.AccountRepository
	apiTimeout time.Duration
	logger     zerolog.Logger

	mu      sync.Mutex
	running bool
}

func NewSyncService(riot RiotAPI, repo *repository.AccountRepository, cfg *config.Config, logger zerolog.Logger) *SyncService {
	return &SyncService{
		riot:       riot,
		repo:       repo,
		apiTimeout: cfg.RiotAPITimeout,
		logger:     logger,
	}
}

func (s *SyncService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start launches one background sync run and returns its run id, or
// ErrSyncRunning while a previous run is still outstanding. The run reads the
// account list, resolves deltas, and applies them as a single batch; the
// running flag clears unconditionally on completion, even with zero deltas.
func (s *SyncService) Start() (string, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return "", domain.ErrSyncRunning
	}
	s.running = true
	s.mu.Unlock()

	runID, err := gonanoid.New()
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return "", fmt.Errorf("failed to generate run id: %w", err)
	}

	g := new(errgroup.Group)
	g.Go(func() error {
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()

		// The run itself carries no deadline: each remote call is bounded
		// per-call inside resolve, so one hung account cannot starve the
		// rest of the batch or poison the final write.
		ctx := context.Background()

		loadCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
		accounts, err := s.repo.List(loadCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to load accounts: %w", err)
		}

		deltas := s.Run(ctx, runID, accounts)

		applyCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
		defer cancel()
		if err := s.repo.ApplyDeltas(applyCtx, deltas); err != nil {
			return fmt.Errorf("failed to apply deltas: %w", err)
		}

		s.logger.Info().
			Str("run_id", runID).
			Int("accounts", len(accounts)).
			Int("deltas", len(deltas)).
			Msg("sync run completed")
		return nil
	})

	go func() {
		if err := g.Wait(); err != nil {
			s.logger.Error().Err(err).Str("run_id", runID).Msg("sync run failed")
		}
	}()

	s.logger.Info().Str("run_id", runID).Msg("sync run started")
	return runID, nil
}

// Run resolves one delta per eligible account, sequentially. Accounts with a
// malformed external id, an unmapped region, or any failing remote call are
// skipped without surfacing an error.
func (s *SyncService) Run(ctx context.Context, runID string, accounts []domain.Account) []domain.SyncDelta {
	var deltas []domain.SyncDelta

	for _, acc := range accounts {
		delta, ok := s.resolve(ctx, runID, acc)
		if !ok {
			continue
		}
		deltas = append(deltas, delta)
	}

	return deltas
}

func (s *SyncService) resolve(ctx context.Context, runID string, acc domain.Account) (domain.SyncDelta, bool) {
	log := s.logger.With().Str("run_id", runID).Int64("account_id", acc.ID).Logger()

	name, tag, ok := splitExternalID(acc.ExternalID)
	if !ok {
		if acc.ExternalID != "" {
			log.Debug().Str("external_id", acc.ExternalID).Msg("malformed external id, skipping")
		}
		return domain.SyncDelta{}, false
	}

	platform, ok := api.PlatformFor(acc.Region)
	if !ok {
		log.Debug().Str("region", string(acc.Region)).Msg("unmapped region, skipping")
		return domain.SyncDelta{}, false
	}
	routing, _ := api.RoutingFor(platform)

	apiCtx, cancel := context.WithTimeout(ctx, s.apiTimeout)
	riotAcc, err := s.riot.AccountByRiotID(apiCtx, routing, name, tag)
	cancel()
	if err != nil {
		log.Debug().Err(err).Msg("account lookup failed, skipping")
		return domain.SyncDelta{}, false
	}

	apiCtx, cancel = context.WithTimeout(ctx, s.apiTimeout)
	summoner, err := s.riot.SummonerByPUUID(apiCtx, platform, riotAcc.PUUID)
	cancel()
	if err != nil {
		log.Debug().Err(err).Msg("summoner lookup failed, skipping")
		return domain.SyncDelta{}, false
	}

	apiCtx, cancel = context.WithTimeout(ctx, s.apiTimeout)
	entries, err := s.riot.LeagueEntriesBySummoner(apiCtx, platform, summoner.ID)
	cancel()
	if err != nil {
		log.Debug().Err(err).Msg("league lookup failed, skipping")
		return domain.SyncDelta{}, false
	}

	delta := domain.SyncDelta{
		AccountID: acc.ID,
		Level:     summoner.SummonerLevel,
		// carried forward when no solo queue entry exists
		Wins:   acc.Wins,
		Losses: acc.Losses,
	}
	for _, entry := range entries {
		if entry.QueueType != constants.SoloQueueType {
			continue
		}
		delta.Wins = entry.Wins
		delta.Losses = entry.Losses
		delta.RankLabel = rankLabel(entry.Tier, entry.Rank, entry.LeaguePoints)
		break
	}

	return delta, true
}

// splitExternalID splits a name#tag pair; both halves must be non-empty.
func splitExternalID(externalID string) (name, tag string, ok bool) {
	parts := strings.Split(externalID, "#")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

var divisionNumerals = map[string]string{
	"I":   "1",
	"II":  "2",
	"III": "3",
	"IV":  "4",
}

// rankLabel composes the short display form, e.g. GOLD II 40 -> "G2/40LP".
func rankLabel(tier, division string, leaguePoints int) string {
	if tier == "" {
		return ""
	}
	numeral, ok := divisionNumerals[division]
	if !ok {
		numeral = division
	}
	return fmt.Sprintf("%s%s/%dLP", tier[:1], numeral, leaguePoints)
}
