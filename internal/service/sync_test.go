package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"lol-account-manager/internal/api"
	"lol-account-manager/internal/config"
	"lol-account-manager/internal/database"
	"lol-account-manager/internal/domain"
	"lol-account-manager/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRiot struct {
	accountFn  func(ctx context.Context, routing, name, tag string) (*api.RiotAccount, error)
	summonerFn func(ctx context.Context, platform, puuid string) (*api.Summoner, error)
	leagueFn   func(ctx context.Context, platform, summonerID string) ([]api.LeagueEntry, error)
}

func (s *stubRiot) AccountByRiotID(ctx context.Context, routing, name, tag string) (*api.RiotAccount, error) {
	return s.accountFn(ctx, routing, name, tag)
}

func (s *stubRiot) SummonerByPUUID(ctx context.Context, platform, puuid string) (*api.Summoner, error) {
	return s.summonerFn(ctx, platform, puuid)
}

func (s *stubRiot) LeagueEntriesBySummoner(ctx context.Context, platform, summonerID string) ([]api.LeagueEntry, error) {
	return s.leagueFn(ctx, platform, summonerID)
}

func happyRiot() *stubRiot {
	return &stubRiot{
		accountFn: func(ctx context.Context, routing, name, tag string) (*api.RiotAccount, error) {
			return &api.RiotAccount{PUUID: "puuid-1", GameName: name, TagLine: tag}, nil
		},
		summonerFn: func(ctx context.Context, platform, puuid string) (*api.Summoner, error) {
			return &api.Summoner{ID: "summoner-1", PUUID: puuid, SummonerLevel: 150}, nil
		},
		leagueFn: func(ctx context.Context, platform, summonerID string) ([]api.LeagueEntry, error) {
			return []api.LeagueEntry{
				{QueueType: "RANKED_FLEX_SR", Tier: "SILVER", Rank: "I", LeaguePoints: 10, Wins: 1, Losses: 1},
				{QueueType: "RANKED_SOLO_5x5", Tier: "GOLD", Rank: "II", LeaguePoints: 40, Wins: 10, Losses: 5},
			}, nil
		},
	}
}

func newSyncService(riot RiotAPI, repo *repository.AccountRepository) *SyncService {
	cfg := &config.Config{RiotAPITimeout: time.Second}
	return NewSyncService(riot, repo, cfg, zerolog.Nop())
}

func TestRunResolvesDelta(t *testing.T) {
	svc := newSyncService(happyRiot(), nil)

	accounts := []domain.Account{
		{ID: 7, Region: domain.RegionEUNE, ExternalID: "Name#TAG", Wins: 1, Losses: 1},
	}
	deltas := svc.Run(context.Background(), "run-1", accounts)

	require.Len(t, deltas, 1)
	assert.Equal(t, domain.SyncDelta{
		AccountID: 7,
		Level:     150,
		Wins:      10,
		Losses:    5,
		RankLabel: "G2/40LP",
	}, deltas[0])
}

func TestRunSkipsMalformedExternalID(t *testing.T) {
	svc := newSyncService(happyRiot(), nil)

	tests := []string{"BadFormatNoHash", "", "#TAG", "Name#", "a#b#c"}
	for _, externalID := range tests {
		deltas := svc.Run(context.Background(), "run-1", []domain.Account{
			{ID: 1, Region: domain.RegionEUW, ExternalID: externalID},
		})
		assert.Empty(t, deltas, "external id %q", externalID)
	}
}

func TestRunPartialFailureIsolation(t *testing.T) {
	riot := happyRiot()
	riot.accountFn = func(ctx context.Context, routing, name, tag string) (*api.RiotAccount, error) {
		if name == "Broken" {
			return nil, errors.New("API error: 404")
		}
		return &api.RiotAccount{PUUID: "puuid-1"}, nil
	}
	svc := newSyncService(riot, nil)

	deltas := svc.Run(context.Background(), "run-1", []domain.Account{
		{ID: 1, Region: domain.RegionEUW, ExternalID: "Broken#TAG"},
		{ID: 2, Region: domain.RegionEUW, ExternalID: "Fine#TAG"},
	})

	require.Len(t, deltas, 1)
	assert.Equal(t, int64(2), deltas[0].AccountID)
}

func TestRunCarriesForwardWithoutSoloEntry(t *testing.T) {
	riot := happyRiot()
	riot.leagueFn = func(ctx context.Context, platform, summonerID string) ([]api.LeagueEntry, error) {
		return []api.LeagueEntry{
			{QueueType: "RANKED_FLEX_SR", Tier: "SILVER", Rank: "I", Wins: 3, Losses: 4},
		}, nil
	}
	svc := newSyncService(riot, nil)

	deltas := svc.Run(context.Background(), "run-1", []domain.Account{
		{ID: 5, Region: domain.RegionTR, ExternalID: "Name#TAG", Wins: 20, Losses: 22},
	})

	require.Len(t, deltas, 1)
	assert.Equal(t, 20, deltas[0].Wins)
	assert.Equal(t, 22, deltas[0].Losses)
	assert.Equal(t, "", deltas[0].RankLabel)
	assert.Equal(t, 150, deltas[0].Level)
}

func TestRunSkipsUnmappedRegion(t *testing.T) {
	svc := newSyncService(happyRiot(), nil)

	deltas := svc.Run(context.Background(), "run-1", []domain.Account{
		{ID: 1, Region: domain.Region("NA"), ExternalID: "Name#TAG"},
	})
	assert.Empty(t, deltas)
}

func TestRankLabel(t *testing.T) {
	tests := []struct {
		tier     string
		division string
		lp       int
		want     string
	}{
		{tier: "GOLD", division: "II", lp: 40, want: "G2/40LP"},
		{tier: "IRON", division: "IV", lp: 0, want: "I4/0LP"},
		{tier: "DIAMOND", division: "I", lp: 99, want: "D1/99LP"},
		{tier: "CHALLENGER", division: "I", lp: 1203, want: "C1/1203LP"},
		{tier: "", division: "I", lp: 10, want: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, rankLabel(tt.tier, tt.division, tt.lp))
	}
}

func newTestRepo(t *testing.T) *repository.AccountRepository {
	t.Helper()
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "accounts.db")}
	db, err := database.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewAccountRepository(db, zerolog.Nop())
}

func TestStartSingleFlight(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Create(context.Background(), &domain.Account{
		Region: domain.RegionEUNE, Handle: "abc", Contact: "a@b.co", ExternalID: "Name#TAG",
	})
	require.NoError(t, err)

	release := make(chan struct{})
	riot := happyRiot()
	riot.accountFn = func(ctx context.Context, routing, name, tag string) (*api.RiotAccount, error) {
		<-release
		return &api.RiotAccount{PUUID: "puuid-1"}, nil
	}
	svc := newSyncService(riot, repo)

	runID, err := svc.Start()
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	assert.True(t, svc.Running())

	_, err = svc.Start()
	assert.ErrorIs(t, err, domain.ErrSyncRunning)

	close(release)
	require.Eventually(t, func() bool { return !svc.Running() }, 5*time.Second, 10*time.Millisecond)

	// the flag clears and a new run may start even after zero-delta runs
	_, err = svc.Start()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return !svc.Running() }, 5*time.Second, 10*time.Millisecond)
}

func TestStartIsolatesHungAccount(t *testing.T) {
	repo := newTestRepo(t)

	hungID, err := repo.Create(context.Background(), &domain.Account{
		Region: domain.RegionEUNE, Handle: "hung", Contact: "a@b.co", ExternalID: "Hung#TAG",
	})
	require.NoError(t, err)
	goodID, err := repo.Create(context.Background(), &domain.Account{
		Region: domain.RegionEUNE, Handle: "good", Contact: "c@d.co", ExternalID: "Fine#TAG",
	})
	require.NoError(t, err)

	riot := happyRiot()
	riot.accountFn = func(ctx context.Context, routing, name, tag string) (*api.RiotAccount, error) {
		if name == "Hung" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &api.RiotAccount{PUUID: "puuid-1"}, nil
	}
	cfg := &config.Config{RiotAPITimeout: 50 * time.Millisecond}
	svc := NewSyncService(riot, repo, cfg, zerolog.Nop())

	_, err = svc.Start()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return !svc.Running() }, 5*time.Second, 10*time.Millisecond)

	// the stalled account times out on its own, the rest of the batch
	// still resolves and persists
	good, err := repo.Get(context.Background(), goodID)
	require.NoError(t, err)
	assert.Equal(t, 150, good.Level)
	assert.Equal(t, 10, good.Wins)
	assert.Equal(t, 5, good.Losses)
	assert.Equal(t, "G2/40LP", good.RankLabel)

	hung, err := repo.Get(context.Background(), hungID)
	require.NoError(t, err)
	assert.Equal(t, 0, hung.Level)
}
