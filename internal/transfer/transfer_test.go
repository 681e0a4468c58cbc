package transfer

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lol-account-manager/internal/config"
	"lol-account-manager/internal/database"
	"lol-account-manager/internal/domain"
	"lol-account-manager/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *repository.AccountRepository) {
	t.Helper()
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "accounts.db")}
	db, err := database.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := repository.NewAccountRepository(db, zerolog.Nop())
	return NewService(repo, zerolog.Nop()), repo
}

func seedAccounts(t *testing.T, repo *repository.AccountRepository) {
	t.Helper()
	ctx := context.Background()
	accounts := []*domain.Account{
		{Region: domain.RegionEUNE, Category: "mine", Handle: "alpha", Secret: "pw1",
			Level: 30, Contact: "a@b.co", Wins: 10, Losses: 5, ExternalID: "Alpha#EUNE"},
		{Region: domain.RegionEUW, Category: "others", Handle: "beta", Secret: "pw2",
			Level: 250, Contact: "b@c.co", Wins: 0, Losses: 0, ExternalID: ""},
	}
	for _, acc := range accounts {
		_, err := repo.Create(ctx, acc)
		require.NoError(t, err)
	}
}

// field tuples minus store-assigned ids, for round-trip comparison
func fieldTuples(t *testing.T, repo *repository.AccountRepository) []domain.Account {
	t.Helper()
	accounts, err := repo.List(context.Background())
	require.NoError(t, err)
	tuples := make([]domain.Account, len(accounts))
	for i, acc := range accounts {
		acc.ID = 0
		acc.CreatedAt = time.Time{}
		acc.UpdatedAt = time.Time{}
		tuples[i] = acc
	}
	return tuples
}

func TestCSVRoundTrip(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedAccounts(t, repo)
	before := fieldTuples(t, repo)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(ctx, &buf))

	require.NoError(t, repo.Reset(ctx))

	count, err := svc.ImportCSV(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Equal(t, before, fieldTuples(t, repo))
}

func TestJSONRoundTrip(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedAccounts(t, repo)
	before := fieldTuples(t, repo)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportJSON(ctx, &buf))

	require.NoError(t, repo.Reset(ctx))

	count, err := svc.ImportJSON(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Equal(t, before, fieldTuples(t, repo))
}

func TestImportCSVSkipsBadRows(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	input := strings.Join([]string{
		"region,category,handle,secret,level,contact,rank_label,wins,losses,winrate,external_id",
		"EUNE,mine,good,pw,30,a@b.co,,10,5,66.7,Good#TAG",
		"EUNE,mine,badlevel,pw,notanumber,a@b.co,,1,1,,",
		"EUNE,mine,,pw,30,a@b.co,,1,1,,",            // empty handle fails validation
		"EUNE,mine,bademail,pw,30,nowhere,,1,1,,",   // contact fails validation
		"EUW,others,second,pw,120,c@d.co,,0,0,0.0,", // fine
	}, "\n")

	count, err := svc.ImportCSV(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	accounts, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "good", accounts[0].Handle)
	assert.Equal(t, "second", accounts[1].Handle)
}

func TestImportRecomputesWinrate(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	input := strings.Join([]string{
		"region,category,handle,secret,level,contact,rank_label,wins,losses,winrate,external_id",
		"EUNE,mine,acc,pw,30,a@b.co,,10,5,99.9,", // stale winrate is not trusted
	}, "\n")

	count, err := svc.ImportCSV(ctx, strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 1, count)

	accounts, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 66.7, accounts[0].Winrate)
}

func TestImportJSONSkipsUndecodableEntries(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	input := `[
		{"region": "EUNE", "category": "mine", "handle": "good", "contact": "a@b.co", "wins": 1, "losses": 1},
		{"region": "EUNE", "handle": "badwins", "contact": "a@b.co", "wins": "NaN"},
		{"region": "EUNE", "handle": "", "contact": "a@b.co"}
	]`

	count, err := svc.ImportJSON(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	accounts, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "good", accounts[0].Handle)
}

func TestImportJSONWholeFileFailure(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ImportJSON(context.Background(), strings.NewReader("not json"))
	assert.Error(t, err)
}
