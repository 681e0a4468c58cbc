package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lol-account-manager/internal/domain"
	"lol-account-manager/internal/secret"

	"github.com/rs/zerolog"
)

// columnFor allow-lists the fields a partial update may touch. The derived
// winrate column is not directly writable; it is recomputed whenever wins or
// losses change.
var columnFor = map[string]string{
	"region":      "region",
	"category":    "category",
	"handle":      "handle",
	"secret":      "secret",
	"level":       "level",
	"contact":     "contact",
	"rank_label":  "rank_label",
	"wins":        "wins",
	"losses":      "losses",
	"external_id": "external_id",
}

type AccountRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewAccountRepository(sqlDB *sql.DB, logger zerolog.Logger) *AccountRepository {
	return &AccountRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// Create validates the account, obfuscates its secret and inserts it,
// returning the store-assigned id. The persisted winrate is recomputed from
// wins/losses regardless of what the caller set.
func (r *AccountRepository) Create(ctx context.Context, acc *domain.Account) (int64, error) {
	if err := acc.Validate(); err != nil {
		return 0, err
	}

	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (region, category, handle, secret, level, contact,
			rank_label, wins, losses, winrate, external_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(acc.Region), acc.Category, acc.Handle, secret.Obfuscate(acc.Secret),
		acc.Level, acc.Contact, acc.RankLabel, acc.Wins, acc.Losses,
		domain.Winrate(acc.Wins, acc.Losses), acc.ExternalID, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}

	r.logger.Debug().Int64("account_id", id).Str("handle", acc.Handle).Msg("account created")
	return id, nil
}

const selectColumns = `id, region, category, handle, secret, level, contact,
	rank_label, wins, losses, winrate, external_id, created_at, updated_at`

// List returns every account with secrets revealed in memory.
func (r *AccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) Get(ctx context.Context, id int64) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM accounts WHERE id = ?`, id)
	acc, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var acc domain.Account
	var region, encSecret string
	err := row.Scan(&acc.ID, &region, &acc.Category, &acc.Handle, &encSecret,
		&acc.Level, &acc.Contact, &acc.RankLabel, &acc.Wins, &acc.Losses,
		&acc.Winrate, &acc.ExternalID, &acc.CreatedAt, &acc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	acc.Region = domain.Region(region)
	acc.Secret = secret.Reveal(encSecret)
	return &acc, nil
}

// UpdateField writes exactly one named field. Secret values are obfuscated
// before hitting disk; wins/losses writes also refresh the cached winrate in
// the same transaction. Unknown ids fail with ErrNotFound.
func (r *AccountRepository) UpdateField(ctx context.Context, id int64, field string, value any) error {
	column, ok := columnFor[field]
	if !ok {
		return fmt.Errorf("%w: unknown field %q", domain.ErrValidation, field)
	}

	if field == "secret" {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: secret must be a string", domain.ErrValidation)
		}
		value = secret.Obfuscate(s)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE accounts SET %s = ?, updated_at = ? WHERE id = ?`, column),
		value, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", field, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	if field == "wins" || field == "losses" {
		var wins, losses int
		if err := tx.QueryRowContext(ctx,
			`SELECT wins, losses FROM accounts WHERE id = ?`, id,
		).Scan(&wins, &losses); err != nil {
			return fmt.Errorf("failed to read wins/losses: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET winrate = ? WHERE id = ?`,
			domain.Winrate(wins, losses), id,
		); err != nil {
			return fmt.Errorf("failed to refresh winrate: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit update: %w", err)
	}

	r.logger.Debug().Int64("account_id", id).Str("field", field).Msg("field updated")
	return nil
}

// Delete removes one account. Deleting an absent id fails with ErrNotFound;
// callers that want idempotent deletes check errors.Is themselves.
func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	r.logger.Debug().Int64("account_id", id).Msg("account deleted")
	return nil
}

// Reset drops every record and restarts id assignment. Irreversible.
func (r *AccountRepository) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("failed to clear accounts: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sqlite_sequence WHERE name = 'accounts'`); err != nil {
		return fmt.Errorf("failed to reset id sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}

	r.logger.Info().Msg("store reset")
	return nil
}

// ApplyDeltas writes one sync batch atomically. Deltas referencing ids that
// vanished since the run started are skipped.
func (r *AccountRepository) ApplyDeltas(ctx context.Context, deltas []domain.SyncDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, d := range deltas {
		_, err := tx.ExecContext(ctx, `
			UPDATE accounts
			SET level = ?, wins = ?, losses = ?, rank_label = ?, winrate = ?, updated_at = ?
			WHERE id = ?`,
			d.Level, d.Wins, d.Losses, d.RankLabel,
			domain.Winrate(d.Wins, d.Losses), time.Now(), d.AccountID,
		)
		if err != nil {
			return fmt.Errorf("failed to apply delta for account %d: %w", d.AccountID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deltas: %w", err)
	}

	r.logger.Info().Int("count", len(deltas)).Msg("sync deltas applied")
	return nil
}
