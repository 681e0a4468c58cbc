package service

import (
	"context"
	"time"

	"lol-account-manager/internal/catalog"
	"lol-account-manager/internal/constants"
	"lol-account-manager/internal/domain"
	"lol-account-manager/internal/repository"

	"github.com/rs/zerolog"
)

// AccountService mediates store operations for the presentation layer and
// rebuilds the catalog projection from a fresh store read.
type AccountService struct {
	repo   *repository.AccountRepository
	logger zerolog.Logger
}

func NewAccountService(repo *repository.AccountRepository, logger zerolog.Logger) *AccountService {
	return &AccountService{repo: repo, logger: logger}
}

func (s *AccountService) Create(ctx context.Context, acc *domain.Account) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	id, err := s.repo.Create(ctx, acc)
	if err != nil {
		return 0, err
	}

	s.logger.Info().Int64("account_id", id).Str("handle", acc.Handle).Msg("account created")
	return id, nil
}

func (s *AccountService) Catalog(ctx context.Context) (catalog.Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	accounts, err := s.repo.List(ctx)
	if err != nil {
		return catalog.Catalog{}, err
	}
	return catalog.Build(accounts, catalog.WithLevelOrder()), nil
}

func (s *AccountService) UpdateField(ctx context.Context, id int64, field string, value any) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.repo.UpdateField(ctx, id, field, value)
}

// RevealSecret is the explicit-action path around the catalog's masking.
func (s *AccountService) RevealSecret(ctx context.Context, id int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	acc, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}

	s.logger.Info().Int64("account_id", id).Msg("secret revealed")
	return acc.Secret, nil
}

func (s *AccountService) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.repo.Delete(ctx, id)
}

func (s *AccountService) Reset(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	start := time.Now()
	if err := s.repo.Reset(ctx); err != nil {
		return err
	}

	s.logger.Warn().Dur("took", time.Since(start)).Msg("store reset requested and completed")
	return nil
}
