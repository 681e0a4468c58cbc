// Package transfer implements bulk import/export of the account store.
// Import is best-effort: rows that fail numeric coercion or store validation
// are dropped and only the count of imported rows is reported.
package transfer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"lol-account-manager/internal/domain"
	"lol-account-manager/internal/repository"

	"github.com/rs/zerolog"
)

var csvHeader = []string{
	"region", "category", "handle", "secret", "level", "contact",
	"rank_label", "wins", "losses", "winrate", "external_id",
}

type record struct {
	Region     string  `json:"region"`
	Category   string  `json:"category"`
	Handle     string  `json:"handle"`
	Secret     string  `json:"secret"`
	Level      int     `json:"level"`
	Contact    string  `json:"contact"`
	RankLabel  string  `json:"rank_label"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	Winrate    float64 `json:"winrate"`
	ExternalID string  `json:"external_id"`
}

func toRecord(acc domain.Account) record {
	return record{
		Region:     string(acc.Region),
		Category:   acc.Category,
		Handle:     acc.Handle,
		Secret:     acc.Secret,
		Level:      acc.Level,
		Contact:    acc.Contact,
		RankLabel:  acc.RankLabel,
		Wins:       acc.Wins,
		Losses:     acc.Losses,
		Winrate:    domain.Winrate(acc.Wins, acc.Losses),
		ExternalID: acc.ExternalID,
	}
}

// toAccount drops the record's own winrate: derived fields are recomputed on
// import rather than trusted.
func (rec record) toAccount() *domain.Account {
	return &domain.Account{
		Region:     domain.Region(rec.Region),
		Category:   rec.Category,
		Handle:     rec.Handle,
		Secret:     rec.Secret,
		Level:      rec.Level,
		Contact:    rec.Contact,
		RankLabel:  rec.RankLabel,
		Wins:       rec.Wins,
		Losses:     rec.Losses,
		ExternalID: rec.ExternalID,
	}
}

type Service struct {
	repo   *repository.AccountRepository
	logger zerolog.Logger
}

func NewService(repo *repository.AccountRepository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ImportCSV reads a header row of field names and creates one account per
// parseable row, returning how many were imported.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.TrimSpace(strings.ToLower(name))] = i
	}

	imported := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.logger.Debug().Err(err).Msg("skipping malformed CSV row")
			continue
		}

		rec, err := rowToRecord(row, colIdx)
		if err != nil {
			s.logger.Debug().Err(err).Msg("skipping uncoercible CSV row")
			continue
		}
		if _, err := s.repo.Create(ctx, rec.toAccount()); err != nil {
			s.logger.Debug().Err(err).Str("handle", rec.Handle).Msg("skipping invalid CSV row")
			continue
		}
		imported++
	}

	s.logger.Info().Int("imported", imported).Msg("CSV import completed")
	return imported, nil
}

func rowToRecord(row []string, colIdx map[string]int) (record, error) {
	cell := func(name string) string {
		i, ok := colIdx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	intCell := func(name string) (int, error) {
		v := cell(name)
		if v == "" {
			return 0, nil
		}
		return strconv.Atoi(v)
	}

	var rec record
	var err error
	rec.Region = cell("region")
	rec.Category = cell("category")
	rec.Handle = cell("handle")
	rec.Secret = cell("secret")
	rec.Contact = cell("contact")
	rec.RankLabel = cell("rank_label")
	rec.ExternalID = cell("external_id")

	if rec.Level, err = intCell("level"); err != nil {
		return record{}, fmt.Errorf("bad level: %w", err)
	}
	if rec.Wins, err = intCell("wins"); err != nil {
		return record{}, fmt.Errorf("bad wins: %w", err)
	}
	if rec.Losses, err = intCell("losses"); err != nil {
		return record{}, fmt.Errorf("bad losses: %w", err)
	}
	return rec, nil
}

func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, acc := range accounts {
		rec := toRecord(acc)
		row := []string{
			rec.Region, rec.Category, rec.Handle, rec.Secret,
			strconv.Itoa(rec.Level), rec.Contact, rec.RankLabel,
			strconv.Itoa(rec.Wins), strconv.Itoa(rec.Losses),
			strconv.FormatFloat(rec.Winrate, 'f', 1, 64), rec.ExternalID,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	s.logger.Info().Int("exported", len(accounts)).Msg("CSV export completed")
	return nil
}

// ImportJSON accepts an array of objects keyed by field name. Entries that do
// not decode or fail store validation are skipped.
func (s *Service) ImportJSON(ctx context.Context, r io.Reader) (int, error) {
	var entries []json.RawMessage
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return 0, fmt.Errorf("failed to decode JSON array: %w", err)
	}

	imported := 0
	for _, entry := range entries {
		var rec record
		if err := json.Unmarshal(entry, &rec); err != nil {
			s.logger.Debug().Err(err).Msg("skipping undecodable JSON entry")
			continue
		}
		if _, err := s.repo.Create(ctx, rec.toAccount()); err != nil {
			s.logger.Debug().Err(err).Str("handle", rec.Handle).Msg("skipping invalid JSON entry")
			continue
		}
		imported++
	}

	s.logger.Info().Int("imported", imported).Msg("JSON import completed")
	return imported, nil
}

func (s *Service) ExportJSON(ctx context.Context, w io.Writer) error {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return err
	}

	records := make([]record, 0, len(accounts))
	for _, acc := range accounts {
		records = append(records, toRecord(acc))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	s.logger.Info().Int("exported", len(records)).Msg("JSON export completed")
	return nil
}
