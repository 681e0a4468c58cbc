// Package server exposes the store, catalog, sync and transfer operations to
// the presentation shell over a local HTTP JSON API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"lol-account-manager/internal/catalog"
	"lol-account-manager/internal/domain"
	"lol-account-manager/internal/middleware"
	"lol-account-manager/internal/service"
	"lol-account-manager/internal/transfer"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Server struct {
	accounts *service.AccountService
	sync     *service.SyncService
	transfer *transfer.Service
	logger   zerolog.Logger
}

func NewServer(accounts *service.AccountService, syncSvc *service.SyncService, transferSvc *transfer.Service, logger zerolog.Logger) *Server {
	return &Server{
		accounts: accounts,
		sync:     syncSvc,
		transfer: transferSvc,
		logger:   logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID(s.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/accounts", s.handleCatalog)
		r.Post("/accounts", s.handleCreate)
		r.Patch("/accounts/{id}", s.handleUpdateField)
		r.Delete("/accounts/{id}", s.handleDelete)
		r.Get("/accounts/{id}/secret", s.handleRevealSecret)
		r.Post("/reset", s.handleReset)
		r.Post("/sync", s.handleSync)
		r.Get("/sync/status", s.handleSyncStatus)
		r.Post("/import/csv", s.handleImportCSV)
		r.Post("/import/json", s.handleImportJSON)
		r.Get("/export/csv", s.handleExportCSV)
		r.Get("/export/json", s.handleExportJSON)
	})

	return r
}

type accountPayload struct {
	Region     string `json:"region"`
	Category   string `json:"category"`
	Handle     string `json:"handle"`
	Secret     string `json:"secret"`
	Level      int    `json:"level"`
	Contact    string `json:"contact"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	ExternalID string `json:"external_id"`
}

type accountView struct {
	ID         int64   `json:"id"`
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

type categoryView struct {
	Name     string        `json:"name"`
	Accounts []accountView `json:"accounts"`
}

type regionView struct {
	Region     string         `json:"region"`
	Categories []categoryView `json:"categories"`
}

func toCatalogView(c catalog.Catalog) []regionView {
	regions := make([]regionView, 0, len(c.Regions))
	for _, rg := range c.Regions {
		rv := regionView{Region: string(rg.Region)}
		for _, cg := range rg.Categories {
			cv := categoryView{Name: cg.Name}
			for _, acc := range cg.Accounts {
				cv.Accounts = append(cv.Accounts, accountView{
					ID:         acc.ID,
					Handle:     acc.Handle,
					Secret:     acc.Secret,
					Level:      acc.Level,
					Contact:    acc.Contact,
					RankLabel:  acc.RankLabel,
					Wins:       acc.Wins,
					Losses:     acc.Losses,
					Winrate:    acc.Winrate,
					ExternalID: acc.ExternalID,
				})
			}
			rv.Categories = append(rv.Categories, cv)
		}
		regions = append(regions, rv)
	}
	return regions
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat, err := s.accounts.Catalog(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"regions": toCatalogView(cat)})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload accountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	acc := &domain.Account{
		Region:     domain.Region(payload.Region),
		Category:   payload.Category,
		Handle:     payload.Handle,
		Secret:     payload.Secret,
		Level:      payload.Level,
		Contact:    payload.Contact,
		Wins:       payload.Wins,
		Losses:     payload.Losses,
		ExternalID: payload.ExternalID,
	}

	id, err := s.accounts.Create(r.Context(), acc)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type updateFieldPayload struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

var integerFields = map[string]bool{"level": true, "wins": true, "losses": true}

func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}

	var payload updateFieldPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var value any
	if integerFields[payload.Field] {
		var n int
		if err := json.Unmarshal(payload.Value, &n); err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "value must be an integer"})
			return
		}
		value = n
	} else {
		var str string
		if err := json.Unmarshal(payload.Value, &str); err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "value must be a string"})
			return
		}
		value = str
	}

	if err := s.accounts.UpdateField(r.Context(), id, payload.Field, value); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}
	if err := s.accounts.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleRevealSecret(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}
	value, err := s.accounts.RevealSecret(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"secret": value})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.Reset(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	runID, err := s.sync.Start()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]bool{"running": s.sync.Running()})
}

func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	count, err := s.transfer.ImportCSV(r.Context(), r.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"imported": count})
}

func (s *Server) handleImportJSON(w http.ResponseWriter, r *http.Request) {
	count, err := s.transfer.ImportJSON(r.Context(), r.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"imported": count})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="accounts.csv"`)
	if err := s.transfer.ExportCSV(r.Context(), w); err != nil {
		s.logger.Error().Err(err).Msg("CSV export failed")
	}
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="accounts.json"`)
	if err := s.transfer.ExportJSON(r.Context(), w); err != nil {
		s.logger.Error().Err(err).Msg("JSON export failed")
	}
}

func (s *Server) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid account id"})
		return 0, false
	}
	return id, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSyncRunning):
		status = http.StatusConflict
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("failed to write response")
	}
}
