// Package handlers provides HTTP handlers for accounts and portfolio views.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/andrew-rosca/etrade-report/internal/modules/buckets"
	"github.com/andrew-rosca/etrade-report/internal/modules/portfolio"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service    *portfolio.Service
	classifier *buckets.Classifier
	log        zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, classifier *buckets.Classifier, log zerolog.Logger) *Handler {
	return &Handler{
		service:    service,
		classifier: classifier,
		log:        log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleListAccounts handles GET /api/accounts
func (h *Handler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.Accounts()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// HandleGetBalance handles GET /api/accounts/{accountIdKey}/balance
func (h *Handler) HandleGetBalance(w http.ResponseWriter, r *http.Request) {
	view, ok := h.fetchView(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"account_id_key":         view.AccountIDKey,
		"balance":                view.Balance,
		"margin_utilization_pct": view.MarginUtilization,
		"fetched_at":             view.FetchedAt,
		"stale":                  view.Stale,
	})
}

// HandleGetPositions handles GET /api/accounts/{accountIdKey}/positions
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	view, ok := h.fetchView(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, view)
}

// HandleGetAllocations handles GET /api/accounts/{accountIdKey}/allocations
func (h *Handler) HandleGetAllocations(w http.ResponseWriter, r *http.Request) {
	view, ok := h.fetchView(w, r)
	if !ok {
		return
	}

	allocations := h.classifier.Allocations(view.Positions, view.Totals.TotalValue)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"account_id_key": view.AccountIDKey,
		"allocations":    allocations,
		"total_value":    view.Totals.TotalValue,
		"fetched_at":     view.FetchedAt,
		"stale":          view.Stale,
	})
}

// fetchView resolves the account key from the URL and loads its view,
// writing the error response itself when the load fails.
func (h *Handler) fetchView(w http.ResponseWriter, r *http.Request) (*portfolio.View, bool) {
	accountIDKey := chi.URLParam(r, "accountIdKey")
	if accountIDKey == "" {
		h.writeError(w, http.StatusBadRequest, "account key is required")
		return nil, false
	}

	view, err := h.service.View(accountIDKey)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountIDKey).Msg("Failed to get portfolio view")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}

	return view, true
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
