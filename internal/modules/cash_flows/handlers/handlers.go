// Package handlers provides HTTP handlers for transaction history and
// cash flow series.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/andrew-rosca/etrade-report/internal/domain"
	"github.com/andrew-rosca/etrade-report/internal/modules/cash_flows"
	"github.com/andrew-rosca/etrade-report/internal/utils"
)

// Default lookback windows when the request names no start date.
const (
	defaultTransactionDays = 30
	defaultFlowDays        = 90
)

// Handler handles transaction and cash flow HTTP requests
type Handler struct {
	service *cash_flows.Service
	log     zerolog.Logger
}

// NewHandler creates a new cash flows handler
func NewHandler(service *cash_flows.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "cash_flows").Logger(),
	}
}

// HandleGetTransactions handles GET /api/accounts/{accountIdKey}/transactions
// Query: start, end (YYYY-MM-DD), type (comma-separated type filter).
func (h *Handler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	accountIDKey := chi.URLParam(r, "accountIdKey")
	if accountIDKey == "" {
		h.writeError(w, http.StatusBadRequest, "account key is required")
		return
	}

	start, end, err := dateRange(r, defaultTransactionDays)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	types := utils.ParseCSV(r.URL.Query().Get("type"))

	txs, err := h.service.Transactions(accountIDKey, start, end, types)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountIDKey).Msg("Failed to get transactions")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"account_id_key": accountIDKey,
		"start_date":     start,
		"end_date":       end,
		"transactions":   txs,
		"count":          len(txs),
	})
}

// HandleGetCashFlows handles GET /api/accounts/{accountIdKey}/cash-flows
// Query: start, end (YYYY-MM-DD).
func (h *Handler) HandleGetCashFlows(w http.ResponseWriter, r *http.Request) {
	accountIDKey := chi.URLParam(r, "accountIdKey")
	if accountIDKey == "" {
		h.writeError(w, http.StatusBadRequest, "account key is required")
		return
	}

	start, end, err := dateRange(r, defaultFlowDays)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.service.Flows(accountIDKey, start, end)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountIDKey).Msg("Failed to build cash flow report")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

// dateRange resolves the start/end query parameters. Missing end defaults
// to today; missing start defaults to end minus the handler's window.
func dateRange(r *http.Request, defaultDays int) (string, string, error) {
	q := r.URL.Query()
	start := q.Get("start")
	end := q.Get("end")

	if end == "" {
		end = time.Now().UTC().Format("2006-01-02")
	}
	endT, err := time.Parse("2006-01-02", end)
	if err != nil {
		return "", "", fmt.Errorf("invalid end date (expected YYYY-MM-DD)")
	}

	if start == "" {
		start = endT.AddDate(0, 0, -defaultDays).Format("2006-01-02")
	}
	startT, err := time.Parse("2006-01-02", start)
	if err != nil {
		return "", "", fmt.Errorf("invalid start date (expected YYYY-MM-DD)")
	}

	if endT.Before(startT) {
		return "", "", fmt.Errorf("end date precedes start date")
	}

	return start, end, nil
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
