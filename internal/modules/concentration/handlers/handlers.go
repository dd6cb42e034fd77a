// Package handlers provides HTTP handlers for concentration exposure views.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/andrew-rosca/etrade-report/internal/modules/concentration"
	"github.com/andrew-rosca/etrade-report/internal/modules/portfolio"
)

// fallbackTopN limits concentration output when neither the request nor the
// analysis configuration names a top.
const fallbackTopN = 10

// Handler handles concentration HTTP requests
type Handler struct {
	portfolio     *portfolio.Service
	concentration *concentration.Service
	defaultTopN   int
	log           zerolog.Logger
}

// NewHandler creates a new concentration handler. defaultTopN comes from the
// analysis configuration.
func NewHandler(portfolioSvc *portfolio.Service, concentrationSvc *concentration.Service, defaultTopN int, log zerolog.Logger) *Handler {
	if defaultTopN <= 0 {
		defaultTopN = fallbackTopN
	}
	return &Handler{
		portfolio:     portfolioSvc,
		concentration: concentrationSvc,
		defaultTopN:   defaultTopN,
		log:           log.With().Str("handler", "concentration").Logger(),
	}
}

// HandleGetConcentration handles GET /api/accounts/{accountIdKey}/concentration?top=N
func (h *Handler) HandleGetConcentration(w http.ResponseWriter, r *http.Request) {
	accountIDKey := chi.URLParam(r, "accountIdKey")
	if accountIDKey == "" {
		h.writeError(w, http.StatusBadRequest, "account key is required")
		return
	}

	topN := h.defaultTopN
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "top must be a positive integer")
			return
		}
		topN = n
	}

	view, err := h.portfolio.View(accountIDKey)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountIDKey).Msg("Failed to get portfolio view")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	entries := h.concentration.Analyze(view.Positions, view.Totals.TotalValue, topN)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"account_id_key": view.AccountIDKey,
		"concentration":  entries,
		"total_value":    view.Totals.TotalValue,
		"fetched_at":     view.FetchedAt,
		"stale":          view.Stale,
	})
}

// HandleGetExposureChain handles GET /api/exposures/{symbol}/chain. The
// symbol is passed through unchanged: graph keys are case-sensitive, so
// rewriting the case here would make mixed-case mappings unreachable.
func (h *Handler) HandleGetExposureChain(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(chi.URLParam(r, "symbol"))
	if symbol == "" {
		h.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	chain := h.concentration.Chain(symbol)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"chain":  chain,
	})
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
