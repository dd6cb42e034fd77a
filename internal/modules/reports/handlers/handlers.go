// Package handlers provides the HTTP handler for account summary reports.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/andrew-rosca/etrade-report/internal/modules/reports"
)

// fallbackTopN bounds the concentration table when neither the request nor
// the analysis configuration names a top.
const fallbackTopN = 10

// Handler handles report HTTP requests
type Handler struct {
	service     *reports.Service
	defaultTopN int
	log         zerolog.Logger
}

// NewHandler creates a new reports handler. defaultTopN comes from the
// analysis configuration and bounds the concentration table when the
// request carries no top parameter.
func NewHandler(service *reports.Service, defaultTopN int, log zerolog.Logger) *Handler {
	if defaultTopN <= 0 {
		defaultTopN = fallbackTopN
	}
	return &Handler{
		service:     service,
		defaultTopN: defaultTopN,
		log:         log.With().Str("handler", "reports").Logger(),
	}
}

// HandleGetReport handles GET /api/accounts/{accountIdKey}/report
// Query: top (concentration rows, defaults to the configured top_n).
func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
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

	report, err := h.service.Generate(accountIDKey, topN)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountIDKey).Msg("Failed to generate report")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, report)
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
