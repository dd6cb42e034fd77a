package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers account and portfolio routes. Paths are kept
// flat because other modules add their own routes under the same
// /accounts/{accountIdKey} prefix.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/accounts", h.HandleListAccounts)
	r.Get("/accounts/{accountIdKey}/balance", h.HandleGetBalance)
	r.Get("/accounts/{accountIdKey}/positions", h.HandleGetPositions)
	r.Get("/accounts/{accountIdKey}/allocations", h.HandleGetAllocations)
}
