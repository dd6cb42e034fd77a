package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers concentration routes. Paths are kept flat
// because other modules add their own routes under the same
// /accounts/{accountIdKey} prefix.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/accounts/{accountIdKey}/concentration", h.HandleGetConcentration)
	r.Get("/exposures/{symbol}/chain", h.HandleGetExposureChain)
}
