package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers transaction and cash flow endpoints.
// Paths are kept flat because other modules add their own routes under
// the same /accounts/{accountIdKey} prefix.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/accounts/{accountIdKey}/transactions", h.HandleGetTransactions)
	r.Get("/accounts/{accountIdKey}/cash-flows", h.HandleGetCashFlows)
}
