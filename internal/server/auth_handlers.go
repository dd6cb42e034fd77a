package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// AuthHandlers drives the OAuth authorization flow over HTTP. The flow is
// out-of-band: start returns a URL the user visits in a browser, E*TRADE
// displays a verification code there, and verify exchanges that code for an
// access token.
type AuthHandlers struct {
	broker Broker
	log    zerolog.Logger
}

// NewAuthHandlers creates the auth handlers.
func NewAuthHandlers(broker Broker, log zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{
		broker: broker,
		log:    log.With().Str("handler", "auth").Logger(),
	}
}

// RegisterRoutes registers the authorization routes.
func (h *AuthHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/auth/status", h.HandleStatus)
	r.Post("/auth/start", h.HandleStart)
	r.Post("/auth/verify", h.HandleVerify)
	r.Post("/auth/logout", h.HandleLogout)
}

// HandleStatus handles GET /api/auth/status
func (h *AuthHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"authorized": h.broker.IsAuthenticated(),
		"pending":    h.broker.HasPendingAuthorization(),
		"sandbox":    h.broker.Sandbox(),
	})
}

// HandleStart handles POST /api/auth/start
func (h *AuthHandlers) HandleStart(w http.ResponseWriter, r *http.Request) {
	authorizeURL, err := h.broker.StartAuthorization()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to start authorization")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Info().Msg("Authorization started")

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"authorize_url": authorizeURL,
		"message":       "Visit the URL, sign in, and submit the verification code to POST /api/auth/verify",
	})
}

// HandleVerify handles POST /api/auth/verify
func (h *AuthHandlers) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		h.writeError(w, http.StatusBadRequest, "verification code is required")
		return
	}

	if err := h.broker.CompleteAuthorization(code); err != nil {
		h.log.Error().Err(err).Msg("Failed to complete authorization")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Info().Msg("Authorization complete")

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"authorized": true,
	})
}

// HandleLogout handles POST /api/auth/logout
func (h *AuthHandlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.broker.Logout(); err != nil {
		h.log.Error().Err(err).Msg("Failed to log out")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Info().Msg("Logged out")

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"authorized": false,
	})
}

// writeJSON writes a JSON response
func (h *AuthHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (h *AuthHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
