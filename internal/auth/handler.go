package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type tokenResponse struct {
	Token         string `json:"token"`
	SessionID     string `json:"sessionId"`
	Role          Role   `json:"role"`
	ParticipantID string `json:"participantId"`
}

// Refresh returns a new token for the caller with a fresh expiry.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	token, err := h.service.Refresh(claims)
	if err != nil {
		slog.Error("refresh token failed", "error", err, "session", claims.SessionID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:         token,
		SessionID:     claims.SessionID,
		Role:          claims.Role,
		ParticipantID: claims.ParticipantID(),
	})
}

// Me describes the caller's token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId":     claims.SessionID,
		"role":          claims.Role,
		"participantId": claims.ParticipantID(),
		"expiresAt":     claims.ExpiresAt.Time,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
