package handler

import (
	"net/http"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/sender"
)

// CredentialsHandler checks candidate credentials without saving them.
type CredentialsHandler struct {
	client sender.ProviderClient
}

// NewCredentialsHandler creates a new CredentialsHandler.
func NewCredentialsHandler(client sender.ProviderClient) *CredentialsHandler {
	return &CredentialsHandler{client: client}
}

// CheckResponse reports whether the provider accepted a credential.
type CheckResponse struct {
	Valid bool `json:"valid"`
}

// Check asks the provider whether it accepts the posted credential.
func (h *CredentialsHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req domain.CredentialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	ok, err := h.client.CheckAPIKey(r.Context(), req.Credential())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, &CheckResponse{Valid: ok})
}
