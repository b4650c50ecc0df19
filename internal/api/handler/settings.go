package handler

import (
	"net/http"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/notify"
	"github.com/bcnelson/sendernet-subscriptions/internal/service"
)

// SettingsHandler handles provider settings endpoints.
type SettingsHandler struct {
	settings *service.SettingsService
	groups   *service.GroupResolver
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settings *service.SettingsService, groups *service.GroupResolver) *SettingsHandler {
	return &SettingsHandler{settings: settings, groups: groups}
}

// Get returns the current settings with the token masked.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Read(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settings.View())
}

// Update replaces the settings after validating the credential.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateSettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	settings, err := h.settings.Write(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settings.View())
}

// GroupOptionsResponse is returned by the group options endpoint.
type GroupOptionsResponse struct {
	Options domain.GroupOptions `json:"options"`
	Notices []domain.Notice     `json:"notices"`
}

// Groups resolves group options for a candidate credential. An empty token
// falls back to the saved credential.
func (h *SettingsHandler) Groups(w http.ResponseWriter, r *http.Request) {
	var req domain.CredentialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	cred := req.Credential()
	if cred.Empty() {
		saved, err := h.settings.Credential(r.Context())
		if err != nil {
			handleError(w, err)
			return
		}
		cred = saved
	}

	ch := notify.NewCollector()
	options := h.groups.Resolve(r.Context(), cred, ch)
	respondJSON(w, http.StatusOK, &GroupOptionsResponse{Options: options, Notices: ch.Notices()})
}
