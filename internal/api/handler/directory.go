package handler

import (
	"net/http"
	"net/url"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/service"
	"github.com/go-chi/chi/v5"
)

// DirectoryHandler manages the identity directory used to name new subscribers.
type DirectoryHandler struct {
	directory *service.Directory
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(directory *service.Directory) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// List returns all directory entries.
func (h *DirectoryHandler) List(w http.ResponseWriter, r *http.Request) {
	identities, err := h.directory.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	if identities == nil {
		identities = []*domain.Identity{}
	}
	respondJSON(w, http.StatusOK, identities)
}

// Create adds a directory entry.
func (h *DirectoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateIdentityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	identity, err := h.directory.Create(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, identity)
}

// Delete removes a directory entry.
func (h *DirectoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		handleError(w, domain.ErrInvalidInput)
		return
	}
	if err := h.directory.Delete(r.Context(), email); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
