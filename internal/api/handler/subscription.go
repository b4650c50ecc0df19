package handler

import (
	"errors"
	"net/http"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/notify"
	"github.com/bcnelson/sendernet-subscriptions/internal/service"
)

// SubscriptionHandler handles the public subscription endpoint.
type SubscriptionHandler struct {
	subscriptions *service.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subscriptions *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

// Create subscribes an email address.
//
//	201 created, 200 already_exists, 502 failed (504 on timeout), 400 invalid email.
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.SubscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	ch := notify.NewCollector()
	result, err := h.subscriptions.Subscribe(r.Context(), req.Email, ch)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, subscriptionStatus(result), &domain.SubscribeResponse{
		Outcome: result.Outcome,
		Email:   result.Email,
		Notices: ch.Notices(),
	})
}

func subscriptionStatus(result *domain.SubscriptionResult) int {
	switch result.Outcome {
	case domain.OutcomeCreated:
		return http.StatusCreated
	case domain.OutcomeAlreadyExists:
		return http.StatusOK
	}
	var pe *domain.ProviderError
	if errors.As(result.Err, &pe) && pe.Timeout() {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
