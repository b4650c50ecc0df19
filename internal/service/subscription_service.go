package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/metrics"
	"github.com/bcnelson/sendernet-subscriptions/internal/notify"
	"github.com/bcnelson/sendernet-subscriptions/internal/sender"
	"github.com/bcnelson/sendernet-subscriptions/internal/validation"
	"github.com/sirupsen/logrus"
)

// MsgSubscribeFailed is the only detail a visitor sees when a subscription fails.
const MsgSubscribeFailed = "Unable to subscribe at this time. Please try again later."

// Failure reasons recorded on OutcomeFailed results.
const (
	ReasonNotConfigured    = "provider not configured"
	ReasonSettings         = "settings unavailable"
	ReasonProviderRejected = "provider rejected subscriber"
)

// SettingsReader is the read side of SettingsService.
type SettingsReader interface {
	Read(ctx context.Context) (*domain.Settings, error)
}

// SubscriptionService forwards visitor subscriptions to the provider.
type SubscriptionService struct {
	settings SettingsReader
	client   sender.ProviderClient
	identity IdentityLookup
	logger   logrus.FieldLogger
	metrics  *metrics.Metrics
}

// NewSubscriptionService creates a new SubscriptionService. identity may be nil.
func NewSubscriptionService(settings SettingsReader, client sender.ProviderClient, identity IdentityLookup, logger logrus.FieldLogger, m *metrics.Metrics) *SubscriptionService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SubscriptionService{
		settings: settings,
		client:   client,
		identity: identity,
		logger:   logger,
		metrics:  m,
	}
}

// Subscribe runs one subscription attempt for email. Each provider call is
// made at most once. The returned error is non-nil only for an invalid email;
// every other path produces a result and exactly one notice on ch.
func (s *SubscriptionService) Subscribe(ctx context.Context, email string, ch notify.Channel) (*domain.SubscriptionResult, error) {
	if ch == nil {
		ch = notify.Discard
	}
	email = strings.TrimSpace(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, validation.NewValidationError(validation.FieldEmail, email, err.Error())
	}

	log := s.logger.WithField("email", email)

	// Snapshot; a concurrent write does not affect this attempt.
	settings, err := s.settings.Read(ctx)
	if err != nil {
		log.WithError(err).Error("Unable to read provider settings")
		return s.fail(ch, email, ReasonSettings, err), nil
	}
	if !settings.Configured() {
		log.Error("Subscription attempted before the provider was configured")
		return s.fail(ch, email, ReasonNotConfigured, domain.ErrNotConfigured), nil
	}
	cred := settings.Credential()

	req := &domain.SubscriptionRequest{
		Email:     email,
		FirstName: s.displayName(ctx, log, email),
		LastName:  "",
		Groups:    slices.Clone(settings.UserGroups),
	}

	existing, err := s.client.GetSubscriberByEmail(ctx, cred, email)
	if err != nil {
		log.WithError(err).Error("Unable to look up subscriber")
		return s.fail(ch, email, err.Error(), err), nil
	}
	if existing != nil {
		msg := fmt.Sprintf("Subscriber with email '%s' already exists.", email)
		log.WithField("subscriber_id", existing.ID).Warn(msg)
		ch.Notify(domain.NoticeError, msg)
		s.metrics.IncSubscription(domain.OutcomeAlreadyExists.String())
		return &domain.SubscriptionResult{Outcome: domain.OutcomeAlreadyExists, Email: email}, nil
	}

	ok, err := s.client.CreateSubscriber(ctx, cred, req)
	if err != nil {
		log.WithError(err).Error("Unable to create subscriber")
		return s.fail(ch, email, err.Error(), err), nil
	}
	if !ok {
		log.Error("Provider rejected subscriber")
		return s.fail(ch, email, ReasonProviderRejected, nil), nil
	}

	log.WithField("groups", req.Groups).Info("Subscriber created")
	ch.Notify(domain.NoticeStatus, fmt.Sprintf("%s email is subscribed.", email))
	s.metrics.IncSubscription(domain.OutcomeCreated.String())
	return &domain.SubscriptionResult{Outcome: domain.OutcomeCreated, Email: email}, nil
}

// displayName returns the directory name for email, or "" if there is none.
// Directory errors do not block the subscription.
func (s *SubscriptionService) displayName(ctx context.Context, log logrus.FieldLogger, email string) string {
	if s.identity == nil {
		return ""
	}
	identity, err := s.identity.FindByEmail(ctx, email)
	if err != nil {
		log.WithError(err).Warn("Identity lookup failed")
		return ""
	}
	if identity == nil {
		return ""
	}
	return identity.DisplayName
}

func (s *SubscriptionService) fail(ch notify.Channel, email, reason string, err error) *domain.SubscriptionResult {
	ch.Notify(domain.NoticeError, MsgSubscribeFailed)
	s.metrics.IncSubscription(domain.OutcomeFailed.String())
	return &domain.SubscriptionResult{
		Outcome: domain.OutcomeFailed,
		Email:   email,
		Reason:  reason,
		Err:     err,
	}
}
