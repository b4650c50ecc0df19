package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/metrics"
	"github.com/bcnelson/sendernet-subscriptions/internal/sender"
	"github.com/bcnelson/sendernet-subscriptions/internal/storage"
	"github.com/bcnelson/sendernet-subscriptions/internal/validation"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SettingsService owns the provider settings. It is the only writer.
type SettingsService struct {
	store   storage.Storage
	client  sender.ProviderClient
	logger  logrus.FieldLogger
	metrics *metrics.Metrics
	now     func() time.Time

	mu sync.Mutex // serializes Write
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(store storage.Storage, client sender.ProviderClient, logger logrus.FieldLogger, m *metrics.Metrics) *SettingsService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SettingsService{
		store:   store,
		client:  client,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Read returns the current settings, or the defaults if none were saved.
func (s *SettingsService) Read(ctx context.Context) (*domain.Settings, error) {
	settings, err := s.store.GetSettings(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return nil, err
	}
	if settings.APIBaseURL == "" {
		settings.APIBaseURL = domain.DefaultBaseURL
	}
	return settings, nil
}

// Credential returns the credential from the current settings.
func (s *SettingsService) Credential(ctx context.Context) (domain.Credential, error) {
	settings, err := s.Read(ctx)
	if err != nil {
		return domain.Credential{}, err
	}
	return settings.Credential(), nil
}

// Write validates the candidate settings and replaces the stored ones.
// Nothing is persisted unless the provider accepts the credential.
// Returns validation.ValidationErrors for bad input and a
// *domain.ProviderError when the provider cannot be reached.
func (s *SettingsService) Write(ctx context.Context, req *domain.UpdateSettingsRequest) (*domain.Settings, error) {
	candidate := &domain.Settings{
		APIAccessToken: strings.TrimSpace(req.APIAccessTokens),
		APIBaseURL:     strings.TrimSpace(req.APIBaseURL),
		UserGroups:     normalizeGroups(req.UserGroup),
	}
	if candidate.APIBaseURL == "" {
		candidate.APIBaseURL = domain.DefaultBaseURL
	}

	if errs := validation.ValidateSettings(candidate.APIAccessToken, candidate.APIBaseURL, candidate.UserGroups); errs.HasErrors() {
		s.metrics.IncSettingsWrite("invalid")
		return nil, errs
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.client.CheckAPIKey(ctx, candidate.Credential())
	if err != nil {
		s.metrics.IncSettingsWrite("provider_error")
		s.logger.WithError(err).Error("Unable to verify API access token")
		return nil, err
	}
	if !ok {
		s.metrics.IncSettingsWrite("invalid")
		s.logger.WithField("token_prefix", domain.MaskToken(candidate.APIAccessToken)).Warn("Rejected settings with invalid API access token")
		return nil, validation.ValidationErrors{validation.InvalidToken()}
	}

	candidate.Revision = uuid.New().String()
	candidate.UpdatedAt = s.now().UTC()
	if err := s.store.SaveSettings(ctx, candidate); err != nil {
		s.metrics.IncSettingsWrite("error")
		return nil, err
	}

	s.metrics.IncSettingsWrite("ok")
	s.logger.WithFields(logrus.Fields{
		"revision": candidate.Revision,
		"groups":   len(candidate.UserGroups),
	}).Info("Provider settings saved")
	return candidate.Clone(), nil
}

// normalizeGroups trims ids, drops blanks and keeps the first occurrence of each.
func normalizeGroups(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
