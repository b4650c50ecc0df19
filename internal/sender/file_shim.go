package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/validation"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FileShim stands in for sender.net by reading and writing a JSON file.
// It is meant for local development and tests.
type FileShim struct {
	filePath string
	logger   logrus.FieldLogger
	mu       sync.RWMutex
}

// Ensure FileShim implements ProviderClient.
var _ ProviderClient = (*FileShim)(nil)

// ShimData is the on-disk layout of the shim file.
// An empty Tokens list accepts any well-formed token.
type ShimData struct {
	Tokens      []string            `json:"tokens,omitempty"`
	Groups      []domain.Group      `json:"groups"`
	Subscribers []domain.Subscriber `json:"subscribers"`
}

// NewFileShim creates a new file-based shim.
func NewFileShim(filePath string, logger logrus.FieldLogger) *FileShim {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FileShim{filePath: filePath, logger: logger}
}

// CheckAPIKey accepts tokens listed in the file (or any well-formed token when none are listed).
func (f *FileShim) CheckAPIKey(ctx context.Context, cred domain.Credential) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := f.load()
	if err != nil {
		return false, &domain.ProviderError{Op: OpCheckAPIKey, Err: err}
	}
	return data.accepts(cred.Token), nil
}

// ListAllGroups returns the groups stored in the file.
func (f *FileShim) ListAllGroups(ctx context.Context, cred domain.Credential) ([]domain.Group, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := f.authorized(OpListGroups, cred)
	if err != nil {
		return nil, err
	}
	return slices.Clone(data.Groups), nil
}

// GetSubscriberByEmail finds a stored subscriber (case-insensitive).
func (f *FileShim) GetSubscriberByEmail(ctx context.Context, cred domain.Credential, email string) (*domain.Subscriber, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := f.authorized(OpGetSubscriber, cred)
	if err != nil {
		return nil, err
	}
	if i := data.indexOf(email); i >= 0 {
		sub := data.Subscribers[i]
		return &sub, nil
	}
	return nil, nil
}

// CreateSubscriber appends a subscriber to the file. Duplicates are rejected.
func (f *FileShim) CreateSubscriber(ctx context.Context, cred domain.Credential, req *domain.SubscriptionRequest) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.authorized(OpCreateSubscriber, cred)
	if err != nil {
		return false, err
	}
	if data.indexOf(req.Email) >= 0 {
		return false, nil
	}

	data.Subscribers = append(data.Subscribers, domain.Subscriber{
		ID:        uuid.New().String(),
		Email:     strings.TrimSpace(req.Email),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Groups:    slices.Clone(req.Groups),
	})

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return false, &domain.ProviderError{Op: OpCreateSubscriber, Err: fmt.Errorf("marshaling shim file: %w", err)}
	}
	if err := os.WriteFile(f.filePath, raw, 0644); err != nil {
		return false, &domain.ProviderError{Op: OpCreateSubscriber, Err: fmt.Errorf("writing shim file: %w", err)}
	}

	f.logger.WithField("path", f.filePath).Info("[FileShim] Subscriber written")
	return true, nil
}

func (f *FileShim) authorized(op string, cred domain.Credential) (*ShimData, error) {
	data, err := f.load()
	if err != nil {
		return nil, &domain.ProviderError{Op: op, Err: err}
	}
	if !data.accepts(cred.Token) {
		return nil, &domain.ProviderError{Op: op, StatusCode: http.StatusUnauthorized}
	}
	return data, nil
}

func (f *FileShim) load() (*ShimData, error) {
	raw, err := os.ReadFile(f.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &ShimData{}, nil
		}
		return nil, fmt.Errorf("reading shim file: %w", err)
	}

	var data ShimData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing shim file: %w", err)
	}
	return &data, nil
}

func (d *ShimData) accepts(token string) bool {
	token = strings.TrimSpace(token)
	if !validation.WellFormedToken(token) {
		return false
	}
	return len(d.Tokens) == 0 || slices.Contains(d.Tokens, token)
}

func (d *ShimData) indexOf(email string) int {
	email = strings.TrimSpace(email)
	return slices.IndexFunc(d.Subscribers, func(s domain.Subscriber) bool {
		return strings.EqualFold(s.Email, email)
	})
}
