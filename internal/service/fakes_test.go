package service

import (
	"context"
	"strings"
	"sync"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/sender"
)

// fakeProvider is an in-memory sender.net that persists created subscribers.
type fakeProvider struct {
	mu sync.Mutex

	validTokens map[string]bool
	groups      []domain.Group
	subscribers map[string]*domain.Subscriber
	created     []domain.SubscriptionRequest

	checkErr  error
	listErr   error
	getErr    error
	createErr error
	rejectNew bool

	calls map[string]int
}

var _ sender.ProviderClient = (*fakeProvider)(nil)

func newFakeProvider(tokens ...string) *fakeProvider {
	f := &fakeProvider{
		validTokens: map[string]bool{},
		subscribers: map[string]*domain.Subscriber{},
		calls:       map[string]int{},
	}
	for _, t := range tokens {
		f.validTokens[t] = true
	}
	return f
}

func (f *fakeProvider) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeProvider) CheckAPIKey(ctx context.Context, cred domain.Credential) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[sender.OpCheckAPIKey]++
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.validTokens[strings.TrimSpace(cred.Token)], nil
}

func (f *fakeProvider) ListAllGroups(ctx context.Context, cred domain.Credential) ([]domain.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[sender.OpListGroups]++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Group(nil), f.groups...), nil
}

func (f *fakeProvider) GetSubscriberByEmail(ctx context.Context, cred domain.Credential, email string) (*domain.Subscriber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[sender.OpGetSubscriber]++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if sub, ok := f.subscribers[email]; ok {
		c := *sub
		return &c, nil
	}
	return nil, nil
}

func (f *fakeProvider) CreateSubscriber(ctx context.Context, cred domain.Credential, req *domain.SubscriptionRequest) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[sender.OpCreateSubscriber]++
	if f.createErr != nil {
		return false, f.createErr
	}
	if f.rejectNew {
		return false, nil
	}
	f.created = append(f.created, *req)
	f.subscribers[req.Email] = &domain.Subscriber{ID: "sub-" + req.Email, Email: req.Email, FirstName: req.FirstName}
	return true, nil
}

// staticSettings serves fixed settings to SubscriptionService.
type staticSettings struct {
	settings *domain.Settings
	err      error
}

func (s staticSettings) Read(ctx context.Context) (*domain.Settings, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.settings.Clone(), nil
}
