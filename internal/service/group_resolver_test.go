package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/notify"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validCred = domain.Credential{Token: "valid-token", BaseURL: domain.DefaultBaseURL}

func TestResolveSortsByTitle(t *testing.T) {
	provider := newFakeProvider("valid-token")
	provider.groups = []domain.Group{{ID: "7", Title: "Promotions"}, {ID: "12", Title: "Newsletter"}}
	logger, hook := logrustest.NewNullLogger()
	ch := notify.NewCollector()

	opts := NewGroupResolver(provider, logger).Resolve(context.Background(), validCred, ch)

	assert.Equal(t, domain.GroupOptions{{ID: "12", Title: "Newsletter"}, {ID: "7", Title: "Promotions"}}, opts)
	assert.Equal(t, map[string]string{"12": "Newsletter", "7": "Promotions"}, opts.Map())
	assert.Zero(t, ch.Len())
	assert.Empty(t, hook.AllEntries())
}

func TestResolveEmptyOrInvalidCredential(t *testing.T) {
	provider := newFakeProvider("valid-token")
	provider.groups = []domain.Group{{ID: "1", Title: "A"}}
	logger, hook := logrustest.NewNullLogger()
	r := NewGroupResolver(provider, logger)
	ch := notify.NewCollector()

	for _, cred := range []domain.Credential{{}, {Token: "  "}, {Token: "revoked"}} {
		opts := r.Resolve(context.Background(), cred, ch)
		assert.NotNil(t, opts)
		assert.Empty(t, opts)
	}
	assert.Zero(t, ch.Len())
	assert.Empty(t, hook.AllEntries())
	assert.Zero(t, provider.count("list_groups"))
}

func TestResolveListingFailure(t *testing.T) {
	provider := newFakeProvider("valid-token")
	provider.listErr = &domain.ProviderError{Op: "list_groups", Err: fmt.Errorf("request: %w", context.DeadlineExceeded)}
	logger, hook := logrustest.NewNullLogger()
	ch := notify.NewCollector()

	opts := NewGroupResolver(provider, logger).Resolve(context.Background(), validCred, ch)

	assert.Empty(t, opts)
	require.Equal(t, 1, ch.Len())
	assert.Equal(t, domain.Notice{Level: domain.NoticeError, Message: MsgGroupsUnavailable}, ch.Notices()[0])

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Contains(t, entry.Message, "deadline exceeded")
	assert.True(t, errors.Is(entry.Data[logrus.ErrorKey].(error), context.DeadlineExceeded))
}

func TestResolveCheckFailureWarnsOperator(t *testing.T) {
	provider := newFakeProvider("valid-token")
	provider.checkErr = &domain.ProviderError{Op: "check_api_key", Err: errors.New("connection refused")}
	logger, hook := logrustest.NewNullLogger()
	ch := notify.NewCollector()

	opts := NewGroupResolver(provider, logger).Resolve(context.Background(), validCred, ch)

	assert.Empty(t, opts)
	require.Equal(t, 1, ch.Len())
	assert.Equal(t, domain.Notice{Level: domain.NoticeWarning, Message: MsgProviderUnreachable}, ch.Notices()[0])
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Zero(t, provider.count("list_groups"))
}
