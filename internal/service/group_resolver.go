package service

import (
	"context"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/notify"
	"github.com/bcnelson/sendernet-subscriptions/internal/sender"
	"github.com/sirupsen/logrus"
)

// Operator notices for group loading problems.
const (
	MsgGroupsUnavailable   = "Unable to load groups. Please check your API access token and try again."
	MsgProviderUnreachable = "Unable to reach sender.net to verify the API access token. Please try again later."
)

// GroupResolver turns a candidate credential into group options for the settings form.
// It never fails; provider problems degrade to an empty option list.
type GroupResolver struct {
	client sender.ProviderClient
	logger logrus.FieldLogger
}

// NewGroupResolver creates a new GroupResolver.
func NewGroupResolver(client sender.ProviderClient, logger logrus.FieldLogger) *GroupResolver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &GroupResolver{client: client, logger: logger}
}

// Resolve returns the groups visible to cred sorted by title. The credential
// does not have to be saved. An unreachable provider and listing failures
// are reported on ch; a rejected credential is not.
func (r *GroupResolver) Resolve(ctx context.Context, cred domain.Credential, ch notify.Channel) domain.GroupOptions {
	if ch == nil {
		ch = notify.Discard
	}
	if cred.Empty() {
		return domain.GroupOptions{}
	}

	ok, err := r.client.CheckAPIKey(ctx, cred)
	if err != nil {
		ch.Notify(domain.NoticeWarning, MsgProviderUnreachable)
		r.logger.WithError(err).Warn("Unable to verify API access token while loading groups")
		return domain.GroupOptions{}
	}
	if !ok {
		return domain.GroupOptions{}
	}

	groups, err := r.client.ListAllGroups(ctx, cred)
	if err != nil {
		ch.Notify(domain.NoticeError, MsgGroupsUnavailable)
		r.logger.WithError(err).Errorf("Error loading groups: %v", err)
		return domain.GroupOptions{}
	}
	return domain.NewGroupOptions(groups)
}
