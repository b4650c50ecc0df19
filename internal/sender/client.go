package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/metrics"
	"github.com/bcnelson/sendernet-subscriptions/internal/validation"
	"github.com/sirupsen/logrus"
)

// Operation names used in errors, logs and metrics.
const (
	OpCheckAPIKey      = "check_api_key"
	OpListGroups       = "list_groups"
	OpGetSubscriber    = "get_subscriber"
	OpCreateSubscriber = "create_subscriber"
)

const (
	maxGroupPages   = 100
	maxResponseBody = 1 << 20
	userAgent       = "sendernet-subscriptions/1.0"
)

// ProviderClient defines the interface for interacting with the email-marketing provider.
// Every call is attempted exactly once.
type ProviderClient interface {
	// CheckAPIKey reports whether the provider accepts the credential.
	// A rejected key is (false, nil); an unreachable provider is an error.
	CheckAPIKey(ctx context.Context, cred domain.Credential) (bool, error)
	// ListAllGroups returns every group visible to the credential.
	ListAllGroups(ctx context.Context, cred domain.Credential) ([]domain.Group, error)
	// GetSubscriberByEmail returns nil (and no error) when the subscriber does not exist.
	GetSubscriberByEmail(ctx context.Context, cred domain.Credential, email string) (*domain.Subscriber, error)
	// CreateSubscriber reports whether the provider accepted the subscriber.
	// It does not deduplicate; callers check existence first.
	CreateSubscriber(ctx context.Context, cred domain.Credential, req *domain.SubscriptionRequest) (bool, error)
}

// Client talks to the sender.net REST API.
type Client struct {
	httpClient     *http.Client
	timeout        time.Duration
	defaultBaseURL string
	logger         logrus.FieldLogger
	metrics        *metrics.Metrics
}

// Ensure Client implements ProviderClient.
var _ ProviderClient = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithDefaultBaseURL sets the base URL used when a credential has none.
func WithDefaultBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.defaultBaseURL = baseURL
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a new sender.net client. timeout bounds every outbound call.
func New(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{},
		timeout:        timeout,
		defaultBaseURL: domain.DefaultBaseURL,
		logger:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckAPIKey performs a lightweight authenticated call against the groups endpoint.
func (c *Client) CheckAPIKey(ctx context.Context, cred domain.Credential) (bool, error) {
	token := strings.TrimSpace(cred.Token)
	if !validation.WellFormedToken(token) {
		return false, nil
	}
	u, err := c.endpoint(cred, url.Values{"limit": {"1"}}, "groups")
	if err != nil {
		c.logger.WithError(err).Debug("Rejecting credential with unusable base URL")
		return false, nil
	}

	status, _, err := c.do(ctx, OpCheckAPIKey, http.MethodGet, u, token, nil)
	if err != nil {
		return false, err
	}

	switch {
	case status >= 200 && status < 300:
		c.metrics.IncProviderRequest(OpCheckAPIKey, "ok")
		return true, nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		c.metrics.IncProviderRequest(OpCheckAPIKey, "rejected")
		return false, nil
	default:
		return false, c.statusError(OpCheckAPIKey, status)
	}
}

type flexID string

// UnmarshalJSON accepts ids encoded as strings or numbers.
func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type groupsResponse struct {
	Data []struct {
		ID    flexID `json:"id"`
		Title string `json:"title"`
	} `json:"data"`
	Meta struct {
		CurrentPage int `json:"current_page"`
		LastPage    int `json:"last_page"`
	} `json:"meta"`
}

// ListAllGroups fetches every page of groups.
func (c *Client) ListAllGroups(ctx context.Context, cred domain.Credential) ([]domain.Group, error) {
	token := strings.TrimSpace(cred.Token)
	groups := []domain.Group{}

	for page := 1; page <= maxGroupPages; page++ {
		u, err := c.endpoint(cred, url.Values{"page": {strconv.Itoa(page)}}, "groups")
		if err != nil {
			return nil, &domain.ProviderError{Op: OpListGroups, Err: err}
		}

		status, body, err := c.do(ctx, OpListGroups, http.MethodGet, u, token, nil)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, c.statusError(OpListGroups, status)
		}

		var resp groupsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			c.metrics.IncProviderRequest(OpListGroups, "error")
			return nil, &domain.ProviderError{Op: OpListGroups, Err: fmt.Errorf("decoding groups: %w", err)}
		}
		for _, g := range resp.Data {
			groups = append(groups, domain.Group{ID: string(g.ID), Title: g.Title})
		}

		if len(resp.Data) == 0 || resp.Meta.LastPage <= page {
			c.metrics.IncProviderRequest(OpListGroups, "ok")
			return groups, nil
		}
	}

	// A partial list would silently drop selectable groups.
	c.metrics.IncProviderRequest(OpListGroups, "error")
	return nil, &domain.ProviderError{
		Op:  OpListGroups,
		Err: fmt.Errorf("more than %d pages of groups", maxGroupPages),
	}
}

type subscriberResponse struct {
	Data struct {
		ID        flexID `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"firstname"`
		LastName  string `json:"lastname"`
	} `json:"data"`
}

// GetSubscriberByEmail looks up a subscriber by email address.
func (c *Client) GetSubscriberByEmail(ctx context.Context, cred domain.Credential, email string) (*domain.Subscriber, error) {
	u, err := c.endpoint(cred, nil, "subscribers", url.PathEscape(strings.TrimSpace(email)))
	if err != nil {
		return nil, &domain.ProviderError{Op: OpGetSubscriber, Err: err}
	}

	status, body, err := c.do(ctx, OpGetSubscriber, http.MethodGet, u, strings.TrimSpace(cred.Token), nil)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		c.metrics.IncProviderRequest(OpGetSubscriber, "not_found")
		return nil, nil
	default:
		return nil, c.statusError(OpGetSubscriber, status)
	}

	var resp subscriberResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.metrics.IncProviderRequest(OpGetSubscriber, "error")
		return nil, &domain.ProviderError{Op: OpGetSubscriber, Err: fmt.Errorf("decoding subscriber: %w", err)}
	}
	if resp.Data.ID == "" {
		c.metrics.IncProviderRequest(OpGetSubscriber, "not_found")
		return nil, nil
	}

	c.metrics.IncProviderRequest(OpGetSubscriber, "ok")
	return &domain.Subscriber{
		ID:        string(resp.Data.ID),
		Email:     resp.Data.Email,
		FirstName: resp.Data.FirstName,
		LastName:  resp.Data.LastName,
	}, nil
}

type createSubscriberBody struct {
	Email             string   `json:"email"`
	FirstName         string   `json:"firstname"`
	LastName          string   `json:"lastname"`
	Groups            []string `json:"groups"`
	TriggerAutomation bool     `json:"trigger_automation"`
}

// CreateSubscriber creates a subscriber tagged with the request's groups.
func (c *Client) CreateSubscriber(ctx context.Context, cred domain.Credential, req *domain.SubscriptionRequest) (bool, error) {
	u, err := c.endpoint(cred, nil, "subscribers")
	if err != nil {
		return false, &domain.ProviderError{Op: OpCreateSubscriber, Err: err}
	}

	groups := req.Groups
	if groups == nil {
		groups = []string{}
	}
	payload, err := json.Marshal(createSubscriberBody{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Groups:    groups,
	})
	if err != nil {
		return false, &domain.ProviderError{Op: OpCreateSubscriber, Err: err}
	}

	status, body, err := c.do(ctx, OpCreateSubscriber, http.MethodPost, u, strings.TrimSpace(cred.Token), payload)
	if err != nil {
		return false, err
	}

	switch {
	case status >= 200 && status < 300:
		var resp struct {
			Success *bool `json:"success"`
		}
		if err := json.Unmarshal(body, &resp); err == nil && resp.Success != nil && !*resp.Success {
			c.metrics.IncProviderRequest(OpCreateSubscriber, "rejected")
			return false, nil
		}
		c.metrics.IncProviderRequest(OpCreateSubscriber, "ok")
		return true, nil
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		c.metrics.IncProviderRequest(OpCreateSubscriber, "rejected")
		c.logger.WithFields(logrus.Fields{
			"operation": OpCreateSubscriber,
			"status":    status,
			"body":      truncate(string(body), 512),
		}).Warn("sender.net rejected subscriber")
		return false, nil
	default:
		return false, c.statusError(OpCreateSubscriber, status)
	}
}

// endpoint builds an absolute URL under the credential's base URL.
func (c *Client) endpoint(cred domain.Credential, query url.Values, elem ...string) (*url.URL, error) {
	raw := strings.TrimSpace(cred.BaseURL)
	if raw == "" {
		raw = c.defaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be an absolute http(s) URL", raw)
	}
	u := base.JoinPath(elem...)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u, nil
}

// do performs a single request and returns the status and (bounded) body.
func (c *Client) do(ctx context.Context, op, method string, u *url.URL, token string, payload []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return 0, nil, &domain.ProviderError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.IncProviderRequest(op, "error")
		return 0, nil, &domain.ProviderError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		c.metrics.IncProviderRequest(op, "error")
		return 0, nil, &domain.ProviderError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	c.logger.WithFields(logrus.Fields{
		"operation": op,
		"method":    method,
		"path":      u.Path,
		"status":    resp.StatusCode,
		"duration":  time.Since(start).String(),
	}).Debug("sender.net request")

	return resp.StatusCode, data, nil
}

func (c *Client) statusError(op string, status int) error {
	c.metrics.IncProviderRequest(op, "error")
	return &domain.ProviderError{Op: op, StatusCode: status}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
