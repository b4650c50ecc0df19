package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bcnelson/sendernet-subscriptions/internal/api"
	"github.com/bcnelson/sendernet-subscriptions/internal/api/handler"
	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/metrics"
	"github.com/bcnelson/sendernet-subscriptions/internal/sender"
	"github.com/bcnelson/sendernet-subscriptions/internal/service"
	"github.com/bcnelson/sendernet-subscriptions/internal/storage/memory"
	"github.com/prometheus/client_golang/prometheus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
)

const (
	adminToken = "test-admin-token"
	apiToken   = "sender-token"
)

// testServer creates a test server with in-memory storage and a file-backed provider
type testServer struct {
	handler  http.Handler
	store    *memory.Store
	shimPath string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		store:    memory.New(),
		shimPath: filepath.Join(t.TempDir(), "sender.json"),
	}
	ts.writeShim(t, sender.ShimData{
		Tokens: []string{apiToken},
		Groups: []domain.Group{{ID: "2", Title: "Beta"}, {ID: "1", Title: "Alpha"}},
	})

	logger, _ := logrustest.NewNullLogger()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	client := sender.NewFileShim(ts.shimPath, logger)
	settings := service.NewSettingsService(ts.store, client, logger, m)
	directory := service.NewDirectory(ts.store)

	ts.handler = api.NewRouter(api.Dependencies{
		Settings:      settings,
		Groups:        service.NewGroupResolver(client, logger),
		Subscriptions: service.NewSubscriptionService(settings, client, directory, logger, m),
		Directory:     directory,
		Client:        client,
		AdminToken:    adminToken,
		Gatherer:      reg,
		Logger:        logger,
	})
	return ts
}

func (ts *testServer) writeShim(t *testing.T, data sender.ShimData) {
	t.Helper()
	raw, _ := json.Marshal(data)
	if err := os.WriteFile(ts.shimPath, raw, 0644); err != nil {
		t.Fatalf("write shim: %v", err)
	}
}

func (ts *testServer) request(method, path string, body any, apiKey string) *httptest.ResponseRecorder {
	var reqBody io.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) configure(t *testing.T) {
	t.Helper()
	rr := ts.request("PUT", "/api/v1/settings", domain.UpdateSettingsRequest{
		APIAccessTokens: apiToken,
		UserGroup:       []string{"1"},
	}, adminToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("configure: status %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request("GET", "/health", nil, "")

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}

	var resp map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp["status"] != "ok" {
		t.Errorf("Expected status ok, got %s", resp["status"])
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	// Request without auth header
	rr := ts.request("GET", "/api/v1/settings", nil, "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}

	// Request with invalid token
	rr = ts.request("GET", "/api/v1/settings", nil, "wrong")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}

	// The subscription endpoint is public
	rr = ts.request("POST", "/api/v1/subscriptions", domain.SubscribeRequest{Email: "a@example.com"}, "")
	if rr.Code == http.StatusUnauthorized {
		t.Error("Expected subscriptions to be public")
	}
}

func TestSettingsEndpoints(t *testing.T) {
	ts := newTestServer(t)

	// Defaults before the first save
	rr := ts.request("GET", "/api/v1/settings", nil, adminToken)
	var view domain.SettingsView
	_ = json.Unmarshal(rr.Body.Bytes(), &view)
	if view.Configured || view.APIBaseURL != domain.DefaultBaseURL {
		t.Errorf("Unexpected defaults %+v", view)
	}

	// Rejected token is not saved
	rr = ts.request("PUT", "/api/v1/settings", domain.UpdateSettingsRequest{APIAccessTokens: "nope"}, adminToken)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Invalid API access token.") {
		t.Errorf("Expected invalid token message, got %s", rr.Body.String())
	}

	// Malformed body
	req := httptest.NewRequest("PUT", "/api/v1/settings", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+adminToken)
	bad := httptest.NewRecorder()
	ts.handler.ServeHTTP(bad, req)
	if bad.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed body, got %d", bad.Code)
	}

	ts.configure(t)

	rr = ts.request("GET", "/api/v1/settings", nil, adminToken)
	view = domain.SettingsView{}
	_ = json.Unmarshal(rr.Body.Bytes(), &view)
	if !view.Configured || len(view.UserGroups) != 1 || view.UserGroups[0] != "1" {
		t.Errorf("Unexpected settings %+v", view)
	}
	if strings.Contains(rr.Body.String(), apiToken) {
		t.Error("Token must be masked")
	}
}

func TestGroupOptionsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	// Unsaved credential
	rr := ts.request("POST", "/api/v1/settings/groups", domain.CredentialRequest{APIAccessTokens: apiToken}, adminToken)
	var resp handler.GroupOptionsResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if len(resp.Options) != 2 || resp.Options[0].Title != "Alpha" {
		t.Errorf("Expected sorted options, got %+v", resp.Options)
	}

	// Empty token and nothing saved
	rr = ts.request("POST", "/api/v1/settings/groups", domain.CredentialRequest{}, adminToken)
	resp = handler.GroupOptionsResponse{}
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if len(resp.Options) != 0 || len(resp.Notices) != 0 {
		t.Errorf("Expected empty result, got %+v", resp)
	}

	// Empty token falls back to the saved one
	ts.configure(t)
	rr = ts.request("POST", "/api/v1/settings/groups", domain.CredentialRequest{}, adminToken)
	resp = handler.GroupOptionsResponse{}
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if len(resp.Options) != 2 {
		t.Errorf("Expected saved credential to be used, got %+v", resp)
	}
}

func TestCredentialsCheckEndpoint(t *testing.T) {
	ts := newTestServer(t)

	for token, want := range map[string]bool{apiToken: true, "other": false} {
		rr := ts.request("POST", "/api/v1/credentials/check", domain.CredentialRequest{APIAccessTokens: token}, adminToken)
		var resp handler.CheckResponse
		_ = json.Unmarshal(rr.Body.Bytes(), &resp)
		if rr.Code != http.StatusOK || resp.Valid != want {
			t.Errorf("token %q: expected valid=%v, got %d %+v", token, want, rr.Code, resp)
		}
	}
}

func TestSubscriptionEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.configure(t)

	rr := ts.request("POST", "/api/v1/subscriptions", domain.SubscribeRequest{Email: "a@example.com"}, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp domain.SubscribeResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if len(resp.Notices) != 1 || resp.Notices[0].Message != "a@example.com email is subscribed." {
		t.Errorf("Unexpected notices %+v", resp.Notices)
	}

	rr = ts.request("POST", "/api/v1/subscriptions", domain.SubscribeRequest{Email: "a@example.com"}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"already_exists"`) {
		t.Errorf("Expected already_exists outcome, got %s", rr.Body.String())
	}

	rr = ts.request("POST", "/api/v1/subscriptions", domain.SubscribeRequest{Email: "not-an-email"}, "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestSubscriptionProviderFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.configure(t)

	// The saved token is revoked at the provider.
	ts.writeShim(t, sender.ShimData{Tokens: []string{"rotated"}})

	rr := ts.request("POST", "/api/v1/subscriptions", domain.SubscribeRequest{Email: "a@example.com"}, "")
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("Expected status 502, got %d", rr.Code)
	}
	var resp domain.SubscribeResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if len(resp.Notices) != 1 || resp.Notices[0].Message != service.MsgSubscribeFailed {
		t.Errorf("Expected generic failure notice, got %+v", resp.Notices)
	}
}

func TestSubscriptionNotConfigured(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request("POST", "/api/v1/subscriptions", domain.SubscribeRequest{Email: "a@example.com"}, "")
	if rr.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", rr.Code)
	}
}

func TestDirectoryEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request("POST", "/api/v1/directory", domain.CreateIdentityRequest{Email: " Ann@Example.com ", DisplayName: "Ann Lee"}, adminToken)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = ts.request("POST", "/api/v1/directory", domain.CreateIdentityRequest{Email: "ann@example.com", DisplayName: "Other"}, adminToken)
	if rr.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rr.Code)
	}

	rr = ts.request("GET", "/api/v1/directory", nil, adminToken)
	var identities []domain.Identity
	_ = json.Unmarshal(rr.Body.Bytes(), &identities)
	if len(identities) != 1 || identities[0].DisplayName != "Ann Lee" || identities[0].Email != "ann@example.com" {
		t.Errorf("Unexpected directory %+v", identities)
	}

	// Directory names flow into new subscribers.
	ts.configure(t)
	ts.request("POST", "/api/v1/subscriptions", domain.SubscribeRequest{Email: "ann@example.com"}, "")
	raw, _ := os.ReadFile(ts.shimPath)
	var shim sender.ShimData
	_ = json.Unmarshal(raw, &shim)
	if len(shim.Subscribers) != 1 || shim.Subscribers[0].FirstName != "Ann Lee" || shim.Subscribers[0].LastName != "" {
		t.Errorf("Expected name from directory, got %+v", shim.Subscribers)
	}

	rr = ts.request("DELETE", "/api/v1/directory/ann@example.com", nil, adminToken)
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rr.Code)
	}
	rr = ts.request("DELETE", "/api/v1/directory/ann@example.com", nil, adminToken)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.configure(t)
	ts.request("POST", "/api/v1/subscriptions", domain.SubscribeRequest{Email: "a@example.com"}, "")

	rr := ts.request("GET", "/metrics", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`sendernet_settings_writes_total{result="ok"} 1`,
		`sendernet_subscriptions_total{outcome="created"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %q in metrics output", want)
		}
	}
}
