package sender

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
)

func writeShim(t *testing.T, data ShimData) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sender.json")
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestFileShimCheckAPIKey(t *testing.T) {
	ctx := context.Background()

	t.Run("listed tokens", func(t *testing.T) {
		shim := NewFileShim(writeShim(t, ShimData{Tokens: []string{"tok-1"}}), nil)
		if ok, err := shim.CheckAPIKey(ctx, domain.Credential{Token: "tok-1"}); err != nil || !ok {
			t.Errorf("Expected tok-1 accepted, got %v, %v", ok, err)
		}
		if ok, err := shim.CheckAPIKey(ctx, domain.Credential{Token: "tok-2"}); err != nil || ok {
			t.Errorf("Expected tok-2 rejected, got %v, %v", ok, err)
		}
	})

	t.Run("missing file accepts well-formed tokens", func(t *testing.T) {
		shim := NewFileShim(filepath.Join(t.TempDir(), "absent.json"), nil)
		if ok, _ := shim.CheckAPIKey(ctx, domain.Credential{Token: "anything"}); !ok {
			t.Error("Expected any token accepted")
		}
		if ok, _ := shim.CheckAPIKey(ctx, domain.Credential{Token: " "}); ok {
			t.Error("Expected blank token rejected")
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		_ = os.WriteFile(path, []byte("{"), 0644)
		shim := NewFileShim(path, nil)
		if _, err := shim.CheckAPIKey(ctx, domain.Credential{Token: "tok"}); !domain.IsProviderError(err) {
			t.Errorf("Expected ProviderError, got %v", err)
		}
	})
}

func TestFileShimGroupsRequireAcceptedToken(t *testing.T) {
	shim := NewFileShim(writeShim(t, ShimData{
		Tokens: []string{"tok-1"},
		Groups: []domain.Group{{ID: "g1", Title: "News"}},
	}), nil)

	groups, err := shim.ListAllGroups(context.Background(), domain.Credential{Token: "tok-1"})
	if err != nil || len(groups) != 1 || groups[0].ID != "g1" {
		t.Fatalf("Unexpected result %v, %v", groups, err)
	}

	_, err = shim.ListAllGroups(context.Background(), domain.Credential{Token: "other"})
	var pe *domain.ProviderError
	if !errors.As(err, &pe) || pe.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Expected 401 ProviderError, got %v", err)
	}
}

func TestFileShimSubscribers(t *testing.T) {
	path := writeShim(t, ShimData{})
	shim := NewFileShim(path, nil)
	ctx := context.Background()
	cred := domain.Credential{Token: "tok"}

	sub, err := shim.GetSubscriberByEmail(ctx, cred, "a@example.com")
	if err != nil || sub != nil {
		t.Fatalf("Expected no subscriber, got %v, %v", sub, err)
	}

	ok, err := shim.CreateSubscriber(ctx, cred, &domain.SubscriptionRequest{
		Email: "a@example.com", FirstName: "Alice", Groups: []string{"g1"},
	})
	if err != nil || !ok {
		t.Fatalf("Expected created, got %v, %v", ok, err)
	}

	sub, err = shim.GetSubscriberByEmail(ctx, cred, "A@Example.com")
	if err != nil || sub == nil {
		t.Fatalf("Expected subscriber, got %v, %v", sub, err)
	}
	if sub.ID == "" || sub.FirstName != "Alice" || len(sub.Groups) != 1 {
		t.Errorf("Unexpected subscriber %+v", sub)
	}

	ok, err = shim.CreateSubscriber(ctx, cred, &domain.SubscriptionRequest{Email: "a@example.com"})
	if err != nil || ok {
		t.Errorf("Expected duplicate rejected, got %v, %v", ok, err)
	}

	// Persisted across instances.
	again := NewFileShim(path, nil)
	if sub, _ := again.GetSubscriberByEmail(ctx, cred, "a@example.com"); sub == nil {
		t.Error("Expected subscriber to be persisted")
	}
}
