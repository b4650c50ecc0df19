package domain

import (
	"slices"
	"strings"
	"time"
)

// DefaultBaseURL is the sender.net REST API root.
const DefaultBaseURL = "https://api.sender.net/v2/"

// Credential is everything needed to authenticate against the provider.
// An empty BaseURL means DefaultBaseURL.
type Credential struct {
	Token   string
	BaseURL string
}

// Empty reports whether no token is set.
func (c Credential) Empty() bool {
	return strings.TrimSpace(c.Token) == ""
}

// Settings holds the provider configuration for the deployment.
// There is a single instance; it is replaced as a whole on every write.
type Settings struct {
	APIAccessToken string    `json:"api_access_tokens" db:"api_access_tokens"`
	APIBaseURL     string    `json:"api_base_url" db:"api_base_url"`
	UserGroups     []string  `json:"user_group" db:"-"` // Stored as a JSON column
	Revision       string    `json:"revision" db:"revision"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultSettings returns the settings in effect before the first write.
func DefaultSettings() *Settings {
	return &Settings{
		APIBaseURL: DefaultBaseURL,
		UserGroups: []string{},
	}
}

// Credential returns the credential described by these settings.
func (s *Settings) Credential() Credential {
	return Credential{Token: s.APIAccessToken, BaseURL: s.APIBaseURL}
}

// Configured reports whether a token has been stored.
func (s *Settings) Configured() bool {
	return strings.TrimSpace(s.APIAccessToken) != ""
}

// Clone returns a deep copy so callers never share the group slice.
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}
	c := *s
	c.UserGroups = slices.Clone(s.UserGroups)
	if c.UserGroups == nil {
		c.UserGroups = []string{}
	}
	return &c
}

// View returns the representation that is safe to expose over the API.
func (s *Settings) View() *SettingsView {
	return &SettingsView{
		TokenPrefix: MaskToken(s.APIAccessToken),
		Configured:  s.Configured(),
		APIBaseURL:  s.APIBaseURL,
		UserGroups:  slices.Clone(s.UserGroups),
		Revision:    s.Revision,
		UpdatedAt:   s.UpdatedAt,
	}
}

// SettingsView is the settings as returned by the API (token masked).
type SettingsView struct {
	TokenPrefix string    `json:"api_access_tokens_prefix,omitempty"`
	Configured  bool      `json:"configured"`
	APIBaseURL  string    `json:"api_base_url"`
	UserGroups  []string  `json:"user_group"`
	Revision    string    `json:"revision,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// UpdateSettingsRequest is the request body for replacing the settings.
type UpdateSettingsRequest struct {
	APIAccessTokens string   `json:"api_access_tokens"`
	APIBaseURL      string   `json:"api_base_url"`
	UserGroup       []string `json:"user_group"`
}

// CredentialRequest carries a candidate credential that has not been saved.
type CredentialRequest struct {
	APIAccessTokens string `json:"api_access_tokens"`
	APIBaseURL      string `json:"api_base_url"`
}

// Credential converts the request into a Credential.
func (r *CredentialRequest) Credential() Credential {
	return Credential{Token: strings.TrimSpace(r.APIAccessTokens), BaseURL: strings.TrimSpace(r.APIBaseURL)}
}

// MaskToken returns the first few characters of a token for display and logs.
func MaskToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "****"
	}
	return token[:6] + "…"
}
