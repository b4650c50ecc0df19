// Package validation checks operator and visitor input before it reaches
// sender.net. Field names match the form fields so errors can be shown inline.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Field names used in validation errors.
const (
	FieldAPIAccessTokens = "api_access_tokens"
	FieldAPIBaseURL      = "api_base_url"
	FieldUserGroup       = "user_group"
	FieldEmail           = "email"
	FieldDisplayName     = "display_name"
)

// MsgInvalidToken is shown when the provider rejects a credential.
const MsgInvalidToken = "Invalid API access token."

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateEmail validates a subscriber email address.
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("email is required")
	}
	if err := validate.Var(email, "email,max=254"); err != nil {
		return fmt.Errorf("must be a valid email address")
	}
	return nil
}

// ValidateBaseURL validates the provider base URL. Only absolute http(s)
// URLs are accepted.
func ValidateBaseURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("base URL is required")
	}
	if err := validate.Var(raw, "url"); err != nil {
		return fmt.Errorf("must be a valid URL")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("must be a valid URL")
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("must use http or https")
	}
	return nil
}

// WellFormedToken reports whether a token can be sent in an Authorization
// header: non-empty, printable, with no whitespace.
func WellFormedToken(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if r > unicode.MaxASCII || unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// ValidateGroupIDs validates selected group ids.
func ValidateGroupIDs(ids []string) error {
	if err := validate.Var(ids, "dive,required,max=64,printascii"); err != nil {
		return fmt.Errorf("group ids must be non-empty printable identifiers")
	}
	return nil
}

// ValidateSettings validates a settings form submission without contacting the provider.
func ValidateSettings(token, baseURL string, groups []string) ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(token) == "" {
		errs.Add(FieldAPIAccessTokens, "", "API access token is required")
	}
	if err := ValidateBaseURL(baseURL); err != nil {
		errs.Add(FieldAPIBaseURL, baseURL, err.Error())
	}
	if err := ValidateGroupIDs(groups); err != nil {
		errs.Add(FieldUserGroup, strings.Join(groups, ","), err.Error())
	}
	return errs
}

// InvalidToken returns the field error for a rejected credential.
func InvalidToken() *ValidationError {
	return NewValidationError(FieldAPIAccessTokens, "", MsgInvalidToken)
}

// FieldErrors extracts validation errors from err, if any.
func FieldErrors(err error) (ValidationErrors, bool) {
	var many ValidationErrors
	if errors.As(err, &many) {
		return many, true
	}
	var one *ValidationError
	if errors.As(err, &one) {
		return ValidationErrors{one}, true
	}
	return nil, false
}
