package domain

import (
	"strings"
	"time"
)

// Identity is a user directory entry used to enrich new subscribers.
type Identity struct {
	Email       string    `json:"email" db:"email"`
	DisplayName string    `json:"display_name" db:"display_name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CreateIdentityRequest is the request body for adding a directory entry.
type CreateIdentityRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// NormalizeEmail is the key used for directory lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
