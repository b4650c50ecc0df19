package sql

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/storage"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// settingsRowID is the primary key of the only settings row.
const settingsRowID = 1

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// wrapUniqueError converts UNIQUE violations to domain.ErrAlreadyExists.
func wrapUniqueError(err error) error {
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Ensure Store implements storage.Storage.
var _ storage.Storage = (*Store)(nil)

// New creates a new SQL store.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Run migrations
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ============================================
// Settings
// ============================================

type settingsRow struct {
	APIAccessTokens string    `db:"api_access_tokens"`
	APIBaseURL      string    `db:"api_base_url"`
	UserGroups      string    `db:"user_groups"`
	Revision        string    `db:"revision"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (s *Store) GetSettings(ctx context.Context) (*domain.Settings, error) {
	var row settingsRow
	err := s.db.GetContext(ctx, &row,
		`SELECT api_access_tokens, api_base_url, user_groups, revision, updated_at
		 FROM provider_settings WHERE id = $1`, settingsRowID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	settings := &domain.Settings{
		APIAccessToken: row.APIAccessTokens,
		APIBaseURL:     row.APIBaseURL,
		Revision:       row.Revision,
		UpdatedAt:      row.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(row.UserGroups), &settings.UserGroups); err != nil {
		return nil, fmt.Errorf("decoding user groups: %w", err)
	}
	if settings.UserGroups == nil {
		settings.UserGroups = []string{}
	}
	return settings, nil
}

// SaveSettings upserts the single settings row so all fields change together.
func (s *Store) SaveSettings(ctx context.Context, settings *domain.Settings) error {
	groups := settings.UserGroups
	if groups == nil {
		groups = []string{}
	}
	groupsJSON, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("encoding user groups: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO provider_settings (id, api_access_tokens, api_base_url, user_groups, revision, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   api_access_tokens = excluded.api_access_tokens,
		   api_base_url = excluded.api_base_url,
		   user_groups = excluded.user_groups,
		   revision = excluded.revision,
		   updated_at = excluded.updated_at`,
		settingsRowID, settings.APIAccessToken, settings.APIBaseURL, string(groupsJSON),
		settings.Revision, settings.UpdatedAt)
	return err
}

// ============================================
// Identities
// ============================================

func (s *Store) CreateIdentity(ctx context.Context, identity *domain.Identity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO directory_users (email, display_name, created_at) VALUES ($1, $2, $3)`,
		domain.NormalizeEmail(identity.Email), identity.DisplayName, identity.CreatedAt)
	return wrapUniqueError(err)
}

func (s *Store) FindIdentityByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	var identity domain.Identity
	err := s.db.GetContext(ctx, &identity,
		`SELECT email, display_name, created_at FROM directory_users WHERE email = $1`,
		domain.NormalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *Store) ListIdentities(ctx context.Context) ([]*domain.Identity, error) {
	var identities []*domain.Identity
	err := s.db.SelectContext(ctx, &identities,
		`SELECT email, display_name, created_at FROM directory_users ORDER BY email`)
	if err != nil {
		return nil, err
	}
	return identities, nil
}

func (s *Store) DeleteIdentity(ctx context.Context, email string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM directory_users WHERE email = $1`, domain.NormalizeEmail(email))
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
