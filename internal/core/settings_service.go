package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Setting keys stored in company_settings.
const (
	SettingAuthorizedRange = "invoice_authorized_range"
	SettingCAI             = "invoice_cai"
	SettingCompanyName     = "company_name"
)

// SettingsService resolves configurable values from the company_settings table.
type SettingsService interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// AuthorizedRange returns the raw range descriptor used for invoice numbering.
	// A non-empty override wins over the stored setting.
	AuthorizedRange(ctx context.Context) (string, error)
}

type settingsService struct {
	pool     *pgxpool.Pool
	override string
}

// NewSettingsService constructs a SettingsService. rangeOverride usually comes
// from configuration and may be empty.
func NewSettingsService(pool *pgxpool.Pool, rangeOverride string) SettingsService {
	return &settingsService{pool: pool, override: rangeOverride}
}

// Get returns ErrNotFound when the key has never been set.
func (s *settingsService) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM company_settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("setting %q: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("failed to read setting %q: %w", key, err)
	}
	return value, nil
}

func (s *settingsService) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO company_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to save setting %q: %w", key, err)
	}
	return nil
}

func (s *settingsService) AuthorizedRange(ctx context.Context) (string, error) {
	if s.override != "" {
		return s.override, nil
	}
	v, err := s.Get(ctx, SettingAuthorizedRange)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}
