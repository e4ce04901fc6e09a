package store

import (
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
)

// Provider is a remote completion endpoint profile. The API key is stored
// as given and masked on listing.
type Provider struct {
	ID      string
	Name    string
	BaseURL string
	APIKey  string
	// Optional egress proxy.
	ProxyURL string
	// When set, the provider may only be used with a loopback base URL.
	FullLocalOnly bool
}

// UpsertProvider inserts or updates a provider profile.
func (s *Store) UpsertProvider(provider *Provider) error {
	_, err := s.db.Exec(`
		INSERT INTO providers (id, name, base_url, api_key_cipher, proxy_url, full_local_only)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			base_url = excluded.base_url,
			api_key_cipher = excluded.api_key_cipher,
			proxy_url = excluded.proxy_url,
			full_local_only = excluded.full_local_only
	`, provider.ID, provider.Name, provider.BaseURL, provider.APIKey,
		nullableString(provider.ProxyURL), boolToInt(provider.FullLocalOnly))
	return errors.Wrap(err, "upserting provider")
}

// GetProvider returns the provider with the given id.
func (s *Store) GetProvider(providerID string) (*Provider, error) {
	provider := &Provider{}
	var proxy sql.NullString
	var fullLocalOnly int
	err := s.db.QueryRow(`
		SELECT id, name, base_url, api_key_cipher, proxy_url, full_local_only
		FROM providers
		WHERE id = ?
	`, providerID).Scan(&provider.ID, &provider.Name, &provider.BaseURL,
		&provider.APIKey, &proxy, &fullLocalOnly)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(ErrNotFound, "provider")
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying provider")
	}
	provider.ProxyURL = proxy.String
	provider.FullLocalOnly = fullLocalOnly != 0
	return provider, nil
}

// ListProviders returns all provider profiles ordered by name, with API keys
// masked.
func (s *Store) ListProviders() ([]*Provider, error) {
	rows, err := s.db.Query(`
		SELECT id, name, base_url, api_key_cipher, proxy_url, full_local_only
		FROM providers
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "querying providers")
	}
	defer rows.Close()

	var providers []*Provider
	for rows.Next() {
		provider := &Provider{}
		var proxy sql.NullString
		var fullLocalOnly int
		if err := rows.Scan(&provider.ID, &provider.Name, &provider.BaseURL,
			&provider.APIKey, &proxy, &fullLocalOnly); err != nil {
			return nil, errors.Wrap(err, "scanning provider row")
		}
		provider.ProxyURL = proxy.String
		provider.FullLocalOnly = fullLocalOnly != 0
		provider.APIKey = MaskAPIKey(provider.APIKey)
		providers = append(providers, provider)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating provider rows")
	}
	return providers, nil
}

// DeleteProvider removes a provider profile.
func (s *Store) DeleteProvider(providerID string) error {
	_, err := s.db.Exec(`DELETE FROM providers WHERE id = ?`, providerID)
	return errors.Wrap(err, "deleting provider")
}

// MaskAPIKey hides the middle of an API key for display.
func MaskAPIKey(raw string) string {
	if len(raw) <= 8 {
		return "********"
	}
	return fmt.Sprintf("%s***%s", raw[:4], raw[len(raw)-4:])
}
