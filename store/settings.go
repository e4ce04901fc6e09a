package store

import (
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"
)

// Settings is the singleton application settings row, stored as a JSON
// payload.
type Settings struct {
	Theme            string  `json:"theme"`
	FontScale        float64 `json:"fontScale"`
	Density          string  `json:"density"`
	CensorshipMode   string  `json:"censorshipMode"`
	FullLocalMode    bool    `json:"fullLocalMode"`
	ResponseLanguage string  `json:"responseLanguage"`
	ActiveProviderID string  `json:"activeProviderId,omitempty"`
	ActiveModel      string  `json:"activeModel,omitempty"`
}

// DefaultSettings returns the settings written on first use.
func DefaultSettings() *Settings {
	return &Settings{
		Theme:            "dark",
		FontScale:        1.0,
		Density:          "comfortable",
		CensorshipMode:   "Unfiltered",
		ResponseLanguage: "English",
	}
}

// GetSettings reads the settings row, initializing it with defaults when
// absent.
func (s *Store) GetSettings() (*Settings, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM settings WHERE id = 1`).Scan(&payload)
	if err == sql.ErrNoRows {
		settings := DefaultSettings()
		if err := s.WriteSettings(settings); err != nil {
			return nil, err
		}
		return settings, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying settings")
	}

	settings := &Settings{}
	if err := json.Unmarshal([]byte(payload), settings); err != nil {
		return nil, errors.Wrap(err, "unmarshaling settings")
	}
	return settings, nil
}

// WriteSettings replaces the settings row.
func (s *Store) WriteSettings(settings *Settings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "marshaling settings")
	}
	_, err = s.db.Exec(`
		INSERT INTO settings (id, payload) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload
	`, string(payload))
	return errors.Wrap(err, "writing settings")
}

// SetActiveSelection records the active provider and model used by subsequent
// turns.
func (s *Store) SetActiveSelection(providerID, modelID string) (*Settings, error) {
	if _, err := s.GetProvider(providerID); err != nil {
		return nil, err
	}
	settings, err := s.GetSettings()
	if err != nil {
		return nil, err
	}
	settings.ActiveProviderID = providerID
	settings.ActiveModel = modelID
	if err := s.WriteSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}
