package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SetSceneState upserts the roleplay scene state payload for a chat.
func (s *Store) SetSceneState(chatID, payload string) error {
	_, err := s.db.Exec(`
		INSERT INTO scene_states (chat_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, chatID, payload, time.Now().UnixMicro())
	return errors.Wrap(err, "upserting scene state")
}

// GetSceneState returns the scene state payload for a chat.
func (s *Store) GetSceneState(chatID string) (string, error) {
	var payload string
	row := s.db.QueryRow(`SELECT payload FROM scene_states WHERE chat_id = ?`, chatID)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", errors.Wrap(ErrNotFound, "chat has no scene state")
		}
		return "", errors.Wrap(err, "scanning scene state")
	}
	return payload, nil
}

// AddMemoryEntry appends an author note or other memory entry to a chat.
func (s *Store) AddMemoryEntry(chatID, role, content string) error {
	_, err := s.db.Exec(`
		INSERT INTO memory_entries (id, chat_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.New().String(), chatID, role, content, time.Now().UnixMicro())
	return errors.Wrap(err, "inserting memory entry")
}

// SaveStylePreset records a style preset payload under a name.
func (s *Store) SaveStylePreset(name, payload string) (string, error) {
	presetID := uuid.New().String()
	_, err := s.db.Exec(`
		INSERT INTO style_presets (id, name, payload, created_at)
		VALUES (?, ?, ?, ?)
	`, presetID, name, payload, time.Now().UnixMicro())
	if err != nil {
		return "", errors.Wrap(err, "inserting style preset")
	}
	return presetID, nil
}

// GetStylePreset returns the most recently saved preset payload by name.
func (s *Store) GetStylePreset(name string) (string, error) {
	var payload string
	row := s.db.QueryRow(`
		SELECT payload FROM style_presets WHERE name = ? ORDER BY created_at DESC LIMIT 1
	`, name)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", errors.Wrap(ErrNotFound, "style preset does not exist")
		}
		return "", errors.Wrap(err, "scanning style preset")
	}
	return payload, nil
}
