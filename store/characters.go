package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Character is an imported character card, stored as raw card JSON.
type Character struct {
	ID                string
	Name              string
	CardJSON          string
	CreationTimestamp int64
}

// UpsertCharacter inserts or updates a character card, returning its id.
func (s *Store) UpsertCharacter(id, name, cardJSON string) (string, error) {
	if id == "" {
		id = uuid.New().String()
	}
	_, err := s.db.Exec(`
		INSERT INTO characters (id, name, card_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, card_json = excluded.card_json
	`, id, name, cardJSON, time.Now().UnixMicro())
	if err != nil {
		return "", errors.Wrap(err, "upserting character")
	}
	return id, nil
}

// GetCharacter returns the character with the given id.
func (s *Store) GetCharacter(characterID string) (*Character, error) {
	character := &Character{}
	err := s.db.QueryRow(`
		SELECT id, name, card_json, created_at
		FROM characters
		WHERE id = ?
	`, characterID).Scan(&character.ID, &character.Name, &character.CardJSON, &character.CreationTimestamp)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(ErrNotFound, "character")
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying character")
	}
	return character, nil
}

// ListCharacters returns all characters, newest first.
func (s *Store) ListCharacters() ([]*Character, error) {
	rows, err := s.db.Query(`
		SELECT id, name, card_json, created_at
		FROM characters
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "querying characters")
	}
	defer rows.Close()

	var characters []*Character
	for rows.Next() {
		character := &Character{}
		if err := rows.Scan(&character.ID, &character.Name, &character.CardJSON, &character.CreationTimestamp); err != nil {
			return nil, errors.Wrap(err, "scanning character row")
		}
		characters = append(characters, character)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating character rows")
	}
	return characters, nil
}
