package store

import (
	"database/sql"

	"github.com/pkg/errors"
)

// GetChat returns the chat with the given id.
func (s *Store) GetChat(chatID string) (*Chat, error) {
	chat := &Chat{}
	err := s.db.QueryRow(`
		SELECT id, title, created_at
		FROM chats
		WHERE id = ?
	`, chatID).Scan(&chat.ID, &chat.Title, &chat.CreationTimestamp)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(ErrNotFound, "chat")
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying chat")
	}
	return chat, nil
}

// ListChats returns all chats, newest first.
func (s *Store) ListChats() ([]*Chat, error) {
	rows, err := s.db.Query(`
		SELECT id, title, created_at
		FROM chats
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "querying chats")
	}
	defer rows.Close()

	var chats []*Chat
	for rows.Next() {
		chat := &Chat{}
		if err := rows.Scan(&chat.ID, &chat.Title, &chat.CreationTimestamp); err != nil {
			return nil, errors.Wrap(err, "scanning chat row")
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating chat rows")
	}
	return chats, nil
}

// UpdateChatTitle renames a chat.
func (s *Store) UpdateChatTitle(chatID, title string) error {
	_, err := s.db.Exec(`UPDATE chats SET title = ? WHERE id = ?`, title, chatID)
	return errors.Wrap(err, "updating chat title")
}
