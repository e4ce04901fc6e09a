package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// CreateChat inserts a chat together with its root branch. The two inserts are
// committed atomically so that every chat always has at least one branch.
func (s *Store) CreateChat(title string) (*Chat, *Branch, error) {
	now := time.Now().UnixMicro()
	chat := &Chat{
		ID:                uuid.New().String(),
		Title:             title,
		CreationTimestamp: now,
	}
	branch := &Branch{
		ID:                uuid.New().String(),
		ChatID:            chat.ID,
		Name:              "main",
		CreationTimestamp: now,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO chats (id, title, created_at)
		VALUES (?, ?, ?)
	`, chat.ID, chat.Title, chat.CreationTimestamp)
	if err != nil {
		return nil, nil, errors.Wrap(err, "inserting chat")
	}

	_, err = tx.Exec(`
		INSERT INTO branches (id, chat_id, name, parent_message_id, created_at)
		VALUES (?, ?, ?, NULL, ?)
	`, branch.ID, branch.ChatID, branch.Name, branch.CreationTimestamp)
	if err != nil {
		return nil, nil, errors.Wrap(err, "inserting root branch")
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, errors.Wrap(err, "committing transaction")
	}

	return chat, branch, nil
}
