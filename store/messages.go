package store

import (
	"database/sql"

	"github.com/pkg/errors"
)

// InsertMessage appends a message to a branch timeline.
func (s *Store) InsertMessage(message *Message) error {
	_, err := s.db.Exec(`
		INSERT INTO messages (id, chat_id, branch_id, role, content, token_count, parent_id, deleted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)
	`, message.ID, message.ChatID, message.BranchID, message.Role, message.Content,
		message.TokenCount, nullableString(message.ParentID), message.CreationTimestamp)
	return errors.Wrap(err, "inserting message")
}

// UpdateMessage edits a message's content and token count in place.
func (s *Store) UpdateMessage(messageID, content string, tokenCount int64) error {
	_, err := s.db.Exec(`
		UPDATE messages SET content = ?, token_count = ? WHERE id = ?
	`, content, tokenCount, messageID)
	return errors.Wrap(err, "updating message")
}

// SoftDeleteMessage marks a message deleted. The row is retained for audit;
// timeline reads exclude it.
func (s *Store) SoftDeleteMessage(messageID string) error {
	_, err := s.db.Exec(`UPDATE messages SET deleted = 1 WHERE id = ?`, messageID)
	return errors.Wrap(err, "soft-deleting message")
}

// Timeline returns the non-deleted messages of a (chat, branch) pair in
// creation order.
func (s *Store) Timeline(chatID, branchID string) ([]*Message, error) {
	rows, err := s.db.Query(`
		SELECT id, chat_id, branch_id, role, content, token_count, parent_id, created_at
		FROM messages
		WHERE chat_id = ? AND branch_id = ? AND deleted = 0
		ORDER BY created_at ASC
	`, chatID, branchID)
	if err != nil {
		return nil, errors.Wrap(err, "querying timeline")
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		message := &Message{}
		var parent sql.NullString
		if err := rows.Scan(&message.ID, &message.ChatID, &message.BranchID, &message.Role,
			&message.Content, &message.TokenCount, &parent, &message.CreationTimestamp); err != nil {
			return nil, errors.Wrap(err, "scanning message row")
		}
		message.ParentID = parent.String
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating message rows")
	}
	return messages, nil
}

// LastUserMessage returns the most recent non-deleted user message on a
// branch, or ErrNotFound if the branch has none.
func (s *Store) LastUserMessage(chatID, branchID string) (*Message, error) {
	message := &Message{}
	var parent sql.NullString
	err := s.db.QueryRow(`
		SELECT id, chat_id, branch_id, role, content, token_count, parent_id, created_at
		FROM messages
		WHERE chat_id = ? AND branch_id = ? AND role = ? AND deleted = 0
		ORDER BY created_at DESC
		LIMIT 1
	`, chatID, branchID, UserRole).Scan(&message.ID, &message.ChatID, &message.BranchID,
		&message.Role, &message.Content, &message.TokenCount, &parent, &message.CreationTimestamp)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(ErrNotFound, "user message")
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying last user message")
	}
	message.ParentID = parent.String
	return message, nil
}
