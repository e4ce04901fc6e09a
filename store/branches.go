package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// CreateBranch forks a new branch off an existing message. Existing messages
// are never mutated; the fork point is recorded on the new branch row only.
func (s *Store) CreateBranch(chatID, parentMessageID, name string) (*Branch, error) {
	branch := &Branch{
		ID:                uuid.New().String(),
		ChatID:            chatID,
		Name:              name,
		ParentMessageID:   parentMessageID,
		CreationTimestamp: time.Now().UnixMicro(),
	}

	_, err := s.db.Exec(`
		INSERT INTO branches (id, chat_id, name, parent_message_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, branch.ID, branch.ChatID, branch.Name, nullableString(branch.ParentMessageID), branch.CreationTimestamp)
	if err != nil {
		return nil, errors.Wrap(err, "inserting branch")
	}

	return branch, nil
}

// EarliestBranch returns the branch of the given chat with the smallest
// creation timestamp, the root branch by construction.
func (s *Store) EarliestBranch(chatID string) (*Branch, error) {
	branch := &Branch{}
	var parent sql.NullString
	err := s.db.QueryRow(`
		SELECT id, chat_id, name, parent_message_id, created_at
		FROM branches
		WHERE chat_id = ?
		ORDER BY created_at ASC
		LIMIT 1
	`, chatID).Scan(&branch.ID, &branch.ChatID, &branch.Name, &parent, &branch.CreationTimestamp)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(ErrNotFound, "chat has no branches")
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying earliest branch")
	}
	branch.ParentMessageID = parent.String
	return branch, nil
}

// ListBranches returns all branches of a chat in creation order.
func (s *Store) ListBranches(chatID string) ([]*Branch, error) {
	rows, err := s.db.Query(`
		SELECT id, chat_id, name, parent_message_id, created_at
		FROM branches
		WHERE chat_id = ?
		ORDER BY created_at ASC
	`, chatID)
	if err != nil {
		return nil, errors.Wrap(err, "querying branches")
	}
	defer rows.Close()

	var branches []*Branch
	for rows.Next() {
		branch := &Branch{}
		var parent sql.NullString
		if err := rows.Scan(&branch.ID, &branch.ChatID, &branch.Name, &parent, &branch.CreationTimestamp); err != nil {
			return nil, errors.Wrap(err, "scanning branch row")
		}
		branch.ParentMessageID = parent.String
		branches = append(branches, branch)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating branch rows")
	}
	return branches, nil
}

func nullableString(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
