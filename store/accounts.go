package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// CreateAccount creates an account with a hashed password and optional
// recovery key, returning the account id.
func (s *Store) CreateAccount(password, recoveryKey string) (string, error) {
	accountID := uuid.New().String()
	_, err := s.db.Exec(`
		INSERT INTO accounts (id, password_hash, recovery_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, accountID, HashSecret(password), nullableSecret(recoveryKey), time.Now().UnixMicro())
	if err != nil {
		return "", errors.Wrap(err, "inserting account")
	}
	return accountID, nil
}

// UnlockAccount checks the given password or recovery key against the most
// recently created account.
func (s *Store) UnlockAccount(password, recoveryKey string) (bool, error) {
	var passwordHash string
	var recoveryHash sql.NullString
	err := s.db.QueryRow(`
		SELECT password_hash, recovery_hash
		FROM accounts
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&passwordHash, &recoveryHash)
	if err == sql.ErrNoRows {
		return false, errors.Wrap(ErrNotFound, "account")
	}
	if err != nil {
		return false, errors.Wrap(err, "querying account")
	}

	if passwordHash == HashSecret(password) {
		return true, nil
	}
	if recoveryHash.Valid && recoveryKey != "" && recoveryHash.String == HashSecret(recoveryKey) {
		return true, nil
	}
	return false, nil
}

// RotateRecoveryKey replaces the recovery key of the most recently created
// account.
func (s *Store) RotateRecoveryKey(newRecoveryKey string) error {
	_, err := s.db.Exec(`
		UPDATE accounts SET recovery_hash = ?
		WHERE id = (SELECT id FROM accounts ORDER BY created_at DESC LIMIT 1)
	`, HashSecret(newRecoveryKey))
	return errors.Wrap(err, "rotating recovery key")
}

// HashSecret returns the hex-encoded sha256 of a secret.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func nullableSecret(secret string) interface{} {
	if secret == "" {
		return nil
	}
	return HashSecret(secret)
}
