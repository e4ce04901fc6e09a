package store

import "github.com/pkg/errors"

// ErrNotFound is returned when a chat, branch or message referenced by id does
// not exist. Callers test for it with errors.Is.
var ErrNotFound = errors.New("not found")
