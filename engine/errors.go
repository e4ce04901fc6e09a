package engine

import (
	"github.com/pkg/errors"

	"github.com/fableloom/fableloom/store"
)

// Terminal failure kinds for a turn. None are retried by the engine; retry is
// a caller policy wrapping the whole turn.
var (
	// ErrConfiguration: no active provider or model is selected.
	ErrConfiguration = errors.New("no active provider or model selected")
	// ErrPolicyViolation: local-only gating rejected the provider's base URL.
	ErrPolicyViolation = errors.New("local-only policy violation")
	// ErrUpstream: the provider returned a non-success status or the
	// transport failed.
	ErrUpstream = errors.New("upstream provider error")
	// ErrEmptyResponse: the stream completed without producing usable text.
	ErrEmptyResponse = errors.New("provider returned empty streamed content")
	// ErrTurnInFlight: another turn is already running on the same branch.
	ErrTurnInFlight = errors.New("turn already in flight for branch")
	// ErrNotFound: a chat, branch or message referenced by id is missing.
	ErrNotFound = store.ErrNotFound
)
