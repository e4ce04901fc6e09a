package engine

import (
	"math"
	"sync"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/fableloom/fableloom/events"
	"github.com/fableloom/fableloom/store"
)

const systemPrompt = "You are an immersive roleplay assistant. Keep continuity and character consistency."

// Engine orchestrates conversation turns: timeline reads, prompt assembly,
// the streaming provider exchange and the commit of the assistant message.
type Engine struct {
	store     *store.Store
	sink      events.Sink
	completer Completer

	// At most one in-flight turn per (chat, branch).
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink sets the notification sink. Defaults to a sink that discards
// everything.
func WithSink(sink events.Sink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithCompleter replaces the provider transport, e.g. with a fake in tests or
// an alternative regeneration strategy.
func WithCompleter(completer Completer) Option {
	return func(e *Engine) { e.completer = completer }
}

// New creates an Engine over the given store.
func New(s *store.Store, options ...Option) *Engine {
	e := &Engine{
		store:     s,
		sink:      events.NullSink{},
		completer: newHTTPCompleter(),
		inFlight:  make(map[string]struct{}),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Snapshot is the configuration captured by the caller before a turn. Passing
// it explicitly keeps the engine free of process-wide mutable settings.
type Snapshot struct {
	Provider      *store.Provider
	Model         string
	FullLocalMode bool
}

// LoadSnapshot reads the active provider/model selection from the store.
// Returns ErrConfiguration when no selection is set.
func LoadSnapshot(s *store.Store) (*Snapshot, error) {
	settings, err := s.GetSettings()
	if err != nil {
		return nil, err
	}
	if settings.ActiveProviderID == "" || settings.ActiveModel == "" {
		return nil, ErrConfiguration
	}
	provider, err := s.GetProvider(settings.ActiveProviderID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Provider:      provider,
		Model:         settings.ActiveModel,
		FullLocalMode: settings.FullLocalMode,
	}, nil
}

// checkPolicy gates network egress before any provider call.
func (snapshot *Snapshot) checkPolicy() error {
	if snapshot == nil || snapshot.Provider == nil || snapshot.Model == "" {
		return ErrConfiguration
	}
	if snapshot.Provider.FullLocalOnly && !IsLoopbackURL(snapshot.Provider.BaseURL) {
		return errors.Wrap(ErrPolicyViolation, "provider is local-only but base URL is not loopback")
	}
	if snapshot.FullLocalMode && !IsLoopbackURL(snapshot.Provider.BaseURL) {
		return errors.Wrap(ErrPolicyViolation, "full local mode blocks non-loopback provider")
	}
	return nil
}

// resolveBranch maps a chat and optional branch id to a concrete branch. A
// supplied id is returned unchanged; a missing branch surfaces downstream as
// not-found. Otherwise the chat's earliest-created branch is used.
func (e *Engine) resolveBranch(chatID, branchID string) (string, error) {
	if branchID != "" {
		return branchID, nil
	}
	branch, err := e.store.EarliestBranch(chatID)
	if err != nil {
		return "", err
	}
	return branch.ID, nil
}

func (e *Engine) acquireTurn(chatID, branchID string) error {
	key := chatID + "/" + branchID
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.inFlight[key]; ok {
		return errors.Wrapf(ErrTurnInFlight, "branch %s", branchID)
	}
	e.inFlight[key] = struct{}{}
	return nil
}

func (e *Engine) releaseTurn(chatID, branchID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, chatID+"/"+branchID)
}

// RoughTokenCount approximates a token count from the rune count. Not a true
// tokenizer.
func RoughTokenCount(text string) int64 {
	return int64(math.Ceil(float64(utf8.RuneCountInString(text)) / 3.7))
}
