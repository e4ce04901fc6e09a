package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fableloom/fableloom/events"
	"github.com/fableloom/fableloom/store"
)

// SendRequest is one user-message-in, assistant-message-out exchange.
type SendRequest struct {
	ChatID  string
	Content string
	// Optional; the chat's root branch when empty.
	BranchID string
	// Optional system blocks inserted after the base system prompt, in
	// order: persona descriptions, lorebook content.
	SystemExtras []string
}

// Send runs a full turn: persist the user message, build the prompt context,
// stream the provider response and commit the assistant message. The user
// message is persisted before any network activity and is never rolled back
// on downstream failure. Returns the refreshed timeline.
func (e *Engine) Send(ctx context.Context, snapshot *Snapshot, request *SendRequest) ([]*store.Message, error) {
	branchID, err := e.resolveBranch(request.ChatID, request.BranchID)
	if err != nil {
		return nil, err
	}
	if err := e.acquireTurn(request.ChatID, branchID); err != nil {
		return nil, err
	}
	defer e.releaseTurn(request.ChatID, branchID)

	userMessage := &store.Message{
		ID:                uuid.New().String(),
		ChatID:            request.ChatID,
		BranchID:          branchID,
		Role:              store.UserRole,
		Content:           request.Content,
		TokenCount:        RoughTokenCount(request.Content),
		CreationTimestamp: time.Now().UnixMicro(),
	}
	if err := e.store.InsertMessage(userMessage); err != nil {
		return nil, err
	}
	log.Debug().Str("chat_id", request.ChatID).Str("branch_id", branchID).
		Str("message_id", userMessage.ID).Msg("user message persisted")

	return e.complete(ctx, snapshot, request.ChatID, branchID, userMessage, request.SystemExtras)
}

// Regenerate produces a new assistant reply to the most recent non-deleted
// user message on the branch, re-running the full context-build and streaming
// pipeline. Fails with ErrNotFound when the branch holds no user message.
func (e *Engine) Regenerate(ctx context.Context, snapshot *Snapshot, chatID, branchID string) ([]*store.Message, error) {
	branchID, err := e.resolveBranch(chatID, branchID)
	if err != nil {
		return nil, err
	}
	if err := e.acquireTurn(chatID, branchID); err != nil {
		return nil, err
	}
	defer e.releaseTurn(chatID, branchID)

	lastUser, err := e.store.LastUserMessage(chatID, branchID)
	if err != nil {
		return nil, err
	}

	return e.complete(ctx, snapshot, chatID, branchID, lastUser, nil)
}

// complete drives the ContextBuilt -> Streaming -> Committed transitions for
// an already-persisted user message.
func (e *Engine) complete(ctx context.Context, snapshot *Snapshot, chatID, branchID string, userMessage *store.Message, systemExtras []string) ([]*store.Message, error) {
	if err := snapshot.checkPolicy(); err != nil {
		return nil, err
	}

	timeline, err := e.store.Timeline(chatID, branchID)
	if err != nil {
		return nil, err
	}

	request := &CompletionRequest{
		Model:       snapshot.Model,
		Stream:      true,
		Messages:    buildContext(timeline, systemExtras),
		Temperature: 0.9,
	}

	// Deltas are emitted in strict decode order. Sink delivery is
	// best-effort: a failed notification is logged, not turn-fatal.
	onDelta := func(delta string) {
		err := e.sink.Publish(events.Event{
			Kind:     events.KindDelta,
			ChatID:   chatID,
			BranchID: branchID,
			Delta:    delta,
		})
		if err != nil {
			log.Warn().Err(err).Str("chat_id", chatID).Msg("dropping delta notification")
		}
	}

	assistantText, err := e.completer.StreamCompletion(ctx, snapshot.Provider, request, onDelta)
	if err != nil {
		// Cancelled or failed mid-stream: partial text is discarded, the
		// user message stays.
		return nil, err
	}
	if strings.TrimSpace(assistantText) == "" {
		return nil, ErrEmptyResponse
	}

	// The assistant timestamp must order strictly after the user message.
	createdAt := time.Now().UnixMicro()
	if createdAt <= userMessage.CreationTimestamp {
		createdAt = userMessage.CreationTimestamp + 1
	}
	assistantMessage := &store.Message{
		ID:                uuid.New().String(),
		ChatID:            chatID,
		BranchID:          branchID,
		Role:              store.AssistantRole,
		Content:           assistantText,
		TokenCount:        RoughTokenCount(assistantText),
		ParentID:          userMessage.ID,
		CreationTimestamp: createdAt,
	}
	if err := e.store.InsertMessage(assistantMessage); err != nil {
		return nil, err
	}

	err = e.sink.Publish(events.Event{
		Kind:      events.KindStreamDone,
		ChatID:    chatID,
		BranchID:  branchID,
		MessageID: assistantMessage.ID,
	})
	if err != nil {
		log.Warn().Err(err).Str("chat_id", chatID).Msg("dropping stream-done notification")
	}
	log.Debug().Str("chat_id", chatID).Str("branch_id", branchID).
		Str("message_id", assistantMessage.ID).Int64("tokens", assistantMessage.TokenCount).
		Msg("assistant message committed")

	return e.store.Timeline(chatID, branchID)
}

// buildContext translates a timeline into the exact wire sequence sent to the
// provider: the fixed system block, any extra system blocks, then every
// message in creation order. No truncation or windowing happens here.
func buildContext(timeline []*store.Message, systemExtras []string) []Message {
	blocks := make([]PromptBlock, 0, len(timeline)+len(systemExtras)+1)
	blocks = append(blocks, PromptBlock{
		ID:      "system",
		Kind:    "system",
		Enabled: true,
		Order:   0,
		Content: systemPrompt,
	})
	for index, extra := range systemExtras {
		blocks = append(blocks, PromptBlock{
			ID:      "system-extra",
			Kind:    "system",
			Enabled: true,
			Order:   index + 1,
			Content: extra,
		})
	}
	for index, message := range timeline {
		blocks = append(blocks, PromptBlock{
			ID:      message.ID,
			Kind:    message.Role,
			Enabled: true,
			Order:   index + len(systemExtras) + 1,
			Content: message.Content,
		})
	}

	composed := ComposePrompt(blocks)
	wire := make([]Message, 0, len(composed))
	for _, block := range composed {
		wire = append(wire, Message{Role: block.Kind, Content: block.Content})
	}
	return wire
}

// Timeline returns the ordered non-deleted messages of a chat, resolving the
// branch like a turn would.
func (e *Engine) Timeline(chatID, branchID string) ([]*store.Message, error) {
	branchID, err := e.resolveBranch(chatID, branchID)
	if err != nil {
		return nil, err
	}
	return e.store.Timeline(chatID, branchID)
}
