package store

// Message roles.
const (
	UserRole      = "user"
	AssistantRole = "assistant"
)

// Chat is a top-level conversation container. Immutable after creation except
// for title edits.
type Chat struct {
	// ID of this chat.
	ID string
	// Display title.
	Title string
	// Time at which the chat was created, in unix microseconds.
	CreationTimestamp int64
}

// Branch is a named, independently growing sequence of messages within a chat.
// The root branch has no parent message; a forked branch points at the message
// it was forked from.
type Branch struct {
	ID string
	// Owning chat.
	ChatID string
	// Display name.
	Name string
	// Fork point. Empty for the root branch.
	ParentMessageID string
	// Time at which the branch was created, in unix microseconds.
	CreationTimestamp int64
}

// Message is a single entry on a branch timeline. Soft-deleted messages are
// excluded from timeline reads but never physically removed.
type Message struct {
	ID       string
	ChatID   string
	BranchID string
	// UserRole or AssistantRole.
	Role    string
	Content string
	// Approximate token count, not a true tokenization.
	TokenCount int64
	// For an assistant message, the user message it answers. Empty otherwise.
	ParentID string
	Deleted  bool
	// Time at which the message was created, in unix microseconds.
	CreationTimestamp int64
}
