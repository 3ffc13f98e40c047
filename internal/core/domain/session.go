package domain

import "time"

// Role identifies the author of a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a conversation.
type Message struct {
	Role    Role
	Content string
}

// Session is a persisted conversation.
// Messages always holds complete user/assistant pairs.
type Session struct {
	// ID uniquely identifies the session for its owner.
	ID string

	// OwnerID is the principal the session belongs to.
	OwnerID string

	// Title is set from the first exchange and changes only on explicit rename.
	Title string

	// Messages is the ordered history.
	Messages []Message

	// CreatedAt is when the first exchange was persisted.
	CreatedAt time.Time

	// UpdatedAt changes on every append.
	UpdatedAt time.Time
}

// Turns returns the number of completed question/answer pairs.
func (s *Session) Turns() int {
	return len(s.Messages) / 2
}

// SessionSummary is a session without its history, for listings.
type SessionSummary struct {
	ID           string
	Title        string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionState is how an incoming question relates to stored sessions.
type SessionState string

// Conversation states.
const (
	// SessionStateNew means no session id was supplied.
	SessionStateNew SessionState = "new"

	// SessionStateContinuing means the id resolved to a session owned by the caller.
	SessionStateContinuing SessionState = "continuing"

	// SessionStateOrphaned means the id did not resolve for this caller.
	// It is handled like new, with a fresh id.
	SessionStateOrphaned SessionState = "orphaned"
)

// String returns the string representation.
func (s SessionState) String() string {
	return string(s)
}

// CreatesSession returns true if a turn in this state creates a new session.
func (s SessionState) CreatesSession() bool {
	return s == SessionStateNew || s == SessionStateOrphaned
}
