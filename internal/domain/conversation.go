package domain

import "github.com/google/uuid"

// ConversationType distinguishes one-to-one conversations from groups.
type ConversationType int

const (
	// ConversationTypeOneToOne is a conversation between two users
	ConversationTypeOneToOne ConversationType = 0
	// ConversationTypeGroup is a conversation with multiple participants
	ConversationTypeGroup ConversationType = 1
	// ConversationTypeConference is a large group backed by a conference bridge
	ConversationTypeConference ConversationType = 2
)

// SecurityLevel is the trust level of a conversation.
type SecurityLevel int

const (
	// SecurityLevelNotSecure means not all clients are verified
	SecurityLevelNotSecure SecurityLevel = 0
	// SecurityLevelSecure means all clients are verified
	SecurityLevelSecure SecurityLevel = 1
	// SecurityLevelSecureWithIgnored means the conversation was secure but an
	// unverified client joined and the user ignored the warning
	SecurityLevelSecureWithIgnored SecurityLevel = 2
)

// Conversation is the call-relevant metadata of a conversation.
type Conversation struct {
	ID               uuid.UUID        `json:"id"`
	Type             ConversationType `json:"type"`
	SecurityLevel    SecurityLevel    `json:"security_level"`
	ParticipantCount int              `json:"participant_count"`

	// ConnectedUserID is the remote user of a one-to-one conversation,
	// uuid.Nil for groups
	ConnectedUserID uuid.UUID `json:"connected_user_id,omitempty"`
}

// IsGroup reports whether the conversation has group call semantics.
func (c *Conversation) IsGroup() bool {
	return c.Type != ConversationTypeOneToOne
}

// User is a messaging user as resolved from the directory.
type User struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Handle string    `json:"handle,omitempty"`
}
