package domain

import (
	"time"

	"github.com/google/uuid"
)

// CallEvent is a signalling payload delivered by the backend for a
// conversation. Events are buffered by the call center until the media
// engine reports readiness and are then replayed in arrival order.
type CallEvent struct {
	Payload         []byte    `json:"payload"`
	LocalTimestamp  time.Time `json:"local_timestamp"`
	ServerTimestamp time.Time `json:"server_timestamp"`
	ConversationID  uuid.UUID `json:"conversation_id"`
	UserID          uuid.UUID `json:"user_id"`
	ClientID        string    `json:"client_id"`
}
