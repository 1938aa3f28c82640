package call

import (
	"time"

	"github.com/google/uuid"

	"callcenter-core/internal/domain"
)

// StateChanged is published on the event bus whenever a call transitions.
// Previous is nil when the conversation had no call before.
type StateChanged struct {
	ConversationID uuid.UUID
	State          domain.CallState
	Previous       *domain.CallState
	CallerID       uuid.UUID
	MessageTime    time.Time
}

// ParticipantsChanged is published when the participant list of a call
// changed. Participants carries the resolved, externally visible list.
type ParticipantsChanged struct {
	ConversationID uuid.UUID
	Participants   []domain.CallParticipant
}

// ConstantBitRateChanged is published when CBR is renegotiated on the
// active call.
type ConstantBitRateChanged struct {
	Enabled bool
}

// NetworkQualityChanged is published when the quality of one call leg
// changed.
type NetworkQualityChanged struct {
	ConversationID uuid.UUID
	UserID         uuid.UUID
	ClientID       string
	Quality        domain.NetworkQuality
}

// MissedCall is published when a call ended before the self user reacted.
type MissedCall struct {
	ConversationID uuid.UUID
	CallerID       uuid.UUID
	Timestamp      time.Time
	Video          bool
}

// MutedChanged is published when the microphone mute state changed.
type MutedChanged struct {
	Muted bool
}
