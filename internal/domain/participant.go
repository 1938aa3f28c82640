package domain

import "github.com/google/uuid"

// AudioState is the audio leg state of a call member.
type AudioState int

const (
	// AudioStateConnecting means audio is still being negotiated
	AudioStateConnecting AudioState = 0
	// AudioStateEstablished means audio is flowing
	AudioStateEstablished AudioState = 1
)

// VideoState is the video send state of a call member.
type VideoState int

const (
	// VideoStateStopped means the sender is not sending video
	VideoStateStopped VideoState = 0
	// VideoStateStarted means the sender is sending video
	VideoStateStarted VideoState = 1
	// VideoStateBadConnection means video is degraded by a bad connection.
	// This value is reported by the engine only and never requested locally.
	VideoStateBadConnection VideoState = 2
	// VideoStatePaused means the sender paused the video
	VideoStatePaused VideoState = 3
	// VideoStateScreenShare means the sender is sharing a screen
	VideoStateScreenShare VideoState = 4
)

// NetworkQuality ranks the connection quality of a call leg. Higher values
// are worse.
type NetworkQuality int

const (
	// NetworkQualityNormal means the leg has no known problems
	NetworkQualityNormal NetworkQuality = 0
	// NetworkQualityPoor means the leg is degraded
	NetworkQualityPoor NetworkQuality = 1
	// NetworkQualityProblem means the leg is barely usable
	NetworkQualityProblem NetworkQuality = 2
)

// CallMember is one (user, device) leg of a call as tracked by the engine.
// ClientID may be empty: the user is known from the incoming call event but
// the device only once the call connects.
type CallMember struct {
	UserID         uuid.UUID
	ClientID       string
	AudioState     AudioState
	VideoState     VideoState
	NetworkQuality NetworkQuality
}

// NewCallMember returns a member with default leg states for the given user.
func NewCallMember(userID uuid.UUID, clientID string) CallMember {
	return CallMember{UserID: userID, ClientID: clientID}
}

// SameIdentity reports whether two members denote the same call leg.
// Identity is (user, client) when both client IDs are known, and the user
// alone otherwise.
func (m CallMember) SameIdentity(other CallMember) bool {
	if m.UserID != other.UserID {
		return false
	}
	if m.ClientID == "" || other.ClientID == "" {
		return true
	}
	return m.ClientID == other.ClientID
}

// ParticipantState reflects the member's leg states.
func (m CallMember) ParticipantState() CallParticipantState {
	if m.AudioState == AudioStateEstablished {
		return ConnectedParticipant(m.VideoState)
	}
	return CallParticipantState{Kind: ParticipantConnecting}
}

// CallParticipantStateKind identifies the variant of a CallParticipantState.
type CallParticipantStateKind int

const (
	// ParticipantUnconnected means the user is not in the call
	ParticipantUnconnected CallParticipantStateKind = iota
	// ParticipantConnecting means the user is joining the call
	ParticipantConnecting
	// ParticipantConnected means audio is flowing for the user
	ParticipantConnected
)

// CallParticipantState is the connection state of a user in a call.
type CallParticipantState struct {
	Kind CallParticipantStateKind

	// VideoState is meaningful only when connected
	VideoState VideoState
}

// UnconnectedParticipant returns the state of a user outside the call.
func UnconnectedParticipant() CallParticipantState {
	return CallParticipantState{Kind: ParticipantUnconnected}
}

// ConnectedParticipant returns the connected state carrying the video state.
func ConnectedParticipant(videoState VideoState) CallParticipantState {
	return CallParticipantState{Kind: ParticipantConnected, VideoState: videoState}
}

// CallParticipant is the externally visible view of a call member, resolved
// against the user directory.
type CallParticipant struct {
	User     User                 `json:"user"`
	ClientID string               `json:"client_id"`
	State    CallParticipantState `json:"state"`
}
