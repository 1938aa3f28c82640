// Package engine defines the interface to the media engine that performs
// signalling, codec negotiation and media transport. The engine is an opaque
// collaborator: the call center drives it through Engine and receives its
// callbacks through EventHandler.
package engine

import (
	"time"

	"github.com/google/uuid"

	"callcenter-core/internal/domain"
)

// CallType selects the media requested when starting or answering a call.
type CallType int

const (
	// CallTypeNormal is an audio call that may be upgraded to video
	CallTypeNormal CallType = 0
	// CallTypeVideo is a call starting with video enabled
	CallTypeVideo CallType = 1
	// CallTypeAudioOnly is a call that must not carry video
	CallTypeAudioOnly CallType = 2
)

// ConversationType tells the engine which call topology to negotiate.
type ConversationType int

const (
	// ConversationTypeOneToOne negotiates a direct call
	ConversationTypeOneToOne ConversationType = 0
	// ConversationTypeGroup negotiates a mesh group call
	ConversationTypeGroup ConversationType = 1
	// ConversationTypeConference negotiates a conference bridge call
	ConversationTypeConference ConversationType = 2
)

// MessageToken correlates an outbound signalling message with the completion
// the engine expects through Respond.
type MessageToken uint64

// Engine is the operations surface of the media engine. Start and Answer
// report synchronously whether the engine accepted the operation; all other
// results arrive through EventHandler callbacks, possibly from the engine's
// own goroutines.
type Engine interface {
	Start(conversationID uuid.UUID, callType CallType, conversationType ConversationType, useCBR bool) bool
	Answer(conversationID uuid.UUID, callType CallType, useCBR bool) bool
	End(conversationID uuid.UUID)
	Reject(conversationID uuid.UUID)
	SetVideoState(conversationID uuid.UUID, state domain.VideoState)
	Received(event domain.CallEvent)
	Members(conversationID uuid.UUID) []domain.CallMember
	Respond(httpStatus int, token MessageToken)
	UpdateConfig(config string, httpStatus int)
	Close()
}

// EventHandler receives engine callbacks. Implementations must not assume a
// particular calling goroutine; the call center marshals every callback onto
// its serialized dispatcher before touching any state.
type EventHandler interface {
	// Ready is invoked once the engine can accept signalling payloads.
	Ready(version int)

	// Incoming reports a remote-initiated call.
	Incoming(conversationID uuid.UUID, messageTime time.Time, userID uuid.UUID, clientID string, video, shouldRing bool)

	// Missed reports a call that ended before the self user reacted.
	Missed(conversationID uuid.UUID, messageTime time.Time, userID uuid.UUID, video bool)

	// Answered reports that an outgoing call was accepted remotely.
	Answered(conversationID uuid.UUID)

	// DataChannelEstablished reports that the signalling channel is up.
	DataChannelEstablished(conversationID uuid.UUID, userID uuid.UUID, clientID string)

	// Established reports flowing media. For group calls the engine fires
	// this once per participant.
	Established(conversationID uuid.UUID, userID uuid.UUID, clientID string)

	// Closed reports the end of a call with a wire close code.
	Closed(reason domain.CallClosedReason, conversationID uuid.UUID, messageTime time.Time, userID uuid.UUID)

	// Metrics delivers a JSON metrics document for an ended call.
	Metrics(conversationID uuid.UUID, metricsJSON string)

	// ConfigRequested asks the application to fetch a fresh call config and
	// feed it back through Engine.UpdateConfig.
	ConfigRequested()

	// SendMessage asks the application to deliver a signalling payload to the
	// other call endpoints. The eventual HTTP status must be returned through
	// Engine.Respond with the same token.
	SendMessage(token MessageToken, conversationID uuid.UUID, senderUserID uuid.UUID, senderClientID string, payload []byte)

	// GroupMembersChanged reports that the member list of a group call
	// changed; the new list is available through Engine.Members.
	GroupMembersChanged(conversationID uuid.UUID)

	// ParticipantsChanged delivers a consolidated participant list as a JSON
	// document (see ParticipantChange).
	ParticipantsChanged(payload []byte)

	// VideoStateChanged reports a remote video send state change.
	VideoStateChanged(userID uuid.UUID, clientID string, state domain.VideoState)

	// ConstantBitRateChanged reports CBR renegotiation on the active call.
	ConstantBitRateChanged(enabled bool)

	// MediaStopped reports that the media stream of a call ended.
	MediaStopped(conversationID uuid.UUID)

	// NetworkQualityChanged reports the quality of one call leg.
	NetworkQualityChanged(conversationID uuid.UUID, userID uuid.UUID, clientID string, quality domain.NetworkQuality)

	// MutedChanged reports a microphone mute state change.
	MutedChanged(muted bool)
}
