package domain

import "fmt"

// CallStateKind identifies the variant of a CallState value.
type CallStateKind int

const (
	// CallStateNone means there is no call in the conversation
	CallStateNone CallStateKind = iota
	// CallStateOutgoing means the self user started a call and is waiting for an answer
	CallStateOutgoing
	// CallStateIncoming means a remote user started a call that is pending local action
	CallStateIncoming
	// CallStateAnswered means the self user accepted and media is being negotiated
	CallStateAnswered
	// CallStateEstablishedDataChannel means the data channel is up but media is not yet flowing
	CallStateEstablishedDataChannel
	// CallStateEstablished means two-way media is flowing
	CallStateEstablished
	// CallStateTerminating means the call is closing and about to be cleared
	CallStateTerminating
	// CallStateMediaStopped means media dropped but the call was not torn down yet
	CallStateMediaStopped
	// CallStateUnknown covers engine states this core does not map
	CallStateUnknown
)

// CallState is the state of a call in one conversation. It is a value type;
// variant-specific fields are only meaningful for the kinds that carry them.
type CallState struct {
	Kind CallStateKind

	// Video and ShouldRing qualify an incoming call
	Video      bool
	ShouldRing bool

	// Degraded is set on outgoing/incoming/answered when the conversation
	// security level dropped below trusted
	Degraded bool

	// Reason qualifies a terminating call
	Reason CallClosedReason
}

// NoCall returns the idle call state.
func NoCall() CallState {
	return CallState{Kind: CallStateNone}
}

// Outgoing returns the state of a pending outgoing call.
func Outgoing(degraded bool) CallState {
	return CallState{Kind: CallStateOutgoing, Degraded: degraded}
}

// Incoming returns the state of a pending incoming call.
func Incoming(video, shouldRing, degraded bool) CallState {
	return CallState{Kind: CallStateIncoming, Video: video, ShouldRing: shouldRing, Degraded: degraded}
}

// Answered returns the state of a locally accepted call awaiting media.
func Answered(degraded bool) CallState {
	return CallState{Kind: CallStateAnswered, Degraded: degraded}
}

// EstablishedDataChannel returns the state of a call whose signalling channel is up.
func EstablishedDataChannel() CallState {
	return CallState{Kind: CallStateEstablishedDataChannel}
}

// Established returns the state of a call with flowing media.
func Established() CallState {
	return CallState{Kind: CallStateEstablished}
}

// Terminating returns the closing state carrying the close reason.
func Terminating(reason CallClosedReason) CallState {
	return CallState{Kind: CallStateTerminating, Reason: reason}
}

// MediaStopped returns the state of a call whose media stream ended.
func MediaStopped() CallState {
	return CallState{Kind: CallStateMediaStopped}
}

// UnknownCallState returns the defensive catch-all state.
func UnknownCallState() CallState {
	return CallState{Kind: CallStateUnknown}
}

// IsPending reports whether the state is one of the pre-media variants whose
// degraded flag tracks the conversation security level.
func (s CallState) IsPending() bool {
	switch s.Kind {
	case CallStateOutgoing, CallStateIncoming, CallStateAnswered:
		return true
	default:
		return false
	}
}

// HasMedia reports whether a media or data channel is up.
func (s CallState) HasMedia() bool {
	return s.Kind == CallStateEstablished || s.Kind == CallStateEstablishedDataChannel
}

// WithSecurityLevel returns the state with its degraded flag tracking the
// given security level. Only pending states carry the flag; all other states
// are returned unchanged.
func (s CallState) WithSecurityLevel(level SecurityLevel) CallState {
	if !s.IsPending() {
		return s
	}
	s.Degraded = level == SecurityLevelSecureWithIgnored
	return s
}

// String implements fmt.Stringer.
func (s CallState) String() string {
	switch s.Kind {
	case CallStateNone:
		return "none"
	case CallStateOutgoing:
		return fmt.Sprintf("outgoing(degraded=%t)", s.Degraded)
	case CallStateIncoming:
		return fmt.Sprintf("incoming(video=%t, shouldRing=%t, degraded=%t)", s.Video, s.ShouldRing, s.Degraded)
	case CallStateAnswered:
		return fmt.Sprintf("answered(degraded=%t)", s.Degraded)
	case CallStateEstablishedDataChannel:
		return "establishedDataChannel"
	case CallStateEstablished:
		return "established"
	case CallStateTerminating:
		return fmt.Sprintf("terminating(%s)", s.Reason)
	case CallStateMediaStopped:
		return "mediaStopped"
	default:
		return "unknown"
	}
}

// CallClosedReason is the cause carried by a terminating call state.
type CallClosedReason int

const (
	// CallClosedReasonNormal means the call was closed by the remote or self user
	CallClosedReasonNormal CallClosedReason = iota
	// CallClosedReasonCanceled means an incoming call was canceled by the remote
	CallClosedReasonCanceled
	// CallClosedReasonAnsweredElsewhere means the call was answered on another device
	CallClosedReasonAnsweredElsewhere
	// CallClosedReasonTimeout means an outgoing call timed out
	CallClosedReasonTimeout
	// CallClosedReasonLostMedia means the call lost media and was closed
	CallClosedReasonLostMedia
	// CallClosedReasonInternalError means the engine failed internally
	CallClosedReasonInternalError
	// CallClosedReasonInputOutputError means an audio device could not be accessed
	CallClosedReasonInputOutputError
	// CallClosedReasonStillOngoing means the self user left a group call that
	// keeps running for the other participants
	CallClosedReasonStillOngoing
	// CallClosedReasonSecurityDegraded means the conversation security level
	// dropped while the call was active
	CallClosedReasonSecurityDegraded
	// CallClosedReasonUnknown covers close codes this core does not map
	CallClosedReasonUnknown
)

// String implements fmt.Stringer.
func (r CallClosedReason) String() string {
	switch r {
	case CallClosedReasonNormal:
		return "normal"
	case CallClosedReasonCanceled:
		return "canceled"
	case CallClosedReasonAnsweredElsewhere:
		return "answeredElsewhere"
	case CallClosedReasonTimeout:
		return "timeout"
	case CallClosedReasonLostMedia:
		return "lostMedia"
	case CallClosedReasonInternalError:
		return "internalError"
	case CallClosedReasonInputOutputError:
		return "inputOutputError"
	case CallClosedReasonStillOngoing:
		return "stillOngoing"
	case CallClosedReasonSecurityDegraded:
		return "securityDegraded"
	default:
		return "unknown"
	}
}
