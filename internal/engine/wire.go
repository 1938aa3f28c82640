package engine

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"callcenter-core/internal/domain"
)

// Raw close codes as reported on the engine wire.
const (
	wireReasonNormal            = 0
	wireReasonInternalError     = 1
	wireReasonTimeout           = 2
	wireReasonLostMedia         = 3
	wireReasonCanceled          = 4
	wireReasonAnsweredElsewhere = 5
	wireReasonIOError           = 6
	wireReasonStillOngoing      = 7
)

// CloseReasonFromWire maps a raw engine close code to a CallClosedReason.
// Unmapped codes become CallClosedReasonUnknown so the state machine stays
// total over all engine inputs.
func CloseReasonFromWire(code int) domain.CallClosedReason {
	switch code {
	case wireReasonNormal:
		return domain.CallClosedReasonNormal
	case wireReasonInternalError:
		return domain.CallClosedReasonInternalError
	case wireReasonTimeout:
		return domain.CallClosedReasonTimeout
	case wireReasonLostMedia:
		return domain.CallClosedReasonLostMedia
	case wireReasonCanceled:
		return domain.CallClosedReasonCanceled
	case wireReasonAnsweredElsewhere:
		return domain.CallClosedReasonAnsweredElsewhere
	case wireReasonIOError:
		return domain.CallClosedReasonInputOutputError
	case wireReasonStillOngoing:
		return domain.CallClosedReasonStillOngoing
	default:
		return domain.CallClosedReasonUnknown
	}
}

// CloseReasonToWire maps a CallClosedReason back to its wire code. Reasons
// without a wire representation map to the internal error code.
func CloseReasonToWire(reason domain.CallClosedReason) int {
	switch reason {
	case domain.CallClosedReasonNormal:
		return wireReasonNormal
	case domain.CallClosedReasonCanceled:
		return wireReasonCanceled
	case domain.CallClosedReasonAnsweredElsewhere:
		return wireReasonAnsweredElsewhere
	case domain.CallClosedReasonTimeout:
		return wireReasonTimeout
	case domain.CallClosedReasonLostMedia:
		return wireReasonLostMedia
	case domain.CallClosedReasonInputOutputError:
		return wireReasonIOError
	case domain.CallClosedReasonStillOngoing:
		return wireReasonStillOngoing
	default:
		return wireReasonInternalError
	}
}

// VideoStateFromWire maps a raw video state code, defaulting to stopped for
// unmapped values.
func VideoStateFromWire(code int) domain.VideoState {
	switch code {
	case 0:
		return domain.VideoStateStopped
	case 1:
		return domain.VideoStateStarted
	case 2:
		return domain.VideoStateBadConnection
	case 3:
		return domain.VideoStatePaused
	case 4:
		return domain.VideoStateScreenShare
	default:
		return domain.VideoStateStopped
	}
}

// ParticipantChange is the consolidated participant list document delivered
// through EventHandler.ParticipantsChanged.
//
// Example:
//
//	{
//	    "convid": "df371578-65cf-4f07-9f49-c72a49877ae7",
//	    "members": [
//	        {"userid": "3f49da1d-...", "clientid": "24cc758f602fb1f4", "aestab": 1, "vrecv": 0}
//	    ]
//	}
type ParticipantChange struct {
	ConversationID uuid.UUID                 `json:"convid"`
	Members        []ParticipantChangeMember `json:"members"`
}

// ParticipantChangeMember is one member entry of a ParticipantChange.
type ParticipantChangeMember struct {
	UserID           uuid.UUID `json:"userid"`
	ClientID         string    `json:"clientid"`
	AudioEstablished int       `json:"aestab"`
	VideoReceive     int       `json:"vrecv"`
}

// CallMember converts the wire entry to a domain member.
func (m ParticipantChangeMember) CallMember() domain.CallMember {
	member := domain.NewCallMember(m.UserID, m.ClientID)
	if m.AudioEstablished != 0 {
		member.AudioState = domain.AudioStateEstablished
	}
	member.VideoState = VideoStateFromWire(m.VideoReceive)
	return member
}

// DecodeParticipantChange parses a participant change document.
func DecodeParticipantChange(payload []byte) (*ParticipantChange, error) {
	var change ParticipantChange
	if err := json.Unmarshal(payload, &change); err != nil {
		return nil, fmt.Errorf("failed to decode participant change: %w", err)
	}
	return &change, nil
}
