package call

import (
	"github.com/google/uuid"

	"callcenter-core/internal/domain"
)

// callSnapshot is the per-conversation view of an ongoing call. Snapshots
// are value types; every mutation goes through a with* builder that returns
// a fresh copy, so readers holding an old snapshot never observe a partial
// update. The participants list is shared between copies and carries its
// own lock.
type callSnapshot struct {
	participants      *participantsSnapshot
	state             domain.CallState
	starterID         uuid.UUID
	isVideo           bool
	isGroup           bool
	isConstantBitRate bool
	videoState        domain.VideoState
	networkQuality    domain.NetworkQuality
}

func (s callSnapshot) withState(state domain.CallState) callSnapshot {
	s.state = state
	return s
}

func (s callSnapshot) withConstantBitRate(enabled bool) callSnapshot {
	s.isConstantBitRate = enabled
	return s
}

func (s callSnapshot) withVideoState(state domain.VideoState) callSnapshot {
	s.videoState = state
	return s
}

func (s callSnapshot) withNetworkQuality(quality domain.NetworkQuality) callSnapshot {
	s.networkQuality = quality
	return s
}
