package call

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"callcenter-core/internal/domain"
	"callcenter-core/pkg/logger"
)

// participantsSnapshot holds the member list of one call. It is shared by
// all copies of the conversation's callSnapshot and mutated only on the
// center's dispatcher; the lock protects concurrent readers.
type participantsSnapshot struct {
	mu             sync.RWMutex
	conversationID uuid.UUID
	members        []domain.CallMember
	center         *Center
}

func newParticipantsSnapshot(center *Center, conversationID uuid.UUID, members []domain.CallMember) *participantsSnapshot {
	return &participantsSnapshot{
		conversationID: conversationID,
		members:        dedupeMembers(members),
		center:         center,
	}
}

// dedupeMembers drops members whose identity already appeared earlier in
// the list. The first occurrence wins.
func dedupeMembers(members []domain.CallMember) []domain.CallMember {
	deduped := make([]domain.CallMember, 0, len(members))
	for _, member := range members {
		duplicate := false
		for _, kept := range deduped {
			if kept.SameIdentity(member) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			deduped = append(deduped, member)
		}
	}
	return deduped
}

// list returns a copy of the current member list.
func (p *participantsSnapshot) list() []domain.CallMember {
	p.mu.RLock()
	defer p.mu.RUnlock()
	members := make([]domain.CallMember, len(p.members))
	copy(members, p.members)
	return members
}

// replace swaps the whole member list, deduplicating first.
func (p *participantsSnapshot) replace(members []domain.CallMember) {
	p.mu.Lock()
	p.members = dedupeMembers(members)
	p.mu.Unlock()
	p.notifyChange()
}

// updateMember locates the member for (userID, clientID) and applies the
// update. When no member carries the client id, the lookup falls back to
// the user alone; the match then learns the client id. Unknown identities
// are dropped.
func (p *participantsSnapshot) updateMember(userID uuid.UUID, clientID string, update func(*domain.CallMember)) bool {
	p.mu.Lock()

	index := -1
	probe := domain.CallMember{UserID: userID, ClientID: clientID}
	for i, member := range p.members {
		if member.SameIdentity(probe) {
			index = i
			break
		}
	}
	if index < 0 {
		for i, member := range p.members {
			if member.UserID == userID {
				index = i
				break
			}
		}
	}
	if index < 0 {
		p.mu.Unlock()
		logger.Debug("Update for unknown call member",
			zap.String("conversation_id", p.conversationID.String()),
			zap.String("user_id", userID.String()))
		return false
	}

	member := p.members[index]
	if member.ClientID == "" && clientID != "" {
		member.ClientID = clientID
	}
	update(&member)
	p.members[index] = member
	p.mu.Unlock()

	p.notifyChange()
	return true
}

func (p *participantsSnapshot) updateVideoState(userID uuid.UUID, clientID string, state domain.VideoState) bool {
	return p.updateMember(userID, clientID, func(member *domain.CallMember) {
		member.VideoState = state
	})
}

func (p *participantsSnapshot) updateAudioEstablished(userID uuid.UUID, clientID string) bool {
	return p.updateMember(userID, clientID, func(member *domain.CallMember) {
		member.AudioState = domain.AudioStateEstablished
	})
}

func (p *participantsSnapshot) updateNetworkQuality(userID uuid.UUID, clientID string, quality domain.NetworkQuality) bool {
	return p.updateMember(userID, clientID, func(member *domain.CallMember) {
		member.NetworkQuality = quality
	})
}

// networkQuality aggregates the call's quality as the worst individual leg.
func (p *participantsSnapshot) networkQuality() domain.NetworkQuality {
	p.mu.RLock()
	defer p.mu.RUnlock()
	worst := domain.NetworkQualityNormal
	for _, member := range p.members {
		if member.NetworkQuality > worst {
			worst = member.NetworkQuality
		}
	}
	return worst
}

// stateForUser reports the connection state of one user in the call.
func (p *participantsSnapshot) stateForUser(userID uuid.UUID) domain.CallParticipantState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, member := range p.members {
		if member.UserID == userID {
			return member.ParticipantState()
		}
	}
	return domain.UnconnectedParticipant()
}

// resolved maps the member list to externally visible participants by
// resolving users through the directory. Members whose user cannot be
// resolved are skipped.
func (p *participantsSnapshot) resolved() []domain.CallParticipant {
	members := p.list()
	participants := make([]domain.CallParticipant, 0, len(members))
	for _, member := range members {
		user, err := p.center.directory.UserByID(member.UserID)
		if err != nil {
			logger.Debug("Skipping unresolvable call member",
				zap.String("user_id", member.UserID.String()),
				zap.Error(err))
			continue
		}
		participants = append(participants, domain.CallParticipant{
			User:     *user,
			ClientID: member.ClientID,
			State:    member.ParticipantState(),
		})
	}
	return participants
}

// notifyChange publishes the resolved participant list on the event bus.
func (p *participantsSnapshot) notifyChange() {
	p.center.publishParticipantsChanged(ParticipantsChanged{
		ConversationID: p.conversationID,
		Participants:   p.resolved(),
	})
}
