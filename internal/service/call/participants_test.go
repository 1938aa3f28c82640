package call

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"callcenter-core/internal/domain"
	"callcenter-core/internal/eventbus"
	"callcenter-core/internal/repository/memory"
)

func newTestParticipants(t *testing.T, members []domain.CallMember) (*participantsSnapshot, *memory.Directory) {
	t.Helper()
	directory := memory.NewDirectory()
	center := &Center{directory: directory, bus: eventbus.New()}
	return newParticipantsSnapshot(center, uuid.New(), members), directory
}

func TestDedupeMembersFirstOccurrenceWins(t *testing.T) {
	userID := uuid.New()
	first := domain.CallMember{UserID: userID, ClientID: "client-1", AudioState: domain.AudioStateEstablished}
	duplicate := domain.CallMember{UserID: userID, ClientID: "client-1"}
	other := domain.NewCallMember(uuid.New(), "client-2")

	deduped := dedupeMembers([]domain.CallMember{first, duplicate, other})

	assert.Len(t, deduped, 2)
	assert.Equal(t, domain.AudioStateEstablished, deduped[0].AudioState)
}

func TestDedupeMembersMatchesUserWhenClientUnknown(t *testing.T) {
	userID := uuid.New()
	withoutClient := domain.NewCallMember(userID, "")
	withClient := domain.NewCallMember(userID, "client-1")

	deduped := dedupeMembers([]domain.CallMember{withoutClient, withClient})

	assert.Len(t, deduped, 1)
	assert.Empty(t, deduped[0].ClientID)
}

func TestUpdateMemberFallsBackToUserAndLearnsClient(t *testing.T) {
	userID := uuid.New()
	p, _ := newTestParticipants(t, []domain.CallMember{domain.NewCallMember(userID, "")})

	updated := p.updateVideoState(userID, "client-7", domain.VideoStateStarted)

	assert.True(t, updated)
	members := p.list()
	assert.Equal(t, "client-7", members[0].ClientID)
	assert.Equal(t, domain.VideoStateStarted, members[0].VideoState)
}

func TestUpdateMemberDropsUnknownIdentity(t *testing.T) {
	p, _ := newTestParticipants(t, []domain.CallMember{domain.NewCallMember(uuid.New(), "client-1")})

	updated := p.updateVideoState(uuid.New(), "client-2", domain.VideoStateStarted)

	assert.False(t, updated)
}

func TestNetworkQualityReportsWorstLeg(t *testing.T) {
	good := domain.NewCallMember(uuid.New(), "client-1")
	bad := domain.NewCallMember(uuid.New(), "client-2")
	bad.NetworkQuality = domain.NetworkQualityPoor
	p, _ := newTestParticipants(t, []domain.CallMember{good, bad})

	assert.Equal(t, domain.NetworkQualityPoor, p.networkQuality())

	p.updateNetworkQuality(good.UserID, "client-1", domain.NetworkQualityProblem)
	assert.Equal(t, domain.NetworkQualityProblem, p.networkQuality())
}

func TestStateForUserOutsideCallIsUnconnected(t *testing.T) {
	p, _ := newTestParticipants(t, nil)

	assert.Equal(t, domain.ParticipantUnconnected, p.stateForUser(uuid.New()).Kind)
}

func TestResolvedSkipsUnknownUsers(t *testing.T) {
	known := domain.NewCallMember(uuid.New(), "client-1")
	unknown := domain.NewCallMember(uuid.New(), "client-2")
	p, directory := newTestParticipants(t, []domain.CallMember{known, unknown})
	directory.AddUser(domain.User{ID: known.UserID, Name: "Known"})

	resolved := p.resolved()

	assert.Len(t, resolved, 1)
	assert.Equal(t, known.UserID, resolved[0].User.ID)
}

func TestReplacePublishesParticipantChange(t *testing.T) {
	userID := uuid.New()
	p, directory := newTestParticipants(t, nil)
	directory.AddUser(domain.User{ID: userID, Name: "Joined"})

	var events []ParticipantsChanged
	eventbus.Subscribe(p.center.bus, func(event ParticipantsChanged) {
		events = append(events, event)
	})

	p.replace([]domain.CallMember{domain.NewCallMember(userID, "client-1")})

	assert.Len(t, events, 1)
	assert.Len(t, events[0].Participants, 1)
	assert.Equal(t, p.conversationID, events[0].ConversationID)
}
