package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestWithSecurityLevelOnlyAffectsPendingStates(t *testing.T) {
	pending := Incoming(true, true, false)
	degraded := pending.WithSecurityLevel(SecurityLevelSecureWithIgnored)
	assert.True(t, degraded.Degraded)
	assert.True(t, degraded.Video)
	assert.True(t, degraded.ShouldRing)

	restored := degraded.WithSecurityLevel(SecurityLevelSecure)
	assert.False(t, restored.Degraded)

	established := Established()
	assert.Equal(t, established, established.WithSecurityLevel(SecurityLevelSecureWithIgnored))
}

func TestHasMediaCoversDataChannelAndEstablished(t *testing.T) {
	assert.True(t, Established().HasMedia())
	assert.True(t, EstablishedDataChannel().HasMedia())
	assert.False(t, Answered(false).HasMedia())
	assert.False(t, MediaStopped().HasMedia())
}

func TestIsPendingCoversPreMediaStates(t *testing.T) {
	assert.True(t, Outgoing(false).IsPending())
	assert.True(t, Incoming(false, true, false).IsPending())
	assert.True(t, Answered(false).IsPending())
	assert.False(t, NoCall().IsPending())
	assert.False(t, Terminating(CallClosedReasonNormal).IsPending())
}

func TestSameIdentityFallsBackToUserWithoutClient(t *testing.T) {
	userID := uuid.New()
	withClient := NewCallMember(userID, "client-1")
	withoutClient := NewCallMember(userID, "")
	otherClient := NewCallMember(userID, "client-2")

	assert.True(t, withClient.SameIdentity(withoutClient))
	assert.True(t, withoutClient.SameIdentity(withClient))
	assert.False(t, withClient.SameIdentity(otherClient))
	assert.False(t, withClient.SameIdentity(NewCallMember(uuid.New(), "client-1")))
}
