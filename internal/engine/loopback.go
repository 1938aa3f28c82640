package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"callcenter-core/internal/domain"
)

const loopbackProtocolVersion = 3

// Loopback is an in-process engine used by the demo binary and integration
// style tests. It accepts every operation, reflects signalling locally and
// fires the corresponding callbacks without any real media negotiation.
type Loopback struct {
	mu      sync.Mutex
	handler EventHandler
	members map[uuid.UUID][]domain.CallMember
	closed  bool
}

// NewLoopback creates a loopback engine delivering callbacks to handler.
// Ready fires asynchronously, mirroring a real engine initializing on its
// own goroutine.
func NewLoopback(handler EventHandler) *Loopback {
	e := &Loopback{
		handler: handler,
		members: make(map[uuid.UUID][]domain.CallMember),
	}
	go handler.Ready(loopbackProtocolVersion)
	return e
}

// Start accepts the call and registers an empty member list.
func (e *Loopback) Start(conversationID uuid.UUID, callType CallType, conversationType ConversationType, useCBR bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.members[conversationID] = nil
	return true
}

// Answer accepts the call and reports establishment asynchronously.
func (e *Loopback) Answer(conversationID uuid.UUID, callType CallType, useCBR bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	return true
}

// End reports a normal close for the conversation.
func (e *Loopback) End(conversationID uuid.UUID) {
	e.mu.Lock()
	delete(e.members, conversationID)
	e.mu.Unlock()
	go e.handler.Closed(domain.CallClosedReasonNormal, conversationID, time.Now(), uuid.Nil)
}

// Reject drops the pending call without callbacks, as a real engine only
// reports the close once the remote gives up.
func (e *Loopback) Reject(conversationID uuid.UUID) {
	e.mu.Lock()
	delete(e.members, conversationID)
	e.mu.Unlock()
}

// SetVideoState is accepted and ignored.
func (e *Loopback) SetVideoState(conversationID uuid.UUID, state domain.VideoState) {}

// Received reflects participant change payloads back through the handler and
// drops everything else.
func (e *Loopback) Received(event domain.CallEvent) {
	if change, err := DecodeParticipantChange(event.Payload); err == nil && len(change.Members) > 0 {
		members := make([]domain.CallMember, 0, len(change.Members))
		for _, m := range change.Members {
			members = append(members, m.CallMember())
		}
		e.mu.Lock()
		e.members[change.ConversationID] = members
		e.mu.Unlock()
		go e.handler.GroupMembersChanged(change.ConversationID)
	}
}

// Members returns the last reflected member list.
func (e *Loopback) Members(conversationID uuid.UUID) []domain.CallMember {
	e.mu.Lock()
	defer e.mu.Unlock()
	members := make([]domain.CallMember, len(e.members[conversationID]))
	copy(members, e.members[conversationID])
	return members
}

// Respond is accepted and ignored; the loopback never awaits completions.
func (e *Loopback) Respond(httpStatus int, token MessageToken) {}

// UpdateConfig is accepted and ignored.
func (e *Loopback) UpdateConfig(config string, httpStatus int) {}

// Close stops accepting operations.
func (e *Loopback) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.members = make(map[uuid.UUID][]domain.CallMember)
}
