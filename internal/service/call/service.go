// Package call implements the call center: the per-conversation call state
// machine driven by the media engine on one side and by user operations on
// the other. All state mutations run on a single serialized dispatcher;
// accessors may be called from any goroutine.
package call

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"callcenter-core/internal/config"
	"callcenter-core/internal/domain"
	"callcenter-core/internal/engine"
	"callcenter-core/internal/eventbus"
	"callcenter-core/internal/transport"
	"callcenter-core/pkg/logger"
	"callcenter-core/pkg/metrics"
)

// Directory resolves the users and conversations referenced by call
// signalling and reports security level changes.
type Directory interface {
	UserByID(id uuid.UUID) (*domain.User, error)
	ConversationByID(id uuid.UUID) (*domain.Conversation, error)
	SubscribeSecurityChanges(handler func(conversationID uuid.UUID, level domain.SecurityLevel)) func()
}

// Params carries the collaborators of a call center.
type Params struct {
	SelfUserID   uuid.UUID
	SelfClientID string
	Config       *config.Config

	// NewEngine constructs the media engine with the center as its event
	// handler. The engine may start delivering callbacks immediately.
	NewEngine func(handler engine.EventHandler) engine.Engine

	Transport transport.Transport
	Directory Directory
	Bus       *eventbus.Bus

	// Metrics may be nil to disable instrumentation.
	Metrics *metrics.CallMetrics
}

// Center coordinates call state for all conversations of one user.
type Center struct {
	selfUserID     uuid.UUID
	selfClientID   string
	audioOnlyLimit int
	useCBR         bool

	engine    engine.Engine
	transport transport.Transport
	directory Directory
	bus       *eventbus.Bus
	metrics   *metrics.CallMetrics

	dispatcher *dispatcher

	mu             sync.RWMutex
	snapshots      map[uuid.UUID]callSnapshot
	buffered       []domain.CallEvent
	ready          bool
	establishedAt  time.Time
	cancelSecurity func()
}

// NewCenter wires a call center to its engine, transport and directory. The
// engine is constructed last so that its callbacks always find an
// initialized center.
func NewCenter(params Params) (*Center, error) {
	if params.SelfUserID == uuid.Nil {
		return nil, errors.New("call center requires a self user id")
	}
	if params.NewEngine == nil {
		return nil, errors.New("call center requires an engine factory")
	}
	if params.Transport == nil {
		return nil, errors.New("call center requires a transport")
	}
	if params.Directory == nil {
		return nil, errors.New("call center requires a directory")
	}

	cfg := params.Config
	if cfg == nil {
		cfg = config.LoadConfig()
	}
	bus := params.Bus
	if bus == nil {
		bus = eventbus.New()
	}

	c := &Center{
		selfUserID:     params.SelfUserID,
		selfClientID:   params.SelfClientID,
		audioOnlyLimit: cfg.AudioOnlyParticipantLimit,
		useCBR:         cfg.UseConstantBitRate,
		transport:      params.Transport,
		directory:      params.Directory,
		bus:            bus,
		metrics:        params.Metrics,
		dispatcher:     newDispatcher(),
		snapshots:      make(map[uuid.UUID]callSnapshot),
	}

	c.cancelSecurity = params.Directory.SubscribeSecurityChanges(
		func(conversationID uuid.UUID, level domain.SecurityLevel) {
			c.dispatcher.dispatch(func() {
				c.securityLevelChanged(conversationID, level)
			})
		})

	c.engine = params.NewEngine(c)

	return c, nil
}

// Bus returns the event bus carrying this center's notifications.
func (c *Center) Bus() *eventbus.Bus {
	return c.bus
}

// Close shuts the engine and the dispatcher down. The center must not be
// used afterwards.
func (c *Center) Close() {
	if c.cancelSecurity != nil {
		c.cancelSecurity()
	}
	c.engine.Close()
	c.dispatcher.stop()
}

// ---------- Operations ----------

// StartCall starts a call in the conversation, ending any other ongoing
// call first. It reports whether the engine accepted the call.
func (c *Center) StartCall(conversationID uuid.UUID, video bool) bool {
	var started bool
	c.dispatcher.call(func() {
		started = c.startCall(conversationID, video)
	})
	return started
}

// AnswerCall accepts a pending incoming call, ending any other ongoing call
// first. It reports whether the engine accepted the answer.
func (c *Center) AnswerCall(conversationID uuid.UUID, video bool) bool {
	var answered bool
	c.dispatcher.call(func() {
		answered = c.answerCall(conversationID, video)
	})
	return answered
}

// CloseCall ends the conversation's call. Group calls keep running for the
// other participants and are rewritten to a non-ringing incoming state.
func (c *Center) CloseCall(conversationID uuid.UUID) {
	c.dispatcher.call(func() {
		c.closeCall(conversationID, domain.CallClosedReasonNormal)
	})
}

// ForceCloseCall ends the conversation's call unconditionally, clearing the
// snapshot even for group calls.
func (c *Center) ForceCloseCall(conversationID uuid.UUID, reason domain.CallClosedReason) {
	c.dispatcher.call(func() {
		c.engine.End(conversationID)
		c.applyState(conversationID, domain.Terminating(reason), time.Now())
	})
}

// RejectCall declines a pending incoming call. The call keeps ringing on
// the user's other devices, so the snapshot survives without ringing.
func (c *Center) RejectCall(conversationID uuid.UUID) {
	c.dispatcher.call(func() {
		c.rejectCall(conversationID)
	})
}

// EndAllCalls ends every tracked call except the excluded conversation.
// Pass uuid.Nil to end all of them.
func (c *Center) EndAllCalls(excluding uuid.UUID) {
	c.dispatcher.call(func() {
		c.endAllCalls(excluding)
	})
}

// SetVideoState requests a new local video send state. BadConnection is an
// engine-reported state and is never forwarded.
func (c *Center) SetVideoState(conversationID uuid.UUID, state domain.VideoState) {
	c.dispatcher.call(func() {
		c.setVideoState(conversationID, state)
	})
}

// Received feeds an inbound signalling payload to the engine, buffering it
// until the engine reported readiness.
func (c *Center) Received(event domain.CallEvent) {
	c.dispatcher.call(func() {
		c.received(event)
	})
}

// ---------- Accessors ----------

// CallState returns the conversation's call state, NoCall when idle.
func (c *Center) CallState(conversationID uuid.UUID) domain.CallState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if snapshot, ok := c.snapshots[conversationID]; ok {
		return snapshot.state
	}
	return domain.NoCall()
}

// IsVideoCall reports whether the conversation's call was started with
// video.
func (c *Center) IsVideoCall(conversationID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshots[conversationID].isVideo
}

// IsConstantBitRate reports whether the conversation's call negotiated CBR
// audio.
func (c *Center) IsConstantBitRate(conversationID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshots[conversationID].isConstantBitRate
}

// VideoState returns the local video send state of the conversation's call.
func (c *Center) VideoState(conversationID uuid.UUID) domain.VideoState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshots[conversationID].videoState
}

// NetworkQuality returns the aggregated quality of the conversation's call,
// the worst individual leg.
func (c *Center) NetworkQuality(conversationID uuid.UUID) domain.NetworkQuality {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshots[conversationID].networkQuality
}

// CallStarter returns the user who started the conversation's call,
// uuid.Nil when idle.
func (c *Center) CallStarter(conversationID uuid.UUID) uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshots[conversationID].starterID
}

// EstablishedAt returns when the current call first reached established,
// zero when no call did.
func (c *Center) EstablishedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.establishedAt
}

// Participants returns the resolved participant list of the conversation's
// call.
func (c *Center) Participants(conversationID uuid.UUID) []domain.CallParticipant {
	c.mu.RLock()
	snapshot, ok := c.snapshots[conversationID]
	c.mu.RUnlock()
	if !ok || snapshot.participants == nil {
		return nil
	}
	return snapshot.participants.resolved()
}

// ParticipantState returns the connection state of one user in the
// conversation's call.
func (c *Center) ParticipantState(conversationID, userID uuid.UUID) domain.CallParticipantState {
	c.mu.RLock()
	snapshot, ok := c.snapshots[conversationID]
	c.mu.RUnlock()
	if !ok || snapshot.participants == nil {
		return domain.UnconnectedParticipant()
	}
	return snapshot.participants.stateForUser(userID)
}

// NonIdleCalls returns the state of every tracked call.
func (c *Center) NonIdleCalls() map[uuid.UUID]domain.CallState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	calls := make(map[uuid.UUID]domain.CallState, len(c.snapshots))
	for conversationID, snapshot := range c.snapshots {
		calls[conversationID] = snapshot.state
	}
	return calls
}

// ActiveCalls returns the calls whose media or data channel is up.
func (c *Center) ActiveCalls() map[uuid.UUID]domain.CallState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	calls := make(map[uuid.UUID]domain.CallState)
	for conversationID, snapshot := range c.snapshots {
		if snapshot.state.HasMedia() {
			calls[conversationID] = snapshot.state
		}
	}
	return calls
}

// ---------- Dispatcher-side internals ----------

func (c *Center) startCall(conversationID uuid.UUID, video bool) bool {
	conversation, err := c.directory.ConversationByID(conversationID)
	if err != nil {
		logger.Warn("Cannot start call in unknown conversation",
			zap.String("conversation_id", conversationID.String()),
			zap.Error(err))
		return false
	}

	c.endAllCalls(conversationID)
	c.clearSnapshot(conversationID)

	started := c.engine.Start(conversationID,
		c.callType(conversation, video),
		engineConversationType(conversation),
		c.useCBR)
	if !started {
		logger.Warn("Engine rejected call start",
			zap.String("conversation_id", conversationID.String()))
		return false
	}

	// A direct call has a known remote from the start; group members only
	// arrive through engine callbacks.
	var members []domain.CallMember
	if !conversation.IsGroup() && conversation.ConnectedUserID != uuid.Nil {
		members = []domain.CallMember{domain.NewCallMember(conversation.ConnectedUserID, "")}
	}

	state := domain.Outgoing(isDegraded(conversation))
	c.createSnapshot(conversationID, conversation, state, members, c.selfUserID, video)
	c.notifyStateChanged(conversationID, state, nil, c.selfUserID, time.Time{})

	c.metrics.CallStarted("outgoing", video)
	c.metrics.SetActiveCalls(c.snapshotCount())

	logger.Info("Call started",
		zap.String("conversation_id", conversationID.String()),
		zap.Bool("video", video))
	return true
}

func (c *Center) answerCall(conversationID uuid.UUID, video bool) bool {
	conversation, err := c.directory.ConversationByID(conversationID)
	if err != nil {
		logger.Warn("Cannot answer call in unknown conversation",
			zap.String("conversation_id", conversationID.String()),
			zap.Error(err))
		return false
	}

	c.endAllCalls(conversationID)

	if !video {
		c.setVideoState(conversationID, domain.VideoStateStopped)
	}

	answered := c.engine.Answer(conversationID, c.callType(conversation, video), c.useCBR)
	if !answered {
		logger.Warn("Engine rejected call answer",
			zap.String("conversation_id", conversationID.String()))
		return false
	}

	c.mu.Lock()
	snapshot, ok := c.snapshots[conversationID]
	var previous domain.CallState
	if ok {
		previous = snapshot.state
		c.snapshots[conversationID] = snapshot.withState(domain.Answered(isDegraded(conversation)))
	}
	c.mu.Unlock()

	if ok {
		c.notifyStateChanged(conversationID, domain.Answered(isDegraded(conversation)),
			&previous, snapshot.starterID, time.Time{})
	}

	c.metrics.CallAnswered()

	logger.Info("Call answered",
		zap.String("conversation_id", conversationID.String()),
		zap.Bool("video", video))
	return true
}

func (c *Center) closeCall(conversationID uuid.UUID, reason domain.CallClosedReason) {
	c.engine.End(conversationID)

	c.mu.Lock()
	snapshot, ok := c.snapshots[conversationID]
	if !ok {
		c.mu.Unlock()
		return
	}

	if reason == domain.CallClosedReasonSecurityDegraded {
		// A degraded call must not linger in any form; close it out even
		// for groups.
		c.mu.Unlock()
		c.applyState(conversationID, domain.Terminating(reason), time.Now())
		return
	}

	if snapshot.isGroup {
		// The group call keeps running for the others. Rewrite to a
		// non-ringing incoming state without notifying; the user just acted
		// on this call.
		degraded := snapshot.state.Degraded
		c.snapshots[conversationID] = snapshot.withState(
			domain.Incoming(snapshot.isVideo, false, degraded))
		c.mu.Unlock()
		return
	}

	// Mark terminating and wait for the engine's close callback to clear
	// the snapshot and notify.
	c.snapshots[conversationID] = snapshot.withState(domain.Terminating(reason))
	c.mu.Unlock()
}

func (c *Center) rejectCall(conversationID uuid.UUID) {
	c.engine.Reject(conversationID)

	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot, ok := c.snapshots[conversationID]
	if !ok {
		return
	}
	// The call keeps ringing elsewhere; keep tracking it without ringing
	// here. No notification, the user just acted on this call.
	degraded := snapshot.state.Degraded
	c.snapshots[conversationID] = snapshot.withState(
		domain.Incoming(snapshot.isVideo, false, degraded))
}

func (c *Center) endAllCalls(excluding uuid.UUID) {
	c.mu.RLock()
	states := make(map[uuid.UUID]domain.CallState, len(c.snapshots))
	for conversationID, snapshot := range c.snapshots {
		states[conversationID] = snapshot.state
	}
	c.mu.RUnlock()

	for conversationID, state := range states {
		if conversationID == excluding {
			continue
		}
		if state.Kind == domain.CallStateIncoming {
			c.rejectCall(conversationID)
		} else {
			c.closeCall(conversationID, domain.CallClosedReasonNormal)
		}
	}
}

func (c *Center) setVideoState(conversationID uuid.UUID, state domain.VideoState) {
	if state == domain.VideoStateBadConnection {
		return
	}

	c.mu.Lock()
	if snapshot, ok := c.snapshots[conversationID]; ok {
		c.snapshots[conversationID] = snapshot.withVideoState(state)
	}
	c.mu.Unlock()

	c.engine.SetVideoState(conversationID, state)
}

func (c *Center) received(event domain.CallEvent) {
	c.mu.Lock()
	if !c.ready {
		c.buffered = append(c.buffered, event)
		buffered := len(c.buffered)
		c.mu.Unlock()
		c.metrics.SetBufferedEvents(buffered)
		logger.Debug("Buffered call event until engine readiness",
			zap.String("conversation_id", event.ConversationID.String()),
			zap.Int("buffered", buffered))
		return
	}
	c.mu.Unlock()

	c.metrics.SignallingMessage("inbound")
	c.engine.Received(event)
}

// applyState moves the conversation to the given state, notifying observers
// and clearing terminated calls. A stillOngoing termination means the group
// call continues without the self user and is rewritten to a non-ringing
// incoming state.
func (c *Center) applyState(conversationID uuid.UUID, state domain.CallState, messageTime time.Time) {
	stillOngoing := state.Kind == domain.CallStateTerminating &&
		state.Reason == domain.CallClosedReasonStillOngoing

	degraded := false
	if stillOngoing {
		if conversation, err := c.directory.ConversationByID(conversationID); err == nil {
			degraded = isDegraded(conversation)
		}
	}

	c.mu.Lock()
	snapshot, exists := c.snapshots[conversationID]

	if !exists {
		c.mu.Unlock()
		logger.Debug("Dropping state for untracked call",
			zap.String("conversation_id", conversationID.String()),
			zap.String("state", state.String()))
		return
	}

	if stillOngoing {
		state = domain.Incoming(snapshot.isVideo, false, degraded)
	}

	previous := snapshot.state

	if state.Kind == domain.CallStateTerminating {
		hadMedia := previous.Kind == domain.CallStateEstablished
		establishedAt := c.establishedAt
		delete(c.snapshots, conversationID)
		if len(c.snapshots) == 0 {
			c.establishedAt = time.Time{}
		}
		active := len(c.snapshots)
		c.mu.Unlock()

		c.notifyStateChanged(conversationID, state, &previous, snapshot.starterID, messageTime)
		c.metrics.CallClosed(state.Reason.String())
		c.metrics.SetActiveCalls(active)
		if hadMedia && !establishedAt.IsZero() {
			c.metrics.ObserveCallDuration(time.Since(establishedAt))
		}

		logger.Info("Call closed",
			zap.String("conversation_id", conversationID.String()),
			zap.String("reason", state.Reason.String()))
		return
	}

	c.snapshots[conversationID] = snapshot.withState(state)
	c.mu.Unlock()

	c.notifyStateChanged(conversationID, state, &previous, snapshot.starterID, messageTime)
}

func (c *Center) securityLevelChanged(conversationID uuid.UUID, level domain.SecurityLevel) {
	c.mu.Lock()
	snapshot, ok := c.snapshots[conversationID]
	if !ok {
		c.mu.Unlock()
		return
	}

	if level == domain.SecurityLevelSecureWithIgnored && snapshot.state.HasMedia() {
		c.mu.Unlock()
		logger.Info("Closing call after security degradation",
			zap.String("conversation_id", conversationID.String()))
		c.closeCall(conversationID, domain.CallClosedReasonSecurityDegraded)
		return
	}

	updated := snapshot.state.WithSecurityLevel(level)
	if updated == snapshot.state {
		c.mu.Unlock()
		return
	}
	previous := snapshot.state
	c.snapshots[conversationID] = snapshot.withState(updated)
	c.mu.Unlock()

	c.notifyStateChanged(conversationID, updated, &previous, snapshot.starterID, time.Now())
}

// ---------- Snapshot bookkeeping ----------

func (c *Center) createSnapshot(conversationID uuid.UUID, conversation *domain.Conversation,
	state domain.CallState, members []domain.CallMember, starterID uuid.UUID, video bool) {

	videoState := domain.VideoStateStopped
	if video {
		videoState = domain.VideoStateStarted
	}

	snapshot := callSnapshot{
		participants: newParticipantsSnapshot(c, conversationID, members),
		state:        state,
		starterID:    starterID,
		isVideo:      video,
		isGroup:      conversation.IsGroup(),
		videoState:   videoState,
	}

	c.mu.Lock()
	c.snapshots[conversationID] = snapshot
	c.mu.Unlock()
}

func (c *Center) clearSnapshot(conversationID uuid.UUID) {
	c.mu.Lock()
	delete(c.snapshots, conversationID)
	c.mu.Unlock()
}

func (c *Center) snapshotCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snapshots)
}

// ---------- Notifications ----------

func (c *Center) notifyStateChanged(conversationID uuid.UUID, state domain.CallState,
	previous *domain.CallState, callerID uuid.UUID, messageTime time.Time) {

	eventbus.Publish(c.bus, StateChanged{
		ConversationID: conversationID,
		State:          state,
		Previous:       previous,
		CallerID:       callerID,
		MessageTime:    messageTime,
	})
}

func (c *Center) publishParticipantsChanged(event ParticipantsChanged) {
	eventbus.Publish(c.bus, event)
}

// ---------- Helpers ----------

// callType forces large conversations to audio only.
func (c *Center) callType(conversation *domain.Conversation, video bool) engine.CallType {
	if conversation.ParticipantCount > c.audioOnlyLimit {
		return engine.CallTypeAudioOnly
	}
	if video {
		return engine.CallTypeVideo
	}
	return engine.CallTypeNormal
}

func engineConversationType(conversation *domain.Conversation) engine.ConversationType {
	switch conversation.Type {
	case domain.ConversationTypeGroup:
		return engine.ConversationTypeGroup
	case domain.ConversationTypeConference:
		return engine.ConversationTypeConference
	default:
		return engine.ConversationTypeOneToOne
	}
}

func isDegraded(conversation *domain.Conversation) bool {
	return conversation.SecurityLevel == domain.SecurityLevelSecureWithIgnored
}
