package call

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"callcenter-core/internal/domain"
	"callcenter-core/internal/engine"
	"callcenter-core/internal/eventbus"
	"callcenter-core/pkg/logger"
)

// Center implements engine.EventHandler. Engine callbacks may arrive on any
// goroutine; each one is marshalled onto the dispatcher before touching
// state.

// Ready marks the engine as able to accept signalling and flushes the
// events buffered while it was starting. Readiness is monotonic.
func (c *Center) Ready(version int) {
	c.dispatcher.dispatch(func() {
		c.mu.Lock()
		if c.ready {
			c.mu.Unlock()
			return
		}
		c.ready = true
		pending := c.buffered
		c.buffered = nil
		c.mu.Unlock()

		logger.Info("Media engine ready",
			zap.Int("version", version),
			zap.Int("buffered_events", len(pending)))

		for _, event := range pending {
			c.metrics.SignallingMessage("inbound")
			c.engine.Received(event)
		}
		c.metrics.SetBufferedEvents(0)
	})
}

// Incoming tracks a remote-initiated call.
func (c *Center) Incoming(conversationID uuid.UUID, messageTime time.Time,
	userID uuid.UUID, clientID string, video, shouldRing bool) {

	c.dispatcher.dispatch(func() {
		conversation, err := c.directory.ConversationByID(conversationID)
		if err != nil {
			logger.Warn("Incoming call for unknown conversation",
				zap.String("conversation_id", conversationID.String()),
				zap.Error(err))
			return
		}

		var previous *domain.CallState
		c.mu.RLock()
		if snapshot, ok := c.snapshots[conversationID]; ok {
			state := snapshot.state
			previous = &state
		}
		c.mu.RUnlock()

		state := domain.Incoming(video, shouldRing, isDegraded(conversation))
		members := []domain.CallMember{domain.NewCallMember(userID, clientID)}
		c.createSnapshot(conversationID, conversation, state, members, userID, video)
		c.notifyStateChanged(conversationID, state, previous, userID, messageTime)

		c.metrics.CallStarted("incoming", video)
		c.metrics.SetActiveCalls(c.snapshotCount())

		logger.Info("Incoming call",
			zap.String("conversation_id", conversationID.String()),
			zap.String("caller_id", userID.String()),
			zap.Bool("video", video),
			zap.Bool("should_ring", shouldRing))
	})
}

// Missed publishes a missed call without touching call state.
func (c *Center) Missed(conversationID uuid.UUID, messageTime time.Time,
	userID uuid.UUID, video bool) {

	c.dispatcher.dispatch(func() {
		eventbus.Publish(c.bus, MissedCall{
			ConversationID: conversationID,
			CallerID:       userID,
			Timestamp:      messageTime,
			Video:          video,
		})
		c.metrics.CallMissed()

		logger.Info("Missed call",
			zap.String("conversation_id", conversationID.String()),
			zap.String("caller_id", userID.String()))
	})
}

// Answered moves an outgoing call to answered.
func (c *Center) Answered(conversationID uuid.UUID) {
	c.dispatcher.dispatch(func() {
		degraded := false
		if conversation, err := c.directory.ConversationByID(conversationID); err == nil {
			degraded = isDegraded(conversation)
		}
		c.applyState(conversationID, domain.Answered(degraded), time.Time{})
	})
}

// DataChannelEstablished moves the call to the data channel state unless
// media is already flowing.
func (c *Center) DataChannelEstablished(conversationID uuid.UUID, userID uuid.UUID, clientID string) {
	c.dispatcher.dispatch(func() {
		c.mu.RLock()
		established := c.snapshots[conversationID].state.Kind == domain.CallStateEstablished
		c.mu.RUnlock()
		if established {
			// Late data channel on a call with flowing media, nothing to do.
			return
		}
		c.applyState(conversationID, domain.EstablishedDataChannel(), time.Time{})
	})
}

// Established moves the call to established and marks the participant's
// audio as flowing. The engine fires this once per participant in group
// calls; the established timestamp is set only by the first.
func (c *Center) Established(conversationID uuid.UUID, userID uuid.UUID, clientID string) {
	c.dispatcher.dispatch(func() {
		c.mu.Lock()
		snapshot, ok := c.snapshots[conversationID]
		if ok && snapshot.state.Kind != domain.CallStateEstablished {
			c.establishedAt = time.Now()
		}
		videoStarted := ok && snapshot.videoState == domain.VideoStateStarted
		c.mu.Unlock()

		if !ok {
			logger.Debug("Established callback for untracked call",
				zap.String("conversation_id", conversationID.String()))
			return
		}

		snapshot.participants.updateAudioEstablished(userID, clientID)

		// The engine forgets the requested video state during negotiation;
		// re-assert it now that media is up.
		if videoStarted {
			c.engine.SetVideoState(conversationID, domain.VideoStateStarted)
		}

		c.applyState(conversationID, domain.Established(), time.Time{})
	})
}

// Closed terminates the call with the engine's reason.
func (c *Center) Closed(reason domain.CallClosedReason, conversationID uuid.UUID,
	messageTime time.Time, userID uuid.UUID) {

	c.dispatcher.dispatch(func() {
		c.applyState(conversationID, domain.Terminating(reason), messageTime)
	})
}

// Metrics counts and logs an engine metrics document.
func (c *Center) Metrics(conversationID uuid.UUID, metricsJSON string) {
	c.dispatcher.dispatch(func() {
		var document map[string]interface{}
		if err := json.Unmarshal([]byte(metricsJSON), &document); err != nil {
			logger.Warn("Invalid metrics document from engine",
				zap.String("conversation_id", conversationID.String()),
				zap.Error(err))
			return
		}
		c.metrics.EngineReport()
		logger.Debug("Engine call metrics",
			zap.String("conversation_id", conversationID.String()),
			zap.Any("metrics", document))
	})
}

// ConfigRequested fetches a fresh call config and feeds it back to the
// engine.
func (c *Center) ConfigRequested() {
	c.dispatcher.dispatch(func() {
		c.transport.RequestCallConfig(func(config string, httpStatus int) {
			c.dispatcher.dispatch(func() {
				c.engine.UpdateConfig(config, httpStatus)
			})
		})
	})
}

// SendMessage delivers an outbound signalling payload through the transport
// and routes the resulting HTTP status back to the engine.
func (c *Center) SendMessage(token engine.MessageToken, conversationID uuid.UUID,
	senderUserID uuid.UUID, senderClientID string, payload []byte) {

	c.dispatcher.dispatch(func() {
		c.metrics.SignallingMessage("outbound")
		c.transport.Send(payload, conversationID, senderUserID, func(httpStatus int) {
			c.dispatcher.dispatch(func() {
				c.engine.Respond(httpStatus, token)
			})
		})
	})
}

// GroupMembersChanged replaces the call's member list with the engine's
// current one.
func (c *Center) GroupMembersChanged(conversationID uuid.UUID) {
	c.dispatcher.dispatch(func() {
		members := c.engine.Members(conversationID)

		c.mu.RLock()
		snapshot, ok := c.snapshots[conversationID]
		c.mu.RUnlock()
		if !ok {
			return
		}
		snapshot.participants.replace(members)
	})
}

// ParticipantsChanged replaces the member list from a consolidated
// participant change document.
func (c *Center) ParticipantsChanged(payload []byte) {
	c.dispatcher.dispatch(func() {
		change, err := engine.DecodeParticipantChange(payload)
		if err != nil {
			logger.Warn("Dropping invalid participant change", zap.Error(err))
			return
		}

		c.mu.RLock()
		snapshot, ok := c.snapshots[change.ConversationID]
		c.mu.RUnlock()
		if !ok {
			return
		}

		members := make([]domain.CallMember, 0, len(change.Members))
		for _, member := range change.Members {
			members = append(members, member.CallMember())
		}
		snapshot.participants.replace(members)
	})
}

// VideoStateChanged updates the sender's video state in every tracked call.
func (c *Center) VideoStateChanged(userID uuid.UUID, clientID string, state domain.VideoState) {
	c.dispatcher.dispatch(func() {
		c.mu.RLock()
		participants := make([]*participantsSnapshot, 0, len(c.snapshots))
		for _, snapshot := range c.snapshots {
			participants = append(participants, snapshot.participants)
		}
		c.mu.RUnlock()

		for _, p := range participants {
			p.updateVideoState(userID, clientID, state)
		}
	})
}

// ConstantBitRateChanged records CBR renegotiation on the call with flowing
// media.
func (c *Center) ConstantBitRateChanged(enabled bool) {
	c.dispatcher.dispatch(func() {
		c.mu.Lock()
		updated := false
		for conversationID, snapshot := range c.snapshots {
			if snapshot.state.HasMedia() {
				c.snapshots[conversationID] = snapshot.withConstantBitRate(enabled)
				updated = true
				break
			}
		}
		c.mu.Unlock()

		if updated {
			eventbus.Publish(c.bus, ConstantBitRateChanged{Enabled: enabled})
		}
	})
}

// MediaStopped marks the call's media stream as ended without tearing the
// call down.
func (c *Center) MediaStopped(conversationID uuid.UUID) {
	c.dispatcher.dispatch(func() {
		c.applyState(conversationID, domain.MediaStopped(), time.Time{})
	})
}

// NetworkQualityChanged records the quality of one call leg and refreshes
// the call's aggregate.
func (c *Center) NetworkQualityChanged(conversationID uuid.UUID, userID uuid.UUID,
	clientID string, quality domain.NetworkQuality) {

	c.dispatcher.dispatch(func() {
		c.mu.RLock()
		snapshot, ok := c.snapshots[conversationID]
		c.mu.RUnlock()
		if !ok {
			return
		}

		snapshot.participants.updateNetworkQuality(userID, clientID, quality)

		c.mu.Lock()
		if current, still := c.snapshots[conversationID]; still {
			c.snapshots[conversationID] = current.withNetworkQuality(
				current.participants.networkQuality())
		}
		c.mu.Unlock()

		eventbus.Publish(c.bus, NetworkQualityChanged{
			ConversationID: conversationID,
			UserID:         userID,
			ClientID:       clientID,
			Quality:        quality,
		})
	})
}

// MutedChanged publishes the new microphone mute state.
func (c *Center) MutedChanged(muted bool) {
	c.dispatcher.dispatch(func() {
		eventbus.Publish(c.bus, MutedChanged{Muted: muted})
	})
}

// flush waits for all previously enqueued dispatcher tasks to finish. Two
// rounds, as completions running in the first round enqueue follow-up tasks.
func (c *Center) flush() {
	c.dispatcher.call(func() {})
	c.dispatcher.call(func() {})
}
