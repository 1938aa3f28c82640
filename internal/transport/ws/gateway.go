// Package ws maintains the WebSocket connection to the signalling gateway
// and feeds inbound call events into the call center.
package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"callcenter-core/internal/domain"
	"callcenter-core/pkg/constants"
	"callcenter-core/pkg/logger"
)

// EventReceiver consumes inbound signalling payloads. The call center
// implements it.
type EventReceiver interface {
	Received(event domain.CallEvent)
}

// eventEnvelope is the gateway's wire framing for call events.
type eventEnvelope struct {
	Type            string    `json:"type"`
	ConversationID  uuid.UUID `json:"conversation_id"`
	UserID          uuid.UUID `json:"sender_id"`
	ClientID        string    `json:"sender_client_id"`
	Payload         []byte    `json:"payload"`
	ServerTimestamp time.Time `json:"server_timestamp"`
}

const envelopeTypeCallEvent = "call_event"

// Gateway is a WebSocket client delivering call events to an EventReceiver.
type Gateway struct {
	url      string
	receiver EventReceiver
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
}

// NewGateway creates a gateway for the given WebSocket URL.
func NewGateway(url string, receiver EventReceiver) *Gateway {
	return &Gateway{
		url:      url,
		receiver: receiver,
		send:     make(chan []byte, 256),
		done:     make(chan struct{}),
	}
}

// Connect dials the gateway and starts the read/write pumps.
func (g *Gateway) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(g.url, nil)
	if err != nil {
		return err
	}
	g.conn = conn

	go g.writePump()
	go g.readPump()

	return nil
}

// Send queues a message for delivery over the socket. It reports false when
// the gateway is closed or the outbound queue is full.
func (g *Gateway) Send(message []byte) bool {
	select {
	case <-g.done:
		return false
	case g.send <- message:
		return true
	default:
		logger.Warn("Gateway send queue full, dropping message")
		return false
	}
}

// Close tears the connection down.
func (g *Gateway) Close() {
	close(g.done)
	if g.conn != nil {
		g.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		g.conn.Close()
	}
}

// readPump reads envelopes from the gateway and hands call events to the
// receiver.
func (g *Gateway) readPump() {
	defer g.conn.Close()

	g.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval))
	g.conn.SetPongHandler(func(string) error {
		g.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval))
		return nil
	})

	for {
		_, message, err := g.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Gateway connection closed", zap.Error(err))
			}
			return
		}

		var envelope eventEnvelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			logger.Warn("Invalid envelope from gateway", zap.Error(err))
			continue
		}

		if envelope.Type != envelopeTypeCallEvent {
			continue
		}

		g.receiver.Received(domain.CallEvent{
			Payload:         envelope.Payload,
			LocalTimestamp:  time.Now(),
			ServerTimestamp: envelope.ServerTimestamp,
			ConversationID:  envelope.ConversationID,
			UserID:          envelope.UserID,
			ClientID:        envelope.ClientID,
		})
	}
}

// writePump writes queued messages and keeps the connection alive with pings.
func (g *Gateway) writePump() {
	ticker := time.NewTicker(constants.WebSocketPingInterval / 2)
	defer func() {
		ticker.Stop()
		g.conn.Close()
	}()

	for {
		select {
		case <-g.done:
			return

		case message := <-g.send:
			g.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if err := g.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			g.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if err := g.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
