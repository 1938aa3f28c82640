// Package redis resolves users and conversations from the Redis directory
// kept in sync by the backend, and relays security level changes via Pub/Sub.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"callcenter-core/internal/domain"
	"callcenter-core/pkg/constants"
	"callcenter-core/pkg/logger"
)

const securityChannel = "conversations:security"

// DirectoryRepository resolves call identities from Redis.
type DirectoryRepository struct {
	client *redis.Client
}

// NewDirectoryRepository creates a directory against the given client.
func NewDirectoryRepository(client *redis.Client) *DirectoryRepository {
	return &DirectoryRepository{client: client}
}

// securityChange is the Pub/Sub document published by the backend when a
// conversation's security level changes.
type securityChange struct {
	ConversationID uuid.UUID            `json:"conversation_id"`
	SecurityLevel  domain.SecurityLevel `json:"security_level"`
}

// UserByID resolves a user from the "user:<id>" key.
func (r *DirectoryRepository) UserByID(id uuid.UUID) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DirectoryLookupTimeout)
	defer cancel()

	key := fmt.Sprintf("user:%s", id)
	raw, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user %s: %w", id, err)
	}

	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", id, err)
	}

	return &user, nil
}

// ConversationByID resolves a conversation from the "conversation:<id>" key.
func (r *DirectoryRepository) ConversationByID(id uuid.UUID) (*domain.Conversation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DirectoryLookupTimeout)
	defer cancel()

	key := fmt.Sprintf("conversation:%s", id)
	raw, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conversation %s: %w", id, err)
	}

	var conversation domain.Conversation
	if err := json.Unmarshal([]byte(raw), &conversation); err != nil {
		return nil, fmt.Errorf("failed to decode conversation %s: %w", id, err)
	}

	return &conversation, nil
}

// SubscribeSecurityChanges subscribes to the security Pub/Sub channel and
// invokes handler for every change. The returned cancel func stops the
// subscription.
func (r *DirectoryRepository) SubscribeSecurityChanges(handler func(conversationID uuid.UUID, level domain.SecurityLevel)) func() {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		pubsub := r.client.Subscribe(ctx, securityChannel)
		defer pubsub.Close()

		if _, err := pubsub.Receive(ctx); err != nil {
			logger.Error("Failed to subscribe to security channel", zap.Error(err))
			return
		}

		ch := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-ch:
				if msg == nil {
					continue
				}

				var change securityChange
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					logger.Warn("Failed to unmarshal security change", zap.Error(err))
					continue
				}

				handler(change.ConversationID, change.SecurityLevel)
			}
		}
	}()

	return cancel
}
