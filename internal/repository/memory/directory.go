// Package memory provides an in-memory user/conversation directory, used by
// tests and by deployments where the application keeps its data model in
// process.
package memory

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"callcenter-core/internal/domain"
)

// Directory resolves users and conversations from in-memory maps and fans
// out security level changes to subscribers.
type Directory struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]domain.User
	conversations map[uuid.UUID]domain.Conversation
	nextSubID     uint64
	subscribers   map[uint64]func(conversationID uuid.UUID, level domain.SecurityLevel)
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		users:         make(map[uuid.UUID]domain.User),
		conversations: make(map[uuid.UUID]domain.Conversation),
		subscribers:   make(map[uint64]func(uuid.UUID, domain.SecurityLevel)),
	}
}

// AddUser registers or replaces a user.
func (d *Directory) AddUser(user domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.ID] = user
}

// AddConversation registers or replaces a conversation.
func (d *Directory) AddConversation(conversation domain.Conversation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.conversations[conversation.ID] = conversation
}

// SetSecurityLevel updates a conversation's security level and notifies
// subscribers of the change.
func (d *Directory) SetSecurityLevel(conversationID uuid.UUID, level domain.SecurityLevel) {
	d.mu.Lock()
	conversation, ok := d.conversations[conversationID]
	if !ok {
		d.mu.Unlock()
		return
	}
	conversation.SecurityLevel = level
	d.conversations[conversationID] = conversation

	subscribers := make([]func(uuid.UUID, domain.SecurityLevel), 0, len(d.subscribers))
	for _, fn := range d.subscribers {
		subscribers = append(subscribers, fn)
	}
	d.mu.Unlock()

	for _, fn := range subscribers {
		fn(conversationID, level)
	}
}

// UserByID resolves a user.
func (d *Directory) UserByID(id uuid.UUID) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found: %s", id)
	}
	return &user, nil
}

// ConversationByID resolves a conversation.
func (d *Directory) ConversationByID(id uuid.UUID) (*domain.Conversation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	conversation, ok := d.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation not found: %s", id)
	}
	return &conversation, nil
}

// SubscribeSecurityChanges registers a handler for security level changes.
// The returned cancel func unregisters it.
func (d *Directory) SubscribeSecurityChanges(handler func(conversationID uuid.UUID, level domain.SecurityLevel)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextSubID++
	id := d.nextSubID
	d.subscribers[id] = handler

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subscribers, id)
	}
}
