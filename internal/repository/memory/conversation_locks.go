package memory

import (
	"sync"

	"github.com/google/uuid"
)

// ConversationLocks serializes message sends per conversation. Distinct
// conversations proceed in parallel; two sends on the same conversation
// queue behind one another so message order stays stable.
type ConversationLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewConversationLocks() *ConversationLocks {
	return &ConversationLocks{
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (c *ConversationLocks) Lock(conversationId uuid.UUID) {
	c.mu.Lock()
	l, ok := c.locks[conversationId]
	if !ok {
		l = &sync.Mutex{}
		c.locks[conversationId] = l
	}
	c.mu.Unlock()

	l.Lock()
}

func (c *ConversationLocks) Unlock(conversationId uuid.UUID) {
	c.mu.Lock()
	l, ok := c.locks[conversationId]
	c.mu.Unlock()
	if ok {
		l.Unlock()
	}
}
