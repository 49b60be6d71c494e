package services

import "sync"

// ChatLocks hands out one mutex per chat id. Holding it keeps one chat's
// updates in order without blocking other chats. Locks are never removed.
type ChatLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewChatLocks creates an empty lock table
func NewChatLocks() *ChatLocks {
	return &ChatLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the chat's lock is held and returns its release func
func (l *ChatLocks) Lock(chatID string) func() {
	l.mu.Lock()
	lock, exists := l.locks[chatID]
	if !exists {
		lock = &sync.Mutex{}
		l.locks[chatID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
