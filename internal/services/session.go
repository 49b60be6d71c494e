package services

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrContextKeyNotFound = errors.New("key not found in context")
)

// Flow is the multi-step interaction a chat is currently in
type Flow string

const (
	FlowNone   Flow = ""
	FlowAdd    Flow = "add"
	FlowEdit   Flow = "edit"
	FlowDelete Flow = "delete"
)

// State is the step within the active flow
type State string

const (
	StateIdle          State = "idle"
	StateAwaitingName  State = "awaiting_name"
	StateAwaitingAge   State = "awaiting_age"
	StateAwaitingIndex State = "awaiting_index"
)

// Session context keys
const (
	ContextKeyName           = "name"
	ContextKeyPersonsList    = "persons_list"
	ContextKeyChosenPersonID = "chosen_person_id"
)

// Session represents the conversation context of one chat
type Session struct {
	SessionID  string                 `json:"session_id"`
	ChatID     string                 `json:"chat_id"`
	Flow       Flow                   `json:"flow"`
	State      State                  `json:"state"`
	CreatedAt  time.Time              `json:"created_at"`
	LastActive time.Time              `json:"last_active"`
	Context    map[string]interface{} `json:"-"` // transient flow data
}

// IsIdle reports whether the chat is outside of any flow
func (s *Session) IsIdle() bool {
	return s.State == StateIdle || s.State == ""
}

func (s *Session) clone() *Session {
	copied := *s
	copied.Context = make(map[string]interface{}, len(s.Context))
	for k, v := range s.Context {
		copied.Context[k] = v
	}
	return &copied
}

// SessionStore is the conversation context store used by the state machine
type SessionStore interface {
	GetOrCreateSession(chatID string) *Session
	GetSession(chatID string) (*Session, error)
	SetFlowState(chatID string, flow Flow, state State) error
	UpdateSessionContext(chatID string, key string, value interface{}) error
	GetSessionContext(chatID string, key string) (interface{}, error)
	DeleteSessionContext(chatID string, key string) error
	CompleteFlow(chatID string) error
	LockChat(chatID string) (unlock func())
}

// SessionManager keeps sessions in memory. Sessions are not persisted and do
// not expire; a chat stuck in a flow stays there until it finishes or cancels.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	chatLocks *ChatLocks
}

// NewSessionManager creates a new session manager
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions:  make(map[string]*Session),
		chatLocks: NewChatLocks(),
	}
}

// GetOrCreateSession returns a copy of the chat's session, creating an idle one on first use
func (sm *SessionManager) GetOrCreateSession(chatID string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if existing, exists := sm.sessions[chatID]; exists {
		return existing.clone()
	}

	now := time.Now()
	session := &Session{
		SessionID:  uuid.NewString(),
		ChatID:     chatID,
		Flow:       FlowNone,
		State:      StateIdle,
		CreatedAt:  now,
		LastActive: now,
		Context:    make(map[string]interface{}),
	}
	sm.sessions[chatID] = session
	log.Printf("Session created for chat %s", chatID)

	return session.clone()
}

// GetSession retrieves a copy of an existing session
func (sm *SessionManager) GetSession(chatID string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[chatID]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session.clone(), nil
}

// SetFlowState moves the chat to the given flow and step
func (sm *SessionManager) SetFlowState(chatID string, flow Flow, state State) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[chatID]
	if !exists {
		return ErrSessionNotFound
	}

	session.Flow = flow
	session.State = state
	session.LastActive = time.Now()
	return nil
}

// UpdateSessionContext stores a value for the chat's current flow
func (sm *SessionManager) UpdateSessionContext(chatID string, key string, value interface{}) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[chatID]
	if !exists {
		return ErrSessionNotFound
	}

	session.Context[key] = value
	session.LastActive = time.Now()
	return nil
}

// GetSessionContext retrieves a value from session context
func (sm *SessionManager) GetSessionContext(chatID string, key string) (interface{}, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[chatID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	value, exists := session.Context[key]
	if !exists {
		return nil, ErrContextKeyNotFound
	}
	return value, nil
}

// DeleteSessionContext removes one context value; missing keys are ignored
func (sm *SessionManager) DeleteSessionContext(chatID string, key string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[chatID]
	if !exists {
		return ErrSessionNotFound
	}
	delete(session.Context, key)
	return nil
}

// CompleteFlow returns the chat to idle and drops every draft value
func (sm *SessionManager) CompleteFlow(chatID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[chatID]
	if !exists {
		return ErrSessionNotFound
	}

	if session.Flow != FlowNone {
		log.Printf("Completed %s flow for chat %s", session.Flow, chatID)
	}
	session.Flow = FlowNone
	session.State = StateIdle
	session.Context = make(map[string]interface{})
	session.LastActive = time.Now()
	return nil
}

// LockChat serializes update handling for one chat. Other chats are not blocked.
func (sm *SessionManager) LockChat(chatID string) func() {
	return sm.chatLocks.Lock(chatID)
}

// GetActiveSessions returns the sessions currently inside a flow (for monitoring)
func (sm *SessionManager) GetActiveSessions() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	activeSessions := []*Session{}
	for _, session := range sm.sessions {
		if !session.IsIdle() {
			activeSessions = append(activeSessions, session.clone())
		}
	}
	return activeSessions
}

// SessionStats provides session statistics
type SessionStats struct {
	TotalSessions  int            `json:"total_sessions"`
	ActiveSessions int            `json:"active_sessions"`
	SessionsByFlow map[string]int `json:"sessions_by_flow"`
}

// GetSessionStats returns current session statistics
func (sm *SessionManager) GetSessionStats() *SessionStats {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	stats := &SessionStats{
		TotalSessions:  len(sm.sessions),
		SessionsByFlow: make(map[string]int),
	}
	for _, session := range sm.sessions {
		if session.IsIdle() {
			continue
		}
		stats.ActiveSessions++
		stats.SessionsByFlow[string(session.Flow)]++
	}
	return stats
}
