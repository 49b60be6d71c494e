package services

import (
	"errors"
	"sync"
	"testing"
)

func TestSessionManager_CreateOnce(t *testing.T) {
	sm := NewSessionManager()

	first := sm.GetOrCreateSession("1")
	second := sm.GetOrCreateSession("1")
	if first.SessionID == "" || first.SessionID != second.SessionID {
		t.Errorf("expected a stable session id, got %q and %q", first.SessionID, second.SessionID)
	}
	if !first.IsIdle() || first.Flow != FlowNone {
		t.Errorf("new session should be idle, got %s/%s", first.Flow, first.State)
	}

	if _, err := sm.GetSession("2"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionManager_ContextRoundTrip(t *testing.T) {
	sm := NewSessionManager()
	sm.GetOrCreateSession("1")

	if _, err := sm.GetSessionContext("1", ContextKeyName); !errors.Is(err, ErrContextKeyNotFound) {
		t.Fatalf("expected ErrContextKeyNotFound, got %v", err)
	}
	if err := sm.UpdateSessionContext("1", ContextKeyName, "Ann"); err != nil {
		t.Fatal(err)
	}
	got, err := sm.GetSessionContext("1", ContextKeyName)
	if err != nil || got != "Ann" {
		t.Errorf("got %v, %v", got, err)
	}

	if err := sm.DeleteSessionContext("1", ContextKeyName); err != nil {
		t.Fatal(err)
	}
	if err := sm.DeleteSessionContext("1", ContextKeyName); err != nil {
		t.Errorf("deleting a missing key should be a no-op, got %v", err)
	}

	if err := sm.UpdateSessionContext("missing", ContextKeyName, "x"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionManager_ReturnsCopies(t *testing.T) {
	sm := NewSessionManager()
	s := sm.GetOrCreateSession("1")
	s.State = StateAwaitingAge
	s.Context[ContextKeyName] = "leak"

	stored, _ := sm.GetSession("1")
	if stored.State != StateIdle {
		t.Errorf("caller mutation leaked into the store: %s", stored.State)
	}
	if _, ok := stored.Context[ContextKeyName]; ok {
		t.Errorf("caller context mutation leaked into the store")
	}
}

func TestSessionManager_CompleteFlowClearsEverything(t *testing.T) {
	sm := NewSessionManager()
	sm.GetOrCreateSession("1")
	_ = sm.SetFlowState("1", FlowEdit, StateAwaitingAge)
	_ = sm.UpdateSessionContext("1", ContextKeyName, "Ann")
	_ = sm.UpdateSessionContext("1", ContextKeyChosenPersonID, uint(3))

	if err := sm.CompleteFlow("1"); err != nil {
		t.Fatal(err)
	}
	s, _ := sm.GetSession("1")
	if s.Flow != FlowNone || s.State != StateIdle || len(s.Context) != 0 {
		t.Errorf("expected cleared session, got %+v", s)
	}
}

func TestSessionManager_Stats(t *testing.T) {
	sm := NewSessionManager()
	for _, id := range []string{"1", "2", "3", "4"} {
		sm.GetOrCreateSession(id)
	}
	_ = sm.SetFlowState("1", FlowAdd, StateAwaitingName)
	_ = sm.SetFlowState("2", FlowAdd, StateAwaitingAge)
	_ = sm.SetFlowState("3", FlowDelete, StateAwaitingIndex)

	stats := sm.GetSessionStats()
	if stats.TotalSessions != 4 || stats.ActiveSessions != 3 {
		t.Errorf("unexpected totals: %+v", stats)
	}
	if stats.SessionsByFlow["add"] != 2 || stats.SessionsByFlow["delete"] != 1 {
		t.Errorf("unexpected per-flow counts: %v", stats.SessionsByFlow)
	}
	if active := sm.GetActiveSessions(); len(active) != 3 {
		t.Errorf("expected 3 active sessions, got %d", len(active))
	}
}

func TestSessionManager_LockChatSerializes(t *testing.T) {
	sm := NewSessionManager()
	sm.GetOrCreateSession("1")

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := sm.LockChat("1")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("expected 50 serialized increments, got %d", counter)
	}

	// another chat is not blocked by a held lock
	unlock := sm.LockChat("1")
	defer unlock()
	done := make(chan struct{})
	go func() {
		sm.LockChat("2")()
		close(done)
	}()
	<-done
}
