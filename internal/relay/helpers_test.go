package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeStore is an in-memory MessageStore that mimics the Postgres one:
// range queries return newest first, SaveMessage assigns id + timestamp.
type fakeStore struct {
	mu        sync.Mutex
	messages  []Message
	nextID    int
	clock     time.Time
	failSave  bool
	lastLimit int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID: 1,
		clock:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) seed(author User, content string, at time.Time) Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg := Message{MessageID: f.nextID, User: author, Content: content, CreatedAt: at}
	f.nextID++
	f.messages = append(f.messages, msg)
	return msg
}

func (f *fakeStore) SaveMessage(ctx context.Context, userID int, content string) (int, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSave {
		return 0, time.Time{}, errors.New("store unavailable")
	}

	id := f.nextID
	f.nextID++
	f.clock = f.clock.Add(time.Second)
	f.messages = append(f.messages, Message{
		MessageID: id,
		User:      User{UserID: userID},
		Content:   content,
		CreatedAt: f.clock,
	})
	return id, f.clock, nil
}

func (f *fakeStore) RecentMessages(ctx context.Context, limit int) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastLimit = limit
	var out []Message
	for i := len(f.messages) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.messages[i])
	}
	return out, nil
}

func (f *fakeStore) MessagesBefore(ctx context.Context, before time.Time, limit int) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastLimit = limit
	var out []Message
	for i := len(f.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if f.messages[i].CreatedAt.Before(before) {
			out = append(out, f.messages[i])
		}
	}
	return out, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

// newTestSession builds an authenticated session with no transport
// behind it; frames land in its send buffer for inspection.
func newTestSession(hub *Hub, handle string, u User) *Session {
	s := newSession(hub, nil, handle)
	s.user = u
	s.state = stateAuthenticated
	return s
}

func newTestHub(t *testing.T, store MessageStore) (*Hub, *Registry) {
	t.Helper()
	registry := NewRegistry(nil)
	hub := NewHub(registry, store, NewHistory(store))
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub, registry
}

// recvEvent waits for the session's next frame and asserts its event name.
func recvEvent(t *testing.T, s *Session, wantEvent string) json.RawMessage {
	t.Helper()
	select {
	case payload := <-s.send:
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			t.Fatalf("bad frame %s: %v", payload, err)
		}
		if env.Event != wantEvent {
			t.Fatalf("got event %q, want %q", env.Event, wantEvent)
		}
		return env.Data
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", wantEvent)
	}
	return nil
}

func assertNoEvent(t *testing.T, s *Session) {
	t.Helper()
	select {
	case payload := <-s.send:
		t.Fatalf("unexpected frame: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}
