package relay

import (
	"context"
	"encoding/json"
	"testing"
)

func twoSessions(t *testing.T, hub *Hub, registry *Registry) (*Session, *Session) {
	t.Helper()
	s1 := newTestSession(hub, "conn-1", User{UserID: 1, Username: "alice", Color: "#ff0000"})
	s2 := newTestSession(hub, "conn-2", User{UserID: 2, Username: "bob", Color: "#00ff00"})
	if err := registry.Register(s1); err != nil {
		t.Fatalf("register s1: %v", err)
	}
	if err := registry.Register(s2); err != nil {
		t.Fatalf("register s2: %v", err)
	}
	return s1, s2
}

func TestSendTrimsPersistsAndBroadcastsToEveryone(t *testing.T) {
	store := newFakeStore()
	hub, registry := newTestHub(t, store)
	s1, s2 := twoSessions(t, hub, registry)

	hub.HandleSend(context.Background(), s1, "  hello  ")

	for _, s := range []*Session{s1, s2} {
		data := recvEvent(t, s, EventNewMessage)
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode newMessage: %v", err)
		}
		if msg.Content != "hello" {
			t.Errorf("content = %q, want %q", msg.Content, "hello")
		}
		if msg.MessageID == 0 || msg.CreatedAt.IsZero() {
			t.Errorf("message lacks durable id/timestamp: %+v", msg)
		}
		if msg.User != s1.user {
			t.Errorf("author = %+v, want sender snapshot %+v", msg.User, s1.user)
		}
	}

	if store.count() != 1 {
		t.Fatalf("store has %d messages, want 1", store.count())
	}
}

func TestWhitespaceOnlySendIsDropped(t *testing.T) {
	store := newFakeStore()
	hub, registry := newTestHub(t, store)
	s1, s2 := twoSessions(t, hub, registry)

	hub.HandleSend(context.Background(), s1, "")
	hub.HandleSend(context.Background(), s1, "   ")

	if store.count() != 0 {
		t.Fatalf("store has %d messages, want 0", store.count())
	}
	assertNoEvent(t, s1)
	assertNoEvent(t, s2)
}

func TestPersistFailureOnlyReachesSender(t *testing.T) {
	store := newFakeStore()
	store.failSave = true
	hub, registry := newTestHub(t, store)
	s1, s2 := twoSessions(t, hub, registry)

	hub.HandleSend(context.Background(), s1, "hello")

	data := recvEvent(t, s1, EventMessageError)
	var errMsg string
	if err := json.Unmarshal(data, &errMsg); err != nil {
		t.Fatalf("decode messageError: %v", err)
	}
	if errMsg != "failed to send message" {
		t.Errorf("messageError = %q", errMsg)
	}
	assertNoEvent(t, s2)
}

func TestTypingExcludesSender(t *testing.T) {
	store := newFakeStore()
	hub, registry := newTestHub(t, store)
	s1, s2 := twoSessions(t, hub, registry)

	hub.HandleTyping(s1, true)

	data := recvEvent(t, s2, EventUserTyping)
	var notice TypingNotice
	if err := json.Unmarshal(data, &notice); err != nil {
		t.Fatalf("decode userTyping: %v", err)
	}
	if notice.User != s1.user || !notice.IsTyping {
		t.Errorf("notice = %+v", notice)
	}
	assertNoEvent(t, s1)
}

func TestLoadMoreIsPrivateToRequester(t *testing.T) {
	store := newFakeStore()
	_, _, t3 := seedThree(store)
	hub, registry := newTestHub(t, store)
	s1, s2 := twoSessions(t, hub, registry)

	hub.HandleLoadMore(context.Background(), s1, t3)

	data := recvEvent(t, s1, EventMoreMessages)
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		t.Fatalf("decode moreMessages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "first" || msgs[1].Content != "second" {
		t.Fatalf("page = %v, want [first, second]", msgs)
	}
	assertNoEvent(t, s2)
}

func TestLoadMoreWithNothingOlderSendsEmptyPage(t *testing.T) {
	store := newFakeStore()
	t1, _, _ := seedThree(store)
	hub, registry := newTestHub(t, store)
	s1, _ := twoSessions(t, hub, registry)

	hub.HandleLoadMore(context.Background(), s1, t1)

	data := recvEvent(t, s1, EventMoreMessages)
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		t.Fatalf("decode moreMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("page = %v, want empty", msgs)
	}
}
