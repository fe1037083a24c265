package relay

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestRegisterRejectsDuplicateHandle(t *testing.T) {
	registry := NewRegistry(nil)

	first := newTestSession(nil, "conn-1", User{UserID: 1, Username: "alice"})
	second := newTestSession(nil, "conn-1", User{UserID: 2, Username: "bob"})

	if err := registry.Register(first); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := registry.Register(second); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("second register: got %v, want ErrAlreadyRegistered", err)
	}

	if registry.Len() != 1 {
		t.Fatalf("registry has %d entries, want 1", registry.Len())
	}
	if roster := registry.Roster(); len(roster) != 1 || roster[0].Username != "alice" {
		t.Fatalf("roster = %v, want just alice", roster)
	}
}

func TestDeregisterUnknownHandleIsAbsorbed(t *testing.T) {
	registry := NewRegistry(nil)

	if _, ok := registry.Deregister("never-registered"); ok {
		t.Fatal("deregister of unknown handle reported success")
	}

	s := newTestSession(nil, "conn-1", User{UserID: 1, Username: "alice"})
	if err := registry.Register(s); err != nil {
		t.Fatalf("register: %v", err)
	}

	if user, ok := registry.Deregister("conn-1"); !ok || user.Username != "alice" {
		t.Fatalf("deregister = %v, %v", user, ok)
	}
	// Duplicate-disconnect race: second signal is a no-op.
	if _, ok := registry.Deregister("conn-1"); ok {
		t.Fatal("double deregister reported success")
	}
}

func TestConcurrentChurnLeavesEmptyRoster(t *testing.T) {
	registry := NewRegistry(nil)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handle := fmt.Sprintf("conn-%d", i)
			s := newTestSession(nil, handle, User{UserID: i, Username: fmt.Sprintf("user-%d", i)})
			if err := registry.Register(s); err != nil {
				t.Errorf("register %s: %v", handle, err)
				return
			}
			if _, ok := registry.Deregister(handle); !ok {
				t.Errorf("deregister %s found nothing", handle)
			}
		}(i)
	}
	wg.Wait()

	if registry.Len() != 0 {
		t.Fatalf("registry has %d entries after churn, want 0", registry.Len())
	}
	if roster := registry.Roster(); len(roster) != 0 {
		t.Fatalf("roster = %v, want empty", roster)
	}
}

func TestRosterIsPointInTimeCopy(t *testing.T) {
	registry := NewRegistry(nil)
	if err := registry.Register(newTestSession(nil, "conn-1", User{UserID: 1, Username: "alice"})); err != nil {
		t.Fatalf("register: %v", err)
	}

	roster := registry.Roster()
	if err := registry.Register(newTestSession(nil, "conn-2", User{UserID: 2, Username: "bob"})); err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(roster) != 1 {
		t.Fatalf("snapshot grew after later register: %v", roster)
	}
}

type recordingAnnouncer struct {
	mu      sync.Mutex
	online  []User
	offline []User
}

func (a *recordingAnnouncer) UserOnline(u User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.online = append(a.online, u)
}

func (a *recordingAnnouncer) UserOffline(u User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.offline = append(a.offline, u)
}

func TestAnnouncerSeesJoinsAndLeaves(t *testing.T) {
	announcer := &recordingAnnouncer{}
	registry := NewRegistry(announcer)

	s := newTestSession(nil, "conn-1", User{UserID: 1, Username: "alice"})
	if err := registry.Register(s); err != nil {
		t.Fatalf("register: %v", err)
	}
	registry.Deregister("conn-1")
	registry.Deregister("conn-1") // absorbed, must not announce again

	if len(announcer.online) != 1 || announcer.online[0].Username != "alice" {
		t.Fatalf("online announcements = %v", announcer.online)
	}
	if len(announcer.offline) != 1 || announcer.offline[0].Username != "alice" {
		t.Fatalf("offline announcements = %v", announcer.offline)
	}
}
