package relay

import (
	"errors"
	"sync"
)

// ErrAlreadyRegistered guards against duplicate-connect races: a second
// registration for a handle that is already live is rejected instead of
// silently replacing the first.
var ErrAlreadyRegistered = errors.New("connection already registered")

// Announcer receives best-effort join/leave notifications so presence
// can be mirrored outside the process (e.g. into a Redis set). The
// in-memory registry remains the source of truth; announcer failures
// never affect it.
type Announcer interface {
	UserOnline(u User)
	UserOffline(u User)
}

// Registry is the in-memory mapping of live connections to identities.
// Register, Deregister and the snapshot methods share one mutex, so a
// caller iterating a snapshot can never race a concurrent connect or
// disconnect.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	announcer Announcer // may be nil
}

func NewRegistry(announcer Announcer) *Registry {
	return &Registry{
		sessions:  make(map[string]*Session),
		announcer: announcer,
	}
}

func (r *Registry) Register(s *Session) error {
	r.mu.Lock()
	if _, ok := r.sessions[s.handle]; ok {
		r.mu.Unlock()
		return ErrAlreadyRegistered
	}
	r.sessions[s.handle] = s
	r.mu.Unlock()

	if r.announcer != nil {
		r.announcer.UserOnline(s.user)
	}
	return nil
}

// Deregister removes the session for a handle and returns its identity
// for the departure notification. The second return is false when the
// handle was not registered; duplicate disconnects are absorbed by the
// caller.
func (r *Registry) Deregister(handle string) (User, bool) {
	r.mu.Lock()
	s, ok := r.sessions[handle]
	if ok {
		delete(r.sessions, handle)
	}
	r.mu.Unlock()

	if !ok {
		return User{}, false
	}
	if r.announcer != nil {
		r.announcer.UserOffline(s.user)
	}
	return s.user, true
}

// Roster returns a point-in-time copy of the identities currently online.
func (r *Registry) Roster() []User {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]User, 0, len(r.sessions))
	for _, s := range r.sessions {
		users = append(users, s.user)
	}
	return users
}

// Sessions returns a point-in-time copy of the live sessions for fan-out.
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
