package relay

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
)

// frame is one rendered outbound payload plus an optional session to
// skip, which is how "all but sender" fan-out is expressed.
type frame struct {
	payload []byte
	exclude *Session
}

// Hub is the central fan-out point. Event handling for independent
// sessions runs concurrently in their read pumps, but every broadcast
// funnels through one channel consumed by a single goroutine, so all
// recipients observe deliveries in the same order.
type Hub struct {
	registry *Registry
	store    MessageStore
	history  *History

	broadcast chan frame
	done      chan struct{}
	stopOnce  sync.Once
}

func NewHub(registry *Registry, store MessageStore, history *History) *Hub {
	return &Hub{
		registry:  registry,
		store:     store,
		history:   history,
		broadcast: make(chan frame, 64),
		done:      make(chan struct{}),
	}
}

// Run drains the broadcast channel until Stop is called. It must run in
// its own goroutine; it is the only place fan-out happens.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return
		case f := <-h.broadcast:
			for _, s := range h.registry.Sessions() {
				if s == f.exclude {
					continue
				}
				s.deliverRaw(f.payload)
			}
		}
	}
}

// Stop shuts fan-out down. Broadcasts queued after Stop are discarded;
// sessions tearing down late must not be able to wedge or panic the hub.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// HandleSend trims, persists, then broadcasts a chat message. The store
// assigns id and timestamp before any client sees the message, and the
// sender receives its own message through the same broadcast as everyone
// else, so there is exactly one delivery order.
func (h *Hub) HandleSend(ctx context.Context, s *Session, rawContent string) {
	content := strings.TrimSpace(rawContent)
	if content == "" {
		return
	}

	id, createdAt, err := h.store.SaveMessage(ctx, s.user.UserID, content)
	if err != nil {
		log.Printf("relay: persist failed for %s: %v", s.user.Username, err)
		s.deliver(EventMessageError, "failed to send message")
		return
	}

	h.BroadcastAll(EventNewMessage, Message{
		MessageID: id,
		User:      s.user,
		Content:   content,
		CreatedAt: createdAt,
	})
}

// HandleTyping relays a typing indicator to everyone except the author.
// Nothing is persisted and repeats are not deduplicated; the client owns
// idempotent display merging.
func (h *Hub) HandleTyping(s *Session, isTyping bool) {
	h.BroadcastOthers(s, EventUserTyping, TypingNotice{User: s.user, IsTyping: isTyping})
}

// HandleLoadMore serves an older history page privately to the
// requesting session. Failures are logged, not surfaced; the client
// simply does not get a page.
func (h *Hub) HandleLoadMore(ctx context.Context, s *Session, before time.Time) {
	msgs, err := h.history.Before(ctx, before, 0)
	if err != nil {
		log.Printf("relay: history page failed for %s: %v", s.user.Username, err)
		return
	}
	if msgs == nil {
		msgs = []Message{}
	}
	s.deliver(EventMoreMessages, msgs)
}

// BroadcastAll queues an event for every registered session.
func (h *Hub) BroadcastAll(event string, data any) {
	h.enqueue(event, data, nil)
}

// BroadcastOthers queues an event for every registered session except
// the sender.
func (h *Hub) BroadcastOthers(sender *Session, event string, data any) {
	h.enqueue(event, data, sender)
}

func (h *Hub) enqueue(event string, data any, exclude *Session) {
	payload, err := NewEnvelope(event, data)
	if err != nil {
		log.Printf("relay: marshal %s: %v", event, err)
		return
	}
	select {
	case h.broadcast <- frame{payload: payload, exclude: exclude}:
	case <-h.done:
	}
}
