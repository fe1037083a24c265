package relay

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum inbound frame size allowed from peer.
	maxFrameSize = 4096
	// Outbound buffer per session; a recipient that falls this far
	// behind starts missing frames.
	sendBuffer = 256
)

type sessionState int

const (
	stateConnecting sessionState = iota
	stateAuthenticated
	stateClosed
)

// Session is the live binding between one transport connection and one
// verified identity. Inbound events are handled in arrival order by the
// read pump; the state field changes only before the pumps start or
// inside the close-once block, so it needs no lock.
type Session struct {
	hub    *Hub
	conn   *websocket.Conn
	handle string
	user   User

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	state     sessionState
}

func newSession(hub *Hub, conn *websocket.Conn, handle string) *Session {
	return &Session{
		hub:    hub,
		conn:   conn,
		handle: handle,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// close tears the session down. Safe to signal more than once; only the
// first call does anything. A session that never reached AUTHENTICATED
// was never registered, so it neither deregisters nor notifies anyone.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.conn != nil {
			s.conn.Close()
		}
		wasAuthenticated := s.state == stateAuthenticated
		s.state = stateClosed
		if !wasAuthenticated {
			return
		}
		if user, ok := s.hub.registry.Deregister(s.handle); ok {
			s.hub.BroadcastOthers(s, EventUserLeft, user)
			log.Printf("relay: %s disconnected (%s)", user.Username, s.handle)
		}
	})
}

// deliver renders and queues one event for this session only.
func (s *Session) deliver(event string, data any) {
	payload, err := NewEnvelope(event, data)
	if err != nil {
		log.Printf("relay: marshal %s: %v", event, err)
		return
	}
	s.deliverRaw(payload)
}

// deliverRaw queues a rendered frame. Delivery is best-effort: a full
// buffer drops the frame instead of stalling fan-out to other sessions,
// and dead connections are reaped by the pong deadline.
func (s *Session) deliverRaw(payload []byte) {
	select {
	case s.send <- payload:
	case <-s.done:
	default:
		log.Printf("relay: dropping frame for slow session %s", s.handle)
	}
}

// readPump pumps inbound events from the websocket into the hub. It only
// runs once the session is AUTHENTICATED, which is what discards any
// event a client manages to emit earlier.
func (s *Session) readPump() {
	defer s.close()

	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				log.Printf("relay: read error from %s: %v", s.handle, err)
			}
			return
		}
		s.dispatch(raw)
	}
}

// dispatch routes one inbound frame through the closed set of event
// variants. Malformed or unknown frames are dropped, not fatal.
func (s *Session) dispatch(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("relay: malformed frame from %s: %v", s.handle, err)
		return
	}

	ctx := context.Background()
	switch env.Event {
	case EventSendMessage:
		var p sendPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			log.Printf("relay: bad %s payload from %s: %v", env.Event, s.handle, err)
			return
		}
		s.hub.HandleSend(ctx, s, p.Content)

	case EventTyping:
		var p typingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			log.Printf("relay: bad %s payload from %s: %v", env.Event, s.handle, err)
			return
		}
		s.hub.HandleTyping(s, p.IsTyping)

	case EventLoadMore:
		var p loadMorePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			log.Printf("relay: bad %s payload from %s: %v", env.Event, s.handle, err)
			return
		}
		before, err := time.Parse(time.RFC3339, p.Before)
		if err != nil {
			log.Printf("relay: bad cursor %q from %s: %v", p.Before, s.handle, err)
			return
		}
		s.hub.HandleLoadMore(ctx, s, before)

	default:
		log.Printf("relay: unknown event %q from %s", env.Event, s.handle)
	}
}

// writePump pumps queued frames to the websocket and keeps the
// connection alive with pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case payload := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
