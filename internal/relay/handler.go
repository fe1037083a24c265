package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	myMiddleware "go-relay/internal/middleware"
)

// Gateway owns the websocket entry point and the small REST surface over
// the same roster and history.
type Gateway struct {
	hub      *Hub
	registry *Registry
	verifier *Verifier
	history  *History
	upgrader websocket.Upgrader
}

func NewGateway(hub *Hub, registry *Registry, verifier *Verifier, history *History) *Gateway {
	return &Gateway{
		hub:      hub,
		registry: registry,
		verifier: verifier,
		history:  history,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // TODO: restrict to the frontend origin before exposing publicly
			},
		},
	}
}

// ServeWs accepts a websocket connection and runs the handshake: the
// credential comes from connection metadata (header or query), never
// from an in-band message, and is verified before any event is accepted.
// A rejected handshake closes the transport without creating any state.
func (g *Gateway) ServeWs(w http.ResponseWriter, r *http.Request) {
	credential := myMiddleware.ExtractToken(r)

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("relay: upgrade failed: %v", err)
		return
	}

	sess := newSession(g.hub, conn, conn.RemoteAddr().String())
	if err := g.openSession(r.Context(), sess, credential); err != nil {
		log.Printf("relay: handshake rejected from %s: %v", sess.handle, err)
		conn.Close()
		return
	}

	go sess.writePump()
	go sess.readPump()
}

// openSession drives CONNECTING -> AUTHENTICATED: verify the credential,
// claim the handle in the registry, then deliver the recent history
// window and the roster to this session before its pumps start, and
// finally announce the join to everyone else.
func (g *Gateway) openSession(ctx context.Context, sess *Session, credential string) error {
	user, err := g.verifier.Verify(ctx, credential)
	if err != nil {
		return err
	}
	sess.user = user

	if err := g.registry.Register(sess); err != nil {
		return err
	}

	recent, err := g.history.Recent(ctx, 0)
	if err != nil {
		// Never registered as far as anyone else knows; no departure
		// notification is owed.
		g.registry.Deregister(sess.handle)
		return fmt.Errorf("load history: %w", err)
	}
	if recent == nil {
		recent = []Message{}
	}

	sess.state = stateAuthenticated
	sess.deliver(EventMessageHistory, recent)
	sess.deliver(EventConnectedUsers, g.registry.Roster())
	g.hub.BroadcastOthers(sess, EventUserJoined, user)

	log.Printf("relay: %s connected (%s)", user.Username, sess.handle)
	return nil
}

// OnlineUsers serves the current roster over plain HTTP.
func (g *Gateway) OnlineUsers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(g.registry.Roster())
}

// MessageHistory serves the recent window, or an older page when a
// ?before= cursor is supplied. Same provider, same clamped limits as the
// websocket path.
func (g *Gateway) MessageHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var (
		msgs []Message
		err  error
	)
	if beforeParam := r.URL.Query().Get("before"); beforeParam != "" {
		before, perr := time.Parse(time.RFC3339, beforeParam)
		if perr != nil {
			http.Error(w, "before must be an RFC 3339 timestamp", http.StatusBadRequest)
			return
		}
		msgs, err = g.history.Before(r.Context(), before, limit)
	} else {
		msgs, err = g.history.Recent(r.Context(), limit)
	}
	if err != nil {
		log.Printf("relay: history query failed: %v", err)
		http.Error(w, "failed to load messages", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []Message{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msgs)
}
