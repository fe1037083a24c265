package relay

import (
	"context"
	"time"
)

const (
	defaultRecentLimit = 50
	defaultPageLimit   = 20
	maxPageLimit       = 100
)

// MessageStore is the durable backing for chat messages. Range queries
// return messages newest first, the store's natural order.
type MessageStore interface {
	SaveMessage(ctx context.Context, userID int, content string) (id int, createdAt time.Time, err error)
	RecentMessages(ctx context.Context, limit int) ([]Message, error)
	MessagesBefore(ctx context.Context, before time.Time, limit int) ([]Message, error)
}

// History serves the initial recent window and cursor-based older pages,
// reversed into ascending order since clients render top to bottom.
type History struct {
	store MessageStore
}

func NewHistory(store MessageStore) *History {
	return &History{store: store}
}

// Recent returns the `limit` most recent messages, oldest first.
// A limit <= 0 falls back to the default window.
func (h *History) Recent(ctx context.Context, limit int) ([]Message, error) {
	msgs, err := h.store.RecentMessages(ctx, clampLimit(limit, defaultRecentLimit))
	if err != nil {
		return nil, err
	}
	reverse(msgs)
	return msgs, nil
}

// Before returns up to `limit` messages strictly older than the cursor,
// oldest first. An empty page is valid and means there is nothing older.
func (h *History) Before(ctx context.Context, cursor time.Time, limit int) ([]Message, error) {
	msgs, err := h.store.MessagesBefore(ctx, cursor, clampLimit(limit, defaultPageLimit))
	if err != nil {
		return nil, err
	}
	reverse(msgs)
	return msgs, nil
}

// clampLimit keeps caller-supplied limits inside sane bounds so a client
// can never force an unbounded store scan.
func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}

func reverse(msgs []Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
