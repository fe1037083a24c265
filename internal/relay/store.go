package relay

import (
	"context"
	"database/sql"
	"time"
)

// Repository is the Postgres-backed MessageStore. Range queries join the
// users table, so historical messages carry the author's current
// username and color; only live broadcasts use the session snapshot.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SaveMessage persists a message and returns the store-assigned id and
// timestamp. Broadcasting before this returns would hand clients a
// message without a durable identity, so callers must wait for it.
func (r *Repository) SaveMessage(ctx context.Context, userID int, content string) (int, time.Time, error) {
	var (
		id        int
		createdAt time.Time
	)
	query := `INSERT INTO messages (user_id, content) VALUES ($1, $2)
	          RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, userID, content).Scan(&id, &createdAt)
	if err != nil {
		return 0, time.Time{}, err
	}
	return id, createdAt, nil
}

func (r *Repository) RecentMessages(ctx context.Context, limit int) ([]Message, error) {
	query := `
		SELECT m.id, m.content, m.created_at, u.id, u.username, u.color
		FROM messages m
		JOIN users u ON m.user_id = u.id
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $1
	`
	return r.queryMessages(ctx, query, limit)
}

func (r *Repository) MessagesBefore(ctx context.Context, before time.Time, limit int) ([]Message, error) {
	query := `
		SELECT m.id, m.content, m.created_at, u.id, u.username, u.color
		FROM messages m
		JOIN users u ON m.user_id = u.id
		WHERE m.created_at < $1
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2
	`
	return r.queryMessages(ctx, query, before, limit)
}

func (r *Repository) queryMessages(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.MessageID, &msg.Content, &msg.CreatedAt,
			&msg.User.UserID, &msg.User.Username, &msg.User.Color); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
