package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/message/entity"
)

type MessageRepo struct {
	db *sqlx.DB
}

func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// EnsureTable creates the messages table if it does not already exist.
// The body is kept as TEXT so malformed events are still recorded verbatim.
func (r *MessageRepo) EnsureTable(ctx context.Context) error {
	const tbl = `
	CREATE TABLE IF NOT EXISTS messages (
		id varchar(32) PRIMARY KEY,
		message TEXT NOT NULL,
		received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	if _, err := r.db.ExecContext(ctx, tbl); err != nil {
		return err
	}

	const idx = `
	CREATE INDEX IF NOT EXISTS idx_messages_received_at ON messages (received_at DESC);
	`
	if _, err := r.db.ExecContext(ctx, idx); err != nil {
		return err
	}
	return nil
}

func (r *MessageRepo) Create(ctx context.Context, m *entity.Message) error {
	const q = `INSERT INTO messages (id, message) VALUES ($1, $2) RETURNING received_at`
	return r.db.QueryRowxContext(ctx, q, m.ID, m.Body).Scan(&m.ReceivedAt)
}

// List returns stored messages, most recent first.
func (r *MessageRepo) List(ctx context.Context) ([]entity.Message, error) {
	const q = `SELECT id, message, received_at FROM messages ORDER BY received_at DESC, id DESC`
	messages := []entity.Message{}
	if err := r.db.SelectContext(ctx, &messages, q); err != nil {
		return nil, err
	}
	return messages, nil
}
