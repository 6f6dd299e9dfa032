package notification

import (
	"context"
	"database/sql"

	"github.com/LeventeLantos/notification-outbox/internal/model"
)

const Schema = `
CREATE TABLE IF NOT EXISTS notifications (
	id         BIGSERIAL PRIMARY KEY,
	user_id    BIGINT NOT NULL,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL,
	read_at    TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

var _ Sink = (*PostgresSink)(nil)

func (s *PostgresSink) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

func (s *PostgresSink) Create(ctx context.Context, userID int64, title, body string) (*model.Notification, error) {
	n := model.Notification{
		UserID: userID,
		Title:  title,
		Body:   body,
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, title, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, userID, title, body).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
