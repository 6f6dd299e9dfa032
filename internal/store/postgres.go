package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/LeventeLantos/notification-outbox/internal/model"
)

// Schema is applied at startup. Idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS outbox_messages (
	id                BIGSERIAL PRIMARY KEY,
	destination       TEXT NOT NULL,
	payload           TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'pending',
	retry_count       INT  NOT NULL DEFAULT 0,
	last_error        TEXT,
	scheduled_at      TIMESTAMPTZ,
	next_retry_at     TIMESTAMPTZ,
	provider          TEXT,
	provider_response TEXT,
	sent_at           TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_outbox_messages_due
	ON outbox_messages (status, created_at);
`

type PostgresOutboxStore struct {
	db *sql.DB
}

func NewPostgresOutboxStore(db *sql.DB) *PostgresOutboxStore {
	return &PostgresOutboxStore{db: db}
}

var _ OutboxStore = (*PostgresOutboxStore)(nil)

// Migrate creates the outbox table if it does not exist yet.
func (s *PostgresOutboxStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

func (s *PostgresOutboxStore) Enqueue(ctx context.Context, destination, payload string, scheduledAt *time.Time) (*model.Message, error) {
	var m model.Message
	var sched sql.NullTime
	if scheduledAt != nil {
		sched = sql.NullTime{Time: scheduledAt.UTC(), Valid: true}
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO outbox_messages (destination, payload, scheduled_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, destination, payload, sched).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}

	m.Destination = destination
	m.Payload = payload
	m.Status = model.Pending
	m.ScheduledAt = scheduledAt
	return &m, nil
}

// ClaimDueBatch selects due pending rows with FOR UPDATE SKIP LOCKED and
// stamps next_retry_at with a claim lease inside the same transaction.
// Row locks exclude concurrent dispatch passes until commit; after commit
// the lease keeps the rows out of reach until the pass has marked them.
func (s *PostgresOutboxStore) ClaimDueBatch(ctx context.Context, limit, maxRetries int, lease time.Duration) ([]model.Message, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, destination, payload, status, retry_count, last_error,
		       scheduled_at, next_retry_at, provider, provider_response,
		       sent_at, created_at, updated_at
		FROM outbox_messages
		WHERE status = 'pending'
		  AND retry_count < $2
		  AND (scheduled_at IS NULL OR scheduled_at <= $3)
		  AND (next_retry_at IS NULL OR next_retry_at <= $3)
		ORDER BY created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`, limit, maxRetries, now)
	if err != nil {
		return nil, err
	}

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	if len(msgs) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	leaseUntil := now.Add(lease)
	ids := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE outbox_messages
		SET next_retry_at = $2, updated_at = $3
		WHERE id = ANY($1)
	`, ids, leaseUntil, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	for i := range msgs {
		t := leaseUntil
		msgs[i].NextRetryAt = &t
		msgs[i].UpdatedAt = now
	}
	return msgs, nil
}

func (s *PostgresOutboxStore) MarkSent(ctx context.Context, id int64, provider, providerResponse string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE outbox_messages
		SET status = 'sent',
		    sent_at = now(),
		    next_retry_at = NULL,
		    last_error = NULL,
		    provider = $2,
		    provider_response = $3,
		    updated_at = now()
		WHERE id = $1 AND status <> 'sent'
	`, id, provider, providerResponse)
	return err
}

func (s *PostgresOutboxStore) MarkRetry(ctx context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time, provider, providerResponse string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE outbox_messages
		SET retry_count = $2,
		    last_error = $3,
		    next_retry_at = $4,
		    provider = $5,
		    provider_response = $6,
		    updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, retryCount, lastError, nextRetryAt.UTC(), provider, providerResponse)
	return err
}

func (s *PostgresOutboxStore) MarkFailed(ctx context.Context, id int64, retryCount int, lastError, provider, providerResponse string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE outbox_messages
		SET status = 'failed',
		    retry_count = $2,
		    last_error = $3,
		    next_retry_at = NULL,
		    provider = $4,
		    provider_response = $5,
		    updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, retryCount, lastError, provider, providerResponse)
	return err
}

func (s *PostgresOutboxStore) ResetForRetry(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE outbox_messages
		SET status = 'pending',
		    retry_count = 0,
		    last_error = NULL,
		    next_retry_at = NULL,
		    updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresOutboxStore) PurgeFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM outbox_messages WHERE status = 'failed'
	`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PostgresOutboxStore) List(ctx context.Context, status *model.Status, limit, offset int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, destination, payload, status, retry_count, last_error,
		       scheduled_at, next_retry_at, provider, provider_response,
		       sent_at, created_at, updated_at
		FROM outbox_messages
	`
	args := []any{limit, offset}
	if status != nil {
		query += ` WHERE status = $3`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]model.Message, error) {
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		var status string
		var lastErr, provider, providerResp sql.NullString
		var schedAt, nextRetryAt, sentAt sql.NullTime

		if err := rows.Scan(
			&m.ID,
			&m.Destination,
			&m.Payload,
			&status,
			&m.RetryCount,
			&lastErr,
			&schedAt,
			&nextRetryAt,
			&provider,
			&providerResp,
			&sentAt,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, err
		}

		m.Status = model.Status(status)
		if lastErr.Valid {
			s := lastErr.String
			m.LastError = &s
		}
		if provider.Valid {
			s := provider.String
			m.Provider = &s
		}
		if providerResp.Valid {
			s := providerResp.String
			m.ProviderResponse = &s
		}
		if schedAt.Valid {
			t := schedAt.Time
			m.ScheduledAt = &t
		}
		if nextRetryAt.Valid {
			t := nextRetryAt.Time
			m.NextRetryAt = &t
		}
		if sentAt.Valid {
			t := sentAt.Time
			m.SentAt = &t
		}

		out = append(out, m)
	}
	return out, rows.Err()
}
