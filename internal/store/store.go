package store

import (
	"context"
	"errors"
	"time"

	"github.com/LeventeLantos/notification-outbox/internal/model"
)

// ErrNotFound is returned when an operation references a message id that
// does not exist.
var ErrNotFound = errors.New("message not found")

// OutboxStore is the single source of truth for dispatch state. All
// coordination between concurrent dispatch passes flows through the atomic
// claim semantics of ClaimDueBatch.
type OutboxStore interface {
	// Enqueue inserts a new pending message with retryCount 0. A non-nil
	// scheduledAt defers the first attempt.
	Enqueue(ctx context.Context, destination, payload string, scheduledAt *time.Time) (*model.Message, error)

	// ClaimDueBatch atomically selects and claims up to limit due messages:
	// status pending, retryCount < maxRetries, scheduledAt and nextRetryAt
	// absent or in the past. Claimed rows get nextRetryAt pushed forward by
	// lease in the same operation, so a concurrent caller cannot claim them
	// again; status stays pending and a crashed pass self-heals once the
	// lease expires. Results are ordered oldest first by createdAt.
	ClaimDueBatch(ctx context.Context, limit, maxRetries int, lease time.Duration) ([]model.Message, error)

	// MarkSent finalizes a successful delivery. It is a no-op if the
	// message is already sent; sentAt is set exactly once.
	MarkSent(ctx context.Context, id int64, provider, providerResponse string) error

	// MarkRetry records a failed attempt that still has retry budget left:
	// the message stays pending and becomes due again at nextRetryAt.
	MarkRetry(ctx context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time, provider, providerResponse string) error

	// MarkFailed records a failed attempt that exhausted the retry budget.
	// The message is never auto-attempted again.
	MarkFailed(ctx context.Context, id int64, retryCount int, lastError, provider, providerResponse string) error

	// ResetForRetry revives a message regardless of its current status:
	// pending, retryCount 0, lastError and nextRetryAt cleared. Returns
	// ErrNotFound for an unknown id.
	ResetForRetry(ctx context.Context, id int64) error

	// PurgeFailed deletes all failed messages and reports how many.
	PurgeFailed(ctx context.Context) (int64, error)

	// List is the observability read model: messages filtered by optional
	// status, newest first.
	List(ctx context.Context, status *model.Status, limit, offset int) ([]model.Message, error)
}
