package cache

import (
	"context"
	"time"
)

// ReceiptCache keeps short-lived delivery receipts for sent messages so
// support tooling can answer "did message N really go out" without hitting
// the outbox table.
type ReceiptCache interface {
	StoreReceipt(ctx context.Context, id int64, providerName, providerResponse string, sentAt time.Time) error
}
