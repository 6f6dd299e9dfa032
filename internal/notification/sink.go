// Package notification is the synchronous, fire-and-forget sibling of the
// outbox: in-app notification records are created in one write with no
// retry semantics. If the insert fails, the caller hears about it and
// that is the end of it.
package notification

import (
	"context"

	"github.com/LeventeLantos/notification-outbox/internal/model"
)

type Sink interface {
	Create(ctx context.Context, userID int64, title, body string) (*model.Notification, error)
}
