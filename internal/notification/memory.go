package notification

import (
	"context"
	"sync"
	"time"

	"github.com/LeventeLantos/notification-outbox/internal/model"
)

// MemorySink backs tests and local development.
type MemorySink struct {
	mu     sync.Mutex
	nextID int64
	items  []model.Notification
}

func NewMemorySink() *MemorySink {
	return &MemorySink{nextID: 1}
}

var _ Sink = (*MemorySink)(nil)

func (s *MemorySink) Create(_ context.Context, userID int64, title, body string) (*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := model.Notification{
		ID:        s.nextID,
		UserID:    userID,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	s.nextID++
	s.items = append(s.items, n)

	cp := n
	return &cp, nil
}

// All returns a snapshot of created notifications. Test helper.
func (s *MemorySink) All() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Notification(nil), s.items...)
}
