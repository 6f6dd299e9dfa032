package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/LeventeLantos/notification-outbox/internal/model"
)

// MemoryOutboxStore keeps everything in a mutex-guarded map. Safe for
// concurrent use. Intended for unit tests and local development.
type MemoryOutboxStore struct {
	mu     sync.Mutex
	nextID int64
	msgs   map[int64]*model.Message

	// now is swappable so tests can advance time past backoff windows.
	now func() time.Time
}

func NewMemoryOutboxStore() *MemoryOutboxStore {
	return &MemoryOutboxStore{
		nextID: 1,
		msgs:   make(map[int64]*model.Message),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var _ OutboxStore = (*MemoryOutboxStore)(nil)

// SetNow overrides the store's clock. Test hook.
func (s *MemoryOutboxStore) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryOutboxStore) Enqueue(_ context.Context, destination, payload string, scheduledAt *time.Time) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	m := &model.Message{
		ID:          s.nextID,
		Destination: destination,
		Payload:     payload,
		Status:      model.Pending,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.nextID++
	s.msgs[m.ID] = m

	cp := *m
	return &cp, nil
}

// ClaimDueBatch selects and lease-stamps due rows under a single lock
// acquisition, so two concurrent passes can never claim the same message.
func (s *MemoryOutboxStore) ClaimDueBatch(_ context.Context, limit, maxRetries int, lease time.Duration) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	var due []*model.Message
	for _, m := range s.msgs {
		if m.Status != model.Pending || m.RetryCount >= maxRetries {
			continue
		}
		if m.ScheduledAt != nil && m.ScheduledAt.After(now) {
			continue
		}
		if m.NextRetryAt != nil && m.NextRetryAt.After(now) {
			continue
		}
		due = append(due, m)
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].CreatedAt.Equal(due[j].CreatedAt) {
			return due[i].ID < due[j].ID
		}
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})

	if len(due) > limit {
		due = due[:limit]
	}

	leaseUntil := now.Add(lease)
	out := make([]model.Message, 0, len(due))
	for _, m := range due {
		t := leaseUntil
		m.NextRetryAt = &t
		m.UpdatedAt = now
		out = append(out, *m)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (s *MemoryOutboxStore) MarkSent(_ context.Context, id int64, provider, providerResponse string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.msgs[id]
	if !ok {
		return ErrNotFound
	}
	if m.Status == model.Sent {
		return nil
	}

	now := s.now()
	m.Status = model.Sent
	m.SentAt = &now
	m.NextRetryAt = nil
	m.LastError = nil
	m.Provider = &provider
	m.ProviderResponse = &providerResponse
	m.UpdatedAt = now
	return nil
}

func (s *MemoryOutboxStore) MarkRetry(_ context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time, provider, providerResponse string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.msgs[id]
	if !ok {
		return ErrNotFound
	}
	if m.Status != model.Pending {
		return nil
	}

	m.RetryCount = retryCount
	m.LastError = &lastError
	t := nextRetryAt.UTC()
	m.NextRetryAt = &t
	m.Provider = &provider
	m.ProviderResponse = &providerResponse
	m.UpdatedAt = s.now()
	return nil
}

func (s *MemoryOutboxStore) MarkFailed(_ context.Context, id int64, retryCount int, lastError, provider, providerResponse string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.msgs[id]
	if !ok {
		return ErrNotFound
	}
	if m.Status != model.Pending {
		return nil
	}

	m.Status = model.Failed
	m.RetryCount = retryCount
	m.LastError = &lastError
	m.NextRetryAt = nil
	m.Provider = &provider
	m.ProviderResponse = &providerResponse
	m.UpdatedAt = s.now()
	return nil
}

func (s *MemoryOutboxStore) ResetForRetry(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.msgs[id]
	if !ok {
		return ErrNotFound
	}

	m.Status = model.Pending
	m.RetryCount = 0
	m.LastError = nil
	m.NextRetryAt = nil
	m.UpdatedAt = s.now()
	return nil
}

func (s *MemoryOutboxStore) PurgeFailed(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for id, m := range s.msgs {
		if m.Status == model.Failed {
			delete(s.msgs, id)
			purged++
		}
	}
	return purged, nil
}

func (s *MemoryOutboxStore) List(_ context.Context, status *model.Status, limit, offset int) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var all []*model.Message
	for _, m := range s.msgs {
		if status != nil && m.Status != *status {
			continue
		}
		all = append(all, m)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}

	out := make([]model.Message, 0, len(all))
	for _, m := range all {
		out = append(out, *m)
	}
	return out, nil
}

// Get returns a copy of a message by id. Test helper.
func (s *MemoryOutboxStore) Get(id int64) (model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.msgs[id]
	if !ok {
		return model.Message{}, false
	}
	return *m, true
}
