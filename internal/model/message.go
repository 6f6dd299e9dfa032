package model

import "time"

type Status string

const (
	Pending Status = "pending"
	Sent    Status = "sent"
	Failed  Status = "failed"
)

// ParseStatus validates a user-supplied status string.
func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case Pending, Sent, Failed:
		return Status(raw), true
	}
	return "", false
}

// Message is one durable unit of outbound delivery work. It is created
// pending, mutated only by the dispatch engine or an operator action, and
// ends up sent (permanent) or failed (revivable by manual reset).
type Message struct {
	ID          int64  `json:"id"`
	Destination string `json:"destination"`
	Payload     string `json:"payload"`
	Status      Status `json:"status"`

	RetryCount int     `json:"retryCount"`
	LastError  *string `json:"lastError,omitempty"`

	// ScheduledAt defers the first attempt; NextRetryAt gates re-attempts
	// after a failure. Nil means eligible immediately.
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	NextRetryAt *time.Time `json:"nextRetryAt,omitempty"`

	Provider         *string    `json:"provider,omitempty"`
	ProviderResponse *string    `json:"providerResponse,omitempty"`
	SentAt           *time.Time `json:"sentAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Notification is an in-app notification record. Unlike Message it has no
// delivery semantics: creation either succeeds or it doesn't.
type Notification struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"userId"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
