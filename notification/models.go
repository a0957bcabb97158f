package notification

import "time"

// Notification is an in-app message addressed to one user.
type Notification struct {
	ID        string
	UserID    string
	Message   string
	Read      bool
	ReadAt    *time.Time
	CreatedAt time.Time
}

// Message describes what a lifecycle transition tells a user. Text is
// persisted in-app; Subject and MailBody are forwarded by e-mail. An empty
// MailBody falls back to Text and an empty Subject skips the e-mail.
type Message struct {
	Subject  string
	Text     string
	MailBody string
}

// OutboxMessage represents a transactional outbox entry.
type OutboxMessage struct {
	ID          string
	Topic       string
	Payload     []byte
	Status      string
	Attempts    int
	LastAttempt *time.Time
	CreatedAt   time.Time
}

// MailPayload is the JSON body of a TopicMail outbox row.
type MailPayload struct {
	NotificationID string `json:"notification_id,omitempty"`
	UserID         string `json:"user_id"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
}

const (
	// TopicMail marks outbox rows that the dispatcher turns into e-mails.
	TopicMail = "notification.mail"

	OutboxPending   = "pending"
	OutboxProcessed = "processed"
	OutboxDead      = "dead"
)
