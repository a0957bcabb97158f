package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Store is the transactional write surface used by Notifier.
type Store interface {
	Insert(ctx context.Context, tx pgx.Tx, userID, text string) (Notification, error)
	Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload any) error
}

// Notifier persists notifications inside the caller's transaction and
// queues the matching e-mail in the outbox so it is only sent if tx commits.
type Notifier struct {
	store Store
}

func NewNotifier(store Store) *Notifier {
	return &Notifier{store: store}
}

// Notify stores msg for userID within tx.
func (n *Notifier) Notify(ctx context.Context, tx pgx.Tx, userID string, msg Message) (Notification, error) {
	if userID == "" {
		return Notification{}, fmt.Errorf("notification: missing user id")
	}
	if strings.TrimSpace(msg.Text) == "" {
		return Notification{}, fmt.Errorf("notification: empty message")
	}

	created, err := n.store.Insert(ctx, tx, userID, msg.Text)
	if err != nil {
		return Notification{}, err
	}

	if msg.Subject == "" {
		return created, nil
	}
	body := msg.MailBody
	if body == "" {
		body = msg.Text
	}
	payload := MailPayload{
		NotificationID: created.ID,
		UserID:         userID,
		Subject:        msg.Subject,
		Body:           body,
	}
	if err := n.store.Enqueue(ctx, tx, TopicMail, payload); err != nil {
		return Notification{}, err
	}
	return created, nil
}

// Reader serves the notification inbox.
type Reader interface {
	ListForUser(ctx context.Context, userID string) ([]Notification, error)
	MarkRead(ctx context.Context, id string) (Notification, error)
}

// Service exposes the inbox operations.
type Service struct {
	repo Reader
}

func NewService(repo Reader) *Service {
	return &Service{repo: repo}
}

// ListForUser returns userID's notifications, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Notification, error) {
	return s.repo.ListForUser(ctx, userID)
}

// MarkRead flags a notification as read. Unknown ids yield ErrNotFound.
func (s *Service) MarkRead(ctx context.Context, id string) (Notification, error) {
	return s.repo.MarkRead(ctx, id)
}
