package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/diagnosis/cardlink/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

// Subjects for account and profile lifecycle events.
const (
	AccountCreated = "account.created"
	AccountDeleted = "account.deleted"
	PasswordReset  = "password.reset"
	ProfileUpdated = "profile.updated"
)

type AccountCreatedEvent struct {
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type AccountDeletedEvent struct {
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	DeletedAt time.Time `json:"deleted_at"`
}

type PasswordResetEvent struct {
	AccountID string    `json:"account_id"`
	ResetAt   time.Time `json:"reset_at"`
}

type ProfileUpdatedEvent struct {
	ProfileID string    `json:"profile_id"`
	Slug      string    `json:"slug,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (n *NATSPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSPublisher) Close() error {
	n.conn.Close()
	return nil
}

// NopPublisher discards events; used when NATS is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NopPublisher) Close() error                                       { return nil }
