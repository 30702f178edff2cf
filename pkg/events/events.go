package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sessionworks/bookings/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	// Booking events
	BookingCreated = "booking.created"
	BookingDecided = "booking.decided"

	// Review events
	ReviewSubmitted = "review.submitted"
	ReviewPublished = "review.published"
)

// Event payloads
type BookingCreatedEvent struct {
	BookingID       string    `json:"booking_id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	DiscordName     string    `json:"discord_name,omitempty"`
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at"`
}

type BookingDecidedEvent struct {
	BookingID string    `json:"booking_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	StartsAt  time.Time `json:"starts_at"`
	DecidedAt time.Time `json:"decided_at"`
}

type ReviewSubmittedEvent struct {
	ReviewID    string    `json:"review_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	VerifyURL   string    `json:"verify_url"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type ReviewPublishedEvent struct {
	ReviewID    string    `json:"review_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	PublishedAt time.Time `json:"published_at"`
}
