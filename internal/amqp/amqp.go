// Package amqp publishes reservation lifecycle events to RabbitMQ for the
// notification collaborators.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/essodond/Evexticket/internal/domain"
)

const (
	EventReservationCreated   = "reservation.created"
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationCompleted = "reservation.completed"
)

// Queues lists every queue the publisher declares.
var Queues = []string{
	EventReservationCreated,
	EventReservationConfirmed,
	EventReservationCancelled,
	EventReservationCompleted,
}

type Config struct {
	URL         string
	DialRetries int
	Backoff     time.Duration
}

// ReservationEvent is the message body of every reservation event.
type ReservationEvent struct {
	Type          string                   `json:"type"`
	ReservationID int64                    `json:"reservation_id"`
	RouteID       int64                    `json:"route_id"`
	TravelDate    string                   `json:"travel_date"`
	SeatNumber    string                   `json:"seat_number"`
	Status        domain.ReservationStatus `json:"status"`
	UserID        string                   `json:"user_id,omitempty"`
	Email         string                   `json:"passenger_email,omitempty"`
	Phone         string                   `json:"passenger_phone,omitempty"`
	TotalPrice    string                   `json:"total_price"`
	OccurredAt    time.Time                `json:"occurred_at"`
}

// NewReservationEvent builds the message describing r.
func NewReservationEvent(kind string, r domain.Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		Type:          kind,
		ReservationID: r.ID,
		RouteID:       r.RouteID,
		TravelDate:    r.TravelDate.Format(domain.DateLayout),
		SeatNumber:    r.SeatNumber,
		Status:        r.Status,
		UserID:        r.UserID,
		Email:         r.PassengerEmail,
		Phone:         r.PassengerPhone,
		TotalPrice:    r.TotalPrice.StringFixed(2),
		OccurredAt:    at.UTC(),
	}
}

// Publisher sends persistent JSON messages on durable queues through a
// single channel guarded by a mutex.
type Publisher struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *slog.Logger
}

// Dial connects with exponential backoff and declares the queues.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Publisher, error) {
	const op = "amqp.Dial"

	if cfg.DialRetries <= 0 {
		cfg.DialRetries = 5
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}

	var conn *amqp.Connection
	var err error

	wait := cfg.Backoff
	for i := 1; i <= cfg.DialRetries; i++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			break
		}

		logger.Warn("rabbitmq dial failed", "attempt", i, "error", err)
		if i == cfg.DialRetries {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(wait):
		}
		wait *= 2
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range Queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%s: declare %s: %w", op, q, err)
		}
	}

	return &Publisher{conn: conn, ch: ch, logger: logger}, nil
}

// PublishReservation sends an event about r on the queue named by kind.
func (p *Publisher) PublishReservation(ctx context.Context, kind string, r domain.Reservation) error {
	const op = "amqp.Publisher.PublishReservation"

	body, err := json.Marshal(NewReservationEvent(kind, r, time.Now()))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         kind,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, "", kind, false, false, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
