package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeOrderCreated       Type = "order.created"
	TypeOrderStatusChanged Type = "order.status_changed"
)

// Event is the payload written to the order events topic.
type Event struct {
	ID             string          `json:"id"`
	Type           Type            `json:"type"`
	OrderID        int64           `json:"orderId"`
	UserID         int64           `json:"userId"`
	Status         string          `json:"status"`
	PreviousStatus string          `json:"previousStatus,omitempty"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	OccurredAt     time.Time       `json:"occurredAt"`
}

func NewEvent(t Type, orderID, userID int64, status string, total decimal.Decimal) Event {
	return Event{
		ID:          uuid.New().String(),
		Type:        t,
		OrderID:     orderID,
		UserID:      userID,
		Status:      status,
		TotalAmount: total,
		OccurredAt:  time.Now().UTC(),
	}
}

// Publisher delivers events at most once; callers log failures and move on.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

type noopPublisher struct{}

// NewNoop returns a Publisher that drops everything.
func NewNoop() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, Event) error { return nil }
func (noopPublisher) Close() error                         { return nil }
