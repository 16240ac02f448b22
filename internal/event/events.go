package event

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cashflow-crm/internal/domain/loan"
)

type ClientEventPayload struct {
	ClientID   uuid.UUID   `json:"clientId"`
	Name       string      `json:"name"`
	Email      string      `json:"email,omitempty"`
	LoanAmount loan.Money  `json:"loanAmount"`
	AmountPaid loan.Money  `json:"amountPaid"`
	Status     loan.Status `json:"status"`
	Archived   bool        `json:"archived"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

type ClientCreatedEvent struct {
	Timestamp time.Time          `json:"timestamp"`
	Payload   ClientEventPayload `json:"payload"`
}

type StatusChangedEvent struct {
	ClientID  uuid.UUID   `json:"clientId"`
	OldStatus loan.Status `json:"oldStatus"`
	NewStatus loan.Status `json:"newStatus"`
	AmountDue loan.Money  `json:"amountDue"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type PaymentRecordedEvent struct {
	ClientID     uuid.UUID  `json:"clientId"`
	PaymentID    uuid.UUID  `json:"paymentId"`
	Amount       loan.Money `json:"amount"`
	AmountPaid   loan.Money `json:"amountPaid"`
	RemainingDue loan.Money `json:"remainingDue"`
	Timestamp    time.Time  `json:"timestamp"`
}

type Publisher interface {
	PublishClientCreated(ctx context.Context, event ClientCreatedEvent) error
	PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error
	PublishPaymentRecorded(ctx context.Context, event PaymentRecordedEvent) error
}

// NoopPublisher satisfies Publisher when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishClientCreated(context.Context, ClientCreatedEvent) error     { return nil }
func (NoopPublisher) PublishStatusChanged(context.Context, StatusChangedEvent) error     { return nil }
func (NoopPublisher) PublishPaymentRecorded(context.Context, PaymentRecordedEvent) error { return nil }

var _ Publisher = (NoopPublisher{})
