package client

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"cashflow-crm/internal/domain/loan"
)

var (
	ErrNotFound = errors.New("client not found")

	ErrUpdateConflict = errors.New("update conflict detected")
)

type Repository interface {
	Save(ctx context.Context, client *Client) error

	FindByID(ctx context.Context, clientID uuid.UUID) (*Client, error)

	FindAll(ctx context.Context, includeArchived bool) ([]*Client, error)

	// FindActive returns non-archived clients whose loans still need
	// automation (everything except pure leads is fair game; the engine
	// itself decides what transitions).
	FindActive(ctx context.Context) ([]*Client, error)

	UpdateStatus(ctx context.Context, clientID uuid.UUID, status loan.Status, risk *loan.RiskAssessment, updatedAt time.Time) error

	SetArchived(ctx context.Context, clientID uuid.UUID, archived bool) error

	// FindByIDForUpdate loads the client inside the given transaction with
	// a row lock, serializing concurrent payment writes.
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, clientID uuid.UUID) (*Client, error)

	SaveInTx(ctx context.Context, tx pgx.Tx, client *Client) error

	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error
}

type PaymentRepository interface {
	Insert(ctx context.Context, payment *Payment) error

	InsertInTx(ctx context.Context, tx pgx.Tx, payment *Payment) error

	ListByClient(ctx context.Context, clientID uuid.UUID) ([]Payment, error)
}
