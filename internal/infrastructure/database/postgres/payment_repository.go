package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"cashflow-crm/internal/domain/client"
	"cashflow-crm/internal/infrastructure/monitoring"
	"cashflow-crm/internal/pkg/apperrors"
)

type PaymentRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ client.PaymentRepository = (*PaymentRepository)(nil)

func NewPaymentRepository(db DBPool, logger *slog.Logger) *PaymentRepository {
	if db == nil {
		panic("DBPool cannot be nil for PaymentRepository")
	}
	return &PaymentRepository{db: db, logger: logger.With("component", "PaymentRepository")}
}

func (r *PaymentRepository) Insert(ctx context.Context, payment *client.Payment) error {
	return r.insert(ctx, r.db, "payment_insert", payment)
}

// InsertInTx writes the payment row within the given transaction.
func (r *PaymentRepository) InsertInTx(ctx context.Context, tx pgx.Tx, payment *client.Payment) error {
	return r.insert(ctx, tx, "payment_insert_tx", payment)
}

func (r *PaymentRepository) insert(ctx context.Context, q rowQuerier, queryName string, payment *client.Payment) error {
	if payment == nil {
		return fmt.Errorf("%w: payment cannot be nil", apperrors.ErrInvalidArgument)
	}

	r.logger.InfoContext(ctx, "Inserting payment",
		slog.String("paymentID", payment.ID.String()),
		slog.String("clientID", payment.ClientID.String()))

	query := `
        INSERT INTO payments (id, client_id, amount, payment_date, method, notes, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        RETURNING created_at`

	start := time.Now()
	err := q.QueryRow(ctx, query,
		payment.ID,
		payment.ClientID,
		payment.Amount,
		payment.PaymentDate,
		payment.Method,
		payment.Notes,
	).Scan(&payment.CreatedAt)

	if err != nil {
		monitoring.RecordDBQuery(queryName, "error", time.Since(start))
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Duplicate payment ID rejected", slog.String("paymentID", payment.ID.String()))
			return translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to insert payment", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert payment: %w", apperrors.ErrDatabase, err)
	}
	monitoring.RecordDBQuery(queryName, "success", time.Since(start))

	return nil
}

func (r *PaymentRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]client.Payment, error) {
	r.logger.DebugContext(ctx, "Listing payments for client", slog.String("clientID", clientID.String()))

	query := `
        SELECT id, client_id, amount, payment_date, method, notes, created_at
        FROM payments
        WHERE client_id = $1
        ORDER BY payment_date DESC, created_at DESC`

	start := time.Now()
	rows, err := r.db.Query(ctx, query, clientID)
	if err != nil {
		monitoring.RecordDBQuery("payment_list", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to query payments", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query payments: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	payments := make([]client.Payment, 0)
	for rows.Next() {
		var p client.Payment
		err := rows.Scan(
			&p.ID,
			&p.ClientID,
			&p.Amount,
			&p.PaymentDate,
			&p.Method,
			&p.Notes,
			&p.CreatedAt,
		)
		if err != nil {
			monitoring.RecordDBQuery("payment_list", "error", time.Since(start))
			r.logger.ErrorContext(ctx, "Failed to scan payment row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan payment row: %w", apperrors.ErrDatabase, err)
		}
		payments = append(payments, p)
	}

	if err = rows.Err(); err != nil {
		monitoring.RecordDBQuery("payment_list", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Error iterating payment rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating payment rows: %w", apperrors.ErrDatabase, err)
	}
	monitoring.RecordDBQuery("payment_list", "success", time.Since(start))

	r.logger.DebugContext(ctx, "Finished listing payments", slog.Int("count", len(payments)))
	return payments, nil
}
