package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"

	"cashflow-crm/internal/domain/client"
	"cashflow-crm/internal/domain/loan"
	"cashflow-crm/internal/infrastructure/monitoring"
	"cashflow-crm/internal/pkg/apperrors"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var errMsgFormat = "%w: %w"

const clientColumns = `id, name, email, phone, id_number, loan_type, loan_amount,
        interest_rate, monthly_payment, amount_paid, start_date, due_date,
        last_payment_date, status, risk, archived, application_date,
        last_status_update, created_at, updated_at`

type ClientRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ client.Repository = (*ClientRepository)(nil)

func NewClientRepository(db DBPool, logger *slog.Logger) *ClientRepository {
	if db == nil {
		panic("DBPool cannot be nil for ClientRepository")
	}
	return &ClientRepository{db: db, logger: logger.With("component", "ClientRepository")}
}

// rowQuerier lets the upsert run against either the pool or an open
// transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *ClientRepository) Save(ctx context.Context, c *client.Client) error {
	return r.save(ctx, r.db, "client_save", c)
}

// SaveInTx upserts the client within the given transaction.
func (r *ClientRepository) SaveInTx(ctx context.Context, tx pgx.Tx, c *client.Client) error {
	return r.save(ctx, tx, "client_save_tx", c)
}

func (r *ClientRepository) save(ctx context.Context, q rowQuerier, queryName string, c *client.Client) error {
	if c == nil {
		return fmt.Errorf("%w: client cannot be nil", apperrors.ErrInvalidArgument)
	}

	riskJSON, err := marshalRisk(c.Risk)
	if err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "Upserting client", slog.String("clientID", c.ID.String()))

	start := time.Now()
	query := `
        INSERT INTO clients (id, name, email, phone, id_number, loan_type, loan_amount,
            interest_rate, monthly_payment, amount_paid, start_date, due_date,
            last_payment_date, status, risk, archived, application_date,
            last_status_update, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW(), NOW())
        ON CONFLICT (id) DO UPDATE
        SET name = EXCLUDED.name,
            email = EXCLUDED.email,
            phone = EXCLUDED.phone,
            id_number = EXCLUDED.id_number,
            loan_type = EXCLUDED.loan_type,
            loan_amount = EXCLUDED.loan_amount,
            interest_rate = EXCLUDED.interest_rate,
            monthly_payment = EXCLUDED.monthly_payment,
            amount_paid = EXCLUDED.amount_paid,
            start_date = EXCLUDED.start_date,
            due_date = EXCLUDED.due_date,
            last_payment_date = EXCLUDED.last_payment_date,
            status = EXCLUDED.status,
            risk = EXCLUDED.risk,
            archived = EXCLUDED.archived,
            last_status_update = EXCLUDED.last_status_update,
            updated_at = NOW()
        RETURNING created_at, updated_at`

	err = q.QueryRow(ctx, query,
		c.ID,
		c.Name,
		c.Email,
		c.Phone,
		c.IDNumber,
		c.LoanType,
		c.LoanAmount,
		c.InterestRate,
		c.MonthlyPayment,
		c.AmountPaid,
		c.StartDate,
		c.DueDate,
		nullableTime(c.LastPaymentDate),
		c.Status,
		riskJSON,
		c.Archived,
		c.ApplicationDate,
		c.LastStatusUpdate,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		monitoring.RecordDBQuery(queryName, "error", time.Since(start))
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to upsert client due to unique constraint violation", slog.String("clientID", c.ID.String()))
			return translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to upsert client", slog.Any("error", err))
		return fmt.Errorf("%w: failed to save client: %w", apperrors.ErrDatabase, err)
	}
	monitoring.RecordDBQuery(queryName, "success", time.Since(start))

	r.logger.InfoContext(ctx, "Client saved successfully", slog.String("clientID", c.ID.String()))
	return nil
}

func (r *ClientRepository) FindByID(ctx context.Context, clientID uuid.UUID) (*client.Client, error) {
	r.logger.DebugContext(ctx, "Finding client by ID", slog.String("clientID", clientID.String()))

	query := `
        SELECT ` + clientColumns + `
        FROM clients
        WHERE id = $1`

	start := time.Now()
	c, err := scanClient(r.db.QueryRow(ctx, query, clientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			monitoring.RecordDBQuery("client_find_by_id", "not_found", time.Since(start))
			r.logger.WarnContext(ctx, "Client not found", slog.String("clientID", clientID.String()))
			return nil, client.ErrNotFound
		}
		monitoring.RecordDBQuery("client_find_by_id", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to query/scan client by ID", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get client by ID: %w", apperrors.ErrDatabase, err)
	}
	monitoring.RecordDBQuery("client_find_by_id", "success", time.Since(start))

	return c, nil
}

// FindByIDForUpdate loads and locks the client row inside the given
// transaction so concurrent payment writes serialize on it.
func (r *ClientRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, clientID uuid.UUID) (*client.Client, error) {
	r.logger.DebugContext(ctx, "Locking client row for update", slog.String("clientID", clientID.String()))

	query := `
        SELECT ` + clientColumns + `
        FROM clients
        WHERE id = $1
        FOR UPDATE`

	start := time.Now()
	c, err := scanClient(tx.QueryRow(ctx, query, clientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			monitoring.RecordDBQuery("client_find_for_update", "not_found", time.Since(start))
			r.logger.WarnContext(ctx, "Client not found for update", slog.String("clientID", clientID.String()))
			return nil, client.ErrNotFound
		}
		monitoring.RecordDBQuery("client_find_for_update", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to lock client row", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to lock client for update: %w", apperrors.ErrDatabase, err)
	}
	monitoring.RecordDBQuery("client_find_for_update", "success", time.Since(start))

	return c, nil
}

func (r *ClientRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *ClientRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *ClientRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", slog.Any("error", err))
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *ClientRepository) FindAll(ctx context.Context, includeArchived bool) ([]*client.Client, error) {
	r.logger.DebugContext(ctx, "Finding all clients", slog.Bool("includeArchived", includeArchived))

	query := `
        SELECT ` + clientColumns + `
        FROM clients`
	args := []any{}
	if !includeArchived {
		query += " WHERE archived = $1"
		args = append(args, false)
	}
	query += " ORDER BY created_at ASC"

	return r.queryClients(ctx, "client_find_all", query, args...)
}

func (r *ClientRepository) FindActive(ctx context.Context) ([]*client.Client, error) {
	r.logger.DebugContext(ctx, "Finding clients eligible for automation")

	query := `
        SELECT ` + clientColumns + `
        FROM clients
        WHERE archived = false AND status <> $1
        ORDER BY created_at ASC`

	return r.queryClients(ctx, "client_find_active", query, loan.StatusNewLead)
}

func (r *ClientRepository) queryClients(ctx context.Context, queryName, query string, args ...any) ([]*client.Client, error) {
	start := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		monitoring.RecordDBQuery(queryName, "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to query clients", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query clients: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	clients := make([]*client.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			monitoring.RecordDBQuery(queryName, "error", time.Since(start))
			r.logger.ErrorContext(ctx, "Failed to scan client row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan client row: %w", apperrors.ErrDatabase, err)
		}
		clients = append(clients, c)
	}

	if err = rows.Err(); err != nil {
		monitoring.RecordDBQuery(queryName, "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Error iterating client rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating client rows: %w", apperrors.ErrDatabase, err)
	}
	monitoring.RecordDBQuery(queryName, "success", time.Since(start))

	r.logger.DebugContext(ctx, "Finished finding clients", slog.Int("count", len(clients)))
	return clients, nil
}

func (r *ClientRepository) UpdateStatus(ctx context.Context, clientID uuid.UUID, status loan.Status, risk *loan.RiskAssessment, updatedAt time.Time) error {
	r.logger.InfoContext(ctx, "Updating client status",
		slog.String("clientID", clientID.String()),
		slog.String("status", string(status)))

	riskJSON, err := marshalRisk(risk)
	if err != nil {
		return err
	}

	query := `
        UPDATE clients
        SET status = $1,
            risk = COALESCE($2, risk),
            last_status_update = $3,
            updated_at = NOW()
        WHERE id = $4`

	start := time.Now()
	cmdTag, err := r.db.Exec(ctx, query, status, riskJSON, updatedAt, clientID)
	if err != nil {
		monitoring.RecordDBQuery("client_update_status", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to execute status update", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update client status: %w", apperrors.ErrDatabase, err)
	}
	monitoring.RecordDBQuery("client_update_status", "success", time.Since(start))

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Status update affected zero rows, client likely not found")
		return client.ErrNotFound
	}

	return nil
}

func (r *ClientRepository) SetArchived(ctx context.Context, clientID uuid.UUID, archived bool) error {
	r.logger.InfoContext(ctx, "Setting client archived flag",
		slog.String("clientID", clientID.String()),
		slog.Bool("archived", archived))

	query := `UPDATE clients SET archived = $1, updated_at = NOW() WHERE id = $2`

	start := time.Now()
	cmdTag, err := r.db.Exec(ctx, query, archived, clientID)
	if err != nil {
		monitoring.RecordDBQuery("client_set_archived", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to execute archive update", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update archived flag: %w", apperrors.ErrDatabase, err)
	}
	monitoring.RecordDBQuery("client_set_archived", "success", time.Since(start))

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Archive update affected zero rows, client likely not found")
		return client.ErrNotFound
	}

	return nil
}

func scanClient(row pgx.Row) (*client.Client, error) {
	var c client.Client
	var riskJSON []byte
	var lastPayment *time.Time

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.IDNumber,
		&c.LoanType,
		&c.LoanAmount,
		&c.InterestRate,
		&c.MonthlyPayment,
		&c.AmountPaid,
		&c.StartDate,
		&c.DueDate,
		&lastPayment,
		&c.Status,
		&riskJSON,
		&c.Archived,
		&c.ApplicationDate,
		&c.LastStatusUpdate,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastPayment != nil {
		c.LastPaymentDate = *lastPayment
	}
	if len(riskJSON) > 0 {
		var risk loan.RiskAssessment
		if err := json.Unmarshal(riskJSON, &risk); err != nil {
			return nil, fmt.Errorf("failed to decode risk assessment: %w", err)
		}
		c.Risk = &risk
	}

	return &c, nil
}

func marshalRisk(risk *loan.RiskAssessment) ([]byte, error) {
	if risk == nil {
		return nil, nil
	}
	data, err := json.Marshal(risk)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode risk assessment: %w", apperrors.ErrInvalidArgument, err)
	}
	return data, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {

		if pgErr.Code == "23505" {
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		}

		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return fmt.Errorf("%w: db error code %s", apperrors.ErrDatabase, pgErr.Code)
	}

	contextLogger.Error("Generic database error", "error", err)
	return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}
