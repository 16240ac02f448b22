package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"cashflow-crm/internal/domain/loan"
	"cashflow-crm/internal/event"
	"cashflow-crm/internal/infrastructure/monitoring"
	"cashflow-crm/internal/pkg/apperrors"
)

// DueClient is the "payments due" projection consumed by the notification
// scheduler and the stats endpoints.
type DueClient struct {
	ClientID   uuid.UUID   `json:"clientId"`
	Name       string      `json:"name"`
	Email      string      `json:"email,omitempty"`
	LoanAmount loan.Money  `json:"loanAmount"`
	AmountPaid loan.Money  `json:"amountPaid"`
	AmountDue  loan.Money  `json:"amountDue"`
	DueDate    time.Time   `json:"dueDate"`
	Status     loan.Status `json:"status"`
}

type NewClientInput struct {
	Name      string
	Email     string
	Phone     string
	IDNumber  string
	LoanType  string
	Amount    loan.Money
	StartDate time.Time
	DueDate   time.Time
}

type ClientService interface {
	CreateClient(ctx context.Context, input NewClientInput) (*Client, error)

	GetClient(ctx context.Context, clientID uuid.UUID) (*Client, error)

	ListClients(ctx context.Context, includeArchived bool) ([]*Client, error)

	ApproveClient(ctx context.Context, clientID uuid.UUID) (*Client, error)

	DeclineClient(ctx context.Context, clientID uuid.UUID) error

	ArchiveClient(ctx context.Context, clientID uuid.UUID) error

	RecordPayment(ctx context.Context, clientID uuid.UUID, amount loan.Money, method, notes string) (*Client, error)

	ListPayments(ctx context.Context, clientID uuid.UUID) ([]Payment, error)

	ExtendDueDate(ctx context.Context, clientID uuid.UUID, newDate time.Time) (*Client, error)

	ApplyStatusChange(ctx context.Context, clientID uuid.UUID, from, to loan.Status, amountDue loan.Money, message string) error

	ClientsWithPaymentsDue(ctx context.Context) ([]DueClient, error)
}

type clientService struct {
	repo        Repository
	paymentRepo PaymentRepository
	pub         event.Publisher
	logger      *slog.Logger
	now         func() time.Time
}

func NewClientService(repo Repository, paymentRepo PaymentRepository, pub event.Publisher, logger *slog.Logger) ClientService {
	if repo == nil {
		panic("client repository cannot be nil")
	}
	if paymentRepo == nil {
		panic("payment repository cannot be nil")
	}
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &clientService{
		repo:        repo,
		paymentRepo: paymentRepo,
		pub:         pub,
		logger:      logger.With(slog.String("component", "clientService")),
		now:         time.Now,
	}
}

func (s *clientService) CreateClient(ctx context.Context, input NewClientInput) (*Client, error) {
	s.logger.InfoContext(ctx, "Creating new client")

	input.Name = strings.TrimSpace(input.Name)
	c, err := NewClient(input.Name, input.Amount, input.StartDate, input.DueDate, s.now())
	if err != nil {
		s.logger.WarnContext(ctx, "Client validation failed", slog.Any("error", err))
		return nil, err
	}
	c.Email = strings.TrimSpace(input.Email)
	c.Phone = strings.TrimSpace(input.Phone)
	c.IDNumber = strings.TrimSpace(input.IDNumber)
	if input.LoanType != "" {
		c.LoanType = input.LoanType
	}

	if err := s.repo.Save(ctx, c); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save new client", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new client: %w", err)
	}

	created := event.ClientCreatedEvent{
		Timestamp: s.now(),
		Payload: event.ClientEventPayload{
			ClientID:   c.ID,
			Name:       c.Name,
			Email:      c.Email,
			LoanAmount: c.LoanAmount,
			AmountPaid: c.AmountPaid,
			Status:     c.Status,
			Archived:   c.Archived,
			CreatedAt:  c.CreatedAt,
			UpdatedAt:  c.UpdatedAt,
		},
	}
	if pubErr := s.pub.PublishClientCreated(ctx, created); pubErr != nil {
		s.logger.ErrorContext(ctx, "Client created, but failed to publish creation event", slog.Any("error", pubErr))
	}

	s.logger.InfoContext(ctx, "Client created", slog.String("client_id", c.ID.String()))
	return c, nil
}

func (s *clientService) GetClient(ctx context.Context, clientID uuid.UUID) (*Client, error) {
	c, err := s.repo.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: client %s", apperrors.ErrNotFound, clientID)
		}
		s.logger.ErrorContext(ctx, "Repository error finding client", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get client %s: %w", clientID, err)
	}
	return c, nil
}

func (s *clientService) ListClients(ctx context.Context, includeArchived bool) ([]*Client, error) {
	clients, err := s.repo.FindAll(ctx, includeArchived)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing clients", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

func (s *clientService) ApproveClient(ctx context.Context, clientID uuid.UUID) (*Client, error) {
	c, err := s.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	from := c.Status
	if err := c.Approve(s.now()); err != nil {
		s.logger.WarnContext(ctx, "Approval rejected",
			slog.String("client_id", clientID.String()), slog.Any("error", err))
		return nil, err
	}

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save approved client: %w", err)
	}
	monitoring.RecordStatusTransition(string(from), string(c.Status))

	s.publishStatusChanged(ctx, c, from, loan.CurrentAmountDue(c.LoanSnapshot(), s.now()), "loan approved")
	return c, nil
}

func (s *clientService) DeclineClient(ctx context.Context, clientID uuid.UUID) error {
	c, err := s.GetClient(ctx, clientID)
	if err != nil {
		return err
	}
	if c.Status != loan.StatusNewLead {
		return fmt.Errorf("%w: only new leads can be declined, client is %q",
			apperrors.ErrInvalidStatusTransition, c.Status)
	}
	return s.archive(ctx, c)
}

func (s *clientService) ArchiveClient(ctx context.Context, clientID uuid.UUID) error {
	c, err := s.GetClient(ctx, clientID)
	if err != nil {
		return err
	}
	return s.archive(ctx, c)
}

func (s *clientService) archive(ctx context.Context, c *Client) error {
	c.Archive(s.now())
	if err := s.repo.SetArchived(ctx, c.ID, true); err != nil {
		s.logger.ErrorContext(ctx, "Failed to archive client",
			slog.String("client_id", c.ID.String()), slog.Any("error", err))
		return fmt.Errorf("failed to archive client %s: %w", c.ID, err)
	}
	s.logger.InfoContext(ctx, "Client archived", slog.String("client_id", c.ID.String()))
	return nil
}

func (s *clientService) RecordPayment(ctx context.Context, clientID uuid.UUID, amount loan.Money, method, notes string) (_ *Client, err error) {
	s.logger.InfoContext(ctx, "Recording payment",
		slog.String("client_id", clientID.String()), slog.Float64("amount", amount))

	defer func() {
		switch {
		case err == nil:
			monitoring.RecordPayment("success")
		case errors.Is(err, apperrors.ErrInvalidPaymentAmount):
			monitoring.RecordPayment("failure_amount")
		case errors.Is(err, apperrors.ErrLoanAlreadyPaid):
			monitoring.RecordPayment("failure_fully_paid")
		default:
			monitoring.RecordPayment("failure_internal")
		}
	}()

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin payment transaction", slog.Any("error", err))
		return nil, fmt.Errorf("could not begin payment transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			s.logger.ErrorContext(ctx, "Panic during payment processing",
				slog.String("client_id", clientID.String()), slog.Any("error", p))
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	c, err := s.repo.FindByIDForUpdate(ctx, tx, clientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: client %s", apperrors.ErrNotFound, clientID)
		}
		s.logger.ErrorContext(ctx, "Failed to lock client for payment", slog.Any("error", err))
		return nil, fmt.Errorf("failed to load client %s for payment: %w", clientID, err)
	}

	now := s.now()
	if err = c.RecordPayment(amount, now); err != nil {
		return nil, err
	}

	payment := &Payment{
		ID:          uuid.New(),
		ClientID:    c.ID,
		Amount:      amount,
		PaymentDate: now,
		Method:      method,
		Notes:       notes,
		CreatedAt:   now,
	}

	// Re-evaluate the pipeline status with the fresh snapshot: a payment
	// covering the full amount due flips the loan to paid immediately.
	snapshot := c.LoanSnapshot()
	due := loan.CurrentAmountDue(snapshot, now)
	eval := loan.EvaluateStatus(snapshot, due, now)
	from := c.Status
	if eval.Transitioned {
		c.applyStatus(eval.Status, now)
		risk := loan.AssessRisk(c.LoanSnapshot(), now)
		c.Risk = &risk
		monitoring.RecordStatusTransition(string(from), string(eval.Status))
	}

	if err = s.repo.SaveInTx(ctx, tx, c); err != nil {
		return nil, fmt.Errorf("failed to save client after payment: %w", err)
	}
	if err = s.paymentRepo.InsertInTx(ctx, tx, payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("could not commit payment transaction: %w", err)
	}

	recorded := event.PaymentRecordedEvent{
		ClientID:     c.ID,
		PaymentID:    payment.ID,
		Amount:       amount,
		AmountPaid:   c.AmountPaid,
		RemainingDue: due,
		Timestamp:    now,
	}
	if pubErr := s.pub.PublishPaymentRecorded(ctx, recorded); pubErr != nil {
		s.logger.ErrorContext(ctx, "Payment recorded, but failed to publish event", slog.Any("error", pubErr))
	}
	if eval.Transitioned {
		message := ""
		if eval.Notification != nil {
			message = eval.Notification.Message
		}
		s.publishStatusChanged(ctx, c, from, due, message)
	}

	s.logger.InfoContext(ctx, "Payment recorded",
		slog.String("client_id", c.ID.String()),
		slog.Float64("amount_paid", c.AmountPaid),
		slog.String("status", string(c.Status)))
	return c, nil
}

func (s *clientService) ListPayments(ctx context.Context, clientID uuid.UUID) ([]Payment, error) {
	if _, err := s.GetClient(ctx, clientID); err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.ListByClient(ctx, clientID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing payments", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list payments for client %s: %w", clientID, err)
	}
	return payments, nil
}

func (s *clientService) ExtendDueDate(ctx context.Context, clientID uuid.UUID, newDate time.Time) (*Client, error) {
	c, err := s.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if err := c.ExtendDueDate(newDate, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save extended due date: %w", err)
	}

	s.logger.InfoContext(ctx, "Due date extended",
		slog.String("client_id", clientID.String()), slog.Time("due_date", newDate))
	return c, nil
}

// ApplyStatusChange persists a transition decided by the status engine and
// publishes the corresponding event. Used by the automation batch.
func (s *clientService) ApplyStatusChange(ctx context.Context, clientID uuid.UUID, from, to loan.Status, amountDue loan.Money, message string) error {
	c, err := s.GetClient(ctx, clientID)
	if err != nil {
		return err
	}
	if c.Status == to {
		// Already there; repeated automation passes are a no-op.
		return nil
	}

	now := s.now()
	risk := loan.AssessRisk(c.LoanSnapshot(), now)
	if err := s.repo.UpdateStatus(ctx, clientID, to, &risk, now); err != nil {
		return fmt.Errorf("failed to update status for client %s: %w", clientID, err)
	}
	monitoring.RecordStatusTransition(string(from), string(to))

	c.Status = to
	s.publishStatusChanged(ctx, c, from, amountDue, message)
	return nil
}

func (s *clientService) ClientsWithPaymentsDue(ctx context.Context) ([]DueClient, error) {
	clients, err := s.repo.FindAll(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients for payments-due check: %w", err)
	}

	now := s.now()
	due := make([]DueClient, 0)
	for _, c := range clients {
		amountDue := loan.CurrentAmountDue(c.LoanSnapshot(), now)
		if amountDue <= 0 || c.Status == loan.StatusNewLead {
			continue
		}
		due = append(due, DueClient{
			ClientID:   c.ID,
			Name:       c.Name,
			Email:      c.Email,
			LoanAmount: c.LoanAmount,
			AmountPaid: c.AmountPaid,
			AmountDue:  amountDue,
			DueDate:    c.DueDate,
			Status:     c.Status,
		})
	}
	return due, nil
}

func (s *clientService) publishStatusChanged(ctx context.Context, c *Client, from loan.Status, amountDue loan.Money, message string) {
	evt := event.StatusChangedEvent{
		ClientID:  c.ID,
		OldStatus: from,
		NewStatus: c.Status,
		AmountDue: amountDue,
		Message:   message,
		Timestamp: s.now(),
	}
	if err := s.pub.PublishStatusChanged(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish status change event",
			slog.String("client_id", c.ID.String()), slog.Any("error", err))
	}
}
