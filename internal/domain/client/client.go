package client

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"cashflow-crm/internal/domain/loan"
	"cashflow-crm/internal/pkg/apperrors"
)

const DefaultLoanType = "Secured Loan"

// Client is one loan applicant and their single tracked loan. The loan
// fields mirror the canonical snapshot handed to the balance calculator
// and status engine; LoanSnapshot performs that projection.
type Client struct {
	ID       uuid.UUID
	Name     string
	Email    string
	Phone    string
	IDNumber string

	LoanType       string
	LoanAmount     loan.Money
	InterestRate   float64
	MonthlyPayment loan.Money

	AmountPaid      loan.Money
	StartDate       time.Time
	DueDate         time.Time
	LastPaymentDate time.Time

	Status           loan.Status
	Risk             *loan.RiskAssessment
	Archived         bool
	ApplicationDate  time.Time
	LastStatusUpdate time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Payment is a single recorded repayment against a client's loan.
type Payment struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	Amount      loan.Money
	PaymentDate time.Time
	Method      string
	Notes       string
	CreatedAt   time.Time
}

// NewClient creates a client in the new-lead stage. A zero dueDate derives
// the default: end of the start month.
func NewClient(name string, amount loan.Money, startDate, dueDate time.Time, now time.Time) (*Client, error) {
	if name == "" {
		return nil, apperrors.NewValidationError("name", "cannot be empty")
	}
	if amount <= 0 {
		return nil, apperrors.NewValidationError("loanAmount", "must be greater than zero")
	}
	if startDate.IsZero() {
		startDate = now
	}
	if dueDate.IsZero() {
		dueDate = loan.PaymentDueDate(startDate)
	}

	return &Client{
		ID:               uuid.New(),
		Name:             name,
		LoanType:         DefaultLoanType,
		LoanAmount:       amount,
		InterestRate:     loan.DefaultInterestRate * 100,
		MonthlyPayment:   loan.BaseAmountDue(amount),
		StartDate:        startDate,
		DueDate:          dueDate,
		Status:           loan.StatusNewLead,
		ApplicationDate:  now,
		LastStatusUpdate: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// LoanSnapshot projects the client onto the canonical Loan shape consumed
// by the core. All field normalization happens before this point.
func (c *Client) LoanSnapshot() loan.Loan {
	return loan.Loan{
		ClientID:        c.ID,
		Principal:       c.LoanAmount,
		AmountPaid:      c.AmountPaid,
		StartDate:       c.StartDate,
		DueDate:         c.DueDate,
		LastPaymentDate: c.LastPaymentDate,
		Status:          c.Status,
	}
}

// Approve moves a new lead into the active stage. Any other starting
// status is rejected; approval is an explicit external action, never an
// automation outcome.
func (c *Client) Approve(now time.Time) error {
	if c.Archived {
		return apperrors.ErrClientArchived
	}
	if c.Status != loan.StatusNewLead {
		return fmt.Errorf("%w: cannot approve client in status %q", apperrors.ErrInvalidStatusTransition, c.Status)
	}
	c.applyStatus(loan.StatusActive, now)
	return nil
}

// RecordPayment applies a repayment. AmountPaid only ever grows; a
// satisfied loan rejects further payments.
func (c *Client) RecordPayment(amount loan.Money, when time.Time) error {
	if c.Archived {
		return apperrors.ErrClientArchived
	}
	if amount <= 0 {
		return fmt.Errorf("%w: payment must be greater than zero, got %.2f", apperrors.ErrInvalidPaymentAmount, amount)
	}
	if c.Status == loan.StatusPaid {
		return apperrors.ErrLoanAlreadyPaid
	}

	c.AmountPaid += amount
	c.LastPaymentDate = when
	c.UpdatedAt = when
	return nil
}

// ExtendDueDate replaces the due date by explicit business action. The new
// date must extend the current one; silent shrinking is not allowed.
func (c *Client) ExtendDueDate(newDate, now time.Time) error {
	if c.Archived {
		return apperrors.ErrClientArchived
	}
	if newDate.IsZero() {
		return apperrors.NewValidationError("dueDate", "cannot be empty")
	}
	if !c.DueDate.IsZero() && newDate.Before(c.DueDate) {
		return apperrors.NewValidationError("dueDate", "must extend the current due date")
	}
	c.DueDate = newDate
	c.UpdatedAt = now
	return nil
}

// Archive removes the client from active processing. Declining a lead is
// the same operation.
func (c *Client) Archive(now time.Time) {
	if !c.Archived {
		c.Archived = true
		c.UpdatedAt = now
	}
}

func (c *Client) applyStatus(s loan.Status, now time.Time) {
	if c.Status != s {
		c.Status = s
		c.LastStatusUpdate = now
		c.UpdatedAt = now
	}
}
