package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cashflow-crm/internal/domain/client"
	"cashflow-crm/internal/domain/loan"
)

const dateLayout = "2006-01-02"

type CreateClientRequest struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone"`
	IDNumber   string  `json:"idNumber"`
	LoanType   string  `json:"loanType"`
	LoanAmount float64 `json:"loanAmount"`
	StartDate  string  `json:"startDate"`
	DueDate    string  `json:"dueDate"`
}

func (r *CreateClientRequest) UnmarshalJSON(data []byte) error {
	type plain CreateClientRequest
	return decodeNormalized(data, (*plain)(r))
}

func (r *CreateClientRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if r.LoanAmount <= 0 {
		return fmt.Errorf("loanAmount must be a positive number")
	}
	if _, err := parseDate(r.StartDate); err != nil {
		return fmt.Errorf("startDate must be formatted as %s", dateLayout)
	}
	if _, err := parseDate(r.DueDate); err != nil {
		return fmt.Errorf("dueDate must be formatted as %s", dateLayout)
	}
	return nil
}

// ToInput converts the request into the service input shape. Validate
// must have passed first.
func (r *CreateClientRequest) ToInput() client.NewClientInput {
	startDate, _ := parseDate(r.StartDate)
	dueDate, _ := parseDate(r.DueDate)
	return client.NewClientInput{
		Name:      strings.TrimSpace(r.Name),
		Email:     strings.TrimSpace(r.Email),
		Phone:     strings.TrimSpace(r.Phone),
		IDNumber:  strings.TrimSpace(r.IDNumber),
		LoanType:  strings.TrimSpace(r.LoanType),
		Amount:    r.LoanAmount,
		StartDate: startDate,
		DueDate:   dueDate,
	}
}

type RecordPaymentRequest struct {
	Amount float64 `json:"amount"`
	Method string  `json:"method"`
	Notes  string  `json:"notes"`
}

func (r *RecordPaymentRequest) UnmarshalJSON(data []byte) error {
	type plain RecordPaymentRequest
	return decodeNormalized(data, (*plain)(r))
}

func (r *RecordPaymentRequest) Validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("amount must be a positive number")
	}
	return nil
}

type ExtendDueDateRequest struct {
	DueDate string `json:"dueDate"`
}

func (r *ExtendDueDateRequest) UnmarshalJSON(data []byte) error {
	type plain ExtendDueDateRequest
	return decodeNormalized(data, (*plain)(r))
}

func (r *ExtendDueDateRequest) Validate() error {
	if _, err := parseDate(r.DueDate); err != nil || r.DueDate == "" {
		return fmt.Errorf("dueDate must be formatted as %s", dateLayout)
	}
	return nil
}

type TokenRequest struct {
	Username string `json:"username"`
}

type ErrorDetail struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type RiskResponse struct {
	Level string `json:"level"`
	Score int    `json:"score"`
}

type ClientResponse struct {
	ClientID         string        `json:"clientId"`
	Name             string        `json:"name"`
	Email            string        `json:"email,omitempty"`
	Phone            string        `json:"phone,omitempty"`
	IDNumber         string        `json:"idNumber,omitempty"`
	LoanType         string        `json:"loanType"`
	LoanAmount       string        `json:"loanAmount"`
	InterestRate     float64       `json:"interestRate"`
	MonthlyPayment   string        `json:"monthlyPayment"`
	AmountPaid       string        `json:"amountPaid"`
	AmountDue        string        `json:"amountDue"`
	PaymentProgress  float64       `json:"paymentProgress"`
	StartDate        string        `json:"startDate"`
	DueDate          string        `json:"dueDate"`
	NextPaymentDate  string        `json:"nextPaymentDate,omitempty"`
	LastPaymentDate  string        `json:"lastPaymentDate,omitempty"`
	DaysOverdue      int           `json:"daysOverdue"`
	Status           string        `json:"status"`
	Risk             *RiskResponse `json:"risk,omitempty"`
	Archived         bool          `json:"archived"`
	ApplicationDate  string        `json:"applicationDate"`
	LastStatusUpdate time.Time     `json:"lastStatusUpdate"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

func NewClientResponse(c *client.Client, now time.Time) ClientResponse {
	if c == nil {
		return ClientResponse{}
	}

	snapshot := c.LoanSnapshot()
	due := loan.CurrentAmountDue(snapshot, now)

	resp := ClientResponse{
		ClientID:         c.ID.String(),
		Name:             c.Name,
		Email:            c.Email,
		Phone:            c.Phone,
		IDNumber:         c.IDNumber,
		LoanType:         c.LoanType,
		LoanAmount:       formatMoney(c.LoanAmount),
		InterestRate:     c.InterestRate,
		MonthlyPayment:   formatMoney(c.MonthlyPayment),
		AmountPaid:       formatMoney(c.AmountPaid),
		AmountDue:        formatMoney(due),
		PaymentProgress:  loan.PaymentProgress(snapshot, now),
		StartDate:        c.StartDate.Format(dateLayout),
		DueDate:          c.DueDate.Format(dateLayout),
		Status:           string(c.Status),
		Archived:         c.Archived,
		ApplicationDate:  c.ApplicationDate.Format(dateLayout),
		LastStatusUpdate: c.LastStatusUpdate,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}

	if !c.LastPaymentDate.IsZero() {
		resp.LastPaymentDate = c.LastPaymentDate.Format(dateLayout)
		resp.NextPaymentDate = loan.NextPaymentDate(c.LastPaymentDate, loan.FrequencyMonthly).Format(dateLayout)
	}
	if c.Status == loan.StatusOverdue {
		resp.DaysOverdue = loan.DaysOverdue(c.DueDate, now)
	}
	if c.Risk != nil {
		resp.Risk = &RiskResponse{
			Level: string(c.Risk.Level),
			Score: c.Risk.Score,
		}
	}

	return resp
}

type BalanceResponse struct {
	ClientID         string `json:"clientId"`
	LoanAmount       string `json:"loanAmount"`
	TotalAmountDue   string `json:"totalAmountDue"`
	AmountPaid       string `json:"amountPaid"`
	AmountDue        string `json:"amountDue"`
	RemainingBalance string `json:"remainingBalance"`
	Status           string `json:"status"`
}

func NewBalanceResponse(c *client.Client, now time.Time) BalanceResponse {
	if c == nil {
		return BalanceResponse{}
	}

	snapshot := c.LoanSnapshot()
	return BalanceResponse{
		ClientID:         c.ID.String(),
		LoanAmount:       formatMoney(c.LoanAmount),
		TotalAmountDue:   formatMoney(loan.BaseAmountDue(c.LoanAmount)),
		AmountPaid:       formatMoney(c.AmountPaid),
		AmountDue:        formatMoney(loan.CurrentAmountDue(snapshot, now)),
		RemainingBalance: formatMoney(loan.RemainingBalance(c.LoanAmount, c.AmountPaid)),
		Status:           string(c.Status),
	}
}

type PaymentResponse struct {
	PaymentID   string    `json:"paymentId"`
	ClientID    string    `json:"clientId"`
	Amount      string    `json:"amount"`
	PaymentDate string    `json:"paymentDate"`
	Method      string    `json:"method,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func NewPaymentResponse(p client.Payment) PaymentResponse {
	return PaymentResponse{
		PaymentID:   p.ID.String(),
		ClientID:    p.ClientID.String(),
		Amount:      formatMoney(p.Amount),
		PaymentDate: p.PaymentDate.Format(dateLayout),
		Method:      p.Method,
		Notes:       p.Notes,
		CreatedAt:   p.CreatedAt,
	}
}

type NotificationResponse struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"clientId"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func NewNotificationResponse(n loan.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID.String(),
		ClientID:  n.ClientID.String(),
		Type:      string(n.Type),
		Message:   n.Message,
		Timestamp: n.Timestamp,
	}
}

func formatMoney(amount loan.Money) string {
	return decimal.NewFromFloat(float64(amount)).StringFixed(2)
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, value)
}
