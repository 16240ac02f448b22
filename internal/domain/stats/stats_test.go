package stats

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"cashflow-crm/internal/domain/client"
	"cashflow-crm/internal/domain/loan"
)

var statsNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func portfolioClient(principal, paid loan.Money, status loan.Status, dueDate time.Time) *client.Client {
	return &client.Client{
		ID:         uuid.New(),
		Name:       "Test Client",
		LoanAmount: principal,
		AmountPaid: paid,
		StartDate:  statsNow.AddDate(0, -2, 0),
		DueDate:    dueDate,
		Status:     status,
	}
}

func TestSummarizeEmptyPortfolio(t *testing.T) {
	summary := Summarize(nil, statsNow)

	assert.Equal(t, 0, summary.TotalClients)
	assert.True(t, summary.TotalLoaned.IsZero())
	assert.True(t, summary.TotalOutstanding.IsZero())
	assert.Zero(t, summary.RepaymentRate)
	assert.Zero(t, summary.OverdueRate)
}

func TestSummarizeTotals(t *testing.T) {
	future := statsNow.AddDate(0, 0, 10)
	clients := []*client.Client{
		portfolioClient(10000, 0, loan.StatusActive, future),
		portfolioClient(10000, 15000, loan.StatusPaid, future),
		portfolioClient(2000, 1000, loan.StatusOverdue, statsNow.AddDate(0, 0, -5)),
	}

	summary := Summarize(clients, statsNow)

	assert.Equal(t, 3, summary.TotalClients)
	assert.Equal(t, 1, summary.StatusCounts[loan.StatusActive])
	assert.Equal(t, 1, summary.StatusCounts[loan.StatusPaid])
	assert.Equal(t, 1, summary.StatusCounts[loan.StatusOverdue])
	assert.True(t, summary.TotalLoaned.Equal(decimal.NewFromInt(22000)))
	assert.True(t, summary.TotalCollected.Equal(decimal.NewFromInt(16000)))

	// Outstanding: 15000 (untouched) + 0 (settled) + 3000 (2000 due after
	// partial payment, compounded once past the due date).
	assert.True(t, summary.TotalOutstanding.Equal(decimal.NewFromInt(18000)),
		"got %s", summary.TotalOutstanding)

	// Collected 16000 against 33000 total base due.
	assert.InDelta(t, 48.48, summary.RepaymentRate, 0.01)
	assert.InDelta(t, 33.33, summary.OverdueRate, 0.01)
}

func TestSummarizeRepaymentRateCapped(t *testing.T) {
	future := statsNow.AddDate(0, 0, 10)
	clients := []*client.Client{
		portfolioClient(1000, 2000, loan.StatusPaid, future),
	}

	summary := Summarize(clients, statsNow)

	assert.Equal(t, float64(100), summary.RepaymentRate)
	assert.True(t, summary.TotalOutstanding.IsZero())
}
