package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"cashflow-crm/internal/domain/client"
	"cashflow-crm/internal/domain/loan"
)

// Summary is the portfolio roll-up behind the dashboard. Monetary totals
// are accumulated with decimals so cents survive large portfolios.
type Summary struct {
	TotalClients     int                 `json:"totalClients"`
	StatusCounts     map[loan.Status]int `json:"statusCounts"`
	TotalLoaned      decimal.Decimal     `json:"totalLoaned"`
	TotalCollected   decimal.Decimal     `json:"totalCollected"`
	TotalOutstanding decimal.Decimal     `json:"totalOutstanding"`
	RepaymentRate    float64             `json:"repaymentRate"`
	OverdueRate      float64             `json:"overdueRate"`
}

// Summarize rolls up the portfolio at the given instant. Pure function;
// archived records are expected to be filtered out by the caller.
func Summarize(clients []*client.Client, now time.Time) Summary {
	summary := Summary{
		TotalClients:     len(clients),
		StatusCounts:     make(map[loan.Status]int),
		TotalLoaned:      decimal.Zero,
		TotalCollected:   decimal.Zero,
		TotalOutstanding: decimal.Zero,
	}

	totalDue := decimal.Zero
	overdue := 0

	for _, c := range clients {
		summary.StatusCounts[c.Status]++
		if c.Status == loan.StatusOverdue {
			overdue++
		}

		summary.TotalLoaned = summary.TotalLoaned.Add(decimal.NewFromFloat(c.LoanAmount))
		summary.TotalCollected = summary.TotalCollected.Add(decimal.NewFromFloat(c.AmountPaid))

		snapshot := c.LoanSnapshot()
		summary.TotalOutstanding = summary.TotalOutstanding.Add(
			decimal.NewFromFloat(loan.CurrentAmountDue(snapshot, now)))
		totalDue = totalDue.Add(decimal.NewFromFloat(loan.BaseAmountDue(c.LoanAmount)))
	}

	if totalDue.IsPositive() {
		rate, _ := summary.TotalCollected.Div(totalDue).Mul(decimal.NewFromInt(100)).Float64()
		if rate > 100 {
			rate = 100
		}
		summary.RepaymentRate = rate
	}
	if len(clients) > 0 {
		summary.OverdueRate = float64(overdue) / float64(len(clients)) * 100
	}

	return summary
}

type Service struct {
	repo   client.Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo client.Repository, logger *slog.Logger) *Service {
	if repo == nil {
		panic("stats repository cannot be nil")
	}
	return &Service{
		repo:   repo,
		logger: logger.With(slog.String("component", "statsService")),
		now:    time.Now,
	}
}

func (s *Service) PortfolioSummary(ctx context.Context) (Summary, error) {
	clients, err := s.repo.FindAll(ctx, false)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load clients for summary", slog.Any("error", err))
		return Summary{}, fmt.Errorf("failed to compute portfolio summary: %w", err)
	}
	return Summarize(clients, s.now()), nil
}
