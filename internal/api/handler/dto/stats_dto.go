package dto

import (
	"cashflow-crm/internal/domain/client"
	"cashflow-crm/internal/domain/stats"
)

type StatsResponse struct {
	TotalClients     int            `json:"totalClients"`
	StatusCounts     map[string]int `json:"statusCounts"`
	TotalLoaned      string         `json:"totalLoaned"`
	TotalCollected   string         `json:"totalCollected"`
	TotalOutstanding string         `json:"totalOutstanding"`
	RepaymentRate    float64        `json:"repaymentRate"`
	OverdueRate      float64        `json:"overdueRate"`
}

func NewStatsResponse(s stats.Summary) StatsResponse {
	counts := make(map[string]int, len(s.StatusCounts))
	for status, count := range s.StatusCounts {
		counts[string(status)] = count
	}
	return StatsResponse{
		TotalClients:     s.TotalClients,
		StatusCounts:     counts,
		TotalLoaned:      s.TotalLoaned.StringFixed(2),
		TotalCollected:   s.TotalCollected.StringFixed(2),
		TotalOutstanding: s.TotalOutstanding.StringFixed(2),
		RepaymentRate:    s.RepaymentRate,
		OverdueRate:      s.OverdueRate,
	}
}

type DueClientResponse struct {
	ClientID   string `json:"clientId"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	LoanAmount string `json:"loanAmount"`
	AmountPaid string `json:"amountPaid"`
	AmountDue  string `json:"amountDue"`
	DueDate    string `json:"dueDate"`
	Status     string `json:"status"`
}

func NewDueClientResponse(d client.DueClient) DueClientResponse {
	return DueClientResponse{
		ClientID:   d.ClientID.String(),
		Name:       d.Name,
		Email:      d.Email,
		LoanAmount: formatMoney(d.LoanAmount),
		AmountPaid: formatMoney(d.AmountPaid),
		AmountDue:  formatMoney(d.AmountDue),
		DueDate:    d.DueDate.Format(dateLayout),
		Status:     string(d.Status),
	}
}
