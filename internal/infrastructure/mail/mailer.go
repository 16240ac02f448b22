package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"

	"cashflow-crm/internal/config"
	"cashflow-crm/internal/domain/client"
)

// Sender delivers operational emails to the servicing team.
type Sender interface {
	SendPaymentsDueSummary(ctx context.Context, clients []client.DueClient) error
}

type Mailer struct {
	cfg    config.MailConfig
	logger *slog.Logger
	send   func(m *gomail.Message) error
}

var _ Sender = (*Mailer)(nil)

func NewMailer(cfg config.MailConfig, logger *slog.Logger) *Mailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &Mailer{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "mailer")),
		send: func(m *gomail.Message) error {
			return dialer.DialAndSend(m)
		},
	}
}

// SendPaymentsDueSummary emails the team a table of every client whose
// payment falls due at the end of the current month. An empty list sends
// nothing.
func (m *Mailer) SendPaymentsDueSummary(ctx context.Context, clients []client.DueClient) error {
	if len(clients) == 0 {
		m.logger.InfoContext(ctx, "No payments due this month, skipping summary email")
		return nil
	}

	subject := fmt.Sprintf("Payments due reminder: %d client(s)", len(clients))

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", m.cfg.To)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", renderPaymentsDueBody(clients))

	if err := m.send(msg); err != nil {
		m.logger.ErrorContext(ctx, "Failed to send payments due summary", slog.Any("error", err))
		return fmt.Errorf("failed to send payments due summary: %w", err)
	}

	m.logger.InfoContext(ctx, "Payments due summary sent", slog.Int("clients", len(clients)))
	return nil
}

func renderPaymentsDueBody(clients []client.DueClient) string {
	var b strings.Builder

	b.WriteString(`<h2>Payments Due This Month</h2>
	<p>The following clients have payments due at the end of the month:</p>
	<table style="border-collapse: collapse; width: 100%;">
		<tr>
			<th style="padding: 8px; border: 1px solid #ddd; text-align: left;">Client</th>
			<th style="padding: 8px; border: 1px solid #ddd; text-align: left;">Status</th>
			<th style="padding: 8px; border: 1px solid #ddd; text-align: right;">Loan Amount</th>
			<th style="padding: 8px; border: 1px solid #ddd; text-align: right;">Paid</th>
			<th style="padding: 8px; border: 1px solid #ddd; text-align: right;">Amount Due</th>
			<th style="padding: 8px; border: 1px solid #ddd; text-align: left;">Due Date</th>
		</tr>`)

	for _, c := range clients {
		fmt.Fprintf(&b, `
		<tr>
			<td style="padding: 8px; border: 1px solid #ddd;">%s</td>
			<td style="padding: 8px; border: 1px solid #ddd;">%s</td>
			<td style="padding: 8px; border: 1px solid #ddd; text-align: right;">%.2f</td>
			<td style="padding: 8px; border: 1px solid #ddd; text-align: right;">%.2f</td>
			<td style="padding: 8px; border: 1px solid #ddd; text-align: right;">%.2f</td>
			<td style="padding: 8px; border: 1px solid #ddd;">%s</td>
		</tr>`,
			c.Name,
			c.Status,
			c.LoanAmount,
			c.AmountPaid,
			c.AmountDue,
			c.DueDate.Format("2006-01-02"),
		)
	}

	b.WriteString(`
	</table>
	<p>Please follow up with each client before the due date passes.</p>`)

	return b.String()
}
