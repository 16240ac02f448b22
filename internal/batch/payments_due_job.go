package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cashflow-crm/internal/domain/client"
	"cashflow-crm/internal/infrastructure/mail"
)

// PaymentsDueJob emails the servicing team a reminder the day before the
// end of each month, listing every client with an outstanding payment due.
// The job is scheduled daily and decides itself whether today is the day.
type PaymentsDueJob struct {
	clientService client.ClientService
	mailer        mail.Sender
	logger        *slog.Logger
	now           func() time.Time
}

func NewPaymentsDueJob(clientSvc client.ClientService, mailer mail.Sender, logger *slog.Logger) *PaymentsDueJob {
	if clientSvc == nil || mailer == nil || logger == nil {
		panic("PaymentsDueJob dependencies cannot be nil")
	}
	return &PaymentsDueJob{
		clientService: clientSvc,
		mailer:        mailer,
		logger:        logger.With("job", "PaymentsDue"),
		now:           time.Now,
	}
}

func (j *PaymentsDueJob) Run(ctx context.Context) error {
	now := j.now()
	if !isDayBeforeMonthEnd(now) {
		j.logger.DebugContext(ctx, "Not the day before month end, nothing to do.")
		return nil
	}

	j.logger.InfoContext(ctx, "Starting payments due reminder job.")
	startTime := now

	due, err := j.clientService.ClientsWithPaymentsDue(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to load clients with payments due, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to load due clients: %w", err)
	}

	if err := j.mailer.SendPaymentsDueSummary(ctx, due); err != nil {
		j.logger.ErrorContext(ctx, "Failed to send reminder email.", slog.Any("error", err))
		return err
	}

	j.logger.InfoContext(ctx, "Payments due reminder job finished.",
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("clients_due", len(due)))
	return nil
}

// isDayBeforeMonthEnd reports whether tomorrow is the last day of the
// current month.
func isDayBeforeMonthEnd(now time.Time) bool {
	tomorrow := now.AddDate(0, 0, 1)
	dayAfter := tomorrow.AddDate(0, 0, 1)
	return tomorrow.Month() == now.Month() && dayAfter.Month() != now.Month()
}
