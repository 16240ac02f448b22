package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cashflow-crm/internal/domain/client"
	"cashflow-crm/internal/domain/loan"
	"cashflow-crm/internal/infrastructure/monitoring"
)

// StatusAutomationJob runs the status engine over every servicable loan
// and persists the transitions it decides. Malformed records are skipped
// by the engine and reported in the summary; they never abort the pass.
type StatusAutomationJob struct {
	repo          client.Repository
	clientService client.ClientService
	engine        *loan.Engine
	logger        *slog.Logger
	now           func() time.Time
}

func NewStatusAutomationJob(
	repo client.Repository,
	clientSvc client.ClientService,
	engine *loan.Engine,
	logger *slog.Logger,
) *StatusAutomationJob {
	if repo == nil || clientSvc == nil || engine == nil || logger == nil {
		panic("StatusAutomationJob dependencies cannot be nil")
	}
	return &StatusAutomationJob{
		repo:          repo,
		clientService: clientSvc,
		engine:        engine,
		logger:        logger.With("job", "StatusAutomation"),
		now:           time.Now,
	}
}

func (j *StatusAutomationJob) Run(ctx context.Context) error {
	startTime := j.now()
	j.logger.InfoContext(ctx, "Starting loan status automation job.")

	clients, err := j.repo.FindActive(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to load clients, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to load clients: %w", err)
	}
	j.logger.InfoContext(ctx, "Loaded clients for automation.", slog.Int("count", len(clients)))

	if len(clients) == 0 {
		j.logger.InfoContext(ctx, "No clients to process.",
			slog.Duration("duration", time.Since(startTime)))
		return nil
	}

	loans := make([]loan.Loan, 0, len(clients))
	for _, c := range clients {
		loans = append(loans, c.LoanSnapshot())
	}

	now := j.now()
	result := j.engine.RunAutomation(loans, now)

	messages := make(map[string]string, len(result.Notifications))
	for _, n := range result.Notifications {
		messages[n.ClientID.String()] = n.Message
	}

	var transitioned, errorCount int

	for i, updated := range result.Loans {
		before := loans[i]
		if updated.Status == before.Status {
			continue
		}

		logCtx := j.logger.With(slog.String("clientID", updated.ClientID.String()))
		due := loan.CurrentAmountDue(updated, now)

		applyErr := j.clientService.ApplyStatusChange(ctx, updated.ClientID,
			before.Status, updated.Status, due, messages[updated.ClientID.String()])
		if applyErr != nil {
			logCtx.ErrorContext(ctx, "Failed to persist status transition",
				slog.String("from", string(before.Status)),
				slog.String("to", string(updated.Status)),
				slog.Any("error", applyErr))
			errorCount++
			continue
		}
		transitioned++
	}

	duration := time.Since(startTime)
	monitoring.RecordAutomationRun(duration, len(result.Notifications))

	summaryLog := j.logger.With(
		slog.Duration("duration", duration),
		slog.Int("clients_evaluated", len(clients)),
		slog.Int("transitions_applied", transitioned),
		slog.Int("records_skipped", len(result.Skipped)),
		slog.Int("errors_encountered", errorCount),
	)
	if errorCount > 0 {
		summaryLog.WarnContext(ctx, "Loan status automation job finished with errors.")
		return fmt.Errorf("job completed with %d errors", errorCount)
	}
	summaryLog.InfoContext(ctx, "Loan status automation job finished successfully.")
	return nil
}
