package loan

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultNotificationRetention bounds the engine's notification buffer;
	// oldest records are discarded beyond this count.
	DefaultNotificationRetention = 50

	// DefaultThrottle is the minimum interval between effective automation
	// passes. Calls inside the window return the input unchanged.
	DefaultThrottle = time.Minute
)

// SkippedLoan reports a record the engine could not confidently evaluate.
// One bad record never aborts processing of its siblings.
type SkippedLoan struct {
	ClientID string
	Reason   string
}

// Result is the outcome of one automation pass.
type Result struct {
	Loans         []Loan
	Notifications []Notification
	Skipped       []SkippedLoan
	HasChanges    bool
}

// Engine runs the status state machine over a batch of loan snapshots. It
// is an explicit instance constructed by the caller; the only state it
// holds is the bounded notification buffer and the last-run timestamp used
// for throttling. The evaluation itself is stateless and idempotent, so
// the engine tolerates being invoked arbitrarily often.
type Engine struct {
	mu            sync.Mutex
	notifications []Notification
	lastRun       time.Time

	retention int
	throttle  time.Duration
	logger    *slog.Logger
}

type EngineOption func(*Engine)

// WithNotificationRetention overrides the notification buffer bound.
func WithNotificationRetention(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.retention = n
		}
	}
}

// WithThrottle overrides the minimum interval between effective passes.
// Zero disables throttling entirely.
func WithThrottle(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.throttle = d
	}
}

func NewEngine(logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		panic("Engine logger cannot be nil")
	}
	e := &Engine{
		retention: DefaultNotificationRetention,
		throttle:  DefaultThrottle,
		logger:    logger.With(slog.String("component", "StatusEngine")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunAutomation evaluates every loan in the batch against the balance
// calculator and the status state machine, returning updated snapshots and
// the notifications generated by transitions. Loans are processed
// independently; malformed records are reported in Skipped and left
// unchanged.
func (e *Engine) RunAutomation(loans []Loan, now time.Time) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.throttle > 0 && !e.lastRun.IsZero() && now.Sub(e.lastRun) < e.throttle {
		e.logger.Debug("Automation pass throttled", "last_run", e.lastRun)
		return Result{Loans: loans, Notifications: e.snapshotNotifications()}
	}
	e.lastRun = now

	result := Result{Loans: make([]Loan, 0, len(loans))}

	for _, l := range loans {
		if !validAmount(l.Principal) || l.Principal <= 0 {
			result.Skipped = append(result.Skipped, SkippedLoan{
				ClientID: l.ClientID.String(),
				Reason:   fmt.Sprintf("invalid principal %v", l.Principal),
			})
			result.Loans = append(result.Loans, l)
			e.logger.Warn("Skipping loan with invalid principal",
				"client_id", l.ClientID, "principal", l.Principal)
			continue
		}
		if !validAmount(l.AmountPaid) {
			result.Skipped = append(result.Skipped, SkippedLoan{
				ClientID: l.ClientID.String(),
				Reason:   fmt.Sprintf("invalid amount paid %v", l.AmountPaid),
			})
			result.Loans = append(result.Loans, l)
			e.logger.Warn("Skipping loan with invalid amount paid",
				"client_id", l.ClientID, "amount_paid", l.AmountPaid)
			continue
		}

		due := CurrentAmountDue(l, now)
		eval := EvaluateStatus(l, due, now)

		if eval.Transitioned {
			e.logger.Info("Loan status transitioned",
				"client_id", l.ClientID,
				"from", l.Status, "to", eval.Status,
				"current_due", due)
			l.Status = eval.Status
			result.HasChanges = true
			if eval.Notification != nil {
				e.addNotification(*eval.Notification)
				result.Notifications = append(result.Notifications, *eval.Notification)
			}
		}
		result.Loans = append(result.Loans, l)
	}

	return result
}

// Notifications returns a copy of the bounded notification buffer, oldest
// first.
func (e *Engine) Notifications() []Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotNotifications()
}

// ClearNotifications empties the buffer.
func (e *Engine) ClearNotifications() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifications = nil
}

// LastRun reports when the engine last performed an effective pass.
func (e *Engine) LastRun() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRun
}

func (e *Engine) addNotification(n Notification) {
	e.notifications = append(e.notifications, n)
	if len(e.notifications) > e.retention {
		e.notifications = e.notifications[len(e.notifications)-e.retention:]
	}
}

func (e *Engine) snapshotNotifications() []Notification {
	out := make([]Notification, len(e.notifications))
	copy(out, e.notifications)
	return out
}
