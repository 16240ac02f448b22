package loan

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Notification describes a single status transition for the notification
// and UI layers.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	ClientID  uuid.UUID        `json:"clientId"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
}

// Evaluation is the status engine's verdict for a single loan.
type Evaluation struct {
	Status       Status
	Transitioned bool
	Notification *Notification
}

// EvaluateStatus decides whether the loan's status must change given its
// current amount due. The fully-paid check runs first and preempts every
// date-based transition: a satisfied loan is never simultaneously marked
// overdue. Re-evaluating an unchanged snapshot yields no transition and no
// duplicate notification. Missing or malformed data leaves the status
// untouched rather than failing.
func EvaluateStatus(l Loan, currentDue Money, now time.Time) Evaluation {
	unchanged := Evaluation{Status: l.Status}

	// Invalid amounts: cannot determine anything, leave as is.
	if !validAmount(l.Principal) || l.Principal <= 0 || !validAmount(l.AmountPaid) {
		return unchanged
	}

	if currentDue <= 0 {
		if l.Status == StatusPaid {
			return unchanged
		}
		return transition(l, StatusPaid, NotificationSuccess,
			"loan has been fully paid", now)
	}

	if l.DueDate.IsZero() {
		return unchanged
	}

	dueDay := truncateToDay(l.DueDate)
	today := truncateToDay(now)

	switch l.Status {
	case StatusActive:
		if !dueDay.After(today) {
			return transition(l, StatusRepaymentDue, NotificationWarning,
				"payment is now due", now)
		}
	case StatusRepaymentDue:
		// Overdue only once the whole due day has passed.
		if dueDay.Before(today) {
			return transition(l, StatusOverdue, NotificationError,
				"payment is now overdue", now)
		}
	}

	return unchanged
}

func transition(l Loan, to Status, typ NotificationType, message string, now time.Time) Evaluation {
	return Evaluation{
		Status:       to,
		Transitioned: true,
		Notification: &Notification{
			ID:        uuid.New(),
			ClientID:  l.ClientID,
			Type:      typ,
			Message:   fmt.Sprintf("client %s: %s", l.ClientID, message),
			Timestamp: now,
		},
	}
}

func truncateToDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
