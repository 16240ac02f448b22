package loan

import (
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultInterestRate is the flat interest rate applied for a single
	// repayment period (50% per period).
	DefaultInterestRate = 0.50

	interestMultiplier = 1.5

	// maxDueMultiplier caps the computed amount due at principal * 10.
	// Safety valve against degenerate inputs (ancient due dates, clock
	// skew), not a business rule.
	maxDueMultiplier = 10.0
)

type Status string

const (
	StatusNewLead      Status = "new-lead"
	StatusActive       Status = "active"
	StatusRepaymentDue Status = "repayment-due"
	StatusPaid         Status = "paid"
	StatusOverdue      Status = "overdue"
)

type PaymentFrequency string

const (
	FrequencyWeekly   PaymentFrequency = "weekly"
	FrequencyBiWeekly PaymentFrequency = "bi-weekly"
	FrequencyMonthly  PaymentFrequency = "monthly"
)

type Money = float64

// Loan is the canonical snapshot the balance calculator and status engine
// operate on. Callers supply it fully normalized; a zero DueDate or
// LastPaymentDate means the value is unknown.
type Loan struct {
	ClientID        uuid.UUID
	Principal       Money
	AmountPaid      Money
	StartDate       time.Time
	DueDate         time.Time
	LastPaymentDate time.Time
	Status          Status
}

// BaseAmountDue is the gross amount owed at inception: principal plus one
// period of flat interest, rounded to cents.
func BaseAmountDue(principal Money) Money {
	if !validAmount(principal) || principal <= 0 {
		return 0
	}
	return roundTo(principal*interestMultiplier, 2)
}

// CurrentAmountDue computes the amount currently owed on the loan at the
// given instant. When the due date has lapsed without full repayment a
// single compounding step is applied to the remaining balance; repeated
// calls never compound beyond that one step. The result is non-negative,
// rounded to cents and capped at principal * 10.
func CurrentAmountDue(l Loan, now time.Time) Money {
	if !validAmount(l.Principal) || !validAmount(l.AmountPaid) || l.Principal <= 0 {
		return 0
	}

	base := BaseAmountDue(l.Principal)
	if l.AmountPaid == 0 {
		return base
	}

	remaining := base - l.AmountPaid
	if remaining <= 0 {
		return 0
	}

	// No due date means no period boundary to compound against.
	if l.DueDate.IsZero() {
		return roundTo(remaining, 2)
	}

	if l.DueDate.Before(now) {
		remaining *= interestMultiplier
	}

	if cap := l.Principal * maxDueMultiplier; remaining > cap {
		remaining = cap
	}

	return roundTo(remaining, 2)
}

// RemainingBalance is the base amount due minus payments, clamped at zero.
// It ignores compounding and is used for progress displays.
func RemainingBalance(principal, amountPaid Money) Money {
	remaining := BaseAmountDue(principal) - amountPaid
	if remaining < 0 {
		return 0
	}
	return roundTo(remaining, 2)
}

// PaymentProgress is the percentage of the current amount due already
// covered by payments, clamped to [0,100].
func PaymentProgress(l Loan, now time.Time) float64 {
	due := CurrentAmountDue(l, now)
	total := due + l.AmountPaid
	if total <= 0 {
		return 100
	}
	progress := l.AmountPaid / total * 100
	return math.Min(100, math.Max(0, progress))
}

// DaysOverdue reports whole days elapsed since the due date, zero when the
// due date is unset or still ahead.
func DaysOverdue(dueDate, now time.Time) int {
	if dueDate.IsZero() {
		return 0
	}
	days := int(math.Ceil(now.Sub(dueDate).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

// PaymentDueDate derives the default due date for a loan disbursed on
// startDate: the last day of that month.
func PaymentDueDate(startDate time.Time) time.Time {
	year, month, _ := startDate.Date()
	firstOfNext := time.Date(year, month, 1, 0, 0, 0, 0, startDate.Location()).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}

// NextPaymentDate projects the next expected payment from the last one.
// A zero lastPayment yields a zero time.
func NextPaymentDate(lastPayment time.Time, frequency PaymentFrequency) time.Time {
	if lastPayment.IsZero() {
		return time.Time{}
	}
	switch frequency {
	case FrequencyWeekly:
		return lastPayment.AddDate(0, 0, 7)
	case FrequencyBiWeekly:
		return lastPayment.AddDate(0, 0, 14)
	default:
		return lastPayment.AddDate(0, 1, 0)
	}
}

func validAmount(m Money) bool {
	return !math.IsNaN(m) && !math.IsInf(m, 0)
}

func roundTo(n float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(n*pow) / pow
}
