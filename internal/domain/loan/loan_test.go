package loan

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func testLoan(principal, paid Money, dueDate time.Time) Loan {
	return Loan{
		ClientID:   uuid.New(),
		Principal:  principal,
		AmountPaid: paid,
		StartDate:  testNow.AddDate(0, -1, 0),
		DueDate:    dueDate,
		Status:     StatusActive,
	}
}

func TestBaseAmountDue(t *testing.T) {
	t.Run("adds 50 percent flat interest", func(t *testing.T) {
		assert.Equal(t, 15000.0, BaseAmountDue(10000))
		assert.Equal(t, 1500.0, BaseAmountDue(1000))
	})

	t.Run("rounds to cents with standard rounding", func(t *testing.T) {
		// 100.01 * 1.5 = 150.015 -> 150.02
		assert.Equal(t, 150.02, BaseAmountDue(100.01))
	})

	t.Run("returns zero for non-positive principal", func(t *testing.T) {
		assert.Equal(t, 0.0, BaseAmountDue(0))
		assert.Equal(t, 0.0, BaseAmountDue(-500))
	})

	t.Run("returns zero for non-finite principal", func(t *testing.T) {
		assert.Equal(t, 0.0, BaseAmountDue(math.NaN()))
		assert.Equal(t, 0.0, BaseAmountDue(math.Inf(1)))
	})
}

func TestCurrentAmountDue(t *testing.T) {
	future := testNow.AddDate(0, 0, 10)
	yesterday := testNow.AddDate(0, 0, -1)

	t.Run("no payments returns base amount regardless of dates", func(t *testing.T) {
		assert.Equal(t, 15000.0, CurrentAmountDue(testLoan(10000, 0, future), testNow))
		assert.Equal(t, 15000.0, CurrentAmountDue(testLoan(10000, 0, yesterday), testNow))
		assert.Equal(t, 15000.0, CurrentAmountDue(testLoan(10000, 0, time.Time{}), testNow))
	})

	t.Run("due date in the future returns the remaining balance", func(t *testing.T) {
		assert.Equal(t, 10000.0, CurrentAmountDue(testLoan(10000, 5000, future), testNow))
	})

	t.Run("lapsed due date compounds the remainder once", func(t *testing.T) {
		// 15000 - 5000 = 10000, compounded once to 15000.
		assert.Equal(t, 15000.0, CurrentAmountDue(testLoan(10000, 5000, yesterday), testNow))
	})

	t.Run("repeated calls with a stale due date do not re-compound", func(t *testing.T) {
		l := testLoan(10000, 5000, yesterday)
		first := CurrentAmountDue(l, testNow)
		second := CurrentAmountDue(l, testNow.AddDate(0, 2, 0))
		assert.Equal(t, first, second)
	})

	t.Run("missing due date applies no compounding", func(t *testing.T) {
		assert.Equal(t, 1300.0, CurrentAmountDue(testLoan(1000, 200, time.Time{}), testNow))
	})

	t.Run("exact payoff returns zero", func(t *testing.T) {
		assert.Equal(t, 0.0, CurrentAmountDue(testLoan(10000, 15000, future), testNow))
	})

	t.Run("overpayment clamps to zero, never negative", func(t *testing.T) {
		assert.Equal(t, 0.0, CurrentAmountDue(testLoan(10000, 20000, yesterday), testNow))
	})

	t.Run("result is capped at ten times principal", func(t *testing.T) {
		ancient := testNow.AddDate(-20, 0, 0)
		l := testLoan(10, 0.01, ancient)
		due := CurrentAmountDue(l, testNow)
		assert.LessOrEqual(t, due, l.Principal*maxDueMultiplier)
		assert.GreaterOrEqual(t, due, 0.0)
	})

	t.Run("now before start date is treated as no time elapsed", func(t *testing.T) {
		l := testLoan(10000, 5000, future)
		early := l.StartDate.AddDate(0, 0, -5)
		assert.Equal(t, 10000.0, CurrentAmountDue(l, early))
	})

	t.Run("zero principal is a defensive default, not an error", func(t *testing.T) {
		assert.Equal(t, 0.0, CurrentAmountDue(testLoan(0, 100, yesterday), testNow))
	})

	t.Run("non-finite amounts yield zero", func(t *testing.T) {
		assert.Equal(t, 0.0, CurrentAmountDue(testLoan(math.NaN(), 0, future), testNow))
		assert.Equal(t, 0.0, CurrentAmountDue(testLoan(10000, math.Inf(1), future), testNow))
	})

	t.Run("never negative for any valid input", func(t *testing.T) {
		for _, paid := range []Money{0, 1, 7500, 15000, 15000.01, 1e9} {
			assert.GreaterOrEqual(t, CurrentAmountDue(testLoan(10000, paid, yesterday), testNow), 0.0)
		}
	})
}

func TestRemainingBalance(t *testing.T) {
	assert.Equal(t, 7500.0, RemainingBalance(10000, 7500))
	assert.Equal(t, 0.0, RemainingBalance(10000, 15000))
	assert.Equal(t, 0.0, RemainingBalance(10000, 99999))
}

func TestDaysOverdue(t *testing.T) {
	t.Run("counts whole days past the due date", func(t *testing.T) {
		assert.Equal(t, 3, DaysOverdue(testNow.AddDate(0, 0, -3), testNow))
	})

	t.Run("zero when due date ahead or unset", func(t *testing.T) {
		assert.Equal(t, 0, DaysOverdue(testNow.AddDate(0, 0, 3), testNow))
		assert.Equal(t, 0, DaysOverdue(time.Time{}, testNow))
	})
}

func TestPaymentDueDate(t *testing.T) {
	t.Run("end of the start month", func(t *testing.T) {
		start := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC), PaymentDueDate(start))
	})

	t.Run("handles December rollover", func(t *testing.T) {
		start := time.Date(2025, time.December, 20, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC), PaymentDueDate(start))
	})

	t.Run("handles February", func(t *testing.T) {
		start := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), PaymentDueDate(start))
	})
}

func TestNextPaymentDate(t *testing.T) {
	last := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, last.AddDate(0, 0, 7), NextPaymentDate(last, FrequencyWeekly))
	assert.Equal(t, last.AddDate(0, 0, 14), NextPaymentDate(last, FrequencyBiWeekly))
	assert.Equal(t, last.AddDate(0, 1, 0), NextPaymentDate(last, FrequencyMonthly))
	assert.True(t, NextPaymentDate(time.Time{}, FrequencyMonthly).IsZero())
}

func TestPaymentProgress(t *testing.T) {
	future := testNow.AddDate(0, 0, 10)

	t.Run("half paid on an unlapsed loan", func(t *testing.T) {
		progress := PaymentProgress(testLoan(10000, 7500, future), testNow)
		assert.InDelta(t, 50.0, progress, 0.01)
	})

	t.Run("fully paid reports 100", func(t *testing.T) {
		assert.Equal(t, 100.0, PaymentProgress(testLoan(10000, 15000, future), testNow))
	})
}
