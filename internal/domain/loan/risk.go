package loan

import (
	"math"
	"time"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

const (
	riskHighThreshold   = 70
	riskMediumThreshold = 40

	assumedTermDays = 365
)

// RiskFactors flags which inputs pushed the score up.
type RiskFactors struct {
	PaymentHistory bool `json:"paymentHistory"`
	PaymentRecency bool `json:"paymentRecency"`
	CurrentStatus  bool `json:"currentStatus"`
}

// RiskAssessment is an informational score derived from payment behaviour.
// It never gates a status transition.
type RiskAssessment struct {
	Level   RiskLevel   `json:"level"`
	Score   int         `json:"score"`
	Factors RiskFactors `json:"factors"`
}

// AssessRisk scores a loan from payment percentage against an expected
// pace, payment recency and the current pipeline status. Pure function of
// its inputs; the score is clamped to [0,100].
func AssessRisk(l Loan, now time.Time) RiskAssessment {
	score := 0
	factors := RiskFactors{}

	paymentPercentage := 0.0
	if validAmount(l.Principal) && l.Principal > 0 && validAmount(l.AmountPaid) {
		paymentPercentage = l.AmountPaid / l.Principal * 100
	}

	expected := expectedPaymentPercentage(l.StartDate, now)
	switch {
	case paymentPercentage < expected*0.5:
		score += 40
		factors.PaymentHistory = true
	case paymentPercentage < expected*0.8:
		score += 20
		factors.PaymentHistory = true
	}

	if l.LastPaymentDate.IsZero() {
		// No payment ever recorded is the worst case.
		score += 50
		factors.PaymentRecency = true
	} else {
		daysSince := int(now.Sub(l.LastPaymentDate).Hours() / 24)
		switch {
		case daysSince > 60:
			score += 30
			factors.PaymentRecency = true
		case daysSince > 30:
			score += 15
			factors.PaymentRecency = true
		}
	}

	switch l.Status {
	case StatusOverdue:
		score += 25
		factors.CurrentStatus = true
	case StatusRepaymentDue:
		score += 10
		factors.CurrentStatus = true
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return RiskAssessment{
		Level:   riskLevel(score),
		Score:   score,
		Factors: factors,
	}
}

func expectedPaymentPercentage(startDate, now time.Time) float64 {
	if startDate.IsZero() || now.Before(startDate) {
		return 0
	}
	durationDays := now.Sub(startDate).Hours() / 24
	return math.Min(100, durationDays/assumedTermDays*100)
}

func riskLevel(score int) RiskLevel {
	switch {
	case score >= riskHighThreshold:
		return RiskHigh
	case score >= riskMediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}
