package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	PaymentsTotal          *prometheus.CounterVec
	StatusTransitionsTotal *prometheus.CounterVec
	AutomationRuns         prometheus.Counter
	AutomationDuration     prometheus.Histogram
	NotificationsGenerated prometheus.Counter
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cashflow_crm_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		PaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashflow_crm_payments_total",
				Help: "Total number of payment attempts by outcome.",
			},
			[]string{"status"},
		),
		StatusTransitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashflow_crm_status_transitions_total",
				Help: "Total number of loan status transitions.",
			},
			[]string{"from", "to"},
		),
		AutomationRuns: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "cashflow_crm_automation_runs_total",
				Help: "Total number of status automation passes.",
			},
		),
		AutomationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cashflow_crm_automation_duration_seconds",
				Help:    "Histogram of status automation pass durations.",
				Buckets: prometheus.DefBuckets,
			},
		),
		NotificationsGenerated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "cashflow_crm_notifications_generated_total",
				Help: "Total number of status-change notifications generated.",
			},
		),
	}
)

func RecordPayment(status string) {
	Business.PaymentsTotal.WithLabelValues(status).Inc()
}

func RecordStatusTransition(from, to string) {
	Business.StatusTransitionsTotal.WithLabelValues(from, to).Inc()
}

func RecordAutomationRun(duration time.Duration, notifications int) {
	Business.AutomationRuns.Inc()
	Business.AutomationDuration.Observe(duration.Seconds())
	Business.NotificationsGenerated.Add(float64(notifications))
}

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}
