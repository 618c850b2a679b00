package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ValidationsCreated   prometheus.Counter
	ValidationsReviewed  *prometheus.CounterVec
	ValidationConflicts  prometheus.Counter
	AssessmentsCreated   prometheus.Counter
	AssessmentsPublished prometheus.Counter
	AssessmentsDeleted   prometheus.Counter
	UsersDenied          prometheus.Counter
	RequestDuration      *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ValidationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cat_validations_created_total",
			Help: "Total number of validation requests created.",
		}),
		ValidationsReviewed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cat_validations_reviewed_total",
			Help: "Total number of validation status transitions, by target status.",
		}, []string{"status"}),
		ValidationConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cat_validation_conflicts_total",
			Help: "Total number of rejected duplicate or stale validation writes.",
		}),
		AssessmentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cat_assessments_created_total",
			Help: "Total number of assessments created.",
		}),
		AssessmentsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cat_assessments_published_total",
			Help: "Total number of assessments published.",
		}),
		AssessmentsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cat_assessments_deleted_total",
			Help: "Total number of private assessments deleted by administrators.",
		}),
		UsersDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cat_users_denied_total",
			Help: "Total number of users flagged deny_access.",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}
