// Package metrics defines the Prometheus collectors emitted by the service.
// Collector names are part of the operational contract; dashboards and
// alerts reference them, so renames are breaking changes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/phrazzld/tasker-api/internal/domain"
)

// Task submission metrics
var TasksSubmitted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tasker_tasks_submitted_total",
		Help: "Total number of tasks submitted",
	},
	[]string{"kind"},
)

// Task execution metrics
var (
	TaskExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasker_task_executions_total",
			Help: "Total number of task executions by terminal status",
		},
		[]string{"kind", "status"},
	)

	TaskExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tasker_task_execution_duration_seconds",
			Help:    "Task execution duration in seconds, observed once per terminal transition",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0, 300.0},
		},
		[]string{"kind"},
	)
)

// TasksByStatus tracks the current number of tasks in each lifecycle state.
// Every status transition moves one unit between labels.
var TasksByStatus = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "tasker_tasks_by_status",
		Help: "Current number of tasks by status",
	},
	[]string{"status"},
)

// Cache metrics
var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tasker_cache_hits_total",
		Help: "Total number of output cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tasker_cache_misses_total",
		Help: "Total number of output cache misses",
	})
)

// External API metrics
var (
	ExternalAPIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasker_external_api_requests_total",
			Help: "Total number of external API requests",
		},
		[]string{"api_name", "status"},
	)

	ExternalAPIDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tasker_external_api_duration_seconds",
			Help:    "External API request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"api_name"},
	)
)

// Init zeroes the status gauge for every known status so the series exist
// before the first transition.
func Init() {
	for _, status := range []domain.TaskStatus{
		domain.TaskStatusPending,
		domain.TaskStatusRunning,
		domain.TaskStatusCompleted,
		domain.TaskStatusFailed,
	} {
		TasksByStatus.WithLabelValues(string(status)).Set(0)
	}
}

// TransitionStatus records a task moving from one lifecycle state to another
// as a paired gauge decrement/increment.
func TransitionStatus(from, to domain.TaskStatus) {
	TasksByStatus.WithLabelValues(string(from)).Dec()
	TasksByStatus.WithLabelValues(string(to)).Inc()
}
