package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики pipeline. Регистрируются в default registry;
// экспорт — через promhttp.Handler() на /metrics.
var (
	// RunsStarted — количество созданных runs.
	RunsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hestia_runs_started_total",
		Help: "Total runs started",
	})

	// RunsCompleted — количество успешно завершённых runs.
	RunsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hestia_runs_completed_total",
		Help: "Total runs completed successfully",
	})

	// RunsFailed — количество упавших runs.
	RunsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hestia_runs_failed_total",
		Help: "Total runs failed",
	})

	// GuardrailFailures — отрицательные вердикты по фазам.
	GuardrailFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hestia_guardrail_failures_total",
		Help: "Total guardrail verdicts that rejected a phase payload",
	}, []string{"phase"})

	// CollaboratorRetries — повторы вызовов collaborator'ов.
	CollaboratorRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hestia_collaborator_retries_total",
		Help: "Total collaborator call retries",
	}, []string{"collaborator"})

	// FeedbackDecisions — потреблённые решения по типам.
	FeedbackDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hestia_feedback_decisions_total",
		Help: "Total feedback decisions consumed",
	}, []string{"type"})

	// PoolInFlight — количество sub-tasks, выполняющихся в пуле.
	PoolInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hestia_pool_in_flight",
		Help: "Sub-tasks currently executing in the shared worker pool",
	})

	// PhaseDuration — длительность фаз в секундах.
	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hestia_phase_duration_seconds",
		Help:    "Phase execution duration",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"phase"})
)
