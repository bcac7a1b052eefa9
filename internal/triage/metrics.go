package triage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IssuesProcessed counts triage invocations by disposition.
	// Labels: disposition (answered, escalated, corrected)
	IssuesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "triaged",
			Subsystem: "triage",
			Name:      "issues_processed_total",
			Help:      "Total triage invocations by disposition",
		},
		[]string{"disposition"},
	)

	// EvolutionOutcomes counts knowledge evolution passes by outcome.
	// Labels: outcome (learned, skipped, corrected)
	EvolutionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "triaged",
			Subsystem: "knowledge",
			Name:      "evolution_outcomes_total",
			Help:      "Total knowledge evolution passes by outcome",
		},
		[]string{"outcome"},
	)

	// CommentFailures counts failed comment deliveries. Comments are
	// best-effort, so failures surface here rather than as errors.
	CommentFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "triaged",
			Subsystem: "triage",
			Name:      "comment_failures_total",
			Help:      "Total comment posts that failed",
		},
	)

	// DecisionDuration tracks end-to-end invocation latency.
	DecisionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "triaged",
			Subsystem: "triage",
			Name:      "invocation_duration_seconds",
			Help:      "Duration of full triage invocations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
