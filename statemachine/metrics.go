package statemachine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric definitions with appropriate labels.
var (
	// signalsTotal counts outermost dispatches by machine, starting state, signal and outcome.
	signalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_signals_total",
		Help: "Total number of signals dispatched by machine, state, signal and outcome",
	}, []string{"machine", "state", "signal", "outcome"})

	// transitionsTotal counts every rule applied, including nested ones.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_transitions_total",
		Help: "Total number of rules applied by machine, from_state, to_state and signal",
	}, []string{"machine", "from_state", "to_state", "signal"})

	// preconditionRejectionsTotal counts signals refused by preconditions.
	preconditionRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_precondition_rejections_total",
		Help: "Total number of signals rejected by preconditions by machine, state and signal",
	}, []string{"machine", "state", "signal"})

	// processDuration tracks end-to-end dispatch time, including suspension.
	processDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statemachine_process_duration_seconds",
		Help:    "Duration of signal dispatch by machine and outcome",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"machine", "outcome"})

	// chainDepth tracks how deeply handlers nest signal emissions.
	chainDepth = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statemachine_chain_depth",
		Help:    "Deepest nested signal emission per dispatch by machine",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 64},
	}, []string{"machine"})

	// pendingSignals tracks dispatches that suspended and have not completed.
	pendingSignals = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "statemachine_pending_signals",
		Help: "Number of suspended dispatches by machine",
	}, []string{"machine"})

	// queuedSignals tracks signals waiting behind another signal for the same instance.
	queuedSignals = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "statemachine_queued_signals",
		Help: "Number of signals waiting for their instance by machine",
	}, []string{"machine"})
)

func sanitizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}

	return value
}
