package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var inferenceOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "inference_outcomes_total",
		Help: "Inference-backed steps by step and outcome",
	},
	[]string{"step", "outcome"},
)

func observe(step string, kind Kind) {
	inferenceOutcomes.WithLabelValues(step, kind.String()).Inc()
}
