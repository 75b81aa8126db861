package alert

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var dispatchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "attendtrack",
	Subsystem: "alerts",
	Name:      "dispatch_outcomes_total",
	Help:      "Alert dispatch decisions by outcome.",
}, []string{"outcome"})

func observeDispatch(o Outcome) {
	dispatchOutcomes.WithLabelValues(o.String()).Inc()
}
