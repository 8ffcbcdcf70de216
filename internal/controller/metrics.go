package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/reconciler"
)

var reconcileTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "healthcheck_reconcile_total",
	Help: "Health check actions run by the controller, by operation and result.",
}, []string{"action", "result"})

func init() {
	metrics.Registry.MustRegister(reconcileTotal)
}

func recordOutcome(o reconciler.Outcome) {
	result := string(o.Action)
	if o.Error != "" {
		result = "error"
	}
	reconcileTotal.WithLabelValues(string(o.Operation), result).Inc()
}
