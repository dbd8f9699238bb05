// Package metrics exposes Prometheus collectors for the timer engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TimersActive is the number of timer states currently tracked.
	TimersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parkpal_timers_active",
		Help: "Number of active parking timers.",
	})

	// AlertsDelivered counts alerts by delivery path.
	AlertsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parkpal_alerts_delivered_total",
		Help: "Alerts delivered, by path (foreground, background, inbox).",
	}, []string{"path"})

	// AlertFallbacks counts background-path failures that fell back to the
	// immediate path.
	AlertFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkpal_alert_fallbacks_total",
		Help: "Background delivery failures handled by the immediate path.",
	})

	// VerificationFailures counts relayed alerts the agent never showed.
	VerificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkpal_alert_verification_failures_total",
		Help: "Relayed alerts that could not be verified as shown.",
	})

	// BackupWrites counts successful timer state snapshots.
	BackupWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkpal_backup_writes_total",
		Help: "Successful timer backup writes.",
	})

	// BackupErrors counts failed backup reads and writes.
	BackupErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkpal_backup_errors_total",
		Help: "Failed timer backup reads and writes.",
	})
)
