package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	probeCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lab_status",
			Name:      "probe_cycles_total",
			Help:      "Count of completed occupancy probe cycles.",
		},
	)

	probeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lab_status",
			Name:      "probe_errors_total",
			Help:      "Count of per-station probe failures.",
		},
		[]string{"station"},
	)

	claimTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lab_status",
			Name:      "claim_transitions_total",
			Help:      "Count of claim state transitions by resulting state.",
		},
		[]string{"state"},
	)

	queueLength = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "lab_status",
			Name:      "queue_length",
			Help:      "Current queue length per station type.",
		},
		[]string{"station_type"},
	)

	notificationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lab_status",
			Name:      "notification_failures_total",
			Help:      "Count of failed claim notification dispatches.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(probeCycles, probeErrors, claimTransitions, queueLength, notificationFailures)
	})
}

func IncProbeCycle() {
	probeCycles.Inc()
}

func IncProbeError(station string) {
	probeErrors.WithLabelValues(station).Inc()
}

func IncClaim(state string) {
	claimTransitions.WithLabelValues(state).Inc()
}

func SetQueueLength(stationType string, length int) {
	queueLength.WithLabelValues(stationType).Set(float64(length))
}

func IncNotificationFailure() {
	notificationFailures.Inc()
}
