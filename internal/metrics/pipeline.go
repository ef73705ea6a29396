// Package metrics exposes Prometheus metrics for the supervised pipeline.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	slotRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camnode",
		Subsystem: "slot",
		Name:      "running",
		Help:      "Whether the slot currently holds a live process",
	}, []string{"slot"})

	slotStarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camnode",
		Subsystem: "slot",
		Name:      "starts_total",
		Help:      "Processes spawned per slot",
	}, []string{"slot"})

	slotExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camnode",
		Subsystem: "slot",
		Name:      "exits_total",
		Help:      "Processes reaped per slot, by exit code",
	}, []string{"slot", "code"})

	slotKills = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camnode",
		Subsystem: "slot",
		Name:      "kills_total",
		Help:      "Processes that ignored the stop signal and were force-killed",
	}, []string{"slot"})

	startFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camnode",
		Subsystem: "pipeline",
		Name:      "start_failures_total",
		Help:      "Pipeline start attempts that failed and were rolled back",
	}, []string{"pipeline"})

	pipelineActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camnode",
		Subsystem: "pipeline",
		Name:      "active",
		Help:      "Whether the pipeline is streaming or recording",
	}, []string{"pipeline"})
)

// SlotStarted records a spawned process for slot.
func SlotStarted(slot string) {
	slotStarts.WithLabelValues(slot).Inc()
	slotRunning.WithLabelValues(slot).Set(1)
}

// SlotExited records a reaped process for slot.
func SlotExited(slot string, code int, killed bool) {
	slotExits.WithLabelValues(slot, strconv.Itoa(code)).Inc()
	slotRunning.WithLabelValues(slot).Set(0)
	if killed {
		slotKills.WithLabelValues(slot).Inc()
	}
	DeleteFFmpegStats(slot)
}

// SlotRunning returns the running gauge for slot.
func SlotRunning(slot string) prometheus.Gauge {
	return slotRunning.WithLabelValues(slot)
}

// StartFailed records a rolled-back start of pipeline.
func StartFailed(pipeline string) {
	startFailures.WithLabelValues(pipeline).Inc()
}

// SetPipelineActive sets the active gauge for pipeline.
func SetPipelineActive(pipeline string, active bool) {
	v := 0.0
	if active {
		v = 1
	}
	pipelineActive.WithLabelValues(pipeline).Set(v)
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
