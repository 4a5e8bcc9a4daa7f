// Package metrics records the outcome of a provisioning run and writes it
// in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TextfileName is the file written into the textfile collector directory.
const TextfileName = "vpsgate.prom"

// Recorder collects the metrics of one run in a private registry.
type Recorder struct {
	registry *prometheus.Registry

	phaseDuration     *prometheus.GaugeVec
	phaseSuccess      *prometheus.GaugeVec
	dependencyOutcome *prometheus.GaugeVec
	serviceOutcome    *prometheus.GaugeVec
	filesWritten      prometheus.Gauge
	filesUnchanged    prometheus.Gauge
	lastRun           prometheus.Gauge
	lastSuccess       prometheus.Gauge
}

// NewRecorder creates a Recorder labelled with variant.
func NewRecorder(variant string) *Recorder {
	constLabels := prometheus.Labels{"variant": variant}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		phaseDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "vpsgate",
			Subsystem:   "phase",
			Name:        "duration_seconds",
			Help:        "Duration of each provisioning phase in the last run",
			ConstLabels: constLabels,
		}, []string{"phase"}),
		phaseSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "vpsgate",
			Subsystem:   "phase",
			Name:        "success",
			Help:        "Whether the phase succeeded (1) or failed (0) in the last run",
			ConstLabels: constLabels,
		}, []string{"phase"}),
		dependencyOutcome: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "vpsgate",
			Subsystem:   "dependency",
			Name:        "outcome",
			Help:        "Outcome of each dependency in the last run (present, installed, failed)",
			ConstLabels: constLabels,
		}, []string{"capability", "outcome"}),
		serviceOutcome: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "vpsgate",
			Subsystem:   "service",
			Name:        "outcome",
			Help:        "What the last run did to the service",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		filesWritten: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "vpsgate",
			Name:        "files_written",
			Help:        "Configuration files written by the last run",
			ConstLabels: constLabels,
		}),
		filesUnchanged: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "vpsgate",
			Name:        "files_unchanged",
			Help:        "Configuration files already up to date in the last run",
			ConstLabels: constLabels,
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "vpsgate",
			Name:        "last_run_timestamp_seconds",
			Help:        "Unix time the last run finished",
			ConstLabels: constLabels,
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "vpsgate",
			Name:        "last_run_success",
			Help:        "Whether the last run succeeded (1) or failed (0)",
			ConstLabels: constLabels,
		}),
	}
	r.registry.MustRegister(
		r.phaseDuration, r.phaseSuccess, r.dependencyOutcome, r.serviceOutcome,
		r.filesWritten, r.filesUnchanged, r.lastRun, r.lastSuccess,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObservePhase records the duration and result of a phase.
func (r *Recorder) ObservePhase(phase string, d time.Duration, err error) {
	r.phaseDuration.WithLabelValues(phase).Set(d.Seconds())
	r.phaseSuccess.WithLabelValues(phase).Set(boolValue(err == nil))
}

// ObserveDependency records the outcome of ensuring a capability.
func (r *Recorder) ObserveDependency(capability, outcome string) {
	r.dependencyOutcome.WithLabelValues(capability, outcome).Set(1)
}

// ObserveService records what happened to the service.
func (r *Recorder) ObserveService(outcome string) {
	r.serviceOutcome.WithLabelValues(outcome).Set(1)
}

// ObserveFiles records how many files were written and left alone.
func (r *Recorder) ObserveFiles(written, unchanged int) {
	r.filesWritten.Set(float64(written))
	r.filesUnchanged.Set(float64(unchanged))
}

// Finish records the end of the run.
func (r *Recorder) Finish(success bool, now time.Time) {
	r.lastRun.Set(float64(now.Unix()))
	r.lastSuccess.Set(boolValue(success))
}

// WriteTextfile writes the metrics to dir/vpsgate.prom atomically.
func (r *Recorder) WriteTextfile(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, TextfileName)
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
