// Package metrics collects Prometheus metrics for mutations, validation
// runs and store size, and exports them as a node-exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/reqtrack/internal/fault"
	"github.com/roach88/reqtrack/internal/record"
)

// Collector provides Prometheus metrics collection for reqtrack operations.
type Collector struct {
	mutationsTotal     *prometheus.CounterVec
	mutationDuration   *prometheus.HistogramVec
	validationFindings *prometheus.GaugeVec
	validationRuns     *prometheus.CounterVec
	records            *prometheus.GaugeVec
	registry           *prometheus.Registry
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	mutationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reqtrack_mutations_total",
			Help: "Total number of mutation operations by operation, status and error code",
		},
		[]string{"operation", "status", "code"},
	)

	mutationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reqtrack_mutation_duration_seconds",
			Help:    "Duration of mutation operations, including file load and commit",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"operation"},
	)

	validationFindings := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reqtrack_validation_findings",
			Help: "Findings of the most recent validation run by severity",
		},
		[]string{"severity"},
	)

	validationRuns := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reqtrack_validation_runs_total",
			Help: "Total number of validation runs by result",
		},
		[]string{"result"},
	)

	records := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reqtrack_records",
			Help: "Current count of records by family",
		},
		[]string{"family"},
	)

	registry.MustRegister(mutationsTotal)
	registry.MustRegister(mutationDuration)
	registry.MustRegister(validationFindings)
	registry.MustRegister(validationRuns)
	registry.MustRegister(records)

	return &Collector{
		mutationsTotal:     mutationsTotal,
		mutationDuration:   mutationDuration,
		validationFindings: validationFindings,
		validationRuns:     validationRuns,
		records:            records,
		registry:           registry,
	}
}

// ObserveMutation records the completion of a mutation operation.
func (c *Collector) ObserveMutation(op, status string, code fault.Code, elapsed time.Duration) {
	c.mutationsTotal.WithLabelValues(op, status, string(code)).Inc()
	c.mutationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveValidation records the outcome of a validation run.
func (c *Collector) ObserveValidation(errors, warnings int) {
	c.validationFindings.WithLabelValues("error").Set(float64(errors))
	c.validationFindings.WithLabelValues("warning").Set(float64(warnings))
	result := "passed"
	if errors > 0 {
		result = "failed"
	}
	c.validationRuns.WithLabelValues(result).Inc()
}

// SetRecordCount sets the current record count for a family.
func (c *Collector) SetRecordCount(f record.Family, n int) {
	c.records.WithLabelValues(string(f)).Set(float64(n))
}

// Registry returns the Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes every metric to path in the text exposition
// format, replacing the file atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
