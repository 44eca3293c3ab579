// Package metrics counts report activity on a private Prometheus registry
// and exports it in the node exporter textfile format.
package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bgricker/testreport/internal/report"
)

const namespace = "testreport"

// Collector records steps, test results and screenshots.
type Collector struct {
	registry *prometheus.Registry

	stepsLogged   *prometheus.CounterVec
	testsRecorded *prometheus.CounterVec
	screenshots   prometheus.Counter
}

// interface check
var _ report.Observer = (*Collector)(nil)

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		stepsLogged: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_logged_total",
			Help:      "number of logged steps by status",
		}, []string{"status"}),
		testsRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tests_recorded_total",
			Help:      "number of test results recorded in the summary by status",
		}, []string{"status"}),
		screenshots: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "screenshots_total",
			Help:      "number of captured screenshots",
		}),
	}
}

// Registry exposes the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// StepLogged counts a step, including steps hidden by the log level.
func (c *Collector) StepLogged(status report.Status) {
	c.stepsLogged.WithLabelValues(status.String()).Inc()
}

// TestRecorded counts a summary row.
func (c *Collector) TestRecorded(status string) {
	c.testsRecorded.WithLabelValues(strings.ToLower(status)).Inc()
}

// ScreenshotCaptured counts a successful capture.
func (c *Collector) ScreenshotCaptured() {
	c.screenshots.Inc()
}

// WriteTextfile atomically writes all metrics to path.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics %q: %w", path, err)
	}
	return nil
}
