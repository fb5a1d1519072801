// Package prometheus implements metric.Collector on top of the
// Prometheus client library.
package prometheus

import (
	"net/http"

	"github.com/filecachehq/wlru/metric"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewCollector returns a prometheus backed metric.Collector. Counters and
// gauges created through it are registered with the default Prometheus
// registry.
func NewCollector() metric.Collector {
	return &collector{}
}

// Handler returns the standard Prometheus scrape handler, for embedders
// that want to expose /metrics themselves.
func Handler() http.Handler {
	return promhttp.Handler()
}

type collector struct{}

func (c *collector) NewCounter(name string) metric.Counter {
	return promauto.NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: name,
	})
}

func (c *collector) NewGuage(name string) metric.Gauge {
	return promauto.NewGauge(prometheus.GaugeOpts{
		Name: name,
		Help: name,
	})
}
