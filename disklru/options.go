package disklru

import (
	"log"

	"github.com/filecachehq/wlru/metric"
)

// Option configures a Cache at Open time.
type Option func(*Cache)

// WithLogger sets the logger used for warnings (e.g. an insert_file
// rename falling back to copy) and for non-fatal errors (e.g. a failed
// unlink of an oversize file discovered during Open). The default is
// log.Default().
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithMetrics registers counters and gauges on coll to track cache
// hits, misses, evictions, evicted bytes, current size and entry count.
func WithMetrics(coll metric.Collector) Option {
	return func(c *Cache) {
		c.hits = coll.NewCounter("disklru_hits_total")
		c.misses = coll.NewCounter("disklru_misses_total")
		c.evictions = coll.NewCounter("disklru_evictions_total")
		c.evictedBytes = coll.NewCounter("disklru_evicted_bytes_total")
		c.sizeGauge = coll.NewGuage("disklru_size_bytes")
		c.entriesGauge = coll.NewGuage("disklru_entries")
	}
}
