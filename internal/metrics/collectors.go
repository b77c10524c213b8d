package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"phi/pkg/logger"
)

// Counter reports the number of stored items, e.g. ledger records
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// StoreCollector reports store sizes at scrape time
type StoreCollector struct {
	log     *logger.Logger
	sources map[string]Counter
	timeout time.Duration

	size *prometheus.Desc
}

// NewStoreCollector creates a collector over the named sources
func NewStoreCollector(sources map[string]Counter) *StoreCollector {
	return &StoreCollector{
		log:     logger.Component("store_collector"),
		sources: sources,
		timeout: 5 * time.Second,
		size: prometheus.NewDesc(
			"phi_store_items",
			"Number of items held by a store",
			[]string{"store"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.size
}

// Collect implements prometheus.Collector
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	for name, src := range c.sources {
		n, err := src.Count(ctx)
		if err != nil {
			c.log.Warnf("Failed to count %s: %v", name, err)
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(n), name)
	}
}
