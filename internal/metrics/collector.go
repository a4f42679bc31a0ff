package metrics

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/soapboxhq/soapbox/internal/models"
)

// CampaignCountProvider provides campaign counts by status for the gauge.
type CampaignCountProvider interface {
	CountByStatus() (map[models.CampaignStatus]int, error)
}

// Collector keeps the system gauges current.
type Collector struct {
	metrics   *Metrics
	campaigns CampaignCountProvider
	interval  time.Duration
	startTime time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewCollector creates a collector. interval <= 0 means 5s.
func NewCollector(m *Metrics, campaigns CampaignCountProvider, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Collector{
		metrics:   m,
		campaigns: campaigns,
		interval:  interval,
		startTime: time.Now(),
		stopCh:    make(chan struct{}),
	}
}

// Start begins the gauge update loop
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.run(ctx)
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

func (c *Collector) run(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

// collect refreshes the uptime, goroutine, and campaign gauges.
func (c *Collector) collect() {
	c.metrics.UptimeSeconds.Set(time.Since(c.startTime).Seconds())
	c.metrics.Goroutines.Set(float64(runtime.NumGoroutine()))

	if c.campaigns == nil {
		return
	}
	counts, err := c.campaigns.CountByStatus()
	if err != nil {
		return
	}
	// Reset so statuses that emptied out drop to zero.
	c.metrics.CampaignsByStatus.Reset()
	for status, n := range counts {
		c.metrics.CampaignsByStatus.WithLabelValues(string(status)).Set(float64(n))
	}
}
