package services

import (
	"context"
	"log"
	"sync"
	"time"

	"gestion-backend/internal/health"
	"gestion-backend/internal/metrics"
	"gestion-backend/internal/repositories"
)

// MetricsCollector refreshes the gauges that are not updated by requests:
// host usage, database size and outbox backlog.
type MetricsCollector struct {
	usage           *UsageService
	outbox          *repositories.OutboxRepository
	collectInterval time.Duration
	stopChan        chan struct{}
	stopOnce        sync.Once
	wg              sync.WaitGroup
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(usage *UsageService, outbox *repositories.OutboxRepository, interval time.Duration) *MetricsCollector {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &MetricsCollector{
		usage:           usage,
		outbox:          outbox,
		collectInterval: interval,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *MetricsCollector) Start() {
	log.Println("[MetricsCollector] Starting metrics collector...")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.collectAll()

		ticker := time.NewTicker(c.collectInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.collectAll()
			case <-c.stopChan:
				log.Println("[MetricsCollector] Stopping metrics collector...")
				return
			}
		}
	}()
}

// Stop stops the metrics collection
func (c *MetricsCollector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.wg.Wait()
}

func (c *MetricsCollector) collectAll() {
	ctx, cancel := context.WithTimeout(context.Background(), c.collectInterval)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		host := health.ReadHostStats()
		metrics.CPUPercent.Set(host.CPUPercent)
		metrics.MemoryPercent.Set(host.MemoryPercent)
		metrics.DiskPercent.Set(host.DiskPercent)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := c.usage.Usage(ctx); err != nil {
			log.Printf("[MetricsCollector] Database size: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		counts, err := c.outbox.CountByStatus(ctx)
		if err != nil {
			log.Printf("[MetricsCollector] Outbox counts: %v", err)
			return
		}
		for _, status := range []string{"pending", "sent", "failed"} {
			metrics.OutboxMessages.WithLabelValues(status).Set(float64(counts[status]))
		}
	}()

	wg.Wait()
}
