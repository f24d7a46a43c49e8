// Package sysmetrics runs a ticker-driven collector that publishes
// goroutine count, heap stats, and gopsutil-sourced CPU percent into the
// metrics registry's gauges, the same shape as
// go-server/internal/metrics/system.go's SystemMetrics.
package sysmetrics

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"odin-kv-server/internal/broker"
	"odin-kv-server/internal/metrics"
)

// Collector periodically samples process/runtime stats, and the
// broadcaster's topic/subscription/queue-depth counts, into a
// metrics.Registry until its context is canceled.
type Collector struct {
	registry    *metrics.Registry
	broadcaster *broker.Broadcaster
	interval    time.Duration
	cpuPercent  float64
}

func NewCollector(registry *metrics.Registry, broadcaster *broker.Broadcaster, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Collector{registry: registry, broadcaster: broadcaster, interval: interval}
}

// Run blocks, sampling every interval, until ctx is canceled.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sample()
		}
	}
}

func (c *Collector) sample() {
	c.registry.GoroutineCount.Set(float64(runtime.NumGoroutine()))

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	c.registry.HeapAllocBytes.Set(float64(mem.HeapAlloc))

	if c.broadcaster != nil {
		c.registry.TopicsActive.Set(float64(c.broadcaster.TopicCount()))
		c.registry.SubscriptionsActive.Set(float64(c.broadcaster.SubscriptionCount()))
		c.registry.BroadcastQueueDepth.Set(float64(c.broadcaster.AggregateQueueDepth()))
	}

	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return
	}
	current := percents[0]
	if c.cpuPercent == 0 {
		c.cpuPercent = current
	} else {
		const alpha = 0.3
		c.cpuPercent = alpha*current + (1-alpha)*c.cpuPercent
	}
	c.registry.CPUPercent.Set(c.cpuPercent)
}
