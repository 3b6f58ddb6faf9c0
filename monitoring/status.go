package monitoring

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
)

const MetricGoroutines = "goroutines"

// ReportStatus samples runtime stats every interval, records them as gauges
// and pushes them to dashboard clients. It returns when ctx is done.
func ReportStatus(ctx context.Context, mc *MetricsCollector, hub *WebSocketHub, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mc.SetGauge(MetricGoroutines, float64(runtime.NumGoroutine()), nil)
			if hub == nil || hub.ClientCount() == 0 {
				continue
			}
			if err := hub.Publish(SystemStatus, mc.GetSystemStats()); err != nil {
				hub.logger.Debug("publishing system status failed", zap.Error(err))
			}
		}
	}
}
