package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"chat-relay/observability"
)

// Telemetry periodically logs the core's counters together with the
// process's own CPU and memory figures.
type Telemetry struct {
	log      *slog.Logger
	monitor  *observability.Monitor
	interval time.Duration
}

func NewTelemetry(log *slog.Logger, monitor *observability.Monitor, interval time.Duration) *Telemetry {
	return &Telemetry{log: log, monitor: monitor, interval: interval}
}

func (w *Telemetry) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats := w.monitor.GetLatest()
			args := []any{
				"connections_opened", stats.ConnectionsOpened,
				"connections_closed", stats.ConnectionsClosed,
				"messages_persisted", stats.MessagesPersisted,
				"deliveries_sent", stats.DeliveriesSent,
				"deliveries_dropped", stats.DeliveriesDropped,
				"operations_rejected", stats.OperationsRejected,
			}

			if memInfo, err := p.MemoryInfo(); err == nil {
				args = append(args, "rss_bytes", memInfo.RSS)
			}
			if cpu, err := p.CPUPercent(); err == nil {
				args = append(args, "cpu_percent", cpu)
			}

			w.log.Info("telemetry", args...)
		}
	}
}
