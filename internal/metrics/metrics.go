// Package metrics holds the OpenTelemetry instruments for the engine's
// two scheduling-hot-path signals (SPEC_FULL.md §11): the size of the
// ready queue after each recompute, and how many tasks a single
// complete_task call unblocks. Grounded on the teacher's
// internal/storage/dolt/store.go doltMetrics: instruments are registered
// against the global meter provider at init time, so they are no-ops
// until a real provider is installed and start forwarding automatically
// once one is.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var instruments struct {
	readyQueueSize       metric.Int64Gauge
	cascadeUnblockFanout metric.Int64Histogram
}

func init() {
	m := otel.Meter("github.com/taskgraph/tg")
	instruments.readyQueueSize, _ = m.Int64Gauge("tg.scheduler.ready_queue_size",
		metric.WithDescription("Number of tasks in the ready queue after the last recompute"),
		metric.WithUnit("{task}"),
	)
	instruments.cascadeUnblockFanout, _ = m.Int64Histogram("tg.scheduler.cascade_unblock_fanout",
		metric.WithDescription("Number of tasks newly unblocked by a single complete_task call"),
		metric.WithUnit("{task}"),
	)
}

// RecordReadyQueueSize reports the ready queue's size immediately after a
// cache recompute (internal/scheduler.Scheduler.GetReadyTasks).
func RecordReadyQueueSize(ctx context.Context, n int) {
	if instruments.readyQueueSize == nil {
		return
	}
	instruments.readyQueueSize.Record(ctx, int64(n))
}

// RecordCascadeUnblockFanout reports how many tasks complete_task moved
// from blocked to pending in one call (internal/facade.Facade.UpdateTask's
// completed-status branch).
func RecordCascadeUnblockFanout(ctx context.Context, n int) {
	if instruments.cascadeUnblockFanout == nil {
		return
	}
	instruments.cascadeUnblockFanout.Record(ctx, int64(n))
}
