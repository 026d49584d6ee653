package camunda

import (
	"context"
	"time"

	"crop-dashboard/internal/common/config"
	"crop-dashboard/internal/common/metrics"
	"crop-dashboard/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler is implemented by every package under internal/workers.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
}

// StartWorker opens a job worker for taskType unless it is disabled.
// The returned worker is nil when nothing was started.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler JobHandler, obs *observability.Observability, log Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(instrument(taskType, handler, obs)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jw
}

func instrument(taskType string, handler JobHandler, obs *observability.Observability) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		ctx, span := obs.StartSpan(context.Background(), "job."+taskType)
		handler.Handle(client, job)
		span.End()

		elapsed := time.Since(start)
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
		obs.RecordJobProcessed(ctx, taskType, "handled")
		obs.RecordJobDuration(ctx, taskType, elapsed, "handled")
	}
}
