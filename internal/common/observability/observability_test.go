package observability

import (
	"context"
	"testing"
	"time"

	"crop-dashboard/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestObservability_NoJaeger(t *testing.T) {
	obs := New("crop-dashboard-test", "", logger.NewTestLogger(t))
	defer obs.Shutdown()

	ctx, span := obs.StartSpan(context.Background(), "weather.fetch", attribute.String("district", "Pune"))
	assert.NotNil(t, ctx)
	span.End()

	obs.RecordJobProcessed(ctx, "derive-metrics", "completed")
	obs.RecordJobDuration(ctx, "derive-metrics", 12*time.Millisecond, "completed")
	obs.RecordFetch(ctx, "weather", 30*time.Millisecond, "success")
	assert.NotNil(t, obs.Tracer())
}

func TestObservability_ZeroValueIsSafe(t *testing.T) {
	var obs Observability
	obs.RecordFetch(context.Background(), "market", time.Millisecond, "empty")
	obs.RecordJobProcessed(context.Background(), "x", "failed")
	obs.Shutdown()
}
