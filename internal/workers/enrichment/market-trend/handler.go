package markettrend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "crop-dashboard/internal/common/errors"
	"crop-dashboard/internal/common/logger"
	"crop-dashboard/internal/common/metrics"
	"crop-dashboard/internal/common/observability"
	"crop-dashboard/internal/common/validation"
	"crop-dashboard/internal/market"
	"crop-dashboard/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "market-trend"
)

type Handler struct {
	config    *Config
	source    market.Source
	obs       *observability.Observability
	validator *validation.Validator
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, reg *registry.ActivityRegistry, source market.Source, obs *observability.Observability, log logger.Logger) (*Handler, error) {
	validator, err := reg.Validator(TaskType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", TaskType, err)
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		source:    source,
		obs:       obs,
		validator: validator,
		errors:    apperrors.NewErrorHandler(l),
		logger:    l,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	result, err := h.validator.Validate(job.Variables)
	if err != nil {
		return nil, apperrors.NewPredictionInputInvalidError(err.Error())
	}
	if !result.Valid {
		return nil, apperrors.NewPredictionInputInvalidError(result.Details())
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, apperrors.NewPredictionInputInvalidError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

// execute completes with an empty panel when the source has no data, and
// fails with a retryable error when the source itself is broken.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	state := input.State
	if state == "" {
		state = h.config.State
	}

	merger := market.NewMerger(h.source, state, h.obs, h.logger)
	ticket, ok := merger.Begin(input.Crop)
	if ok {
		res := merger.Fetch(ctx, ticket)
		if res.Err != nil && !errors.Is(res.Err, market.ErrEmpty) {
			return nil, apperrors.NewMarketTrendFailedError(input.Crop, res.Err)
		}
		merger.Apply(res)
	}

	return &Output{
		State:  state,
		Market: merger.Panel(),
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}
