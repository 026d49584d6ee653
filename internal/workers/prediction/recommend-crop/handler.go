package recommendcrop

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "crop-dashboard/internal/common/errors"
	"crop-dashboard/internal/common/logger"
	"crop-dashboard/internal/common/metrics"
	"crop-dashboard/internal/common/validation"
	"crop-dashboard/internal/prediction"
	"crop-dashboard/internal/weather"
	"crop-dashboard/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "recommend-crop"
)

type Handler struct {
	config      *Config
	recommender prediction.Recommender
	validator   *validation.Validator
	errors      *apperrors.ErrorHandler
	logger      logger.Logger
}

func NewHandler(config *Config, reg *registry.ActivityRegistry, recommender prediction.Recommender, log logger.Logger) (*Handler, error) {
	validator, err := reg.Validator(TaskType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", TaskType, err)
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:      config,
		recommender: recommender,
		validator:   validator,
		errors:      apperrors.NewErrorHandler(l),
		logger:      l,
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	form, filled := weather.PrefillClimate(input.RecommendForm, input.Weather)
	if !form.Complete() {
		return nil, apperrors.NewPredictionInputInvalidError("temperature and humidity are required when no weather reading is available")
	}

	rec, err := h.recommender.Recommend(ctx, form)
	if err != nil {
		return nil, err
	}
	rec.Prefilled = filled

	h.logger.Info("recommendation completed", map[string]interface{}{
		"recommendation": rec.Recommendation,
		"prefilled":      filled,
	})
	return &Output{Recommendation: rec}, nil
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
