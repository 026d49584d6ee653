package predictyield

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	apperrors "crop-dashboard/internal/common/errors"
	"crop-dashboard/internal/common/logger"
	"crop-dashboard/internal/models"
	"crop-dashboard/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPredictor struct {
	mock.Mock
}

func (m *MockPredictor) Predict(ctx context.Context, form models.PredictionForm) (*models.PredictionResult, error) {
	args := m.Called(ctx, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PredictionResult), args.Error(1)
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "crop-prediction",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func validVariables() map[string]interface{} {
	return map[string]interface{}{
		"district":     "Pune",
		"rainfall":     25,
		"area":         2,
		"season":       "Kharif",
		"soil_quality": "Good",
		"crop":         "Soybean",
	}
}

func newTestHandler(t *testing.T, p *MockPredictor) *Handler {
	h, err := NewHandler(createTestConfig(), registry.MustDefault(), p, logger.NewTestLogger(t))
	require.NoError(t, err)
	return h
}

func TestHandler_ParseInput(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(v map[string]interface{})
		wantErr bool
	}{
		{name: "valid form", mutate: func(v map[string]interface{}) {}},
		{name: "missing district", mutate: func(v map[string]interface{}) { delete(v, "district") }, wantErr: true},
		{name: "zero area", mutate: func(v map[string]interface{}) { v["area"] = 0 }, wantErr: true},
		{name: "negative rainfall", mutate: func(v map[string]interface{}) { v["rainfall"] = -1 }, wantErr: true},
		{name: "unknown season", mutate: func(v map[string]interface{}) { v["season"] = "Monsoon" }, wantErr: true},
		{name: "unknown crop", mutate: func(v map[string]interface{}) { v["crop"] = "Coffee" }, wantErr: true},
	}

	h := newTestHandler(t, new(MockPredictor))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := validVariables()
			tt.mutate(vars)

			input, err := h.parseInput(createMockJob(1, vars))
			if tt.wantErr {
				assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePredictionInputInvalid), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Pune", input.District)
			assert.Equal(t, 25.0, input.Rainfall)
		})
	}
}

func TestHandler_Execute(t *testing.T) {
	p := new(MockPredictor)
	p.On("Predict", mock.Anything, mock.MatchedBy(func(f models.PredictionForm) bool {
		return f.District == "Pune" && f.Crop == "Soybean"
	})).Return(&models.PredictionResult{PredictedProduction: 42.5, Crop: "Soybean", District: "Pune"}, nil)

	h := newTestHandler(t, p)
	input, err := h.parseInput(createMockJob(2, validVariables()))
	require.NoError(t, err)

	out, err := h.execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 42.5, out.Prediction.PredictedProduction)
	assert.Equal(t, "Soybean", out.Crop)
	p.AssertExpectations(t)
}

func TestHandler_ExecutePropagatesPredictionErrors(t *testing.T) {
	p := new(MockPredictor)
	p.On("Predict", mock.Anything, mock.Anything).Return(nil, apperrors.NewPredictionTimeoutError())

	h := newTestHandler(t, p)
	_, err := h.execute(context.Background(), &Input{})
	require.Error(t, err)

	bpmn := apperrors.ConvertToBPMNError(apperrors.Normalize(err))
	assert.Equal(t, "PREDICTION_TIMEOUT", bpmn.Code)
	assert.Greater(t, bpmn.Retries, 0)
}
