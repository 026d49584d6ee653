package prediction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "crop-dashboard/internal/common/errors"
	"crop-dashboard/internal/common/logger"
	"crop-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestForm() models.PredictionForm {
	return models.PredictionForm{
		District:    "Pune",
		Rainfall:    25,
		Area:        2,
		Season:      "Kharif",
		SoilQuality: "Good",
		Crop:        "Soybean",
	}
}

func newTestClient(t *testing.T, url string, timeout time.Duration) *Client {
	return NewClient(url, timeout, nil, logger.NewTestLogger(t))
}

func TestPredict_SendsWireFieldNames(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{
			"predicted_production": 42.5,
			"yield_per_hectare": 21.25,
			"soil_quality_score": 85,
			"rainfall_efficiency": 60,
			"area_efficiency": 70,
			"overall_sustainability_score": 72,
			"recommendations": ["Use drip irrigation to conserve water"],
			"farmer_guide": {"soil": {"what_to_do": ["Test soil every season"]}}
		}`))
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv.URL, time.Second).Predict(context.Background(), createTestForm())
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"Rainfall":             25.0,
		"Area":                 2.0,
		"District_Name":        "Pune",
		"Season_Encoded":       "Kharif",
		"Soil_Quality_Encoded": "Good",
		"Crop":                 "Soybean",
	}, got)

	assert.Equal(t, 42.5, result.PredictedProduction)
	assert.Equal(t, 2.0, result.Area, "area filled from form")
	assert.Equal(t, "Pune", result.District)
	assert.Equal(t, "Soybean", result.Crop)
	assert.Equal(t, []string{"Test soil every season"}, result.FarmerGuide.Section(models.GuideSoil).WhatToDo)
}

func TestPredict_Errors(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantCode  apperrors.ErrorCode
		retryable bool
	}{
		{
			name: "error body with 200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"error": "unknown district"}`))
			},
			wantCode:  apperrors.ErrCodePredictionFailed,
			retryable: false,
		},
		{
			name: "error body with 400",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error": "Missing fields in request"}`))
			},
			wantCode:  apperrors.ErrCodePredictionFailed,
			retryable: false,
		},
		{
			name: "bare 500",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantCode:  apperrors.ErrCodePredictionFailed,
			retryable: true,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
			wantCode:  apperrors.ErrCodePredictionFailed,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestClient(t, srv.URL, time.Second).Predict(context.Background(), createTestForm())
			require.Error(t, err)

			stdErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
		})
	}
}

func TestPredict_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestClient(t, srv.URL, 50*time.Millisecond).Predict(context.Background(), createTestForm())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePredictionTimeout))
}

func TestNewRequest(t *testing.T) {
	req := NewRequest(createTestForm())
	assert.Equal(t, "Pune", req.DistrictName)
	assert.Equal(t, "Good", req.SoilQualityEncoded)
	assert.Equal(t, "Kharif", req.SeasonEncoded)
}

func float(v float64) *float64 { return &v }

func createTestRecommendForm() models.RecommendForm {
	return models.RecommendForm{
		Nitrogen:    90,
		Phosphorus:  42,
		Potassium:   43,
		Temperature: float(20.9),
		Humidity:    float(82),
		PH:          6.5,
		Rainfall:    202.9,
	}
}

func TestRecommend_SendsWireFieldNames(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/recommend_crop", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"recommended_crop": "Rice is the best crop to be cultivated."}`))
	}))
	defer srv.Close()

	rec, err := newTestClient(t, srv.URL, time.Second).Recommend(context.Background(), createTestRecommendForm())
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"Nitrogen":    90.0,
		"Phosporus":   42.0,
		"Potassium":   43.0,
		"Temperature": 20.9,
		"Humidity":    82.0,
		"pH":          6.5,
		"Rainfall":    202.9,
	}, got)
	assert.Equal(t, "Rice is the best crop to be cultivated.", rec.Recommendation)
}

func TestRecommend_Errors(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantCode  apperrors.ErrorCode
		retryable bool
	}{
		{
			name: "error body with 400",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error": "Missing fields in request"}`))
			},
			wantCode:  apperrors.ErrCodePredictionFailed,
			retryable: false,
		},
		{
			name: "error body with 500",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error": "could not convert string to float"}`))
			},
			wantCode:  apperrors.ErrCodePredictionFailed,
			retryable: false,
		},
		{
			name: "bare 502",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantCode:  apperrors.ErrCodePredictionFailed,
			retryable: true,
		},
		{
			name: "empty recommendation",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{}`))
			},
			wantCode:  apperrors.ErrCodePredictionFailed,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestClient(t, srv.URL, time.Second).Recommend(context.Background(), createTestRecommendForm())
			require.Error(t, err)

			stdErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
		})
	}
}

func TestRecommend_IncompleteFormNeverSent(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	form := createTestRecommendForm()
	form.Humidity = nil

	_, err := newTestClient(t, srv.URL, time.Second).Recommend(context.Background(), form)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePredictionInputInvalid))
	assert.False(t, called)
}
