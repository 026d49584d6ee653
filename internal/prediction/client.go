package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	apperrors "crop-dashboard/internal/common/errors"
	httpclient "crop-dashboard/internal/common/http"
	"crop-dashboard/internal/common/logger"
	"crop-dashboard/internal/common/metrics"
	"crop-dashboard/internal/common/observability"
	"crop-dashboard/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

const (
	source          = "prediction"
	recommendSource = "recommendation"
)

// Predictor produces a PredictionResult for a submitted form.
type Predictor interface {
	Predict(ctx context.Context, form models.PredictionForm) (*models.PredictionResult, error)
}

// Request is the form in the service's field names.
type Request struct {
	Rainfall           float64 `json:"Rainfall"`
	Area               float64 `json:"Area"`
	DistrictName       string  `json:"District_Name"`
	SeasonEncoded      string  `json:"Season_Encoded"`
	SoilQualityEncoded string  `json:"Soil_Quality_Encoded"`
	Crop               string  `json:"Crop"`
}

// NewRequest maps form fields to the wire names.
func NewRequest(form models.PredictionForm) Request {
	return Request{
		Rainfall:           form.Rainfall,
		Area:               form.Area,
		DistrictName:       form.District,
		SeasonEncoded:      form.Season,
		SoilQualityEncoded: form.SoilQuality,
		Crop:               form.Crop,
	}
}

// Recommender suggests the crop best suited to soil and climate values.
type Recommender interface {
	Recommend(ctx context.Context, form models.RecommendForm) (*models.CropRecommendation, error)
}

// RecommendRequest is the recommendation form in the service's field names.
// "Phosporus" is the spelling the service expects.
type RecommendRequest struct {
	Nitrogen    float64 `json:"Nitrogen"`
	Phosphorus  float64 `json:"Phosporus"`
	Potassium   float64 `json:"Potassium"`
	Temperature float64 `json:"Temperature"`
	Humidity    float64 `json:"Humidity"`
	PH          float64 `json:"pH"`
	Rainfall    float64 `json:"Rainfall"`
}

// NewRecommendRequest maps form fields to the wire names. Temperature and
// humidity must be set.
func NewRecommendRequest(form models.RecommendForm) (RecommendRequest, error) {
	if !form.Complete() {
		return RecommendRequest{}, apperrors.NewPredictionInputInvalidError("temperature and humidity are required")
	}
	return RecommendRequest{
		Nitrogen:    form.Nitrogen,
		Phosphorus:  form.Phosphorus,
		Potassium:   form.Potassium,
		Temperature: *form.Temperature,
		Humidity:    *form.Humidity,
		PH:          form.PH,
		Rainfall:    form.Rainfall,
	}, nil
}

type recommendResponse struct {
	RecommendedCrop string `json:"recommended_crop"`
	Error           string `json:"error,omitempty"`
}

// response is a PredictionResult or an {"error": "..."} body.
type response struct {
	models.PredictionResult
	Error string `json:"error,omitempty"`
}

type Client struct {
	baseURL string
	http    *httpclient.Client
	obs     *observability.Observability
	logger  logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, obs *observability.Observability, log logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    httpclient.NewClient(timeout),
		obs:     obs,
		logger:  log.With(map[string]interface{}{"component": "prediction"}),
	}
}

// Predict posts the form and returns the validated result. Failures are
// *errors.StandardError values with prediction codes.
func (c *Client) Predict(ctx context.Context, form models.PredictionForm) (*models.PredictionResult, error) {
	ctx, span := c.obs.StartSpan(ctx, "prediction.predict",
		attribute.String("district", form.District),
		attribute.String("crop", form.Crop),
	)
	defer span.End()

	start := time.Now()
	result, err := c.predict(ctx, form)
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
	}
	metrics.FetchTotal.WithLabelValues(source, outcome).Inc()
	metrics.FetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	c.obs.RecordFetch(ctx, source, elapsed, outcome)

	return result, err
}

func (c *Client) predict(ctx context.Context, form models.PredictionForm) (*models.PredictionResult, error) {
	var resp response
	if err := c.http.PostJSON(ctx, c.baseURL, "/predict", NewRequest(form), &resp); err != nil {
		return nil, mapError(err)
	}

	if resp.Error != "" {
		return nil, apperrors.NewPredictionRejectedError(resp.Error)
	}

	result := resp.PredictionResult
	if err := result.Validate(); err != nil {
		return nil, apperrors.NewPredictionFailedError(fmt.Errorf("invalid result: %w", err))
	}
	fillFromForm(&result, form)

	c.logger.Info("prediction received", map[string]interface{}{
		"district":   result.District,
		"crop":       result.Crop,
		"production": result.PredictedProduction,
	})
	return &result, nil
}

// Recommend posts the soil and climate values and returns the suggested
// crop. Errors carry the same codes as Predict.
func (c *Client) Recommend(ctx context.Context, form models.RecommendForm) (*models.CropRecommendation, error) {
	ctx, span := c.obs.StartSpan(ctx, "prediction.recommend")
	defer span.End()

	start := time.Now()
	rec, err := c.recommend(ctx, form)
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
	}
	metrics.FetchTotal.WithLabelValues(recommendSource, outcome).Inc()
	metrics.FetchDuration.WithLabelValues(recommendSource).Observe(elapsed.Seconds())
	c.obs.RecordFetch(ctx, recommendSource, elapsed, outcome)

	return rec, err
}

func (c *Client) recommend(ctx context.Context, form models.RecommendForm) (*models.CropRecommendation, error) {
	req, err := NewRecommendRequest(form)
	if err != nil {
		return nil, err
	}

	var resp recommendResponse
	if err := c.http.PostJSON(ctx, c.baseURL, "/recommend_crop", req, &resp); err != nil {
		return nil, mapError(err)
	}
	if resp.Error != "" {
		return nil, apperrors.NewPredictionRejectedError(resp.Error)
	}
	if resp.RecommendedCrop == "" {
		return nil, apperrors.NewPredictionFailedError(errors.New("empty recommendation"))
	}

	c.logger.Info("recommendation received", map[string]interface{}{
		"recommendation": resp.RecommendedCrop,
	})
	return &models.CropRecommendation{Recommendation: resp.RecommendedCrop}, nil
}

// mapError turns a transport failure into a prediction error. An
// {"error": "..."} body on a non-2xx reply is a rejection.
func mapError(err error) error {
	if se, ok := httpclient.IsStatusError(err); ok {
		if msg := errorMessage(se.Body); msg != "" {
			return apperrors.NewPredictionRejectedError(msg)
		}
		return apperrors.NewPredictionFailedError(err)
	}
	if isTimeout(err) {
		return apperrors.NewPredictionTimeoutError()
	}
	return apperrors.NewPredictionFailedError(err)
}

// fillFromForm copies submitted values the service did not echo back.
func fillFromForm(r *models.PredictionResult, form models.PredictionForm) {
	if r.District == "" {
		r.District = form.District
	}
	if r.Crop == "" {
		r.Crop = form.Crop
	}
	if r.Season == "" {
		r.Season = form.Season
	}
	if r.SoilQuality == "" {
		r.SoilQuality = form.SoilQuality
	}
	if r.Area == 0 {
		r.Area = form.Area
	}
	if r.Rainfall == 0 {
		r.Rainfall = form.Rainfall
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func errorMessage(body string) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(body), &e) != nil {
		return ""
	}
	return e.Error
}
