package weather

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crop-dashboard/internal/common/database"
	apperrors "crop-dashboard/internal/common/errors"
	httpclient "crop-dashboard/internal/common/http"
	"crop-dashboard/internal/common/logger"
	"crop-dashboard/internal/common/metrics"
	"crop-dashboard/internal/common/observability"
	"crop-dashboard/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

const (
	source      = "weather"
	cachePrefix = "weather:v1:"
)

// Cache is the response cache. *database.RedisClient satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, out interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Source fetches one observation. The result is never an error: failures
// come back as tagged fallback observations.
type Source interface {
	Fetch(ctx context.Context, district string, lat, lon float64) models.WeatherObservation
}

type Config struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Fetcher calls the weather endpoint of the external service.
type Fetcher struct {
	config *Config
	http   *httpclient.Client
	cache  Cache
	obs    *observability.Observability
	logger logger.Logger
	group  singleflight.Group
}

// envelope is the service's response shape.
type envelope struct {
	Status  string                     `json:"status"`
	Message string                     `json:"message,omitempty"`
	Data    *models.WeatherObservation `json:"data"`
}

// NewFetcher builds a Fetcher. cache and obs may be nil.
func NewFetcher(config *Config, cache Cache, obs *observability.Observability, log logger.Logger) *Fetcher {
	client := httpclient.NewClient(config.Timeout)
	if config.APIKey != "" {
		client.WithHeader("X-API-Key", config.APIKey)
	}
	return &Fetcher{
		config: config,
		http:   client,
		cache:  cache,
		obs:    obs,
		logger: log.With(map[string]interface{}{"component": "weather"}),
	}
}

// Fetch returns the observation for district. Concurrent calls for the same
// district share one upstream request. The shared request is detached from
// every caller's context and bounded by the configured timeout; a caller
// whose own context ends first gets the error fallback.
func (f *Fetcher) Fetch(ctx context.Context, district string, lat, lon float64) models.WeatherObservation {
	key := cachePrefix + strings.ToLower(district)

	if obs, ok := f.cached(ctx, key); ok {
		return obs
	}

	ch := f.group.DoChan(key, func() (interface{}, error) {
		shared, cancel := f.detach(ctx)
		defer cancel()

		obs := f.fetch(shared, district, lat, lon)
		if !obs.IsFallback() {
			f.store(shared, key, obs)
		}
		return obs, nil
	})

	select {
	case res := <-ch:
		return res.Val.(models.WeatherObservation)
	case <-ctx.Done():
		f.logger.Warn("weather fetch abandoned by caller", map[string]interface{}{
			"district":  district,
			"errorCode": apperrors.ErrCodeWeatherFetchFailed,
			"error":     ctx.Err().Error(),
		})
		return Fallback(models.FetchError)
	}
}

func (f *Fetcher) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	shared := context.WithoutCancel(ctx)
	if f.config.Timeout <= 0 {
		return context.WithCancel(shared)
	}
	return context.WithTimeout(shared, f.config.Timeout)
}

func (f *Fetcher) fetch(ctx context.Context, district string, lat, lon float64) models.WeatherObservation {
	ctx, span := f.obs.StartSpan(ctx, "weather.fetch",
		attribute.String("district", district),
		attribute.Float64("lat", lat),
		attribute.Float64("lon", lon),
	)
	defer span.End()

	start := time.Now()
	obs, err := f.request(ctx, district, lat, lon)
	elapsed := time.Since(start)

	outcome := string(obs.Status)
	metrics.FetchTotal.WithLabelValues(source, outcome).Inc()
	metrics.FetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	f.obs.RecordFetch(ctx, source, elapsed, outcome)
	span.SetAttributes(attribute.String("outcome", outcome))

	if err != nil {
		stdErr := apperrors.Normalize(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.code", string(stdErr.Code)))
		f.logger.Warn("weather fetch degraded to fallback", map[string]interface{}{
			"district":  district,
			"status":    outcome,
			"errorCode": stdErr.Code,
			"error":     stdErr.Details,
		})
	}
	return obs
}

// request performs the call and classifies failures. A non-2xx status or a
// non-success body is "unavailable"; transport or decode errors are "error".
func (f *Fetcher) request(ctx context.Context, district string, lat, lon float64) (models.WeatherObservation, error) {
	query := url.Values{}
	query.Set("district", district)
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	var env envelope
	err := f.http.GetJSON(ctx, f.config.BaseURL, "/weather", query, &env)
	if err != nil {
		if _, ok := httpclient.IsStatusError(err); ok {
			return Fallback(models.FetchUnavailable), apperrors.NewWeatherUnavailableError(district, err.Error())
		}
		return Fallback(models.FetchError), apperrors.NewWeatherFetchFailedError(district, err)
	}

	if env.Status != string(models.FetchSuccess) || env.Data == nil {
		reason := fmt.Sprintf("service reported %q: %s", env.Status, env.Message)
		return Fallback(models.FetchUnavailable), apperrors.NewWeatherUnavailableError(district, reason)
	}

	obs := *env.Data
	obs.Status = models.FetchSuccess
	return obs, nil
}

func (f *Fetcher) cached(ctx context.Context, key string) (models.WeatherObservation, bool) {
	if f.cache == nil {
		return models.WeatherObservation{}, false
	}
	var obs models.WeatherObservation
	err := f.cache.GetJSON(ctx, key, &obs)
	switch {
	case err == nil:
		metrics.CacheLookups.WithLabelValues(source, "hit").Inc()
		return obs, true
	case errors.Is(err, database.ErrCacheMiss):
		metrics.CacheLookups.WithLabelValues(source, "miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues(source, "error").Inc()
		f.logger.Warn("weather cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return models.WeatherObservation{}, false
}

func (f *Fetcher) store(ctx context.Context, key string, obs models.WeatherObservation) {
	if f.cache == nil || f.config.CacheTTL <= 0 {
		return
	}
	if err := f.cache.SetJSON(ctx, key, obs, f.config.CacheTTL); err != nil {
		f.logger.Warn("weather cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
