package weather

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"crop-dashboard/internal/common/database"
	apperrors "crop-dashboard/internal/common/errors"
	"crop-dashboard/internal/common/logger"
	"crop-dashboard/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig(baseURL string) *Config {
	return &Config{
		BaseURL:  baseURL,
		Timeout:  2 * time.Second,
		CacheTTL: 10 * time.Minute,
	}
}

func ptr(v float64) *float64 { return &v }

func success(obs models.WeatherObservation) models.WeatherObservation {
	obs.Status = models.FetchSuccess
	return obs
}

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *database.RedisClient) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, database.NewRedisFromClient(rdb)
}

// ==========================
// Rainfall rules
// ==========================

func TestRainfallFor(t *testing.T) {
	tests := []struct {
		name string
		obs  models.WeatherObservation
		want float64
	}{
		{"precipitation 0.6 rounds to 60", success(models.WeatherObservation{Precipitation: ptr(0.6), Humidity: 90}), 60},
		{"precipitation beats rain description", success(models.WeatherObservation{Precipitation: ptr(0.2), Description: "heavy rain"}), 20},
		{"precipitation rounding to zero uses 50", success(models.WeatherObservation{Precipitation: ptr(0.004)}), 50},
		{"explicit zero precipitation uses 50", success(models.WeatherObservation{Precipitation: ptr(0)}), 50},
		{"half rounds up", success(models.WeatherObservation{Precipitation: ptr(0.125)}), 13},
		{"rain in description", success(models.WeatherObservation{Description: "Light RAIN showers", Humidity: 30}), 75},
		{"drizzle is not rain", success(models.WeatherObservation{Description: "drizzle", Humidity: 30}), 25},
		{"humidity 75 without rain", success(models.WeatherObservation{Description: "clear sky", Humidity: 75}), 50},
		{"humidity exactly 70 is dry", success(models.WeatherObservation{Humidity: 70}), 25},
		{"humidity 50 without rain", success(models.WeatherObservation{Description: "haze", Humidity: 50}), 25},
		{"unavailable forces 50", Fallback(models.FetchUnavailable), 50},
		{"error forces 50 even with rain", func() models.WeatherObservation {
			o := Fallback(models.FetchError)
			o.Description = "rain"
			return o
		}(), 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RainfallFor(tt.obs))
		})
	}
}

// ==========================
// Season matching
// ==========================

func TestMatchSeason(t *testing.T) {
	tests := []struct {
		hint   string
		want   string
		wantOK bool
	}{
		{"Kharif", "Kharif", true},
		{"kharif season (monsoon)", "Kharif", true},
		{"RABI", "Rabi", true},
		{"whole year crop", "Whole Year", true},
		{"Whole", "Whole Year", true},
		{"Zaid", "", false},
		{"", "", false},
		{"   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			got, ok := MatchSeason(tt.hint)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAutofillAndApply(t *testing.T) {
	form := models.PredictionForm{District: "Pune", Season: "Rabi", Area: 2}

	fill := Autofill(success(models.WeatherObservation{Humidity: 45, Description: "clear", SeasonHint: "Kharif"}))
	got := Apply(form, fill)
	assert.Equal(t, 25.0, got.Rainfall)
	assert.Equal(t, "Kharif", got.Season)

	// unknown hint keeps the current season
	fill = Autofill(success(models.WeatherObservation{Humidity: 45, SeasonHint: "Summer"}))
	got = Apply(form, fill)
	assert.Equal(t, "Rabi", got.Season)

	// fallback never touches season
	fill = Autofill(Fallback(models.FetchError))
	assert.Equal(t, models.Autofill{Rainfall: 50}, fill)

	// original untouched
	assert.Equal(t, 0.0, form.Rainfall)
}

func TestPrefillClimate(t *testing.T) {
	live := success(models.WeatherObservation{Temperature: 31, Humidity: 48})
	placeholder := Fallback(models.FetchUnavailable)

	tests := []struct {
		name       string
		form       models.RecommendForm
		obs        *models.WeatherObservation
		wantTemp   *float64
		wantHum    *float64
		wantFilled []string
	}{
		{"fills both from a live reading", models.RecommendForm{}, &live, ptr(31), ptr(48), []string{FieldTemperature, FieldHumidity}},
		{"keeps entered temperature", models.RecommendForm{Temperature: ptr(22)}, &live, ptr(22), ptr(48), []string{FieldHumidity}},
		{"placeholder reading is ignored", models.RecommendForm{}, &placeholder, nil, nil, nil},
		{"no reading", models.RecommendForm{Humidity: ptr(70)}, nil, nil, ptr(70), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, filled := PrefillClimate(tt.form, tt.obs)
			assert.Equal(t, tt.wantTemp, got.Temperature)
			assert.Equal(t, tt.wantHum, got.Humidity)
			assert.Equal(t, tt.wantFilled, filled)
		})
	}
}

func TestFallbackPanel(t *testing.T) {
	for _, status := range []models.FetchStatus{models.FetchUnavailable, models.FetchError} {
		obs := Fallback(status)
		assert.Equal(t, 28.0, obs.Temperature)
		assert.Equal(t, 65.0, obs.Humidity)
		assert.Equal(t, 12.0, obs.WindSpeed)
		assert.Equal(t, 1013.0, obs.Pressure)
		assert.Equal(t, status, obs.Status)
		assert.True(t, obs.IsFallback())
	}
	assert.NotEqual(t, Fallback(models.FetchUnavailable).Description, Fallback(models.FetchError).Description)
}

// ==========================
// Fetcher
// ==========================

func TestFetcher_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus models.FetchStatus
		wantTemp   float64
	}{
		{
			name: "success",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/weather", r.URL.Path)
				assert.Equal(t, "Pune", r.URL.Query().Get("district"))
				assert.Equal(t, "18.5204", r.URL.Query().Get("lat"))
				assert.Equal(t, "73.8567", r.URL.Query().Get("lon"))
				_, _ = w.Write([]byte(`{"status":"success","data":{"temperature":31.5,"humidity":45,"wind_speed":8,"pressure":1009,"description":"clear sky","season":"Kharif"}}`))
			},
			wantStatus: models.FetchSuccess,
			wantTemp:   31.5,
		},
		{
			name: "service reports error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"status":"error","message":"no station"}`))
			},
			wantStatus: models.FetchUnavailable,
			wantTemp:   FallbackTemperature,
		},
		{
			name: "success without data",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"status":"success"}`))
			},
			wantStatus: models.FetchUnavailable,
			wantTemp:   FallbackTemperature,
		},
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			wantStatus: models.FetchUnavailable,
			wantTemp:   FallbackTemperature,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{not json`))
			},
			wantStatus: models.FetchError,
			wantTemp:   FallbackTemperature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			f := NewFetcher(createTestConfig(srv.URL), nil, nil, logger.NewTestLogger(t))
			obs := f.Fetch(context.Background(), "Pune", 18.5204, 73.8567)

			assert.Equal(t, tt.wantStatus, obs.Status)
			assert.Equal(t, tt.wantTemp, obs.Temperature)
		})
	}
}

func TestFetcher_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := NewFetcher(createTestConfig(url), nil, nil, logger.NewTestLogger(t))
	obs := f.Fetch(context.Background(), "Pune", 18.5, 73.8)

	assert.Equal(t, models.FetchError, obs.Status)
	assert.Equal(t, 50.0, RainfallFor(obs))
}

func TestFetcher_CachesSuccessOnly(t *testing.T) {
	mr, cache := setupMiniRedis(t)
	var calls int32
	fail := int32(0)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if atomic.LoadInt32(&fail) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data":   map[string]interface{}{"temperature": 24, "humidity": 80, "description": "overcast"},
		})
	}))
	defer srv.Close()

	f := NewFetcher(createTestConfig(srv.URL), cache, nil, logger.NewTestLogger(t))
	ctx := context.Background()

	first := f.Fetch(ctx, "Nashik", 20.0059, 73.791)
	second := f.Fetch(ctx, "nashik", 20.0059, 73.791)

	assert.Equal(t, models.FetchSuccess, first.Status)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, mr.Exists("weather:v1:nashik"))
	assert.Greater(t, mr.TTL("weather:v1:nashik"), time.Duration(0))

	// fallbacks are not cached
	atomic.StoreInt32(&fail, 1)
	obs := f.Fetch(ctx, "Pune", 18.5, 73.8)
	assert.Equal(t, models.FetchUnavailable, obs.Status)
	assert.False(t, mr.Exists("weather:v1:pune"))
}

func TestFetcher_CacheOutageIsBypassed(t *testing.T) {
	mr, cache := setupMiniRedis(t)
	mr.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{"temperature":22,"humidity":40}}`))
	}))
	defer srv.Close()

	f := NewFetcher(createTestConfig(srv.URL), cache, nil, logger.NewTestLogger(t))
	obs := f.Fetch(context.Background(), "Satara", 17.68, 74.01)
	assert.Equal(t, models.FetchSuccess, obs.Status)
	assert.Equal(t, 22.0, obs.Temperature)
}

func TestFetcher_SharesConcurrentCalls(t *testing.T) {
	var calls int32
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		_, _ = w.Write([]byte(`{"status":"success","data":{"temperature":29,"humidity":60}}`))
	}))
	defer srv.Close()

	f := NewFetcher(createTestConfig(srv.URL), nil, nil, logger.NewTestLogger(t))

	var wg sync.WaitGroup
	results := make([]models.WeatherObservation, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.Fetch(context.Background(), "Latur", 18.4, 76.56)
		}(i)
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, 29.0, r.Temperature)
	}
}

func TestFetcher_SharedCallOutlivesFirstCaller(t *testing.T) {
	var calls int32
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		_, _ = w.Write([]byte(`{"status":"success","data":{"temperature":31,"humidity":55}}`))
	}))
	defer srv.Close()

	f := NewFetcher(createTestConfig(srv.URL), nil, nil, logger.NewTestLogger(t))

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	first := make(chan models.WeatherObservation, 1)
	go func() { first <- f.Fetch(ctxA, "Pune", 18.52, 73.86) }()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan models.WeatherObservation, 1)
	go func() { second <- f.Fetch(context.Background(), "Pune", 18.52, 73.86) }()
	time.Sleep(20 * time.Millisecond)

	// the first caller leaves; only its own result degrades
	cancelA()
	a := <-first
	assert.Equal(t, models.FetchError, a.Status)

	close(release)
	b := <-second
	assert.Equal(t, models.FetchSuccess, b.Status)
	assert.Equal(t, 31.0, b.Temperature)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetcher_FallbackErrorCodes(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus models.FetchStatus
		wantCode   apperrors.ErrorCode
	}{
		{
			name: "non-2xx is unavailable",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			wantStatus: models.FetchUnavailable,
			wantCode:   apperrors.ErrCodeWeatherUnavailable,
		},
		{
			name: "non-success body is unavailable",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"status":"error","message":"no station"}`))
			},
			wantStatus: models.FetchUnavailable,
			wantCode:   apperrors.ErrCodeWeatherUnavailable,
		},
		{
			name: "undecodable body is a fetch failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
			wantStatus: models.FetchError,
			wantCode:   apperrors.ErrCodeWeatherFetchFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			f := NewFetcher(createTestConfig(srv.URL), nil, nil, logger.NewTestLogger(t))
			obs, err := f.request(context.Background(), "Solapur", 17.66, 75.91)

			require.Error(t, err)
			assert.Equal(t, tt.wantStatus, obs.Status)
			assert.Equal(t, tt.wantCode, apperrors.Normalize(err).Code)
			assert.Contains(t, apperrors.Normalize(err).Details, "Solapur")
		})
	}
}

func TestFetcher_SendsAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`{"status":"success","data":{"temperature":20}}`))
	}))
	defer srv.Close()

	cfg := createTestConfig(srv.URL)
	cfg.APIKey = "secret"
	obs := NewFetcher(cfg, nil, nil, logger.NewTestLogger(t)).Fetch(context.Background(), "Akola", 20.7, 77.0)
	assert.Equal(t, models.FetchSuccess, obs.Status)
}
