package market

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"crop-dashboard/internal/common/config"
	"crop-dashboard/internal/common/database"
	apperrors "crop-dashboard/internal/common/errors"
	"crop-dashboard/internal/common/logger"
	"crop-dashboard/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type MockSource struct {
	mock.Mock
}

func (m *MockSource) Fetch(ctx context.Context, crop, state string) (*models.MarketTrendSeries, error) {
	args := m.Called(ctx, crop, state)
	series, _ := args.Get(0).(*models.MarketTrendSeries)
	return series, args.Error(1)
}

func createTestSeries(crop string) *models.MarketTrendSeries {
	return &models.MarketTrendSeries{
		Crop: crop,
		Points: []models.PricePoint{
			{Date: "2024-01-01", Price: 2000},
			{Date: "2024-01-02", Price: 2100},
		},
		Overview: models.MarketOverview{AveragePrice: 2050, PriceChange: 5, Trend: TrendIncreasing},
	}
}

func newTestMerger(t *testing.T, src Source) *Merger {
	return NewMerger(src, "Maharashtra", nil, logger.NewTestLogger(t))
}

// ==========================
// Suggestion rules
// ==========================

func TestSuggestion(t *testing.T) {
	tests := []struct {
		name   string
		series *models.MarketTrendSeries
		want   string
	}{
		{"first recommendation wins", &models.MarketTrendSeries{Recommendations: []string{"Sell in March", "Hold"}, Overview: models.MarketOverview{PriceChange: 10}}, "Sell in March"},
		{"blank recommendations ignored", &models.MarketTrendSeries{Recommendations: []string{" "}, Overview: models.MarketOverview{PriceChange: 10}}, SuggestRising},
		{"rising", &models.MarketTrendSeries{Overview: models.MarketOverview{PriceChange: 3.01}}, SuggestRising},
		{"exactly 3 is stable", &models.MarketTrendSeries{Overview: models.MarketOverview{PriceChange: 3}}, SuggestStable},
		{"falling", &models.MarketTrendSeries{Overview: models.MarketOverview{PriceChange: -4}}, SuggestFalling},
		{"exactly -3 is stable", &models.MarketTrendSeries{Overview: models.MarketOverview{PriceChange: -3}}, SuggestStable},
		{"nil series", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Suggestion(tt.series))
		})
	}
}

// ==========================
// Overview derivation
// ==========================

func TestDeriveOverview(t *testing.T) {
	points := []models.PricePoint{
		{Date: "2024-01-01", Price: 1999.99},
		{Date: "2024-01-02", Price: 2050.10},
		{Date: "2024-01-03", Price: 2100.00},
	}

	o := DeriveOverview(points)
	assert.Equal(t, 2050.03, o.AveragePrice)
	assert.Equal(t, 5.0, o.PriceChange)
	assert.Equal(t, TrendIncreasing, o.Trend)

	assert.Equal(t, models.MarketOverview{Trend: TrendStable}, DeriveOverview(nil))
	assert.Equal(t, 0.0, PriceChange([]models.PricePoint{{Price: 0}, {Price: 10}}))
	assert.Equal(t, TrendDecreasing, TrendLabel(-7))
}

func TestPartialOverview_Complete(t *testing.T) {
	points := []models.PricePoint{{Price: 100}, {Price: 90}}
	avg := 1234.5
	change := 2.0

	var nilOverview *partialOverview
	assert.Equal(t, DeriveOverview(points), nilOverview.complete(points))

	got := (&partialOverview{AveragePrice: &avg}).complete(points)
	assert.Equal(t, 1234.5, got.AveragePrice)
	assert.Equal(t, -10.0, got.PriceChange)
	assert.Equal(t, TrendDecreasing, got.Trend)

	got = (&partialOverview{PriceChange: &change}).complete(points)
	assert.Equal(t, 95.0, got.AveragePrice)
	assert.Equal(t, TrendStable, got.Trend)
}

// ==========================
// HTTP source
// ==========================

func TestHTTPSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/market-trends", r.URL.Path)
		assert.Equal(t, "Rice", r.URL.Query().Get("crop"))
		assert.Equal(t, "Maharashtra", r.URL.Query().Get("state"))
		_, _ = w.Write([]byte(`{
			"trend_data": [{"date":"2024-01-01","price":2000},{"date":"2024-01-08","price":2200}],
			"market_overview": {"average_price": 2100, "trend": "increasing"},
			"recommendations": ["Sell after harvest"]
		}`))
	}))
	defer srv.Close()

	series, err := NewHTTPSource(srv.URL, time.Second).Fetch(context.Background(), "Rice", "Maharashtra")
	require.NoError(t, err)
	assert.Equal(t, "Rice", series.Crop)
	assert.Len(t, series.Points, 2)
	assert.Equal(t, 2100.0, series.Overview.AveragePrice)
	assert.Equal(t, 10.0, series.Overview.PriceChange)
	assert.Equal(t, "increasing", series.Overview.Trend)
	assert.Equal(t, []string{"Sell after harvest"}, series.Recommendations)
}

func TestHTTPSource_EmptyAndFailure(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"trend_data": []}`))
	}))
	defer empty.Close()

	_, err := NewHTTPSource(empty.URL, time.Second).Fetch(context.Background(), "Rice", "Maharashtra")
	assert.ErrorIs(t, err, ErrEmpty)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	_, err = NewHTTPSource(failing.URL, time.Second).Fetch(context.Background(), "Rice", "Maharashtra")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrEmpty))
}

// ==========================
// Elasticsearch source
// ==========================

func TestESSource_Fetch(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		assert.Equal(t, "/mandi-prices/_search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_id":"3","_source":{"crop":"Cotton","state":"Maharashtra","date":"2024-03-03","modal_price":7300}},
			{"_id":"2","_source":{"crop":"Cotton","state":"Maharashtra","date":"2024-03-02","modal_price":7100}},
			{"_id":"1","_source":{"crop":"Cotton","state":"Maharashtra","date":"2024-03-01","modal_price":7000}}
		]}}`))
	}))
	defer srv.Close()

	es, err := database.NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	series, err := NewESSource(es, "mandi-prices").Fetch(context.Background(), "Cotton", "Maharashtra")
	require.NoError(t, err)

	require.Len(t, series.Points, 3)
	assert.Equal(t, "2024-03-01", series.Points[0].Date)
	assert.Equal(t, 7300.0, series.Points[2].Price)
	assert.Equal(t, 7133.33, series.Overview.AveragePrice)
	assert.Equal(t, 4.29, series.Overview.PriceChange)
	assert.Equal(t, TrendIncreasing, series.Overview.Trend)

	filters := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	assert.Len(t, filters, 2)
}

func TestESSource_NoHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		_, _ = w.Write([]byte(`{"hits":{"hits":[]}}`))
	}))
	defer srv.Close()

	es, err := database.NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
	require.NoError(t, err)

	_, err = NewESSource(es, "mandi-prices").Fetch(context.Background(), "Gram", "Maharashtra")
	assert.ErrorIs(t, err, ErrEmpty)
}

// ==========================
// Cache
// ==========================

func TestCachedSource(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	src := new(MockSource)
	src.On("Fetch", mock.Anything, "Rice", "Maharashtra").Return(createTestSeries("Rice"), nil).Once()
	src.On("Fetch", mock.Anything, "Gram", "Maharashtra").Return(nil, ErrEmpty).Twice()

	cached := NewCachedSource(src, database.NewRedisFromClient(rdb), time.Hour, logger.NewTestLogger(t))
	ctx := context.Background()

	first, err := cached.Fetch(ctx, "Rice", "Maharashtra")
	require.NoError(t, err)
	second, err := cached.Fetch(ctx, "Rice", "Maharashtra")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("market:v1:maharashtra:rice"))

	// errors are not cached
	_, err = cached.Fetch(ctx, "Gram", "Maharashtra")
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = cached.Fetch(ctx, "Gram", "Maharashtra")
	assert.ErrorIs(t, err, ErrEmpty)

	src.AssertExpectations(t)
}

// ==========================
// Merger
// ==========================

func TestMerger_EmptyCropDoesNotFetch(t *testing.T) {
	src := new(MockSource)
	m := newTestMerger(t, src)

	_, ok := m.Begin("")
	assert.False(t, ok)
	assert.Equal(t, models.MarketIdle, m.Panel().Status)
	src.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
}

func TestMerger_LoadingHidesPreviousCrop(t *testing.T) {
	src := new(MockSource)
	src.On("Fetch", mock.Anything, "Rice", "Maharashtra").Return(createTestSeries("Rice"), nil)
	m := newTestMerger(t, src)

	m.Refresh(context.Background(), "Rice")
	require.Equal(t, models.MarketReady, m.Panel().Status)

	_, ok := m.Begin("Cotton")
	require.True(t, ok)

	panel := m.Panel()
	assert.Equal(t, models.MarketLoading, panel.Status)
	assert.Equal(t, "Cotton", panel.Crop)
	assert.Nil(t, panel.Series)
	assert.Empty(t, panel.Suggestion)
	assert.Equal(t, MessageLoading, panel.Message)
}

func TestMerger_StaleResultDiscarded(t *testing.T) {
	src := new(MockSource)
	src.On("Fetch", mock.Anything, "Rice", "Maharashtra").Return(createTestSeries("Rice"), nil)
	src.On("Fetch", mock.Anything, "Cotton", "Maharashtra").Return(createTestSeries("Cotton"), nil)
	m := newTestMerger(t, src)
	ctx := context.Background()

	rice, _ := m.Begin("Rice")
	cotton, _ := m.Begin("Cotton")
	assert.Equal(t, cotton.Seq, m.Current())
	assert.NotEqual(t, rice.Seq, m.Current())

	cottonResult := m.Fetch(ctx, cotton)
	riceResult := m.Fetch(ctx, rice)

	assert.True(t, m.Apply(cottonResult))
	assert.False(t, m.Apply(riceResult), "Rice arrived after Cotton was requested")

	panel := m.Panel()
	assert.Equal(t, models.MarketReady, panel.Status)
	assert.Equal(t, "Cotton", panel.Crop)
	assert.Equal(t, "Cotton", panel.Series.Crop)
}

func TestMerger_StaleResultWhileLoadingKeepsLoading(t *testing.T) {
	src := new(MockSource)
	src.On("Fetch", mock.Anything, "Rice", "Maharashtra").Return(createTestSeries("Rice"), nil)
	m := newTestMerger(t, src)

	rice, _ := m.Begin("Rice")
	_, _ = m.Begin("Cotton")

	assert.False(t, m.Apply(m.Fetch(context.Background(), rice)))
	assert.Equal(t, models.MarketLoading, m.Panel().Status)
	assert.Nil(t, m.Panel().Series)
}

func TestMerger_FailureAndEmptyClearPanel(t *testing.T) {
	src := new(MockSource)
	src.On("Fetch", mock.Anything, "Rice", "Maharashtra").Return(createTestSeries("Rice"), nil)
	src.On("Fetch", mock.Anything, "Peas", "Maharashtra").Return(nil, errors.New("boom"))
	src.On("Fetch", mock.Anything, "Gram", "Maharashtra").Return(&models.MarketTrendSeries{Crop: "Gram"}, nil)
	m := newTestMerger(t, src)
	ctx := context.Background()

	m.Refresh(ctx, "Rice")

	panel := m.Refresh(ctx, "Peas")
	assert.Equal(t, models.MarketEmpty, panel.Status)
	assert.Nil(t, panel.Series)
	assert.Equal(t, "Peas", panel.Crop)
	assert.Equal(t, MessageEmpty, panel.Message)
	assert.Equal(t, string(apperrors.ErrCodeMarketTrendFailed), panel.Reason)

	panel = m.Refresh(ctx, "Gram")
	assert.Equal(t, models.MarketEmpty, panel.Status)
	assert.Nil(t, panel.Series)
	assert.Equal(t, string(apperrors.ErrCodeMarketTrendEmpty), panel.Reason)

	panel = m.Refresh(ctx, "Rice")
	assert.Empty(t, panel.Message)
	assert.Empty(t, panel.Reason)
}

func TestMerger_ReadyCarriesSuggestion(t *testing.T) {
	src := new(MockSource)
	series := createTestSeries("Rice")
	src.On("Fetch", mock.Anything, "Rice", "Maharashtra").Return(series, nil)
	m := newTestMerger(t, src)

	panel := m.Refresh(context.Background(), "Rice")
	assert.Equal(t, SuggestRising, panel.Suggestion)

	// panel is a copy
	panel.Series.Points[0].Price = -1
	assert.Equal(t, 2000.0, m.Panel().Series.Points[0].Price)
	assert.Equal(t, 2000.0, series.Points[0].Price)
}

func TestMerger_ConcurrentFetchesSingleApplyWinner(t *testing.T) {
	var calls int32
	src := sourceFunc(func(ctx context.Context, crop, state string) (*models.MarketTrendSeries, error) {
		atomic.AddInt32(&calls, 1)
		return createTestSeries(crop), nil
	})
	m := newTestMerger(t, src)

	tickets := make([]Ticket, 0, 3)
	for _, c := range []string{"Rice", "Maize", "Peas"} {
		tk, _ := m.Begin(c)
		tickets = append(tickets, tk)
	}

	applied := 0
	for _, tk := range tickets {
		if m.Apply(m.Fetch(context.Background(), tk)) {
			applied++
		}
	}
	assert.Equal(t, 1, applied)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, "Peas", m.Panel().Crop)
}

type sourceFunc func(ctx context.Context, crop, state string) (*models.MarketTrendSeries, error)

func (f sourceFunc) Fetch(ctx context.Context, crop, state string) (*models.MarketTrendSeries, error) {
	return f(ctx, crop, state)
}
