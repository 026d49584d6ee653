package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"crop-dashboard/internal/common/database"
	httpclient "crop-dashboard/internal/common/http"
	"crop-dashboard/internal/common/logger"
	"crop-dashboard/internal/common/metrics"
	"crop-dashboard/internal/models"
)

// ErrEmpty is returned when a source has no points for the crop.
var ErrEmpty = errors.New("no market data")

// Source fetches the trend series for one crop in one state.
type Source interface {
	Fetch(ctx context.Context, crop, state string) (*models.MarketTrendSeries, error)
}

// HTTPSource calls the market-trends endpoint of the external service.
type HTTPSource struct {
	baseURL string
	http    *httpclient.Client
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{baseURL: baseURL, http: httpclient.NewClient(timeout)}
}

type trendPayload struct {
	TrendData       []models.PricePoint `json:"trend_data"`
	MarketOverview  *partialOverview    `json:"market_overview"`
	Recommendations []string            `json:"recommendations"`
}

func (s *HTTPSource) Fetch(ctx context.Context, crop, state string) (*models.MarketTrendSeries, error) {
	query := url.Values{}
	query.Set("crop", crop)
	query.Set("state", state)

	var payload trendPayload
	if err := s.http.GetJSON(ctx, s.baseURL, "/market-trends", query, &payload); err != nil {
		return nil, err
	}
	if len(payload.TrendData) == 0 {
		return nil, ErrEmpty
	}
	return &models.MarketTrendSeries{
		Crop:            crop,
		Points:          payload.TrendData,
		Overview:        payload.MarketOverview.complete(payload.TrendData),
		Recommendations: payload.Recommendations,
	}, nil
}

// Searcher runs a query against an index. *database.ElasticsearchClient satisfies it.
type Searcher interface {
	Search(ctx context.Context, index string, query map[string]interface{}) ([]database.SearchHit, error)
}

// ESSource reads daily mandi prices from an Elasticsearch index.
type ESSource struct {
	es    Searcher
	index string
	size  int
}

func NewESSource(es Searcher, index string) *ESSource {
	return &ESSource{es: es, index: index, size: 90}
}

// priceDoc is one indexed mandi price record.
type priceDoc struct {
	Crop       string  `json:"crop"`
	State      string  `json:"state"`
	Date       string  `json:"date"`
	ModalPrice float64 `json:"modal_price"`
}

// buildTrendQuery selects the latest size records for crop and state.
func buildTrendQuery(crop, state string, size int) map[string]interface{} {
	return map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"crop.keyword": crop}},
					map[string]interface{}{"term": map[string]interface{}{"state.keyword": state}},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"date": map[string]interface{}{"order": "desc"}},
		},
	}
}

func (s *ESSource) Fetch(ctx context.Context, crop, state string) (*models.MarketTrendSeries, error) {
	hits, err := s.es.Search(ctx, s.index, buildTrendQuery(crop, state, s.size))
	if err != nil {
		return nil, err
	}

	points := make([]models.PricePoint, 0, len(hits))
	for _, h := range hits {
		var doc priceDoc
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			return nil, fmt.Errorf("decode price %s: %w", h.ID, err)
		}
		points = append(points, models.PricePoint{Date: doc.Date, Price: doc.ModalPrice})
	}
	if len(points) == 0 {
		return nil, ErrEmpty
	}

	// newest-first from the index; charts want oldest-first
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date < points[j].Date })

	return &models.MarketTrendSeries{
		Crop:     crop,
		Points:   points,
		Overview: DeriveOverview(points),
	}, nil
}

// Cache is the response cache. *database.RedisClient satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, out interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedSource serves repeated (crop, state) lookups from Redis.
type CachedSource struct {
	next   Source
	cache  Cache
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedSource(next Source, cache Cache, ttl time.Duration, log logger.Logger) *CachedSource {
	return &CachedSource{next: next, cache: cache, ttl: ttl, logger: log}
}

func cacheKey(crop, state string) string {
	return "market:v1:" + strings.ToLower(state) + ":" + strings.ToLower(crop)
}

func (c *CachedSource) Fetch(ctx context.Context, crop, state string) (*models.MarketTrendSeries, error) {
	key := cacheKey(crop, state)

	var cached models.MarketTrendSeries
	err := c.cache.GetJSON(ctx, key, &cached)
	switch {
	case err == nil:
		metrics.CacheLookups.WithLabelValues(metricSource, "hit").Inc()
		cached.Crop = crop
		return &cached, nil
	case errors.Is(err, database.ErrCacheMiss):
		metrics.CacheLookups.WithLabelValues(metricSource, "miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues(metricSource, "error").Inc()
		c.logger.Warn("market cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	series, err := c.next.Fetch(ctx, crop, state)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetJSON(ctx, key, series, c.ttl); err != nil {
		c.logger.Warn("market cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return series, nil
}
