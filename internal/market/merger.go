package market

import (
	"context"
	"errors"
	"time"

	apperrors "crop-dashboard/internal/common/errors"
	"crop-dashboard/internal/common/logger"
	"crop-dashboard/internal/common/metrics"
	"crop-dashboard/internal/common/observability"
	"crop-dashboard/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

const metricSource = "market"

// Placeholder texts, in English; the dashboard localizes them.
const (
	MessageLoading = "Loading market data..."
	MessageEmpty   = "No market data available"
)

// Ticket identifies one fetch. Only the newest ticket may merge.
type Ticket struct {
	Seq  uint64
	Crop string
}

// Result is the outcome of a fetch, applied later with Apply.
type Result struct {
	Ticket Ticket
	Series *models.MarketTrendSeries
	Err    error
}

// Merger holds the market panel of one dashboard. Begin and Apply must be
// serialized by the owner; Fetch may run concurrently with both.
type Merger struct {
	source Source
	state  string
	obs    *observability.Observability
	logger logger.Logger

	seq   uint64
	panel models.MarketPanel
}

func NewMerger(source Source, state string, obs *observability.Observability, log logger.Logger) *Merger {
	return &Merger{
		source: source,
		state:  state,
		obs:    obs,
		logger: log,
		panel:  models.MarketPanel{Status: models.MarketIdle},
	}
}

// Begin switches the panel to crop. The previous series is dropped at once.
// For an empty crop the panel goes idle and no fetch is needed.
func (m *Merger) Begin(crop string) (Ticket, bool) {
	m.seq++
	if crop == "" {
		m.panel = models.MarketPanel{Status: models.MarketIdle}
		return Ticket{}, false
	}
	m.panel = models.MarketPanel{Status: models.MarketLoading, Crop: crop, Message: MessageLoading}
	return Ticket{Seq: m.seq, Crop: crop}, true
}

// Current is the ticket a result must carry to be merged.
func (m *Merger) Current() uint64 {
	return m.seq
}

// Fetch performs the network call for t. It does not touch the panel.
func (m *Merger) Fetch(ctx context.Context, t Ticket) Result {
	ctx, span := m.obs.StartSpan(ctx, "market.fetch",
		attribute.String("crop", t.Crop),
		attribute.String("state", m.state),
	)
	defer span.End()

	start := time.Now()
	series, err := m.source.Fetch(ctx, t.Crop, m.state)
	elapsed := time.Since(start)

	outcome := "success"
	switch {
	case errors.Is(err, ErrEmpty) || (err == nil && series.Empty()):
		outcome = "empty"
	case err != nil:
		outcome = "error"
		span.RecordError(err)
	}
	metrics.FetchTotal.WithLabelValues(metricSource, outcome).Inc()
	metrics.FetchDuration.WithLabelValues(metricSource).Observe(elapsed.Seconds())
	m.obs.RecordFetch(ctx, metricSource, elapsed, outcome)

	return Result{Ticket: t, Series: series, Err: err}
}

// Apply merges r if it belongs to the newest ticket and reports whether
// the panel changed. Failures and empty series leave the panel empty.
func (m *Merger) Apply(r Result) bool {
	if r.Ticket.Seq != m.seq || r.Ticket.Crop != m.panel.Crop {
		metrics.StaleDiscards.WithLabelValues(metricSource).Inc()
		m.logger.Debug("discarding stale market result", map[string]interface{}{
			"crop":    r.Ticket.Crop,
			"ticket":  r.Ticket.Seq,
			"current": m.seq,
		})
		return false
	}

	if r.Err != nil || r.Series.Empty() {
		reason := apperrors.NewMarketTrendEmptyError(r.Ticket.Crop)
		if r.Err != nil && !errors.Is(r.Err, ErrEmpty) {
			reason = apperrors.NewMarketTrendFailedError(r.Ticket.Crop, r.Err)
			m.logger.Warn("market trend unavailable", map[string]interface{}{
				"crop":      r.Ticket.Crop,
				"errorCode": reason.Code,
				"error":     reason.Details,
			})
		}
		m.panel = models.MarketPanel{
			Status:  models.MarketEmpty,
			Crop:    r.Ticket.Crop,
			Message: MessageEmpty,
			Reason:  string(reason.Code),
		}
		return true
	}

	series := *r.Series
	series.Crop = r.Ticket.Crop
	series.Points = append([]models.PricePoint(nil), r.Series.Points...)
	series.Recommendations = append([]string(nil), r.Series.Recommendations...)

	m.panel = models.MarketPanel{
		Status:     models.MarketReady,
		Crop:       r.Ticket.Crop,
		Series:     &series,
		Suggestion: Suggestion(&series),
	}
	return true
}

// Panel returns a copy of the current panel.
func (m *Merger) Panel() models.MarketPanel {
	out := m.panel
	if m.panel.Series != nil {
		s := *m.panel.Series
		s.Points = append([]models.PricePoint(nil), m.panel.Series.Points...)
		s.Recommendations = append([]string(nil), m.panel.Series.Recommendations...)
		out.Series = &s
	}
	return out
}

// Refresh runs Begin, Fetch and Apply in one call for callers with no
// concurrent events, such as job workers.
func (m *Merger) Refresh(ctx context.Context, crop string) models.MarketPanel {
	t, ok := m.Begin(crop)
	if ok {
		m.Apply(m.Fetch(ctx, t))
	}
	return m.Panel()
}
