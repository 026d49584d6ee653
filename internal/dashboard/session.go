package dashboard

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "crop-dashboard/internal/common/errors"
	"crop-dashboard/internal/common/logger"
	"crop-dashboard/internal/common/metrics"
	"crop-dashboard/internal/common/observability"
	"crop-dashboard/internal/common/validation"
	"crop-dashboard/internal/derivation"
	"crop-dashboard/internal/localization"
	"crop-dashboard/internal/mapview"
	"crop-dashboard/internal/market"
	"crop-dashboard/internal/models"
	"crop-dashboard/internal/prediction"
	"crop-dashboard/internal/weather"
)

// DefaultFetchTimeout bounds background weather and market fetches.
const DefaultFetchTimeout = 10 * time.Second

// Form field names accepted by UpdateField.
const (
	FieldDistrict    = "district"
	FieldRainfall    = "rainfall"
	FieldArea        = "area"
	FieldSeason      = "season"
	FieldSoilQuality = "soil_quality"
	FieldCrop        = "crop"
)

// Deps are the collaborators shared by every session.
type Deps struct {
	Predictor          prediction.Predictor
	Recommender        prediction.Recommender
	Weather            weather.Source
	Market             market.Source
	MarketState        string
	Resolver           *localization.Resolver
	Validator          *validation.Validator
	RecommendValidator *validation.Validator
	Notifier           Notifier
	FetchTimeout       time.Duration
	Obs                *observability.Observability
	Logger             logger.Logger
}

// Session is one viewer's form and dashboard. Every exported method takes
// the session lock; network calls run in goroutines outside it and merge
// back only if they are still current.
type Session struct {
	ID string

	deps   *Deps
	logger logger.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time

	mu             sync.Mutex
	closed         bool
	lastSeen       time.Time
	lang           models.LanguageCode
	form           models.PredictionForm
	weatherObs     *models.WeatherObservation
	weatherGen     uint64
	weatherPending bool
	mapSync        *mapview.Synchronizer
	submitGen      uint64
	result         *models.PredictionResult
	market         *market.Merger
}

func newSession(id string, deps *Deps, now func() time.Time) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	log := deps.Logger.With(map[string]interface{}{"sessionId": id})
	return &Session{
		ID:       id,
		deps:     deps,
		logger:   log,
		ctx:      ctx,
		cancel:   cancel,
		now:      now,
		lastSeen: now(),
		lang:     deps.Resolver.Base(),
		mapSync:  mapview.NewSynchronizer(),
		market:   market.NewMerger(deps.Market, deps.MarketState, deps.Obs, log),
	}
}

// ===================================
// Form controller
// ===================================

// SelectRegion moves the map to the district at once and starts a weather
// fetch. When several selections overlap, only the last one autofills.
func (s *Session) SelectRegion(name string) (models.FormView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if err := s.selectRegionLocked(name); err != nil {
		return s.formViewLocked(s.lang), err
	}
	return s.formViewLocked(s.lang), nil
}

func (s *Session) selectRegionLocked(name string) error {
	region, err := s.mapSync.Select(name)
	if err != nil {
		return apperrors.NewUnknownRegionError(name)
	}

	s.form.District = region.Name
	s.weatherGen++
	s.weatherPending = true
	gen := s.weatherGen

	s.spawn(func(ctx context.Context) {
		obs := s.deps.Weather.Fetch(ctx, region.Name, region.Position.Lat, region.Position.Lng)
		s.mergeWeather(gen, region.Name, obs)
	})
	return nil
}

func (s *Session) mergeWeather(gen uint64, district string, obs models.WeatherObservation) {
	s.mu.Lock()
	if s.closed || gen != s.weatherGen {
		s.mu.Unlock()
		metrics.StaleDiscards.WithLabelValues("weather").Inc()
		s.logger.Debug("discarding stale weather", map[string]interface{}{
			"district":   district,
			"generation": gen,
		})
		return
	}

	s.weatherObs = &obs
	s.weatherPending = false
	fill := weather.Autofill(obs)
	s.form = weather.Apply(s.form, fill)
	view := s.formViewLocked(s.lang)
	s.mu.Unlock()

	s.logger.Info("weather autofill applied", map[string]interface{}{
		"district": district,
		"status":   string(obs.Status),
		"rainfall": fill.Rainfall,
		"season":   fill.Season,
	})
	s.publish(Event{Type: EventWeather, SessionID: s.ID, Form: &view})
}

// UpdateField sets one form field from its text value. Setting the
// district behaves like SelectRegion.
func (s *Session) UpdateField(field, value string) (models.FormView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	var err error
	switch field {
	case FieldDistrict:
		err = s.selectRegionLocked(value)
	case FieldRainfall:
		s.form.Rainfall, err = parseNumber(field, value)
	case FieldArea:
		s.form.Area, err = parseNumber(field, value)
	case FieldSeason:
		s.form.Season = value
	case FieldSoilQuality:
		s.form.SoilQuality = value
	case FieldCrop:
		s.form.Crop = value
	default:
		err = apperrors.NewPredictionInputInvalidError("unknown field: " + field)
	}
	return s.formViewLocked(s.lang), err
}

func parseNumber(field, value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, apperrors.NewPredictionInputInvalidError(field + " must be a number")
	}
	return v, nil
}

// Form returns the form slice of the session in lang. An empty lang means
// the session language.
func (s *Session) Form(lang models.LanguageCode) models.FormView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lang == "" {
		lang = s.lang
	}
	return s.formViewLocked(lang)
}

func (s *Session) formViewLocked(lang models.LanguageCode) models.FormView {
	tr := s.deps.Resolver
	view := models.FormView{
		Fields:         s.form,
		WeatherPending: s.weatherPending,
		Map:            s.mapSync.State(),
	}
	if s.weatherObs != nil {
		obs := *s.weatherObs
		obs.Description = tr.Resolve(obs.Description, lang)
		view.Weather = &obs

		overlay := mapview.Overlay(view.Map, *s.weatherObs)
		overlay.Temperature.Label = tr.Resolve(overlay.Temperature.Label, lang)
		overlay.Humidity.Label = tr.Resolve(overlay.Humidity.Label, lang)
		view.Overlay = &overlay
	}
	return view
}

// Submit validates the form, asks for a prediction and opens the dashboard
// on the result. The market panel starts loading for the predicted crop.
func (s *Session) Submit(ctx context.Context) (models.DashboardView, error) {
	s.mu.Lock()
	s.touchLocked()
	form := s.form
	s.submitGen++
	gen := s.submitGen
	s.mu.Unlock()

	if err := s.validate(form); err != nil {
		return models.DashboardView{}, err
	}

	result, err := s.deps.Predictor.Predict(ctx, form)
	if err != nil {
		s.logger.Warn("prediction failed", map[string]interface{}{"error": err.Error()})
		return models.DashboardView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.submitGen {
		metrics.StaleDiscards.WithLabelValues("prediction").Inc()
		return s.viewLocked(s.lang), nil
	}
	s.result = result.Clone()
	crop := result.Crop
	if crop == "" {
		crop = form.Crop
	}
	s.changeCropLocked(crop)
	return s.viewLocked(s.lang), nil
}

func (s *Session) validate(form models.PredictionForm) error {
	return validateWith(s.deps.Validator, form)
}

// Recommend asks for the crop best suited to the soil and climate values.
// A missing temperature or humidity is taken from the session's current
// weather reading when that reading is live. The answer is in lang, or in
// the session language when lang is empty.
func (s *Session) Recommend(ctx context.Context, form models.RecommendForm, lang models.LanguageCode) (*models.CropRecommendation, error) {
	s.mu.Lock()
	s.touchLocked()
	var obs *models.WeatherObservation
	if s.weatherObs != nil {
		o := *s.weatherObs
		obs = &o
	}
	if lang == "" {
		lang = s.lang
	}
	s.mu.Unlock()

	if s.deps.Recommender == nil {
		return nil, apperrors.NewInternalError(errors.New("crop recommendation is not configured"))
	}

	form, filled := weather.PrefillClimate(form, obs)
	if err := validateWith(s.deps.RecommendValidator, form); err != nil {
		return nil, err
	}
	if !form.Complete() {
		return nil, apperrors.NewPredictionInputInvalidError("temperature and humidity are required until a district with live weather is selected")
	}

	rec, err := s.deps.Recommender.Recommend(ctx, form)
	if err != nil {
		s.logger.Warn("recommendation failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	out := *rec
	out.Recommendation = s.deps.Resolver.Resolve(rec.Recommendation, lang)
	out.Prefilled = filled
	return &out, nil
}

func validateWith(v *validation.Validator, doc interface{}) error {
	if v == nil {
		return nil
	}
	res, err := v.Validate(doc)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if res.Valid {
		return nil
	}
	return apperrors.NewPredictionInputInvalidError(res.Details())
}

// ===================================
// Dashboard controller
// ===================================

// View renders the dashboard in lang, or in the session language when lang
// is empty. Without a result the view is the no-result page.
func (s *Session) View(lang models.LanguageCode) models.DashboardView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if lang == "" {
		lang = s.lang
	}
	return s.viewLocked(lang)
}

func (s *Session) viewLocked(lang models.LanguageCode) models.DashboardView {
	tr := s.deps.Resolver
	view := models.DashboardView{
		SessionID:   s.ID,
		Language:    lang,
		GeneratedAt: s.now().UTC(),
	}

	if s.result == nil {
		view.Status = models.DashboardNoResult
		view.Message = tr.Resolve(apperrors.NewNoResultFoundError(s.ID).Message, lang)
		view.Market = models.MarketPanel{Status: models.MarketIdle}
		return view
	}

	charts := derivation.Derive(s.result, lang, tr)
	view.Status = models.DashboardReady
	view.Result = s.result.Clone()
	view.Charts = &charts
	view.Recommendations = tr.ResolveAll(s.result.Recommendations, lang)
	view.Guide = tr.LocalizeGuide(s.result.FarmerGuide, lang)
	view.Market = s.marketPanelLocked(lang)
	return view
}

func (s *Session) marketPanelLocked(lang models.LanguageCode) models.MarketPanel {
	panel := s.market.Panel()
	panel.Suggestion = s.deps.Resolver.Resolve(panel.Suggestion, lang)
	panel.Message = s.deps.Resolver.Resolve(panel.Message, lang)
	if panel.Series != nil {
		panel.Series.Recommendations = s.deps.Resolver.ResolveAll(panel.Series.Recommendations, lang)
	}
	return panel
}

// ChangeCrop points the market panel at crop and refetches. The panel is
// loading until the fetch for the newest crop lands.
func (s *Session) ChangeCrop(crop string) (models.MarketPanel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if s.result == nil {
		return models.MarketPanel{Status: models.MarketIdle}, apperrors.NewNoResultFoundError(s.ID)
	}
	s.changeCropLocked(crop)
	return s.marketPanelLocked(s.lang), nil
}

func (s *Session) changeCropLocked(crop string) {
	ticket, ok := s.market.Begin(crop)
	if !ok {
		return
	}
	s.spawn(func(ctx context.Context) {
		res := s.market.Fetch(ctx, ticket)
		s.mergeMarket(res)
	})
}

func (s *Session) mergeMarket(res market.Result) {
	s.mu.Lock()
	if s.closed || !s.market.Apply(res) {
		s.mu.Unlock()
		return
	}
	panel := s.marketPanelLocked(s.lang)
	s.mu.Unlock()

	s.publish(Event{Type: EventMarket, SessionID: s.ID, Market: &panel})
}

// SetLanguage changes the language used when no language is requested.
func (s *Session) SetLanguage(lang models.LanguageCode) models.LanguageCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if lang == "" {
		lang = s.deps.Resolver.Base()
	}
	if !s.deps.Resolver.Supports(lang) {
		s.logger.Warn("no overlay for language, text stays in base language", map[string]interface{}{
			"language": string(lang),
		})
	}
	s.lang = lang
	return lang
}

// Language is the session's current display language.
func (s *Session) Language() models.LanguageCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

// Result returns a copy of the stored prediction, if any.
func (s *Session) Result() (*models.PredictionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result.Clone(), s.result != nil
}

// ===================================
// Lifecycle
// ===================================

// spawn runs fn in the background with a bounded context. Callers hold mu.
func (s *Session) spawn(fn func(ctx context.Context)) {
	if s.closed {
		return
	}
	timeout := s.deps.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.ctx, timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (s *Session) publish(ev Event) {
	if s.deps.Notifier != nil {
		s.deps.Notifier.Publish(s.ID, ev)
	}
}

// Wait blocks until every background fetch started so far has merged or
// been discarded.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close stops accepting merges, cancels outstanding fetches and waits for
// them to return.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

func (s *Session) touchLocked() {
	s.lastSeen = s.now()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
