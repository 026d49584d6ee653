package api

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	apperrors "crop-dashboard/internal/common/errors"
	"crop-dashboard/internal/common/logger"
	"crop-dashboard/internal/dashboard"
	"crop-dashboard/internal/export"
	"crop-dashboard/internal/localization"
	"crop-dashboard/internal/mapview"
	"crop-dashboard/internal/models"

	"github.com/gin-gonic/gin"
)

// Checker is a dependency checked by /ready.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to Checker.
type CheckFunc struct {
	Label string
	Fn    func(ctx context.Context) error
}

func (c CheckFunc) Name() string                    { return c.Label }
func (c CheckFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// Handler serves the dashboard API.
type Handler struct {
	store    *dashboard.Store
	hub      *Hub
	exporter *export.Exporter
	resolver *localization.Resolver
	checks   []Checker
	logger   logger.Logger
}

type regionRequest struct {
	District string `json:"district" binding:"required"`
}

type fieldRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

type cropRequest struct {
	Crop string `json:"crop"`
}

type languageRequest struct {
	Language models.LanguageCode `json:"language"`
}

type optionsResponse struct {
	Districts     []string              `json:"districts"`
	Seasons       []string              `json:"seasons"`
	SoilQualities []string              `json:"soil_qualities"`
	Crops         []string              `json:"crops"`
	Languages     []models.LanguageCode `json:"languages"`
	State         string                `json:"state"`
}

func NewHandler(store *dashboard.Store, hub *Hub, exporter *export.Exporter, resolver *localization.Resolver, checks []Checker, log logger.Logger) *Handler {
	return &Handler{
		store:    store,
		hub:      hub,
		exporter: exporter,
		resolver: resolver,
		checks:   checks,
		logger:   log.With(map[string]interface{}{"component": "api"}),
	}
}

// ===================================
// Health and static data
// ===================================

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for _, chk := range h.checks {
		if err := chk.Check(ctx); err != nil {
			failed[chk.Name()] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *Handler) Options(c *gin.Context) {
	c.JSON(http.StatusOK, optionsResponse{
		Districts:     mapview.RegionNames(),
		Seasons:       models.Seasons,
		SoilQualities: models.SoilQualities,
		Crops:         models.Crops,
		Languages:     models.SupportedLanguages,
		State:         mapview.State,
	})
}

// NearestRegion resolves a map click to a district.
func (h *Handler) NearestRegion(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		h.fail(c, apperrors.NewPredictionInputInvalidError("lat and lng must be numbers"))
		return
	}
	region, km := mapview.NearestRegion(lat, lng)
	c.JSON(http.StatusOK, gin.H{
		"district":    region.Name,
		"position":    region.Position,
		"distance_km": km,
	})
}

// ===================================
// Sessions
// ===================================

func (h *Handler) CreateSession(c *gin.Context) {
	s := h.store.Create()
	if lang := models.LanguageCode(c.Query("lang")); lang != "" {
		s.SetLanguage(lang)
	}
	c.JSON(http.StatusCreated, gin.H{
		"session_id": s.ID,
		"language":   s.Language(),
		"form":       s.Form(""),
	})
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if !h.store.Delete(c.Param("id")) {
		h.fail(c, apperrors.NewSessionNotFoundError(c.Param("id")))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetForm(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Form(lang(c)))
}

func (h *Handler) SelectRegion(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req regionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.NewPredictionInputInvalidError(err.Error()))
		return
	}
	form, err := s.SelectRegion(req.District)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, form)
}

func (h *Handler) UpdateField(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req fieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.NewPredictionInputInvalidError(err.Error()))
		return
	}
	form, err := s.UpdateField(req.Field, req.Value)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, form)
}

func (h *Handler) Submit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	view, err := s.Submit(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Recommend suggests a crop for soil and climate values. Temperature and
// humidity may be left out once the session has live weather.
func (h *Handler) Recommend(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var form models.RecommendForm
	if err := c.ShouldBindJSON(&form); err != nil {
		h.fail(c, apperrors.NewPredictionInputInvalidError(err.Error()))
		return
	}
	rec, err := s.Recommend(c.Request.Context(), form, lang(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Dashboard returns the view-model. A session without a result answers 200
// with status no_result so the page can render its message.
func (h *Handler) Dashboard(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.View(lang(c)))
}

func (h *Handler) ChangeCrop(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req cropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.NewPredictionInputInvalidError(err.Error()))
		return
	}
	panel, err := s.ChangeCrop(req.Crop)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, panel)
}

func (h *Handler) SetLanguage(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req languageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.NewPredictionInputInvalidError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"language":  s.SetLanguage(req.Language),
		"supported": h.resolver.Supports(req.Language),
	})
}

// Events streams session events over a WebSocket.
func (h *Handler) Events(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := h.hub.Serve(c.Writer, c.Request, s.ID); err != nil {
		h.logger.Warn("websocket upgrade failed", map[string]interface{}{
			"sessionId": s.ID,
			"error":     err.Error(),
		})
	}
}

// ===================================
// Report and export
// ===================================

// Report renders the printable page captured by the PDF exporter.
func (h *Handler) Report(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	view := s.View(lang(c))

	var buf bytes.Buffer
	if err := renderReport(&buf, view, h.resolver); err != nil {
		h.fail(c, apperrors.NewInternalError(err))
		return
	}
	status := http.StatusOK
	if view.Status == models.DashboardNoResult {
		status = http.StatusNotFound
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// Export answers the PDF, or 204 when no document could be produced.
func (h *Handler) Export(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if _, has := s.Result(); !has {
		h.fail(c, apperrors.NewNoResultFoundError(s.ID))
		return
	}

	l := lang(c)
	if l == "" {
		l = s.Language()
	}
	data, ok := h.exporter.Export(c.Request.Context(), s.ID, string(l))
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+h.exporter.FileName()+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

// ===================================
// Helpers
// ===================================

func (h *Handler) session(c *gin.Context) (*dashboard.Session, bool) {
	s, err := h.store.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	stdErr := apperrors.Normalize(err)
	status := apperrors.HTTPStatus(stdErr.Code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", map[string]interface{}{
			"path":      c.FullPath(),
			"errorCode": stdErr.Code,
			"error":     stdErr.Details,
		})
	}
	c.AbortWithStatusJSON(status, gin.H{"error": stdErr})
}

func lang(c *gin.Context) models.LanguageCode {
	return models.LanguageCode(c.Query("lang"))
}
