package api

import (
	"time"

	"crop-dashboard/internal/common/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the API routes onto a fresh gin engine.
func NewRouter(h *Handler, log logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log), cors())

	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/options", h.Options)
		api.GET("/regions/nearest", h.NearestRegion)

		api.POST("/sessions", h.CreateSession)

		s := api.Group("/sessions/:id")
		s.DELETE("", h.DeleteSession)
		s.GET("/form", h.GetForm)
		s.PATCH("/form", h.UpdateField)
		s.POST("/region", h.SelectRegion)
		s.POST("/predict", h.Submit)
		s.POST("/recommend", h.Recommend)
		s.GET("/dashboard", h.Dashboard)
		s.PUT("/market", h.ChangeCrop)
		s.PUT("/language", h.SetLanguage)
		s.GET("/events", h.Events)
		s.GET("/report", h.Report)
		s.GET("/export", h.Export)
	}
	return router
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}
		if c.Writer.Status() >= 500 {
			log.Warn("request served", fields)
			return
		}
		log.Debug("request served", fields)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
