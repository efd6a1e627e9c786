package handlers

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterConfig holds Query Service router settings
type RouterConfig struct {
	AllowOrigins []string
}

// NewRouter builds the read-only Query Service
func NewRouter(cfg RouterConfig, viewer FleetViewer, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), accessLog(logger))

	if len(cfg.AllowOrigins) > 0 {
		corsConfig := cors.Config{
			AllowMethods: []string{"GET", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Accept"},
			MaxAge:       12 * time.Hour,
		}
		if slices.Contains(cfg.AllowOrigins, "*") {
			corsConfig.AllowAllOrigins = true
		} else {
			corsConfig.AllowOrigins = cfg.AllowOrigins
		}
		router.Use(cors.New(corsConfig))
	}

	dashboardHandler := NewDashboardHandler()
	clientsHandler := NewClientsHandler(viewer)

	router.GET("/", dashboardHandler.Index)
	router.GET("/index.html", dashboardHandler.Index)
	router.GET("/api/clients", clientsHandler.List)
	router.NoRoute(NotFound)

	return router
}

func accessLog(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("client_ip", c.ClientIP()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
