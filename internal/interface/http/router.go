package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yanqian/searchcal/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.SetHTMLTemplate(pageTemplates)
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		errorHandlingMiddleware(handler.logger),
		rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger),
		corsMiddleware(cfg.HTTP),
	)

	router.GET("/healthz", handler.Health)

	pages := router.Group("/" + strings.Trim(cfg.Calendar.BasePath, "/"))
	{
		pages.GET("/year", handler.CalendarPage)
		pages.GET("/year/:year", handler.CalendarPage)
		pages.GET("/year/:year/select", handler.SelectYear)
		pages.GET("/year/:year/click/:date", handler.ClickDay)
		pages.GET("/day/:date", handler.DayPage)
	}

	api := router.Group("/api/v1")
	{
		api.GET("/calendar/payload", handler.Payload)
		api.GET("/calendar/years", handler.Years)
		api.POST("/documents", serviceTokenMiddleware(handler.ingestSvc), handler.Ingest)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, handler.logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func corsMiddleware(cfg config.HTTPConfig) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowOrigins
	}
	return cors.New(corsCfg)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds())
	}
}
