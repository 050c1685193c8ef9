package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"market-dashboard/src/dashboard"
	"market-dashboard/src/helpers"
	"market-dashboard/src/logger"
	"market-dashboard/src/models"
	"market-dashboard/src/music"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server exposes the dashboard over HTTP and the /ws push channel.
type Server struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Dashboard *dashboard.Dashboard
	Music     *music.Client

	engine *gin.Engine
	http   *http.Server
	errors *helpers.ErrorHandler
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewServer(cfg *models.MConfig, dash *dashboard.Dashboard, musicClient *music.Client, log *logger.Logger) *Server {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		Config:    cfg,
		Logger:    log,
		Dashboard: dash,
		Music:     musicClient,
		engine:    gin.New(),
		errors:    helpers.NewErrorHandler(log),
	}
	s.http = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: s.engine,
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())

	// CORS for local front-ends
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/config", s.getConfig)
		api.POST("/config", s.postConfig)
		api.GET("/stocks", s.getStocks)
		api.GET("/weather", s.getWeather)
		api.GET("/market-status", s.getMarketStatus)
		api.GET("/health", s.getHealth)

		api.GET("/spotify/auth-url", s.getMusicAuthURL)
		api.POST("/spotify/callback", s.postMusicCallback)
		api.GET("/spotify/search", s.getMusicSearch)
	}

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)

	// Browser client
	if info, err := os.Stat(s.Config.PublicDir); err == nil && info.IsDir() {
		s.engine.NoRoute(gin.WrapH(http.FileServer(http.Dir(s.Config.PublicDir))))
	} else {
		s.Logger.Warning("Static directory %q not found, serving the API only", s.Config.PublicDir)
	}
}

// -----------------------------------------------------------------------------

// requestLogger logs each request at debug level through the app logger.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.Logger.Debug("%s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}

// -----------------------------------------------------------------------------

// Handler exposes the routes, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.Logger.Info("Starting server on http://%s", s.http.Addr)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Shutdown stops accepting requests and disconnects every client. A Start
// that has not run yet returns immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Dashboard.Stop()
	return s.http.Shutdown(ctx)
}
