package server

import (
	"errors"
	"net/http"

	"market-dashboard/src/dashboard"
	"market-dashboard/src/models"
	"market-dashboard/src/music"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Dashboard Handlers
// -----------------------------------------------------------------------------

func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.Dashboard.CurrentConfig(c.Request.Context()))
}

// -----------------------------------------------------------------------------

func (s *Server) postConfig(c *gin.Context) {
	var cfg models.MDashboardConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid configuration: " + err.Error()})
		return
	}

	saved, err := s.Dashboard.SaveConfig(c.Request.Context(), cfg, dashboard.OriginHTTP)
	if err != nil {
		s.fail(c, err, "save config", "Failed to save configuration")
		return
	}
	c.JSON(http.StatusOK, models.MSaveResponse{Success: true, Config: saved})
}

// -----------------------------------------------------------------------------

func (s *Server) getStocks(c *gin.Context) {
	c.JSON(http.StatusOK, s.Dashboard.StockReport(c.Request.Context()))
}

// -----------------------------------------------------------------------------

func (s *Server) getWeather(c *gin.Context) {
	c.JSON(http.StatusOK, s.Dashboard.Weather(c.Request.Context()))
}

// -----------------------------------------------------------------------------

func (s *Server) getMarketStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Dashboard.MarketStatus())
}

// -----------------------------------------------------------------------------

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.Dashboard.Status())
}

// -----------------------------------------------------------------------------
// Music Handlers
// -----------------------------------------------------------------------------

func (s *Server) getMusicAuthURL(c *gin.Context) {
	authURL, err := s.Music.AuthURL()
	if err != nil {
		s.fail(c, err, "music auth url", "Failed to build authorization URL")
		return
	}
	c.JSON(http.StatusOK, gin.H{"authUrl": authURL})
}

// -----------------------------------------------------------------------------

func (s *Server) postMusicCallback(c *gin.Context) {
	var body struct {
		Code string `json:"code"`
	}
	_ = c.ShouldBindJSON(&body)

	ctx := c.Request.Context()
	tokens, err := s.Music.Exchange(ctx, body.Code)
	if err != nil {
		s.fail(c, err, "music code exchange", "Failed to exchange authorization code")
		return
	}

	now := s.Dashboard.Clock.Now()
	_, err = s.Dashboard.UpdateConfig(ctx, dashboard.OriginMusic, func(cfg *models.MDashboardConfig) {
		music.ApplyTokens(cfg, tokens, now)
	})
	if err != nil {
		s.fail(c, err, "store music tokens", "Failed to exchange authorization code")
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": tokens.AccessToken})
}

// -----------------------------------------------------------------------------

func (s *Server) getMusicSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter required"})
		return
	}
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	items, err := s.Music.Search(c.Request.Context(), token, query)
	if errors.Is(err, music.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	if err != nil {
		s.fail(c, err, "music search", "Failed to search Spotify")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
