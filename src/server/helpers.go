package server

import (
	"errors"
	"net/http"
	"strings"

	"market-dashboard/src/helpers"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------

// fail maps an error to a response: client input problems are 400 with
// their message, missing server credentials are 500 with their message,
// anything else is logged and answered with fallback.
func (s *Server) fail(c *gin.Context, err error, context, fallback string) {
	var cfgErr *helpers.ConfigurationError
	switch {
	case helpers.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": cfgErr.Message})
	default:
		s.errors.Handle(err, context)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// -----------------------------------------------------------------------------

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
