package middleware

import (
	"net/http"
	"strings"

	"pulsecrm/internal/config"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware applies the configured CORS policy.
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	origins := strings.Join(cfg.Security.CORS.AllowedOrigins, ", ")
	methods := strings.Join(cfg.Security.CORS.AllowedMethods, ", ")
	headers := strings.Join(cfg.Security.CORS.AllowedHeaders, ", ")
	if origins == "" {
		origins = "*"
	}

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origins)
		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
