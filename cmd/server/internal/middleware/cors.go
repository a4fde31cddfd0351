package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS builds the cross-origin policy from the configured origin list.
// An empty list or "*" allows everything, which is the right default for
// a service that normally sits behind its own frontend proxy.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"OPTIONS", "GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		for _, origin := range allowedOrigins {
			if origin == "*" {
				cfg.AllowAllOrigins = true
			}
		}
		if !cfg.AllowAllOrigins {
			cfg.AllowOrigins = allowedOrigins
		}
	}
	return cors.New(cfg)
}
