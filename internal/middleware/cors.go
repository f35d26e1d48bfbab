package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the admin console origins. "*" allows any origin without
// credentials.
func CORS(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID", "X-Requested-With", "Accept"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}

	for _, o := range origins {
		if o == "*" {
			config.AllowAllOrigins = true
			return cors.New(config)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	config.AllowOrigins = origins
	config.AllowCredentials = true
	config.AllowWildcard = true

	return cors.New(config)
}
