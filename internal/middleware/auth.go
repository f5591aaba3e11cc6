package middleware

import (
	"net/http"
	"strings"

	"limit_backend/internal/config"
	"limit_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 校验运营端 Bearer Token
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			util.Error(c, http.StatusUnauthorized, "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			util.Error(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(parts[1], cfg.JWT.Secret)
		if err != nil {
			util.Error(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("operator", claims)
		c.Next()
	}
}
