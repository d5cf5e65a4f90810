package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"mental-gin-backend/internal/services"
)

const (
	CtxGameID = "game_id"
	CtxSeat   = "seat"
)

// AuthMiddleware admits requests carrying a valid seat token, either as a
// Bearer header or as ?token= for the websocket upgrade.
func AuthMiddleware(jwtService *services.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
				c.Abort()
				return
			}
			tokenString = parts[1]
		} else {
			tokenString = c.Query("token")
			if tokenString == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
				c.Abort()
				return
			}
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(CtxGameID, claims.GameID)
		c.Set(CtxSeat, claims.Seat)

		c.Next()
	}
}

// RateLimitMiddleware throttles game actions per seat. Paths it does not
// recognise pass through.
func RateLimitMiddleware(limiter services.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID := c.GetString(CtxGameID)
		seat := c.GetString(CtxSeat)
		if gameID == "" || seat == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		path := c.Request.URL.Path

		var bucket string
		var limit int
		window := time.Minute

		switch {
		case strings.HasSuffix(path, "/new-round"), strings.HasSuffix(path, "/new-game"):
			bucket = services.BucketReset
			limit = services.DefaultRateLimitResets
		case strings.Contains(path, "/games/"):
			bucket = services.BucketPlay
			limit = services.DefaultRateLimitActions
		default:
			c.Next()
			return
		}

		allowed, err := limiter.CheckRateLimit(c.Request.Context(), services.SeatSubject(gameID, seat), bucket, limit, window)
		if err != nil || !allowed {
			tooMany(c, window)
			return
		}

		c.Next()
	}
}

// StartLimitMiddleware throttles game creation per client IP.
func StartLimitMiddleware(limiter services.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		window := time.Minute
		allowed, err := limiter.CheckRateLimit(c.Request.Context(), c.ClientIP(), services.BucketStart, services.DefaultRateLimitStarts, window)
		if err != nil || !allowed {
			tooMany(c, window)
			return
		}
		c.Next()
	}
}

func tooMany(c *gin.Context, window time.Duration) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":       "Rate limit exceeded",
		"retry_after": window.Seconds(),
	})
	c.Abort()
}
