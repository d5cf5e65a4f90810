package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mental-gin-backend/internal/config"
	"mental-gin-backend/internal/handlers"
	"mental-gin-backend/internal/middleware"
	"mental-gin-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	var (
		history services.HistoryStore
		limiter services.RateLimiter
		mem     *services.MemoryStore
	)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	redisService, err := services.NewRedisService(ctx, cfg)
	cancel()
	if err != nil {
		if cfg.IsProduction() {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		logger.Warn("redis unavailable, keeping history in memory", zap.Error(err))
		mem = services.NewMemoryStore()
		history, limiter = mem, mem
	} else {
		defer redisService.Close()
		history, limiter = redisService, redisService
	}

	jwtService := services.NewJWTService(cfg)

	gameEngine := services.NewGameEngine(cfg.GameOptions(), history, logger)
	wsHandler := handlers.NewWebSocketHandler(gameEngine, limiter, logger)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			gameEngine.CleanupStaleGames(cfg.StaleGameAfter)
			if mem != nil {
				mem.PruneExpired()
			}
		}
	}()

	gameHandler := handlers.NewGameHandler(gameEngine, jwtService, wsHandler, logger)
	seatHandler := handlers.NewSeatHandler(gameEngine)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.POST("/games", middleware.StartLimitMiddleware(limiter), gameHandler.StartGame)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(limiter))
	{
		protected.GET("/me", seatHandler.GetCurrentSeat)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		games := protected.Group("/games")
		{
			games.GET("/state", gameHandler.GetState)
			games.GET("/history", gameHandler.GetHistory)
			games.GET("/shuffle", gameHandler.GetShuffle)

			games.POST("/draw", gameHandler.Draw)
			games.POST("/discard", gameHandler.Discard)
			games.POST("/knock", gameHandler.Knock)
			games.POST("/move", gameHandler.MoveCard)
			games.POST("/new-round", gameHandler.NewRound)
			games.POST("/new-game", gameHandler.NewGame)
		}
	}

	logger.Info("server starting",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.Int("shuffle_rounds", cfg.ShuffleRounds),
		zap.Int("key_bits", cfg.KeyBits))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
