package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"mental-gin-backend/internal/elgamal"
	"mental-gin-backend/internal/game"
	"mental-gin-backend/internal/shuffle"
)

const devJWTSecret = "dev-only-secret-change-me"

type Config struct {
	Port      string
	Env       string
	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string
	TokenTTL  time.Duration

	ShuffleRounds  int
	KeyBits        int
	TargetScore    int
	AutoKnock      bool
	StaleGameAfter time.Duration
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", 12*time.Hour)
	v.SetDefault("SHUFFLE_ROUNDS", shuffle.DefaultRounds)
	v.SetDefault("KEY_BITS", elgamal.MinBits)
	v.SetDefault("TARGET_SCORE", game.DefaultTargetScore)
	v.SetDefault("AUTO_KNOCK", false)
	v.SetDefault("STALE_GAME_AFTER", 2*time.Hour)

	cfg := &Config{
		Port:           v.GetString("PORT"),
		Env:            v.GetString("APP_ENV"),
		RedisURL:       v.GetString("REDIS_URL"),
		RedisPass:      v.GetString("REDIS_PASSWORD"),
		RedisDB:        v.GetInt("REDIS_DB"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		TokenTTL:       v.GetDuration("TOKEN_TTL"),
		ShuffleRounds:  v.GetInt("SHUFFLE_ROUNDS"),
		KeyBits:        v.GetInt("KEY_BITS"),
		TargetScore:    v.GetInt("TARGET_SCORE"),
		AutoKnock:      v.GetBool("AUTO_KNOCK"),
		StaleGameAfter: v.GetDuration("STALE_GAME_AFTER"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.JWTSecret = devJWTSecret
	}
	if c.KeyBits < elgamal.MinBits {
		return fmt.Errorf("KEY_BITS must be at least %d, got %d", elgamal.MinBits, c.KeyBits)
	}
	if c.ShuffleRounds <= 0 {
		return fmt.Errorf("SHUFFLE_ROUNDS must be positive, got %d", c.ShuffleRounds)
	}
	if c.TargetScore <= 0 {
		return fmt.Errorf("TARGET_SCORE must be positive, got %d", c.TargetScore)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	return nil
}

// GameOptions maps the configuration onto per-game options.
func (c *Config) GameOptions() game.Options {
	return game.Options{
		Rounds:      c.ShuffleRounds,
		KeyBits:     c.KeyBits,
		TargetScore: c.TargetScore,
		AutoKnock:   c.AutoKnock,
	}
}
