package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mental-gin-backend/internal/config"
	"mental-gin-backend/internal/models"
)

// RedisService is the Redis-backed HistoryStore and RateLimiter.
type RedisService struct {
	client *redis.Client
}

func NewRedisService(ctx context.Context, cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{client: client}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

// AppendRound stores the record and indexes it by round number. Only the last
// MaxRoundsKept rounds of a game are kept in the index.
func (s *RedisService) AppendRound(ctx context.Context, rec *models.RoundRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal round: %w", err)
	}

	roundKey := fmt.Sprintf(KeyRound, rec.ID)
	indexKey := fmt.Sprintf(KeyGameRounds, rec.GameID)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, roundKey, data, TTLRound)
	pipe.ZAdd(ctx, indexKey, redis.Z{
		Score:  float64(rec.FinishedAt.UnixNano()),
		Member: rec.ID,
	})
	pipe.ZRemRangeByRank(ctx, indexKey, 0, -(MaxRoundsKept + 1))
	pipe.Expire(ctx, indexKey, TTLRound)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save round: %w", err)
	}
	return nil
}

// Rounds returns the newest rounds first.
func (s *RedisService) Rounds(ctx context.Context, gameID string, limit int64) ([]*models.RoundRecord, error) {
	limit = clampLimit(limit)

	indexKey := fmt.Sprintf(KeyGameRounds, gameID)
	ids, err := s.client.ZRevRange(ctx, indexKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get round IDs: %w", err)
	}
	if len(ids) == 0 {
		return []*models.RoundRecord{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(KeyRound, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pipeline execution failed: %w", err)
	}

	rounds := make([]*models.RoundRecord, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}
		var rec models.RoundRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			continue
		}
		rounds = append(rounds, &rec)
	}
	return rounds, nil
}

func (s *RedisService) DeleteGame(ctx context.Context, gameID string) error {
	indexKey := fmt.Sprintf(KeyGameRounds, gameID)
	ids, err := s.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to get round IDs: %w", err)
	}

	keys := []string{indexKey}
	for _, id := range ids {
		keys = append(keys, fmt.Sprintf(KeyRound, id))
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisService) CheckRateLimit(ctx context.Context, subject, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, subject, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(ctx context.Context, subject, action string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyRateLimit, subject, action)).Err()
}
