package services

import "time"

const (
	KeyRound      = "round:%s"
	KeyGameRounds = "game:%s:rounds"
	KeyRateLimit  = "ratelimit:%s:%s"

	TTLRound = 7 * 24 * time.Hour // 7 days

	MaxRoundsKept      = 100
	DefaultRoundsLimit = 50

	DefaultRateLimitActions = 120 // Max 120 game actions per minute per seat
	DefaultRateLimitResets  = 10  // Max 10 new rounds/games per minute per seat
	DefaultRateLimitStarts  = 20  // Max 20 new games per minute per client IP
)

// clampLimit maps a requested page size onto (0, MaxRoundsKept].
func clampLimit(limit int64) int64 {
	switch {
	case limit <= 0:
		return DefaultRoundsLimit
	case limit > MaxRoundsKept:
		return MaxRoundsKept
	}
	return limit
}
