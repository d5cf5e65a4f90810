package services

import "mental-gin-backend/internal/models"

// Rate limit buckets shared by the REST middleware and the websocket.
const (
	BucketPlay  = "play"
	BucketReset = "reset"
	BucketStart = "start"
)

// ActionBucket names the bucket an action counts against and its per-minute
// limit. Joining is free.
func ActionBucket(t models.ActionType) (bucket string, limit int, limited bool) {
	switch t {
	case models.ActionJoin:
		return "", 0, false
	case models.ActionNewRound, models.ActionNewGame:
		return BucketReset, DefaultRateLimitResets, true
	}
	return BucketPlay, DefaultRateLimitActions, true
}

// SeatSubject keys per-seat limits.
func SeatSubject(gameID, seat string) string {
	return gameID + ":" + seat
}
