package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"mental-gin-backend/internal/models"
)

// HistoryStore keeps finished rounds per game.
type HistoryStore interface {
	AppendRound(ctx context.Context, rec *models.RoundRecord) error
	Rounds(ctx context.Context, gameID string, limit int64) ([]*models.RoundRecord, error)
	DeleteGame(ctx context.Context, gameID string) error
}

// RateLimiter counts actions per subject within a fixed window.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, subject, action string, limit int, window time.Duration) (bool, error)
}

// MemoryStore is the in-process HistoryStore and RateLimiter used when Redis
// is not reachable.
type MemoryStore struct {
	mu      sync.Mutex
	rounds  map[string][]*models.RoundRecord
	windows map[string]*window
}

type window struct {
	count   int
	expires time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rounds:  make(map[string][]*models.RoundRecord),
		windows: make(map[string]*window),
	}
}

func (m *MemoryStore) AppendRound(_ context.Context, rec *models.RoundRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *rec
	list := append(m.rounds[rec.GameID], &cp)
	if len(list) > MaxRoundsKept {
		list = list[len(list)-MaxRoundsKept:]
	}
	m.rounds[rec.GameID] = list
	return nil
}

// Rounds returns the newest rounds first.
func (m *MemoryStore) Rounds(_ context.Context, gameID string, limit int64) ([]*models.RoundRecord, error) {
	limit = clampLimit(limit)

	m.mu.Lock()
	defer m.mu.Unlock()

	list := slices.Clone(m.rounds[gameID])
	slices.Reverse(list)
	if int64(len(list)) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *MemoryStore) DeleteGame(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rounds, gameID)
	return nil
}

func (m *MemoryStore) CheckRateLimit(_ context.Context, subject, action string, limit int, win time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf(KeyRateLimit, subject, action)
	now := time.Now()
	w, ok := m.windows[key]
	if !ok || now.After(w.expires) {
		w = &window{expires: now.Add(win)}
		m.windows[key] = w
	}
	w.count++
	return w.count <= limit, nil
}

// PruneExpired drops rate limit windows that have run out and returns how
// many were removed.
func (m *MemoryStore) PruneExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, w := range m.windows {
		if now.After(w.expires) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}
