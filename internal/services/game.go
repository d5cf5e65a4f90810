package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"mental-gin-backend/internal/game"
	"mental-gin-backend/internal/models"
	"mental-gin-backend/internal/shuffle"
)

var (
	ErrGameNotFound  = errors.New("game not found")
	ErrUnknownAction = errors.New("unknown action")
)

// GameEngine owns every running game. Games are independent instances, each
// serialising its own transitions.
type GameEngine struct {
	mu          sync.RWMutex
	activeGames map[string]*GameInstance

	history HistoryStore
	opts    game.Options
	logger  *zap.Logger

	listenersMu sync.Mutex
	onRemove    []func(gameID string)
}

type GameInstance struct {
	ID        string
	Game      *game.Game
	CreatedAt time.Time

	lastUpdate atomic.Int64
}

func (gi *GameInstance) touch() {
	gi.lastUpdate.Store(time.Now().UnixNano())
}

func (gi *GameInstance) LastUpdate() time.Time {
	return time.Unix(0, gi.lastUpdate.Load())
}

func NewGameEngine(opts game.Options, history HistoryStore, logger *zap.Logger) *GameEngine {
	if history == nil {
		history = NewMemoryStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameEngine{
		activeGames: make(map[string]*GameInstance),
		history:     history,
		opts:        opts,
		logger:      logger,
	}
}

// CreateGame builds and registers a new game. Key generation and the two-party
// shuffle run here, so this is the slow call.
func (ge *GameEngine) CreateGame(ctx context.Context) (*GameInstance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := models.GenerateGameID()
	start := time.Now()

	g, err := game.New(ge.opts)
	if err != nil {
		ge.logger.Error("game setup failed",
			zap.String("game_id", id),
			zap.Stringer("severity", game.SeverityOf(err)),
			zap.Error(err))
		return nil, err
	}

	instance := &GameInstance{ID: id, Game: g, CreatedAt: start}
	instance.touch()

	ge.mu.Lock()
	ge.activeGames[id] = instance
	ge.mu.Unlock()

	ge.logger.Info("game created",
		zap.String("game_id", id),
		zap.Int("shuffle_rounds", ge.opts.Rounds),
		zap.Duration("setup", time.Since(start)))
	return instance, nil
}

func (ge *GameEngine) GetGame(gameID string) (*GameInstance, bool) {
	ge.mu.RLock()
	defer ge.mu.RUnlock()
	instance, exists := ge.activeGames[gameID]
	return instance, exists
}

// OnRemove registers fn to be called with the id of every game that leaves
// the registry.
func (ge *GameEngine) OnRemove(fn func(gameID string)) {
	ge.listenersMu.Lock()
	ge.onRemove = append(ge.onRemove, fn)
	ge.listenersMu.Unlock()
}

func (ge *GameEngine) RemoveGame(gameID string) {
	ge.mu.Lock()
	_, existed := ge.activeGames[gameID]
	delete(ge.activeGames, gameID)
	ge.mu.Unlock()

	if existed {
		ge.notifyRemoved(gameID)
	}
}

func (ge *GameEngine) notifyRemoved(ids ...string) {
	ge.listenersMu.Lock()
	listeners := slices.Clone(ge.onRemove)
	ge.listenersMu.Unlock()

	for _, id := range ids {
		for _, fn := range listeners {
			fn(id)
		}
	}
}

func (ge *GameEngine) ActiveGames() int {
	ge.mu.RLock()
	defer ge.mu.RUnlock()
	return len(ge.activeGames)
}

// HandleAction applies one seat's action and returns the resulting deliveries.
// A refused action still yields deliveries for the acting seat; the error is
// returned alongside so callers can pick a status.
func (ge *GameEngine) HandleAction(ctx context.Context, gameID string, seat game.PlayerID, action models.Action) ([]models.Delivery, error) {
	instance, ok := ge.GetGame(gameID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	instance.touch()
	g := instance.Game

	log := ge.logger.With(
		zap.String("game_id", gameID),
		zap.String("seat", string(seat)),
		zap.String("action", string(action.Type)))

	switch action.Type {
	case models.ActionJoin:
		return ge.views(g, fmt.Sprintf("Joined as %s", seat), seat)

	case models.ActionDraw:
		source := action.Data.Source
		if source == "" {
			source = string(game.Stock)
		}
		msg, err := g.Draw(seat, game.Source(source))
		if err != nil {
			return ge.reject(log, g, seat, err)
		}
		return ge.views(g, msg, game.Seats...)

	case models.ActionDiscard:
		if action.Data.CardIndex == nil {
			return ge.reject(log, g, seat, game.ErrInvalidIndex)
		}
		msg, result, err := g.DiscardAndCheck(seat, *action.Data.CardIndex)
		if err != nil {
			return ge.reject(log, g, seat, err)
		}
		if result != nil {
			return ge.finishRound(ctx, log, instance, result), nil
		}
		return ge.views(g, msg, game.Seats...)

	case models.ActionKnock:
		result, err := g.Knock(seat)
		if err != nil {
			if game.SeverityOf(err) == game.Recoverable {
				log.Debug("knock refused", zap.Error(err))
				return []models.Delivery{{
					To:    string(seat),
					Event: models.EventKnockError,
					Data:  models.ErrorPayload{Error: game.Message(err)},
				}}, err
			}
			return ge.reject(log, g, seat, err)
		}
		return ge.finishRound(ctx, log, instance, result), nil

	case models.ActionMoveCard:
		if action.Data.FromIndex == nil || action.Data.ToIndex == nil {
			return ge.reject(log, g, seat, game.ErrInvalidIndex)
		}
		if err := g.MoveCard(seat, *action.Data.FromIndex, *action.Data.ToIndex); err != nil {
			return ge.reject(log, g, seat, err)
		}
		return ge.views(g, "Hand reordered", seat)

	case models.ActionNewRound:
		if err := g.ResetRound(false); err != nil {
			return ge.reject(log, g, seat, err)
		}
		log.Info("new round", zap.Int("round", g.Round()))
		return ge.views(g, "New round started", game.Seats...)

	case models.ActionNewGame:
		if err := g.ResetRound(true); err != nil {
			return ge.reject(log, g, seat, err)
		}
		log.Info("new game")
		return ge.views(g, "New game started", game.Seats...)
	}

	log.Debug("unknown action")
	return []models.Delivery{{
		To:    string(seat),
		Event: models.EventError,
		Data:  models.ErrorPayload{Error: fmt.Sprintf("Unknown action %q", action.Type)},
	}}, ErrUnknownAction
}

// views builds one update_game delivery per listed seat, each with that seat's
// own hand.
func (ge *GameEngine) views(g *game.Game, message string, seats ...game.PlayerID) ([]models.Delivery, error) {
	out := make([]models.Delivery, 0, len(seats))
	for _, seat := range seats {
		snap, err := g.View(seat, message)
		if err != nil {
			return out, err
		}
		out = append(out, models.Delivery{
			To:    string(seat),
			Event: models.EventUpdateGame,
			Data:  models.NewGameState(snap),
		})
	}
	return out, nil
}

// reject reports a refused action to the acting seat only. Recoverable errors
// come back as an ordinary state update carrying the message.
func (ge *GameEngine) reject(log *zap.Logger, g *game.Game, seat game.PlayerID, err error) ([]models.Delivery, error) {
	sev := game.SeverityOf(err)
	switch sev {
	case game.Recoverable:
		log.Debug("action rejected", zap.Error(err))
		if out, viewErr := ge.views(g, game.Message(err), seat); viewErr == nil {
			return out, err
		}
	case game.FatalSetup:
		log.Error("secure shuffle failed, round not dealt", zap.Error(err))
	default:
		log.Error("invariant violation", zap.Error(err))
	}

	return []models.Delivery{{
		To:    string(seat),
		Event: models.EventError,
		Data:  models.ErrorPayload{Error: game.Message(err), Severity: sev.String()},
	}}, err
}

// finishRound records the round and announces it to both seats, followed by
// game_over when the target score has been reached.
func (ge *GameEngine) finishRound(ctx context.Context, log *zap.Logger, instance *GameInstance, result *game.RoundResult) []models.Delivery {
	g := instance.Game
	over := g.CheckGameOver()
	scores := g.Scores()

	rec := &models.RoundRecord{
		ID:         models.GenerateRoundID(instance.ID, result.Round),
		GameID:     instance.ID,
		Round:      result.Round,
		Winner:     string(result.Winner),
		Reason:     string(result.Reason),
		Points:     result.Points,
		Scores:     models.Scores(scores),
		GameOver:   over != nil,
		FinishedAt: time.Now(),
	}
	if err := ge.history.AppendRound(ctx, rec); err != nil {
		log.Warn("failed to record round", zap.Error(err))
	}

	log.Info("round over",
		zap.Int("round", result.Round),
		zap.String("winner", string(result.Winner)),
		zap.String("reason", string(result.Reason)),
		zap.Int("points", result.Points))

	out := []models.Delivery{{
		Event: models.EventRoundOver,
		Data:  models.NewRoundOver(result, scores),
	}}
	if over != nil {
		log.Info("game over", zap.String("winner", string(over.Winner)), zap.Int("score", over.Score))
		out = append(out, models.Delivery{
			Event: models.EventGameOver,
			Data:  models.NewGameOver(over, scores),
		})
	}
	return out
}

// State returns seat's current view without changing anything.
func (ge *GameEngine) State(gameID string, seat game.PlayerID) (*models.GameState, error) {
	instance, ok := ge.GetGame(gameID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	snap, err := instance.Game.View(seat, "")
	if err != nil {
		return nil, err
	}
	return models.NewGameState(snap), nil
}

func (ge *GameEngine) Transcripts(gameID string) ([]shuffle.Transcript, error) {
	instance, ok := ge.GetGame(gameID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return instance.Game.Transcripts(), nil
}

func (ge *GameEngine) History(ctx context.Context, gameID string, limit int64) ([]*models.RoundRecord, error) {
	return ge.history.Rounds(ctx, gameID, limit)
}

func (ge *GameEngine) SeatInfo(gameID string, seat game.PlayerID) (*models.SeatInfo, error) {
	instance, ok := ge.GetGame(gameID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	g := instance.Game
	return &models.SeatInfo{
		GameID:   gameID,
		Seat:     string(seat),
		Opponent: string(seat.Opponent()),
		Phase:    string(g.Phase()),
		Round:    g.Round(),
		Scores:   models.Scores(g.Scores()),
	}, nil
}

// CleanupStaleGames drops games with no action for longer than maxAge.
func (ge *GameEngine) CleanupStaleGames(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	ge.mu.Lock()
	var removed []string
	for id, instance := range ge.activeGames {
		if instance.LastUpdate().Before(cutoff) {
			delete(ge.activeGames, id)
			removed = append(removed, id)
		}
	}
	active := len(ge.activeGames)
	ge.mu.Unlock()

	if len(removed) > 0 {
		ge.logger.Info("removed stale games", zap.Int("count", len(removed)), zap.Int("active", active))
		ge.notifyRemoved(removed...)
	}
	return len(removed)
}
