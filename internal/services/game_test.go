package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mental-gin-backend/internal/bot"
	"mental-gin-backend/internal/game"
	"mental-gin-backend/internal/models"
	"mental-gin-backend/internal/services"
)

func newEngine(t *testing.T, opts game.Options) (*services.GameEngine, *services.MemoryStore) {
	t.Helper()
	if opts.Rounds == 0 {
		opts.Rounds = 5
	}
	store := services.NewMemoryStore()
	return services.NewGameEngine(opts, store, zaptest.NewLogger(t)), store
}

func intPtr(v int) *int { return &v }

func state(t *testing.T, d models.Delivery) *models.GameState {
	t.Helper()
	require.Equal(t, models.EventUpdateGame, d.Event)
	st, ok := d.Data.(*models.GameState)
	require.True(t, ok, "unexpected payload %T", d.Data)
	return st
}

func TestGameEngineLifecycle(t *testing.T) {
	engine, _ := newEngine(t, game.Options{})
	ctx := context.Background()

	instance, err := engine.CreateGame(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, instance.ID)
	assert.Equal(t, 1, engine.ActiveGames())

	got, ok := engine.GetGame(instance.ID)
	require.True(t, ok)
	assert.Same(t, instance, got)

	t.Run("join reaches only the joining seat", func(t *testing.T) {
		out, err := engine.HandleAction(ctx, instance.ID, game.Player2, models.Action{Type: models.ActionJoin})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "player2", out[0].To)

		st := state(t, out[0])
		assert.Equal(t, "Joined as player2", st.Message)
		assert.Len(t, st.Hand, game.HandSize)
		assert.Equal(t, game.HandSize, st.OpponentCount)
		assert.NotNil(t, st.DiscardString)
	})

	t.Run("out of turn draw is reported to the actor", func(t *testing.T) {
		out, err := engine.HandleAction(ctx, instance.ID, game.Player2, models.Action{Type: models.ActionDraw})
		assert.ErrorIs(t, err, game.ErrNotYourTurn)
		require.Len(t, out, 1)
		assert.Equal(t, "player2", out[0].To)
		assert.Equal(t, "Not your turn!", state(t, out[0]).Message)
	})

	t.Run("draw updates both seats", func(t *testing.T) {
		out, err := engine.HandleAction(ctx, instance.ID, game.Player1, models.Action{
			Type: models.ActionDraw,
			Data: models.ActionData{Source: "stock"},
		})
		require.NoError(t, err)
		require.Len(t, out, 2)

		p1, p2 := state(t, out[0]), state(t, out[1])
		assert.Equal(t, "player1", out[0].To)
		assert.Equal(t, "player2", out[1].To)
		assert.Len(t, p1.Hand, game.HandSize+1)
		assert.Len(t, p2.Hand, game.HandSize)
		assert.Equal(t, game.HandSize+1, p2.OpponentCount)
		require.NotNil(t, p1.Pending)
		assert.Equal(t, "player1", *p1.Pending)
	})

	t.Run("knock while opponent is mid turn", func(t *testing.T) {
		out, err := engine.HandleAction(ctx, instance.ID, game.Player2, models.Action{Type: models.ActionKnock})
		assert.ErrorIs(t, err, game.ErrNotYourTurn)
		require.Len(t, out, 1)
		assert.Equal(t, models.EventKnockError, out[0].Event)
		assert.Equal(t, models.ErrorPayload{Error: "Not your turn!"}, out[0].Data)
	})

	t.Run("discard without index", func(t *testing.T) {
		_, err := engine.HandleAction(ctx, instance.ID, game.Player1, models.Action{Type: models.ActionDiscard})
		assert.ErrorIs(t, err, game.ErrInvalidIndex)
	})

	t.Run("discard flips the turn", func(t *testing.T) {
		out, err := engine.HandleAction(ctx, instance.ID, game.Player1, models.Action{
			Type: models.ActionDiscard,
			Data: models.ActionData{CardIndex: intPtr(0)},
		})
		require.NoError(t, err)
		if len(out) == 2 && out[0].Event == models.EventUpdateGame {
			st := state(t, out[0])
			assert.Equal(t, "player2", st.Turn)
			assert.Nil(t, st.Pending)
		}
	})

	t.Run("reorder reaches only the actor", func(t *testing.T) {
		out, err := engine.HandleAction(ctx, instance.ID, game.Player2, models.Action{
			Type: models.ActionMoveCard,
			Data: models.ActionData{FromIndex: intPtr(0), ToIndex: intPtr(3)},
		})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "Hand reordered", state(t, out[0]).Message)
	})

	t.Run("new round and new game redeal both seats", func(t *testing.T) {
		out, err := engine.HandleAction(ctx, instance.ID, game.Player1, models.Action{Type: models.ActionNewRound})
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, 2, state(t, out[0]).Round)

		out, err = engine.HandleAction(ctx, instance.ID, game.Player2, models.Action{Type: models.ActionNewGame})
		require.NoError(t, err)
		require.Len(t, out, 2)
		st := state(t, out[1])
		assert.Equal(t, "New game started", st.Message)
		assert.Equal(t, 1, st.Round)
		assert.Equal(t, map[string]int{"player1": 0, "player2": 0}, st.Scores)
	})

	t.Run("unknown action", func(t *testing.T) {
		out, err := engine.HandleAction(ctx, instance.ID, game.Player1, models.Action{Type: "shuffle_again"})
		assert.ErrorIs(t, err, services.ErrUnknownAction)
		require.Len(t, out, 1)
		assert.Equal(t, models.EventError, out[0].Event)
	})

	t.Run("state, seat info and transcripts", func(t *testing.T) {
		st, err := engine.State(instance.ID, game.Player1)
		require.NoError(t, err)
		assert.Len(t, st.Hand, game.HandSize)

		info, err := engine.SeatInfo(instance.ID, game.Player1)
		require.NoError(t, err)
		assert.Equal(t, "player2", info.Opponent)

		ts, err := engine.Transcripts(instance.ID)
		require.NoError(t, err)
		assert.Len(t, ts, 2)
	})
}

func TestGameEngineUnknownGame(t *testing.T) {
	engine, _ := newEngine(t, game.Options{})

	_, err := engine.HandleAction(context.Background(), "missing", game.Player1, models.Action{Type: models.ActionJoin})
	assert.ErrorIs(t, err, services.ErrGameNotFound)
	_, err = engine.State("missing", game.Player1)
	assert.ErrorIs(t, err, services.ErrGameNotFound)
	_, err = engine.Transcripts("missing")
	assert.ErrorIs(t, err, services.ErrGameNotFound)
}

func TestGameEngineRecordsRounds(t *testing.T) {
	engine, store := newEngine(t, game.Options{AutoKnock: true})
	ctx := context.Background()

	instance, err := engine.CreateGame(ctx)
	require.NoError(t, err)
	g := instance.Game

	var roundOver *models.RoundOver
	for attempt := 0; attempt < 10 && roundOver == nil; attempt++ {
		if attempt > 0 {
			_, err := engine.HandleAction(ctx, instance.ID, game.Player1, models.Action{Type: models.ActionNewRound})
			require.NoError(t, err)
		}
		for g.DeckSize() > 0 && roundOver == nil {
			seat := g.Turn()
			_, err := engine.HandleAction(ctx, instance.ID, seat, models.Action{Type: models.ActionDraw})
			require.NoError(t, err)

			hand, err := g.HandValues(seat)
			require.NoError(t, err)
			idx, _, err := bot.BestDiscard(hand)
			require.NoError(t, err)

			out, err := engine.HandleAction(ctx, instance.ID, seat, models.Action{
				Type: models.ActionDiscard,
				Data: models.ActionData{CardIndex: &idx},
			})
			require.NoError(t, err)
			if out[0].Event == models.EventRoundOver {
				assert.Empty(t, out[0].To)
				roundOver = out[0].Data.(*models.RoundOver)
			}
		}
	}
	require.NotNil(t, roundOver, "no round finished in ten deals")

	rounds, err := store.Rounds(ctx, instance.ID, 10)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Equal(t, roundOver.Winner, rounds[0].Winner)
	assert.Equal(t, roundOver.Points, rounds[0].Points)

	history, err := engine.History(ctx, instance.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCleanupStaleGames(t *testing.T) {
	engine, _ := newEngine(t, game.Options{})
	instance, err := engine.CreateGame(context.Background())
	require.NoError(t, err)

	var removed []string
	engine.OnRemove(func(id string) { removed = append(removed, id) })

	assert.Equal(t, 0, engine.CleanupStaleGames(time.Hour))
	assert.Equal(t, 1, engine.ActiveGames())
	assert.Empty(t, removed)

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, engine.CleanupStaleGames(time.Millisecond))
	assert.Equal(t, 0, engine.ActiveGames())
	assert.Equal(t, []string{instance.ID}, removed)
}

func TestRemoveGameNotifiesOnce(t *testing.T) {
	engine, _ := newEngine(t, game.Options{})
	instance, err := engine.CreateGame(context.Background())
	require.NoError(t, err)

	calls := 0
	engine.OnRemove(func(id string) {
		assert.Equal(t, instance.ID, id)
		calls++
	})

	engine.RemoveGame(instance.ID)
	engine.RemoveGame(instance.ID)
	assert.Equal(t, 1, calls)
}

func TestCreateGameHonoursCancelledContext(t *testing.T) {
	engine, _ := newEngine(t, game.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.CreateGame(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, engine.ActiveGames())
}
