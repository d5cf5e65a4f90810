package bot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mental-gin-backend/internal/bot"
	"mental-gin-backend/internal/cards"
	"mental-gin-backend/internal/game"
)

func hand(names ...string) []cards.Card {
	out := make([]cards.Card, len(names))
	for i, n := range names {
		out[i] = cards.MustParse(n)
	}
	return out
}

func TestBestDiscard(t *testing.T) {
	h := hand("Hearts 3", "Hearts 4", "Hearts 5", "Spades K",
		"Clubs 7", "Diamonds 7", "Spades 7", "Clubs 2", "Diamonds A", "Hearts 9", "Clubs Q")

	idx, dw, err := bot.BestDiscard(h)
	require.NoError(t, err)
	assert.Equal(t, 3, idx, "first of the two tens goes")
	assert.Equal(t, 2+1+9+10, dw)

	_, _, err = bot.BestDiscard(nil)
	assert.Error(t, err)
}

func TestShouldTakeDiscard(t *testing.T) {
	h := hand("Hearts 3", "Hearts 4", "Spades K", "Clubs Q", "Diamonds J",
		"Clubs 7", "Diamonds 7", "Clubs 2", "Diamonds A", "Hearts 9")

	take, err := bot.ShouldTakeDiscard(h, cards.MustParse("Hearts 5"))
	require.NoError(t, err)
	assert.True(t, take)

	take, err = bot.ShouldTakeDiscard(h, cards.MustParse("Spades 10"))
	require.NoError(t, err)
	assert.False(t, take)
}

func TestPlayRound(t *testing.T) {
	g, err := game.New(game.Options{Rounds: 5})
	require.NoError(t, err)

	r, err := bot.PlayRound(g, 0)
	require.NoError(t, err)
	if r == nil {
		assert.Equal(t, 0, g.DeckSize())
		return
	}
	assert.Equal(t, game.RoundOver, g.Phase())
	assert.True(t, r.Winner.Valid())
	assert.Equal(t, r.Points, g.Scores()[r.Winner])
}

func TestPlayGame(t *testing.T) {
	g, err := game.New(game.Options{Rounds: 5, TargetScore: 30})
	require.NoError(t, err)

	results, over, err := bot.PlayGame(g, 40)
	require.NoError(t, err)

	total := map[game.PlayerID]int{}
	for _, r := range results {
		total[r.Winner] += r.Points
	}
	assert.Equal(t, total[game.Player1], g.Scores()[game.Player1])
	assert.Equal(t, total[game.Player2], g.Scores()[game.Player2])

	if over != nil {
		assert.GreaterOrEqual(t, over.Score, 30)
		assert.Equal(t, game.GameOver, g.Phase())
		assert.ErrorIs(t, g.ResetRound(false), game.ErrGameOver)
	}
}
