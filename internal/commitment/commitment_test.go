package commitment_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mental-gin-backend/internal/commitment"
)

func TestCommitOpen(t *testing.T) {
	salt, err := commitment.NewSalt()
	require.NoError(t, err)
	require.Len(t, salt, commitment.SaltSize)

	d := commitment.Commit([]byte("Hearts A"), salt)
	assert.True(t, commitment.Open(d, []byte("Hearts A"), salt))
	assert.False(t, commitment.Open(d, []byte("Hearts 2"), salt))

	other, err := commitment.NewSalt()
	require.NoError(t, err)
	assert.False(t, commitment.Open(d, []byte("Hearts A"), other))
}

func TestCommitIsLengthPrefixed(t *testing.T) {
	a := commitment.Commit([]byte("ab"), []byte("c"))
	b := commitment.Commit([]byte("a"), []byte("bc"))
	assert.NotEqual(t, a, b)
}

func hand(n int) [][]byte {
	cards := make([][]byte, n)
	for i := range cards {
		cards[i] = []byte(fmt.Sprintf("card-%02d", i+1))
	}
	return cards
}

func TestHandProofs(t *testing.T) {
	cards := hand(11)
	table, err := commitment.CommitHand(cards)
	require.NoError(t, err)
	assert.Equal(t, len(cards), table.Len())

	t.Run("every committed card proves and verifies", func(t *testing.T) {
		for _, c := range cards {
			proof, err := table.Prove(c)
			require.NoError(t, err)
			assert.True(t, table.Verify(proof), "card %s", c)
		}
	})

	t.Run("uncommitted card is not found", func(t *testing.T) {
		_, err := table.Prove([]byte("card-99"))
		assert.ErrorIs(t, err, commitment.ErrCardNotFound)
	})

	t.Run("tampered salt fails", func(t *testing.T) {
		proof, err := table.Prove(cards[3])
		require.NoError(t, err)
		proof.Salt[0] ^= 0xff
		assert.False(t, table.Verify(proof))
	})

	t.Run("swapped card fails", func(t *testing.T) {
		proof, err := table.Prove(cards[3])
		require.NoError(t, err)
		proof.Card = cards[4]
		assert.False(t, table.Verify(proof))
	})

	t.Run("unknown card fails", func(t *testing.T) {
		proof, err := table.Prove(cards[0])
		require.NoError(t, err)
		proof.Card = []byte("card-99")
		assert.False(t, table.Verify(proof))
	})

	t.Run("proof does not alias the table", func(t *testing.T) {
		proof, err := table.Prove(cards[5])
		require.NoError(t, err)
		proof.Salt[0] ^= 0x01

		fresh, err := table.Prove(cards[5])
		require.NoError(t, err)
		assert.True(t, table.Verify(fresh))
	})
}

func TestCommitHandUsesFreshSalts(t *testing.T) {
	cards := hand(2)
	first, err := commitment.CommitHand(cards)
	require.NoError(t, err)
	second, err := commitment.CommitHand(cards)
	require.NoError(t, err)

	a, ok := first.Lookup(cards[0])
	require.True(t, ok)
	b, ok := second.Lookup(cards[0])
	require.True(t, ok)
	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Commitment, b.Commitment)
}
