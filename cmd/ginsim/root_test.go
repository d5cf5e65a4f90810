package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShuffleCommand(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"shuffle", "--rounds", "4", "--parties", "alice,bob"})
	require.NoError(t, cmd.Execute())
}

func TestPlayCommand(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"play", "--shuffle-rounds", "2", "--target", "1", "--auto-knock", "--max-rounds", "20"})
	require.NoError(t, cmd.Execute())
}

func TestUnknownCommand(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"deal"})
	assert.Error(t, cmd.Execute())
}
