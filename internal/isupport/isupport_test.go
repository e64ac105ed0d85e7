package isupport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinesBatching(t *testing.T) {
	s := New(DefaultTokens())
	lines := s.Lines()
	require.Len(t, lines, 1, "expected 1 batch for 9 default tokens")
	last := lines[0][len(lines[0])-1]
	require.Equal(t, "are supported by this server", last)
}

func TestParsePrefixRank(t *testing.T) {
	p, err := ParsePrefix("(qaohv)~&@%+")
	require.NoError(t, err)
	require.Greater(t, p.Rank('q'), p.Rank('a'), "expected strictly descending rank order")
	require.Greater(t, p.Rank('a'), p.Rank('o'))
	require.Greater(t, p.Rank('o'), p.Rank('h'))
	require.Greater(t, p.Rank('h'), p.Rank('v'))
	require.Equal(t, byte('@'), p.Symbol('o'))
	require.Equal(t, 0, p.Rank('x'), "expected unknown mode to rank 0")
}

func TestParseChanModesTakesArgument(t *testing.T) {
	cm, err := ParseChanModes("beI,k,l,imnpst")
	require.NoError(t, err)
	require.True(t, cm.TakesArgument('b', true), "ban should always take an argument")
	require.True(t, cm.TakesArgument('b', false), "ban should always take an argument")
	require.True(t, cm.TakesArgument('l', true), "limit should take an argument when set")
	require.False(t, cm.TakesArgument('l', false), "limit should not take an argument when unset")
	require.False(t, cm.TakesArgument('m', true), "moderated should never take an argument")
	require.True(t, cm.IsListMode('e'), "expected 'e' to be a list mode")
}
