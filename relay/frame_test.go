package relay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willmacd/dql-tetris/tetris"
)

func TestFrameStruct(t *testing.T) {
	snap := tetris.NewTestSnapshot(tetris.J)
	snap.Score = 40
	snap.Lines = 4
	f := FromSnapshot("alice", snap)
	f.SessionID = "abc"

	s, err := f.Struct()
	require.NoError(t, err)
	got, err := FrameFromStruct(s)
	require.NoError(t, err)

	assert.Equal(t, "abc", got.SessionID)
	assert.Equal(t, "alice", got.Name)
	assert.Equal(t, 40, got.Score)
	assert.Equal(t, 4, got.Lines)
	assert.Equal(t, snap.Next, got.Next)
	assert.Equal(t, snap.Grid, got.Grid)
	assert.Equal(t, snap.Grid, got.Snapshot().Grid)
}

func TestEncodeRows(t *testing.T) {
	g := tetris.NewGrid()
	g[19][0] = tetris.Color{R: 255, G: 165}
	rows := EncodeRows(g)
	require.Len(t, rows, tetris.Height)
	assert.Equal(t, "ffa500"+strings.Repeat("0", 54), rows[19])
}

func TestDecodeRowsRejectsBadInput(t *testing.T) {
	good := EncodeRows(tetris.NewGrid())
	tests := map[string][]string{
		"too few rows": good[:19],
		"short row":    append(append([]string{}, good[:19]...), "00"),
		"not hex":      append(append([]string{}, good[:19]...), "zz"+good[19][2:]),
	}
	for name, rows := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRows(rows)
			assert.ErrorIs(t, err, ErrBadFrame)
		})
	}
}

func TestSessionID(t *testing.T) {
	assert.Equal(t, "xyz", SessionID(SessionResponse("xyz")))
	assert.Equal(t, "", SessionID(SessionRequest("")))
	assert.Equal(t, "", SessionID(nil))
}
