package gui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willmacd/dql-tetris/tetris"
)

type memStore struct{ saved []int }

func (m *memStore) Load() (int, error) { return 0, nil }
func (m *memStore) Save(n int) error {
	m.saved = append(m.saved, n)
	return nil
}

func newTestDriver(store *memStore) *Driver {
	c := tetris.NewCatalog()
	return NewDriver(&Options{
		Catalog: c,
		Session: tetris.SessionOptions{Spawner: tetris.NewSeededSpawner(c, 3), HighScore: 50},
		Store:   store,
	})
}

func TestDriverGravity(t *testing.T) {
	d := newTestDriver(nil)
	start := d.Tick(0, nil).Piece

	assert.Equal(t, start, d.Tick(349*time.Millisecond, nil).Piece, "no fall before the interval")
	after := d.Tick(time.Millisecond, nil).Piece
	assert.Equal(t, start.Y+1, after.Y)
	assert.Equal(t, start.X, after.X)
}

func TestDriverActions(t *testing.T) {
	d := newTestDriver(nil)
	start := d.Tick(0, nil).Piece
	got := d.Tick(0, []tetris.Action{tetris.MoveLeft, tetris.MoveDown}).Piece
	assert.Equal(t, start.X-1, got.X)
	assert.Equal(t, start.Y+1, got.Y)
}

func TestDriverGameOver(t *testing.T) {
	store := &memStore{}
	d := newTestDriver(store)

	var snap tetris.Snapshot
	for i := 0; i < 10000 && !d.Over(); i++ {
		snap = d.Tick(time.Second, nil)
	}
	require.True(t, d.Over())
	assert.True(t, snap.GameOver)
	assert.Equal(t, 50, snap.HighScore)

	d.Tick(time.Second, []tetris.Action{tetris.MoveLeft})
	assert.Len(t, store.saved, 1, "the score is saved once per game")

	d.Restart()
	assert.False(t, d.Over())
	snap = d.Tick(0, nil)
	assert.False(t, snap.GameOver)
	assert.Equal(t, 50, snap.HighScore)
	assert.Equal(t, 0, snap.Score)
}
