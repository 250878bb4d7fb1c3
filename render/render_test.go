package render

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willmacd/dql-tetris/tetris"
)

func TestBoard(t *testing.T) {
	s := tetris.Snapshot{Grid: tetris.NewGrid(), Next: tetris.I, Score: 30, HighScore: 90}
	s.Grid[19][0] = tetris.Color{R: 255}

	img := New(nil).Board(s)
	require.Equal(t, Width, img.Bounds().Dx())
	require.Equal(t, Height, img.Bounds().Dy())

	center := func(x, y int) (r, g, b uint32) {
		r, g, b, _ = img.At(pad+x*BlockSize+BlockSize/2, header+y*BlockSize+BlockSize/2).RGBA()
		return r >> 8, g >> 8, b >> 8
	}

	r, g, b := center(0, 19)
	assert.Equal(t, []uint32{255, 0, 0}, []uint32{r, g, b}, "locked cell")
	r, g, b = center(5, 10)
	assert.Equal(t, []uint32{0, 0, 0}, []uint32{r, g, b}, "empty cell")

	br, bg, bb, _ := img.At(pad, header+boardH/2).RGBA()
	assert.Greater(t, br>>8, uint32(200), "border")
	assert.Greater(t, bg>>8, uint32(200), "border")
	assert.Greater(t, bb>>8, uint32(200), "border")
}

func TestThumbnail(t *testing.T) {
	r := New(nil)
	s := tetris.NewTestSnapshot(tetris.T)

	img := r.Thumbnail(s, 104)
	assert.Equal(t, 104, img.Bounds().Dx())
	assert.Equal(t, Height*104/Width, img.Bounds().Dy())

	assert.Equal(t, Width, r.Thumbnail(s, 0).Bounds().Dx())
	assert.Equal(t, Width, r.Thumbnail(s, Width*2).Bounds().Dx())
}

func TestPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(nil).PNG(&buf, tetris.NewTestSnapshot(tetris.S), 0))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, Width, img.Bounds().Dx())
}
