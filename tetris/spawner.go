package tetris

import (
	"math/rand/v2"
	"time"
)

// Spawner draws pieces uniformly at random, with no bag and no repeat control.
type Spawner struct {
	catalog *Catalog
	shapes  []Shape
	rng     *rand.Rand
}

// NewSpawner returns a spawner seeded from the clock.
func NewSpawner(c *Catalog) *Spawner {
	return NewSeededSpawner(c, uint64(time.Now().UnixNano()))
}

// NewSeededSpawner returns a spawner that always draws the same sequence for a seed.
func NewSeededSpawner(c *Catalog, seed uint64) *Spawner {
	return &Spawner{
		catalog: c,
		shapes:  c.Shapes(),
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (s *Spawner) Spawn() Piece {
	return s.catalog.MustNewPiece(s.shapes[s.rng.IntN(len(s.shapes))])
}

// MustNewPiece places a shape on its spawn anchor with rotation 0.
//
// .	0 1 2 3 4 5 6 7 8 9		S, Z, O anchor (5, 2)
// 0	. . . . O O . . . .		I, J, L, T anchor (5, 3)
// 1	. . . . O O . . . .
func (c *Catalog) MustNewPiece(s Shape) Piece {
	def, ok := c.defs[s]
	if !ok {
		panic(&UnknownShapeError{Shape: s})
	}
	return Piece{Shape: s, X: def.SpawnX, Y: def.SpawnY}
}
