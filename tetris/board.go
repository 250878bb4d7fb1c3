package tetris

import (
	"cmp"
	"slices"

	"github.com/kamstrup/intmap"
)

const (
	Width  = 10
	Height = 20
)

// Grid is a snapshot of the board. Rows are 0 > 19 top to bottom and columns
// 0 > 9 left to right, so a cell is addressed as grid[y][x].
//
// .	0 1 2 3 4 5 6 7 8 9
// -2	. . . . . . . . . .	<- spawn buffer, never stored or rendered
// -1	. . . . . . . . . .
// 0	X X X X X X X X X X	<- a locked cell here ends the game
// ...
// 19	X X X X X X X X X X
type Grid [][]Color

// NewGrid returns an empty Width x Height grid.
func NewGrid() Grid {
	g := make(Grid, Height)
	for y := range g {
		g[y] = make([]Color, Width)
	}
	return g
}

func (g Grid) Copy() Grid {
	out := make(Grid, len(g))
	for y := range g {
		out[y] = slices.Clone(g[y])
	}
	return out
}

// Open reports whether (x, y) lies on the visible board and holds nothing.
func (g Grid) Open(x, y int) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	return g[y][x].IsEmpty()
}

// Cell is a board coordinate used as the key of locked cells.
type Cell struct {
	X, Y int
}

// Compare orders cells by row, then column.
func (c Cell) Compare(o Cell) int {
	if r := cmp.Compare(c.Y, o.Y); r != 0 {
		return r
	}
	return cmp.Compare(c.X, o.X)
}

func (c Cell) inBounds() bool {
	return c.X >= 0 && c.X < Width && c.Y >= 0 && c.Y < Height
}

type cellKey uint32

func (c Cell) key() cellKey  { return cellKey(uint32(c.Y)<<16 | uint32(c.X)) }
func (k cellKey) cell() Cell { return Cell{X: int(k & 0xffff), Y: int(k >> 16)} }

// LockedCells holds the frozen cells of previously placed pieces.
// Every key lies on the visible board.
type LockedCells struct {
	m *intmap.Map[cellKey, Color]
}

func NewLockedCells() *LockedCells {
	return &LockedCells{m: intmap.New[cellKey, Color](Width * Height)}
}

// Set stores a cell. Cells off the visible board are refused.
func (l *LockedCells) Set(c Cell, col Color) bool {
	if !c.inBounds() {
		return false
	}
	l.m.Put(c.key(), col)
	return true
}

func (l *LockedCells) Get(c Cell) (Color, bool) {
	if !c.inBounds() {
		return Empty, false
	}
	return l.m.Get(c.key())
}

func (l *LockedCells) Has(c Cell) bool {
	_, ok := l.Get(c)
	return ok
}

func (l *LockedCells) Delete(c Cell) {
	if c.inBounds() {
		l.m.Del(c.key())
	}
}

func (l *LockedCells) Len() int { return l.m.Len() }

// Cells returns every locked cell sorted by row, then column.
func (l *LockedCells) Cells() []Cell {
	cells := make([]Cell, 0, l.m.Len())
	l.m.ForEach(func(k cellKey, _ Color) bool {
		cells = append(cells, k.cell())
		return true
	})
	slices.SortFunc(cells, Cell.Compare)
	return cells
}

// Grid materialises the locked cells into a board snapshot.
func (l *LockedCells) Grid() Grid {
	g := NewGrid()
	l.m.ForEach(func(k cellKey, col Color) bool {
		c := k.cell()
		g[c.Y][c.X] = col
		return true
	})
	return g
}
