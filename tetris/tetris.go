// Package tetris contains the logic of the game: the piece catalog, the board,
// movement validity, locking, line clears and loss detection.
package tetris

// offsetX and offsetY take the template padding back out of resolved cells.
// They are the same for every shape.
const (
	offsetX = -2
	offsetY = -4
)

// Piece is the tetromino currently in play. X and Y are the anchor; Y is
// negative while the piece sits in the spawn buffer above row 0.
type Piece struct {
	Shape    Shape
	Rotation int
	X, Y     int
}

// Move is a speculative change to a piece.
type Move struct {
	DX, DY int
	Rotate int
}

var (
	moveLeft  = Move{DX: -1}
	moveRight = Move{DX: 1}
	moveDown  = Move{DY: 1}
	rotate    = Move{Rotate: 1}
)

// mod is the non-negative remainder of a / n.
func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}

// Template returns the rotation state the piece currently shows.
func (c *Catalog) Template(p Piece) Template {
	rot, _ := c.MustLookup(p.Shape)
	return rot[mod(p.Rotation, len(rot))]
}

// Cells resolves the piece into absolute board coordinates.
//
// .	0 1 2 3 4			anchor (5, 3), T piece, rotation 0
// 0	. . . . .
// 1	. . 0 . .		->	(5+2-2, 3+1-4) = (5, 0)
// 2	. 0 0 0 .		->	(4, 1) (5, 1) (6, 1)
// 3	. . . . .
// 4	. . . . .
func (c *Catalog) Cells(p Piece) []Cell {
	tpl := c.Template(p)
	cells := make([]Cell, 0, 4)
	for row := range tpl {
		for col, filled := range tpl[row] {
			if filled {
				cells = append(cells, Cell{X: p.X + col + offsetX, Y: p.Y + row + offsetY})
			}
		}
	}
	return cells
}

// Valid reports whether every cell of the piece may occupy the board.
// Cells still in the spawn buffer (Y < 0) are never constrained, whatever their
// column; cells on the visible board must be in bounds and empty.
func (c *Catalog) Valid(p Piece, g Grid) bool {
	for _, cell := range c.Cells(p) {
		if cell.Y < 0 {
			continue
		}
		if !g.Open(cell.X, cell.Y) {
			return false
		}
	}
	return true
}

// Apply returns the piece with the move applied, valid or not.
func (c *Catalog) Apply(p Piece, m Move) Piece {
	p.X += m.DX
	p.Y += m.DY
	if m.Rotate != 0 {
		rot, _ := c.MustLookup(p.Shape)
		p.Rotation = mod(p.Rotation+m.Rotate, len(rot))
	}
	return p
}

// TryMove applies m to p and validates the result against g. It returns the
// moved piece and true, or p untouched and false.
func (c *Catalog) TryMove(p Piece, m Move, g Grid) (Piece, bool) {
	next := c.Apply(p, m)
	if !c.Valid(next, g) {
		return p, false
	}
	return next, true
}
