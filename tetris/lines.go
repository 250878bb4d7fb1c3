package tetris

import (
	"fmt"
	"slices"
)

// ClearRule decides how locked cells above cleared rows are re-indexed.
type ClearRule int

const (
	// Compact moves every cell down by the number of cleared rows below it.
	Compact ClearRule = iota
	// Legacy only moves cells above the topmost cleared row, by the total
	// count. Cells between two non-adjacent cleared rows stay put and leave a
	// gap.
	Legacy
)

func (r ClearRule) String() string {
	switch r {
	case Compact:
		return "compact"
	case Legacy:
		return "legacy"
	}
	return fmt.Sprintf("ClearRule(%d)", int(r))
}

// ParseClearRule maps a config value to a ClearRule. An empty string is Compact.
func ParseClearRule(s string) (ClearRule, error) {
	switch s {
	case "", "compact":
		return Compact, nil
	case "legacy":
		return Legacy, nil
	}
	return Compact, fmt.Errorf("invalid clear rule %q", s)
}

// ClearFullRows removes every full row of g from locked and shifts the
// remaining cells down according to rule. It returns the number of cleared
// rows.
//
// .	before		Legacy		Compact
// 16	. X . .		. . . .		. . . .
// 17	X X X X		. . . .		. . . .
// 18	X . X .		X X X .		. X . .
// 19	X X X X		. . . .		X . X .
//
// With Legacy the X on row 16 drops onto row 18 and the row 18 cells never move.
func ClearFullRows(g Grid, locked *LockedCells, rule ClearRule) int {
	var cleared []int // bottom to top
	for y := len(g) - 1; y >= 0; y-- {
		if slices.Contains(g[y], Empty) {
			continue
		}
		cleared = append(cleared, y)
		for x := range g[y] {
			locked.Delete(Cell{X: x, Y: y})
		}
	}
	if len(cleared) == 0 {
		return 0
	}
	topmost := cleared[len(cleared)-1]

	cells := locked.Cells()
	// descending row so a shifted cell never lands on one not yet moved.
	slices.Reverse(cells)
	for _, c := range cells {
		var shift int
		switch rule {
		case Legacy:
			if c.Y < topmost {
				shift = len(cleared)
			}
		default:
			for _, y := range cleared {
				if y > c.Y {
					shift++
				}
			}
		}
		if shift == 0 {
			continue
		}
		col, _ := locked.Get(c)
		locked.Delete(c)
		locked.Set(Cell{X: c.X, Y: c.Y + shift}, col)
	}
	return len(cleared)
}

// IsGameOver reports whether a locked cell has reached the top visible row.
func IsGameOver(locked *LockedCells) bool {
	for _, c := range locked.Cells() {
		if c.Y < 1 {
			return true
		}
	}
	return false
}
