package tetris

import "fmt"

type Action string

const (
	None      Action = ""       // Lets the step run gravity only.
	MoveLeft  Action = "left"   // Moves the Tetromino one step to the left.
	MoveRight Action = "right"  // Moves the Tetromino one step to the right.
	MoveDown  Action = "down"   // Moves the Tetromino one step down.
	Rotate    Action = "rotate" // Advances the rotation state by one.
)

// Actions is the vocabulary a driver may send, in a fixed order.
var Actions = []Action{MoveLeft, MoveRight, MoveDown, Rotate}

func (a Action) move() (Move, bool) {
	switch a {
	case MoveLeft:
		return moveLeft, true
	case MoveRight:
		return moveRight, true
	case MoveDown:
		return moveDown, true
	case Rotate:
		return rotate, true
	}
	return Move{}, false
}

type Phase int

const (
	Falling Phase = iota
	Locking
	Clearing
	SpawnCheck
	GameOver
)

func (p Phase) String() string {
	switch p {
	case Falling:
		return "falling"
	case Locking:
		return "locking"
	case Clearing:
		return "clearing"
	case SpawnCheck:
		return "spawncheck"
	case GameOver:
		return "gameover"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// PointsPerLine is added to the score for every cleared row.
const PointsPerLine = 10

// Outcome tells the driver what a step did.
type Outcome struct {
	Moved    bool // the action was accepted
	Locked   bool // the piece froze into the board
	Cleared  int  // rows cleared by the lock
	GameOver bool
}

// Session is the state of one game: the locked cells, the active and next
// pieces, and the score. It is owned by a single driver.
type Session struct {
	catalog *Catalog
	spawner *Spawner
	rule    ClearRule

	locked   *LockedCells
	piece    Piece
	next     Piece
	phase    Phase
	overflow bool

	score     int
	highScore int
	lines     int
}

type SessionOptions struct {
	// Spawner defaults to a clock seeded spawner.
	Spawner   *Spawner
	Rule      ClearRule
	HighScore int
}

func NewSession(c *Catalog, o *SessionOptions) *Session {
	if o == nil {
		o = &SessionOptions{}
	}
	sp := o.Spawner
	if sp == nil {
		sp = NewSpawner(c)
	}
	s := &Session{
		catalog:   c,
		spawner:   sp,
		rule:      o.Rule,
		locked:    NewLockedCells(),
		highScore: o.HighScore,
	}
	s.piece = sp.Spawn()
	s.next = sp.Spawn()
	return s
}

func (s *Session) Catalog() *Catalog     { return s.catalog }
func (s *Session) Piece() Piece          { return s.piece }
func (s *Session) Next() Piece           { return s.next }
func (s *Session) Locked() *LockedCells  { return s.locked }
func (s *Session) Phase() Phase          { return s.phase }
func (s *Session) Over() bool            { return s.phase == GameOver }
func (s *Session) Score() int            { return s.score }
func (s *Session) HighScore() int        { return s.highScore }
func (s *Session) Lines() int            { return s.lines }
func (s *Session) PieceCells() []Cell    { return s.catalog.Cells(s.piece) }
func (s *Session) Grid() Grid            { return s.locked.Grid() }
func (s *Session) SetPiece(p Piece)      { s.piece = p }
func (s *Session) SetHighScore(best int) { s.highScore = max(s.highScore, best) }

// Step runs one discrete tick. The action and the gravity move are both
// validated against the board as it was when the step started. A rejected
// gravity move locks the piece, clears rows, checks for loss and brings in the
// next piece before Step returns. A rejected action never locks.
func (s *Session) Step(a Action, gravity bool) Outcome {
	if s.phase == GameOver {
		return Outcome{GameOver: true}
	}
	var out Outcome
	grid := s.locked.Grid()
	if m, ok := a.move(); ok {
		s.piece, out.Moved = s.catalog.TryMove(s.piece, m, grid)
	}
	if gravity {
		var fell bool
		if s.piece, fell = s.catalog.TryMove(s.piece, moveDown, grid); !fell {
			s.phase = Locking
		}
	}
	for s.phase != Falling && s.phase != GameOver {
		s.advance(&out)
	}
	out.GameOver = s.phase == GameOver
	return out
}

func (s *Session) advance(out *Outcome) {
	switch s.phase {
	case Locking:
		s.lock()
		out.Locked = true
		s.phase = Clearing
	case Clearing:
		n := ClearFullRows(s.locked.Grid(), s.locked, s.rule)
		s.lines += n
		s.score += n * PointsPerLine
		s.highScore = max(s.highScore, s.score)
		out.Cleared = n
		s.phase = SpawnCheck
	case SpawnCheck:
		if s.overflow || IsGameOver(s.locked) {
			s.phase = GameOver
			return
		}
		s.piece = s.next
		s.next = s.spawner.Spawn()
		s.phase = Falling
	}
}

// lock freezes the active piece. Cells still above the board cannot be stored
// and mark the session as lost, even when the same lock clears rows that would
// have shifted them onto the board.
func (s *Session) lock() {
	_, col := s.catalog.MustLookup(s.piece.Shape)
	for _, c := range s.catalog.Cells(s.piece) {
		if !s.locked.Set(c, col) {
			s.overflow = true
		}
	}
}

// Snapshot is a copy of the session safe to hand to renderers and other
// goroutines. Grid has the visible cells of the active piece painted in.
type Snapshot struct {
	Grid      Grid
	Piece     Piece
	Next      Shape
	Score     int
	HighScore int
	Lines     int
	GameOver  bool
}

func (s *Session) Snapshot() Snapshot {
	g := s.locked.Grid()
	if s.phase != GameOver {
		_, col := s.catalog.MustLookup(s.piece.Shape)
		for _, c := range s.catalog.Cells(s.piece) {
			if c.inBounds() {
				g[c.Y][c.X] = col
			}
		}
	}
	return Snapshot{
		Grid:      g,
		Piece:     s.piece,
		Next:      s.next.Shape,
		Score:     s.score,
		HighScore: s.highScore,
		Lines:     s.lines,
		GameOver:  s.phase == GameOver,
	}
}
