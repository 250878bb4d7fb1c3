// Package terminal draws game snapshots on an ANSI terminal.
package terminal

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"text/template"

	"github.com/willmacd/dql-tetris/tetris"
)

const (
	resetPos    = "\033[H"  // Reset cursor position to 0,0
	clearScreen = "\033[2J" // Clear the whole screen
	clearLine   = "\033[K"  // Clear from the cursor to the end of the line

	emptyCell = "  "
	boxWidth  = 38
)

//go:embed "layout.tmpl"
var layout string

type templateData struct {
	Local *tetris.Snapshot
	Name  string

	catalog *tetris.Catalog
}

// Render writes frames and lobby messages to a terminal in raw mode.
type Render struct {
	writer   io.Writer
	logger   *slog.Logger
	template *template.Template
	data     *templateData
	mu       sync.Mutex
}

type Options struct {
	// Writer defaults to stdout.
	Writer  io.Writer
	Logger  *slog.Logger
	Name    string
	Catalog *tetris.Catalog
}

func New(o *Options) (*Render, error) {
	tmpl, err := loadTemplate()
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	var w io.Writer = os.Stdout
	if o.Writer != nil {
		w = o.Writer
	}
	l := o.Logger
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := o.Catalog
	if c == nil {
		c = tetris.NewCatalog()
	}
	return &Render{
		writer:   w,
		logger:   l,
		template: tmpl,
		data:     &templateData{Name: o.Name, catalog: c},
	}, nil
}

// Local draws a frame of the game. The last frame of a game brings the
// lobby back up with a game over message.
func (r *Render) Local(s tetris.Snapshot) {
	r.mu.Lock()
	r.data.Local = &s
	fmt.Fprint(r.writer, resetPos)
	if err := r.template.Execute(r.writer, r.data); err != nil {
		r.logger.Error("unable to execute template", slog.String("error", err.Error()))
	}
	r.mu.Unlock()
	if s.GameOver {
		r.Lobby(GameOver)
	}
}

// Lobby messages.
const (
	Welcome    = ""
	GameOver   = "Game Over :)"
	Connecting = "connecting to server..."
	Failed     = "something went wrong :("
)

// Lobby draws the menu box over the board with msg as its status line.
func (r *Render) Lobby(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data.Local == nil {
		// the first lobby is drawn over an empty board.
		s := tetris.Snapshot{Grid: tetris.NewGrid()}
		r.data.Local = &s
		fmt.Fprint(r.writer, resetPos)
		if err := r.template.Execute(r.writer, r.data); err != nil {
			r.logger.Error("unable to execute template", slog.String("error", err.Error()))
		}
	}
	fmt.Fprint(r.writer, "\033[10;3H+"+strings.Repeat("-", boxWidth)+"+")
	fmt.Fprint(r.writer, "\033[11;3H|"+center("Welcome to Terminal Tetris")+"|")
	fmt.Fprint(r.writer, "\033[12;3H|"+center(msg)+"|")
	fmt.Fprint(r.writer, "\033[13;3H|"+center("(p)lay   (o)nline   (q)uit")+"|")
	fmt.Fprint(r.writer, "\033[14;3H+"+strings.Repeat("-", boxWidth)+"+")
}

// Reset clears the screen before a new game.
func (r *Render) Reset() {
	fmt.Fprint(r.writer, clearScreen+resetPos)
}

func center(s string) string {
	if len(s) > boxWidth {
		s = s[:boxWidth]
	}
	left := (boxWidth - len(s)) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", boxWidth-len(s)-left)
}

func loadTemplate() (*template.Template, error) {
	funcMap := template.FuncMap{
		"stack":     stack,
		"nextPiece": nextPiece,
		"sidebar":   sidebar,
	}

	// we use the console raw so new lines don't automatically transform into carriage return
	// to fix that we add a carriage return to every new line in the layout.
	l := strings.ReplaceAll(layout, "\n", "\r\n")
	l = strings.ReplaceAll(l, "Terminal Tetris", "\033[1mTerminal Tetris\033[0m")
	return template.New("layout").Funcs(funcMap).Parse(l)
}

func cell(c tetris.Color) string {
	return fmt.Sprintf("\x1b[7m\x1b[38;2;%d;%d;%dm[]\x1b[0m", c.R, c.G, c.B)
}

func stack(td *templateData) [tetris.Height][tetris.Width]string {
	rendered := [tetris.Height][tetris.Width]string{}
	for y := range rendered {
		for x := range rendered[y] {
			rendered[y][x] = emptyCell
		}
	}
	if td == nil || td.Local == nil {
		return rendered
	}
	for y, row := range td.Local.Grid {
		for x, c := range row {
			if y < tetris.Height && x < tetris.Width && !c.IsEmpty() {
				rendered[y][x] = cell(c)
			}
		}
	}
	return rendered
}

// nextPiece renders the spawn rotation of the next shape, one string per
// template row.
func nextPiece(td *templateData) []string {
	rendered := make([]string, tetris.TemplateSize)
	for i := range rendered {
		rendered[i] = strings.Repeat(emptyCell, tetris.TemplateSize)
	}
	if td == nil || td.Local == nil {
		return rendered
	}
	rotations, col, err := td.catalog.Lookup(td.Local.Next)
	if err != nil {
		return rendered
	}
	for i, row := range rotations[0] {
		var sb strings.Builder
		for _, filled := range row {
			if filled {
				sb.WriteString(cell(col))
			} else {
				sb.WriteString(emptyCell)
			}
		}
		rendered[i] = sb.String()
	}
	return rendered
}

// sidebar is the text printed right of board row i.
func sidebar(td *templateData, i int, next []string) string {
	var s tetris.Snapshot
	if td.Local != nil {
		s = *td.Local
	}
	var out string
	switch {
	case i == 1:
		out = "Player: " + td.Name
	case i == 3:
		out = fmt.Sprintf("Score:      %d", s.Score)
	case i == 4:
		out = fmt.Sprintf("High score: %d", s.HighScore)
	case i == 5:
		out = fmt.Sprintf("Lines:      %d", s.Lines)
	case i == 7:
		out = "Next:"
	case i >= 8 && i < 8+len(next):
		out = next[i-8]
	case i == 15:
		out = "a/d  move"
	case i == 16:
		out = "s    soft drop"
	case i == 17:
		out = "w    rotate"
	case i == 18:
		out = "esc  lobby"
	}
	return out + clearLine
}
