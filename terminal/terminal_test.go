package terminal

import (
	"reflect"
	"strings"
	"testing"

	"github.com/willmacd/dql-tetris/tetris"
)

func emptyStack() [tetris.Height][tetris.Width]string {
	want := [tetris.Height][tetris.Width]string{}
	for y := range want {
		for x := range want[y] {
			want[y][x] = "  "
		}
	}
	return want
}

func TestStack(t *testing.T) {
	s := tetris.NewTestSession(tetris.J)
	snap := s.Snapshot()
	td := &templateData{Local: &snap, catalog: s.Catalog()}

	want := emptyStack()
	orangeCell := "\x1b[7m\x1b[38;2;255;165;0m[]\x1b[0m"
	for _, c := range s.PieceCells() {
		if c.Y >= 0 {
			want[c.Y][c.X] = orangeCell
		}
	}
	got := stack(td)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("want %v, got %v", want, got)
	}

	t.Run("stack with no snapshot returns empty spaces", func(t *testing.T) {
		if got := stack(nil); !reflect.DeepEqual(got, emptyStack()) {
			t.Errorf("want %v, got %v", emptyStack(), got)
		}
	})
}

func TestNextPiece(t *testing.T) {
	cyan := "\x1b[7m\x1b[38;2;0;255;255m[]\x1b[0m"
	yellow := "\x1b[7m\x1b[38;2;255;255;0m[]\x1b[0m"
	blank := strings.Repeat("  ", 5)
	tests := []struct {
		shape tetris.Shape
		want  []string
	}{
		{tetris.I, []string{blank, "    " + cyan + "    ", "    " + cyan + "    ", "    " + cyan + "    ", "    " + cyan + "    "}},
		{tetris.O, []string{blank, blank, "  " + yellow + yellow + "    ", "  " + yellow + yellow + "    ", blank}},
	}
	for _, tt := range tests {
		t.Run(string(tt.shape), func(t *testing.T) {
			snap := tetris.Snapshot{Next: tt.shape}
			td := &templateData{Local: &snap, catalog: tetris.NewCatalog()}
			got := nextPiece(td)
			if !reflect.DeepEqual(tt.want, got) {
				t.Errorf("want %q, got %q", tt.want, got)
			}
		})
	}
	t.Run("nextPiece with no snapshot returns empty spaces", func(t *testing.T) {
		want := []string{blank, blank, blank, blank, blank}
		if got := nextPiece(nil); !reflect.DeepEqual(got, want) {
			t.Errorf("want %v, got %v", want, got)
		}
	})
}

func TestRender(t *testing.T) {
	w := &strings.Builder{}
	r, err := New(&Options{Writer: w, Name: "alice"})
	if err != nil {
		t.Fatal(err)
	}

	snap := tetris.NewTestSnapshot(tetris.T)
	snap.Score = 120
	r.Local(snap)
	out := w.String()
	for _, want := range []string{"Player: alice", "Score:      120", "\033[1mTerminal Tetris\033[0m"} {
		if !strings.Contains(out, want) {
			t.Errorf("wanted frame to contain %q", want)
		}
	}
	if strings.Contains(out, "Welcome") {
		t.Errorf("a running game must not draw the lobby")
	}
	if n := strings.Count(out, "\r\n"); n != tetris.Height+2 {
		t.Errorf("wanted %d lines, got %d", tetris.Height+2, n)
	}

	w.Reset()
	snap.GameOver = true
	r.Local(snap)
	if !strings.Contains(w.String(), GameOver) {
		t.Errorf("wanted the game over message after the last frame")
	}
}
