// Package relay holds the wire format and gRPC service shared by the
// spectator server and the processes that publish games to it.
package relay

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/willmacd/dql-tetris/tetris"
)

// rowLen is the length of an encoded row: RRGGBB per cell.
const rowLen = tetris.Width * 6

var ErrBadFrame = errors.New("malformed frame")

// Frame is one published picture of a game.
type Frame struct {
	SessionID string       `json:"session_id,omitempty"`
	Name      string       `json:"name"`
	Score     int          `json:"score"`
	Lines     int          `json:"lines"`
	HighScore int          `json:"high_score"`
	GameOver  bool         `json:"game_over"`
	Next      tetris.Shape `json:"next"`
	Grid      tetris.Grid  `json:"-"`
	Rows      []string     `json:"rows"`
}

func FromSnapshot(name string, s tetris.Snapshot) Frame {
	return Frame{
		Name:      name,
		Score:     s.Score,
		Lines:     s.Lines,
		HighScore: s.HighScore,
		GameOver:  s.GameOver,
		Next:      s.Next,
		Grid:      s.Grid.Copy(),
		Rows:      EncodeRows(s.Grid),
	}
}

// Snapshot turns the frame back into something the renderers understand.
// The active piece is already painted into the grid.
func (f Frame) Snapshot() tetris.Snapshot {
	return tetris.Snapshot{
		Grid:      f.Grid.Copy(),
		Next:      f.Next,
		Score:     f.Score,
		HighScore: f.HighScore,
		Lines:     f.Lines,
		GameOver:  f.GameOver,
	}
}

func EncodeRows(g tetris.Grid) []string {
	rows := make([]string, len(g))
	var sb strings.Builder
	for y, row := range g {
		sb.Reset()
		for _, c := range row {
			fmt.Fprintf(&sb, "%02x%02x%02x", c.R, c.G, c.B)
		}
		rows[y] = sb.String()
	}
	return rows
}

func DecodeRows(rows []string) (tetris.Grid, error) {
	if len(rows) != tetris.Height {
		return nil, fmt.Errorf("%w: %d rows", ErrBadFrame, len(rows))
	}
	g := tetris.NewGrid()
	for y, r := range rows {
		if len(r) != rowLen {
			return nil, fmt.Errorf("%w: row %d has %d digits", ErrBadFrame, y, len(r))
		}
		b, err := hex.DecodeString(r)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrBadFrame, y, err)
		}
		for x := range tetris.Width {
			g[y][x] = tetris.Color{R: b[x*3], G: b[x*3+1], B: b[x*3+2]}
		}
	}
	return g, nil
}

func (f Frame) Struct() (*structpb.Struct, error) {
	rows := f.Rows
	if rows == nil {
		rows = EncodeRows(f.Grid)
	}
	list := make([]any, len(rows))
	for i, r := range rows {
		list[i] = r
	}
	m := map[string]any{
		"name":       f.Name,
		"score":      f.Score,
		"lines":      f.Lines,
		"high_score": f.HighScore,
		"game_over":  f.GameOver,
		"next":       string(f.Next),
		"rows":       list,
	}
	if f.SessionID != "" {
		m["session_id"] = f.SessionID
	}
	return structpb.NewStruct(m)
}

func FrameFromStruct(s *structpb.Struct) (Frame, error) {
	fields := s.GetFields()
	f := Frame{
		SessionID: fields["session_id"].GetStringValue(),
		Name:      fields["name"].GetStringValue(),
		Score:     int(fields["score"].GetNumberValue()),
		Lines:     int(fields["lines"].GetNumberValue()),
		HighScore: int(fields["high_score"].GetNumberValue()),
		GameOver:  fields["game_over"].GetBoolValue(),
		Next:      tetris.Shape(fields["next"].GetStringValue()),
	}
	for _, v := range fields["rows"].GetListValue().GetValues() {
		f.Rows = append(f.Rows, v.GetStringValue())
	}
	g, err := DecodeRows(f.Rows)
	if err != nil {
		return Frame{}, err
	}
	f.Grid = g
	return f, nil
}

func sessionStruct(id string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"session_id": structpb.NewStringValue(id),
	}}
}

// SessionID reads the session id of a Publish response or Watch request.
func SessionID(s *structpb.Struct) string {
	return s.GetFields()["session_id"].GetStringValue()
}

// SessionRequest builds a Watch request. An empty id asks for the latest
// session.
func SessionRequest(id string) *structpb.Struct { return sessionStruct(id) }

// SessionResponse builds the reply to a finished Publish stream.
func SessionResponse(id string) *structpb.Struct { return sessionStruct(id) }
