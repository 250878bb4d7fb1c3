// Package render draws game snapshots as images for the HTTP API.
package render

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/willmacd/dql-tetris/tetris"
)

const (
	BlockSize = 30
	pad       = 20
	header    = 60
	border    = 4

	boardW = tetris.Width * BlockSize
	boardH = tetris.Height * BlockSize

	// the next piece preview sits right of the board.
	previewX = pad + boardW + BlockSize
	previewY = header + 2*BlockSize

	Width  = previewX + tetris.TemplateSize*BlockSize + pad
	Height = header + boardH + pad
)

type Renderer struct {
	catalog *tetris.Catalog
}

func New(c *tetris.Catalog) *Renderer {
	if c == nil {
		c = tetris.NewCatalog()
	}
	return &Renderer{catalog: c}
}

// Board draws the snapshot at full size: the grid with its lines and border,
// the score, the high score and the next piece.
func (r *Renderer) Board(s tetris.Snapshot) image.Image {
	dc := gg.NewContext(Width, Height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	for y, row := range s.Grid {
		for x, c := range row {
			if c.IsEmpty() {
				continue
			}
			setColor(dc, c)
			dc.DrawRectangle(float64(pad+x*BlockSize), float64(header+y*BlockSize), BlockSize, BlockSize)
			dc.Fill()
		}
	}
	drawGrid(dc)

	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(border)
	dc.DrawRectangle(pad, header, boardW, boardH)
	dc.Stroke()

	dc.DrawStringAnchored("TETRIS", pad+boardW/2, header/2, 0.5, 0.5)
	dc.DrawString(fmt.Sprintf("SCORE %d", s.Score), previewX, previewY+6*BlockSize)
	dc.DrawString(fmt.Sprintf("HIGHSCORE %d", s.HighScore), previewX, previewY+7*BlockSize)
	dc.DrawString(fmt.Sprintf("LINES %d", s.Lines), previewX, previewY+8*BlockSize)

	r.drawNext(dc, s.Next)

	if s.GameOver {
		dc.SetRGB(1, 1, 1)
		dc.DrawStringAnchored("GAME OVER", pad+boardW/2, header+boardH/2, 0.5, 0.5)
	}
	return dc.Image()
}

func (r *Renderer) drawNext(dc *gg.Context, shape tetris.Shape) {
	rotations, col, err := r.catalog.Lookup(shape)
	if err != nil {
		return
	}
	dc.SetRGB(1, 1, 1)
	dc.DrawString("NEXT", previewX, previewY-BlockSize/2)
	setColor(dc, col)
	for y, row := range rotations[0] {
		for x, filled := range row {
			if filled {
				dc.DrawRectangle(float64(previewX+x*BlockSize), float64(previewY+y*BlockSize), BlockSize, BlockSize)
			}
		}
	}
	dc.Fill()
}

// drawGrid draws the cell separators in black over the board, so empty cells
// stay black and locked blocks show as separate squares.
func drawGrid(dc *gg.Context) {
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	for x := 0; x <= boardW; x += BlockSize {
		dc.DrawLine(float64(pad+x), header, float64(pad+x), header+boardH)
		dc.Stroke()
	}
	for y := 0; y <= boardH; y += BlockSize {
		dc.DrawLine(pad, float64(header+y), pad+boardW, float64(header+y))
		dc.Stroke()
	}
}

func setColor(dc *gg.Context, c tetris.Color) {
	dc.SetRGB255(int(c.R), int(c.G), int(c.B))
}

// Thumbnail draws the snapshot scaled down to width pixels, keeping the
// aspect ratio. A width of 0 or above the full size returns the full board.
func (r *Renderer) Thumbnail(s tetris.Snapshot, width int) image.Image {
	img := r.Board(s)
	if width <= 0 || width >= Width {
		return img
	}
	return imaging.Resize(img, width, 0, imaging.Lanczos)
}

// PNG encodes a thumbnail of the snapshot to w.
func (r *Renderer) PNG(w io.Writer, s tetris.Snapshot, width int) error {
	if err := png.Encode(w, r.Thumbnail(s, width)); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
