// Package gui plays the game in a desktop window.
package gui

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/willmacd/dql-tetris/tetris"
)

const (
	ScreenWidth  = 800
	ScreenHeight = 750
	BlockSize    = 30

	boardX = 250
	boardY = 100
	boardW = tetris.Width * BlockSize
	boardH = tetris.Height * BlockSize
)

var (
	white     = color.RGBA{255, 255, 255, 255}
	gridColor = color.RGBA{0, 0, 0, 255}
)

var keyActions = []struct {
	keys   []ebiten.Key
	action tetris.Action
}{
	{[]ebiten.Key{ebiten.KeyArrowLeft, ebiten.KeyA}, tetris.MoveLeft},
	{[]ebiten.Key{ebiten.KeyArrowRight, ebiten.KeyD}, tetris.MoveRight},
	{[]ebiten.Key{ebiten.KeyArrowDown, ebiten.KeyS}, tetris.MoveDown},
	{[]ebiten.Key{ebiten.KeyArrowUp, ebiten.KeyW}, tetris.Rotate},
}

type Game struct {
	driver *Driver
	snap   tetris.Snapshot
}

func NewGame(d *Driver) *Game {
	return &Game{driver: d, snap: d.Tick(0, nil)}
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}
	if g.driver.Over() && (inpututil.IsKeyJustPressed(ebiten.KeyP) || inpututil.IsKeyJustPressed(ebiten.KeyEnter)) {
		g.driver.Restart()
	}
	var actions []tetris.Action
	for _, ka := range keyActions {
		for _, k := range ka.keys {
			if inpututil.IsKeyJustPressed(k) {
				actions = append(actions, ka.action)
				break
			}
		}
	}
	g.snap = g.driver.Tick(time.Second/time.Duration(ebiten.TPS()), actions)
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)

	for y, row := range g.snap.Grid {
		for x, c := range row {
			if c.IsEmpty() {
				continue
			}
			vector.DrawFilledRect(screen, float32(boardX+x*BlockSize), float32(boardY+y*BlockSize), BlockSize, BlockSize, rgba(c), false)
		}
	}
	for y := 0; y <= tetris.Height; y++ {
		vector.StrokeLine(screen, boardX, float32(boardY+y*BlockSize), boardX+boardW, float32(boardY+y*BlockSize), 1, gridColor, false)
	}
	for x := 0; x <= tetris.Width; x++ {
		vector.StrokeLine(screen, float32(boardX+x*BlockSize), boardY, float32(boardX+x*BlockSize), boardY+boardH, 1, gridColor, false)
	}
	vector.StrokeRect(screen, boardX, boardY, boardW, boardH, 4, white, false)

	ebitenutil.DebugPrintAt(screen, "TETRIS", boardX+boardW/2-18, 40)
	g.drawNext(screen)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("SCORE    %d", g.snap.Score), boardX+boardW+50, boardY+boardH/2+100)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("HIGHSCORE    %d", g.snap.HighScore), boardX-220, boardY+400)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("LINES    %d", g.snap.Lines), boardX-220, boardY+420)

	if g.snap.GameOver {
		ebitenutil.DebugPrintAt(screen, "GAME OVER", boardX+boardW/2-27, boardY+boardH/2-20)
		ebitenutil.DebugPrintAt(screen, "(p)lay again   (q)uit", boardX+boardW/2-63, boardY+boardH/2)
	}
}

func (g *Game) drawNext(screen *ebiten.Image) {
	rotations, col, err := g.driver.Catalog().Lookup(g.snap.Next)
	if err != nil {
		return
	}
	startX := boardX + boardW + 50
	startY := boardY + boardH/2 - 100
	ebitenutil.DebugPrintAt(screen, "NEXT SHAPE", startX, startY-30)
	for y, row := range rotations[0] {
		for x, filled := range row {
			if filled {
				vector.DrawFilledRect(screen, float32(startX+x*BlockSize), float32(startY+y*BlockSize), BlockSize, BlockSize, rgba(col), false)
			}
		}
	}
}

func (g *Game) Layout(int, int) (int, int) {
	return ScreenWidth, ScreenHeight
}

func rgba(c tetris.Color) color.RGBA {
	return color.RGBA{c.R, c.G, c.B, 255}
}

// Run opens the window and blocks until it is closed.
func Run(d *Driver) error {
	ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
	ebiten.SetWindowTitle("Tetris")
	if err := ebiten.RunGame(NewGame(d)); err != nil {
		return fmt.Errorf("failed to run window: %w", err)
	}
	return nil
}
