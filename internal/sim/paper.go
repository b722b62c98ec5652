// Package sim is a software rig standing in for the camera, the detection
// model, the arm and the human player. Everything meets on a shared Paper.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rocketscienceinc/tictactoe-robot/internal/detector"
	"github.com/rocketscienceinc/tictactoe-robot/internal/entity"
)

var ErrCellInked = errors.New("cell already inked")

// Paper is the sheet both players draw on.
type Paper struct {
	mu    sync.RWMutex
	board entity.Board
}

func NewPaper() *Paper {
	return &Paper{}
}

func (that *Paper) Mark(token entity.Cell, p entity.Position) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !p.Valid() {
		return fmt.Errorf("%w: %s", entity.ErrUnknownCell, p)
	}
	if that.board.At(p) != entity.Empty {
		return fmt.Errorf("%w: %s", ErrCellInked, p)
	}

	that.board[p.Row][p.Col] = token

	return nil
}

func (that *Paper) Board() entity.Board {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.board
}

type plotter interface {
	MoveToNamedPoint(ctx context.Context, id string) error
	MoveToParkPosition(ctx context.Context) error
	DrawSymbol(ctx context.Context, token entity.Cell, row, col int) error
}

// Pen inks the paper whenever the wrapped plotter finishes a symbol.
type Pen struct {
	plotter
	paper *Paper
}

func NewPen(next plotter, paper *Paper) *Pen {
	return &Pen{plotter: next, paper: paper}
}

func (that *Pen) DrawSymbol(ctx context.Context, token entity.Cell, row, col int) error {
	if err := that.plotter.DrawSymbol(ctx, token, row, col); err != nil {
		return err
	}

	return that.paper.Mark(token, entity.Position{Row: row, Col: col})
}

// Mount describes how the simulated camera sees the paper. All supported
// orientations are their own inverse, so the same value configures the
// detector.
type Mount struct {
	Orientation detector.Orientation
	Width       int
	Height      int
}
