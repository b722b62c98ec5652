// Package actuator drives the pen-holding arm over the paper.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/rocketscienceinc/tictactoe-robot/internal/entity"
)

var ErrUnknownToken = errors.New("cannot draw token")

// Motion selects how the arm travels to a point.
type Motion int

const (
	// Joint moves each joint independently, the path is not a line.
	Joint Motion = iota
	// Linear keeps the pen on a straight line, used while drawing.
	Linear
)

func (m Motion) String() string {
	if m == Linear {
		return "linear"
	}
	return "joint"
}

// Driver talks to the arm controller. Calls block until the move is queued.
type Driver interface {
	Home(ctx context.Context) error
	MoveTo(ctx context.Context, motion Motion, point Point) error
}

// circleStep is the angle between successive points of an O, in degrees.
const circleStep = 25

// gridStrokes are the four grid lines, each as lifted start, start, end, lifted end.
var gridStrokes = [][4]string{
	{"SI1", "S1", "S2", "SI2"},
	{"SI3", "S3", "S4", "SI4"},
	{"SI5", "S5", "S6", "SI6"},
	{"SI7", "S7", "S8", "SI8"},
}

type Plotter struct {
	logger      *slog.Logger
	driver      Driver
	calibration *Calibration
}

func NewPlotter(logger *slog.Logger, driver Driver, calibration *Calibration) *Plotter {
	return &Plotter{
		logger:      logger.With("component", "actuator"),
		driver:      driver,
		calibration: calibration,
	}
}

// MoveToNamedPoint moves to a reference point, or home for HomePoint.
func (that *Plotter) MoveToNamedPoint(ctx context.Context, id string) error {
	if id == HomePoint {
		if err := that.driver.Home(ctx); err != nil {
			return fmt.Errorf("failed to home arm: %w", err)
		}
		return nil
	}

	point, err := that.calibration.Point(id)
	if err != nil {
		return err
	}

	if err = that.driver.MoveTo(ctx, Joint, point); err != nil {
		return fmt.Errorf("failed to move to %s: %w", id, err)
	}

	return nil
}

// MoveToParkPosition clears the camera's view of the paper.
func (that *Plotter) MoveToParkPosition(ctx context.Context) error {
	if err := that.driver.MoveTo(ctx, Joint, that.calibration.Park); err != nil {
		return fmt.Errorf("failed to park arm: %w", err)
	}
	return nil
}

// DrawSymbol draws token in the zero-based cell and returns the arm home.
func (that *Plotter) DrawSymbol(ctx context.Context, token entity.Cell, row, col int) error {
	log := that.logger.With("method", "DrawSymbol", "token", token.String(), "row", row, "col", col)

	cell := entity.Position{Row: row, Col: col}
	if !cell.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownCell, cell)
	}

	down, up, err := that.calibration.Cell(cell)
	if err != nil {
		return err
	}

	var path []step
	switch token {
	case entity.TokenX:
		path = crossPath(down, up)
	case entity.TokenO:
		path = circlePath(down, that.calibration.CellSize/2-that.calibration.Offset, that.calibration.Lift)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownToken, token.String())
	}

	log.Debug("drawing", "moves", len(path))

	return that.run(ctx, path)
}

// DrawGrid draws the four lines of the board.
func (that *Plotter) DrawGrid(ctx context.Context) error {
	var path []step
	for _, stroke := range gridStrokes {
		for _, name := range stroke {
			point, err := that.calibration.Point(name)
			if err != nil {
				return err
			}
			path = append(path, step{motion: Joint, point: point})
		}
	}

	that.logger.Info("drawing grid")

	return that.run(ctx, path)
}

type step struct {
	motion Motion
	point  Point
}

// run homes the arm, follows path and homes again.
func (that *Plotter) run(ctx context.Context, path []step) error {
	if err := that.MoveToNamedPoint(ctx, HomePoint); err != nil {
		return err
	}

	for _, s := range path {
		if err := that.driver.MoveTo(ctx, s.motion, s.point); err != nil {
			return fmt.Errorf("failed to move to %+v: %w", s.point, err)
		}
	}

	return that.MoveToNamedPoint(ctx, HomePoint)
}

// crossPath strokes both diagonals, lifting the pen between them.
func crossPath(down, up [4]Point) []step {
	return []step{
		{Linear, up[0]},
		{Linear, down[0]},
		{Linear, down[3]},
		{Linear, up[3]},
		{Linear, up[1]},
		{Linear, down[1]},
		{Linear, down[2]},
		{Linear, up[2]},
	}
}

// circlePath traces a closed circle centred on the cell.
func circlePath(down [4]Point, radius, lift float64) []step {
	var center Point
	for _, corner := range down {
		center.X += corner.X / 4
		center.Y += corner.Y / 4
	}
	center.Z = down[0].Z
	center.R = down[0].R

	at := func(degrees int) Point {
		rad := float64(degrees) * math.Pi / 180
		p := center
		p.X += radius * math.Cos(rad)
		p.Y += radius * math.Sin(rad)
		return p
	}

	path := []step{{Linear, at(0).Lifted(lift)}}
	for degrees := 0; degrees < 360; degrees += circleStep {
		path = append(path, step{Linear, at(degrees)})
	}

	return append(path, step{Linear, at(0)}, step{Linear, at(0).Lifted(lift)})
}
