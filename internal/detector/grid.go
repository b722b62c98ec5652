// Package detector maps raw object detections onto the 3x3 board.
package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/rocketscienceinc/tictactoe-robot/internal/entity"
)

var (
	ErrEmptyFrame         = errors.New("frame has no pixels")
	ErrUnknownOrientation = errors.New("unknown orientation")
)

// Class is the label id produced by the model.
type Class int

const (
	ClassX Class = iota
	ClassO
	ClassBlank
)

func (c Class) Token() entity.Cell {
	switch c {
	case ClassX:
		return entity.TokenX
	case ClassO:
		return entity.TokenO
	default:
		return entity.Empty
	}
}

// Box is an axis-aligned bounding box in pixel coordinates.
type Box struct {
	X1, Y1, X2, Y2 float64
}

func (b Box) Center() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

type Detection struct {
	Class      Class
	Confidence float64
	Box        Box
}

// Model runs inference on a frame.
type Model interface {
	Predict(ctx context.Context, frame entity.Frame) ([]Detection, error)
}

// Label is one detection as it was placed on the board.
type Label struct {
	Detection
	Token entity.Cell
	Cell  entity.Position
	Kept  bool
}

// Annotation describes what the detector saw, for display.
type Annotation struct {
	FrameSeq uint64
	Width    int
	Height   int
	Labels   []Label
}

type Grid struct {
	logger        *slog.Logger
	model         Model
	orientation   Orientation
	minConfidence float64
}

func NewGrid(logger *slog.Logger, model Model, orientation Orientation, minConfidence float64) *Grid {
	return &Grid{
		logger:        logger.With("component", "detector"),
		model:         model,
		orientation:   orientation,
		minConfidence: minConfidence,
	}
}

// Detect builds a board from one frame. Each cell takes the token of its most
// confident detection; cells without detections are empty.
func (that *Grid) Detect(ctx context.Context, frame entity.Frame) (entity.Snapshot, error) {
	if frame.Width <= 0 || frame.Height <= 0 {
		return entity.Snapshot{}, ErrEmptyFrame
	}

	detections, err := that.model.Predict(ctx, frame)
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("failed to run model: %w", err)
	}

	detections = lo.Filter(detections, func(d Detection, _ int) bool {
		return d.Confidence >= that.minConfidence
	})

	var (
		board entity.Board
		best  [entity.Size][entity.Size]float64
		owner [entity.Size][entity.Size]int
	)
	for row := range best {
		for col := range best[row] {
			best[row][col] = -1
			owner[row][col] = -1
		}
	}

	labels := make([]Label, 0, len(detections))
	for i, detection := range detections {
		cx, cy := detection.Box.Center()
		cell := that.orientation.Apply(CellFromCenter(cx, cy, frame.Width, frame.Height))

		labels = append(labels, Label{Detection: detection, Token: detection.Class.Token(), Cell: cell})

		if detection.Confidence > best[cell.Row][cell.Col] {
			best[cell.Row][cell.Col] = detection.Confidence
			owner[cell.Row][cell.Col] = i
			board[cell.Row][cell.Col] = detection.Class.Token()
		}
	}

	for _, p := range entity.AllPositions {
		if i := owner[p.Row][p.Col]; i >= 0 {
			labels[i].Kept = true
		}
	}

	that.logger.Debug("board detected", "frame", frame.Seq, "detections", len(detections))

	return entity.Snapshot{
		Board: board,
		Artifact: Annotation{
			FrameSeq: frame.Seq,
			Width:    frame.Width,
			Height:   frame.Height,
			Labels:   labels,
		},
	}, nil
}

// CellFromCenter splits the frame into a uniform 3x3 grid and returns the
// cell holding the point, in camera orientation. Points outside the frame are
// clamped to the nearest cell.
func CellFromCenter(cx, cy float64, width, height int) entity.Position {
	nx := cx / float64(max(width, 1))
	ny := cy / float64(max(height, 1))

	return entity.Position{
		Row: clampCell(int(ny * entity.Size)),
		Col: clampCell(int(nx * entity.Size)),
	}
}

func clampCell(index int) int {
	return min(entity.Size-1, max(0, index))
}

// Orientation maps camera cells onto board cells. It depends on how the
// camera is mounted relative to the paper and is set during calibration.
type Orientation string

const (
	Identity         Orientation = "identity"
	Rotate180        Orientation = "rotate180"
	MirrorHorizontal Orientation = "mirror-horizontal"
	MirrorVertical   Orientation = "mirror-vertical"
)

func ParseOrientation(value string) (Orientation, error) {
	switch orientation := Orientation(strings.ToLower(strings.TrimSpace(value))); orientation {
	case Identity, Rotate180, MirrorHorizontal, MirrorVertical:
		return orientation, nil
	case "":
		return Identity, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOrientation, value)
	}
}

func (o Orientation) Apply(p entity.Position) entity.Position {
	last := entity.Size - 1

	switch o {
	case Rotate180:
		return entity.Position{Row: last - p.Row, Col: last - p.Col}
	case MirrorHorizontal:
		return entity.Position{Row: p.Row, Col: last - p.Col}
	case MirrorVertical:
		return entity.Position{Row: last - p.Row, Col: p.Col}
	default:
		return p
	}
}
