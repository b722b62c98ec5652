package sim

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rocketscienceinc/tictactoe-robot/internal/detector"
	"github.com/rocketscienceinc/tictactoe-robot/internal/entity"
	"github.com/rocketscienceinc/tictactoe-robot/internal/framesource"
)

var ErrBadFrame = errors.New("frame was not produced by the simulated camera")

// Camera photographs the paper. Each frame carries one byte per cell in
// camera order, which Model turns back into detections.
type Camera struct {
	paper    *Paper
	mount    Mount
	interval time.Duration
	closed   atomic.Bool
}

func NewCamera(paper *Paper, mount Mount, interval time.Duration) *Camera {
	return &Camera{paper: paper, mount: mount, interval: interval}
}

func (that *Camera) Capture(ctx context.Context) (entity.Frame, error) {
	if that.closed.Load() {
		return entity.Frame{}, framesource.ErrCameraClosed
	}

	select {
	case <-ctx.Done():
		return entity.Frame{}, ctx.Err()
	case <-time.After(that.interval):
	}

	board := that.paper.Board()

	pixels := make([]byte, entity.Size*entity.Size)
	for _, p := range entity.AllPositions {
		seen := that.mount.Orientation.Apply(p)
		pixels[seen.Row*entity.Size+seen.Col] = byte(board.At(p))
	}

	return entity.Frame{
		CapturedAt: time.Now(),
		Width:      that.mount.Width,
		Height:     that.mount.Height,
		Pixels:     pixels,
	}, nil
}

// Close unplugs the camera, later captures fail permanently.
func (that *Camera) Close() {
	that.closed.Store(true)
}

// Model reads frames from Camera. Empty cells are reported as blanks, like
// the trained model does.
type Model struct {
	Confidence float64
}

func (that Model) Predict(_ context.Context, frame entity.Frame) ([]detector.Detection, error) {
	if len(frame.Pixels) != entity.Size*entity.Size {
		return nil, fmt.Errorf("%w: %d pixels", ErrBadFrame, len(frame.Pixels))
	}

	cellW := float64(frame.Width) / entity.Size
	cellH := float64(frame.Height) / entity.Size

	detections := make([]detector.Detection, 0, len(frame.Pixels))
	for i, value := range frame.Pixels {
		row, col := i/entity.Size, i%entity.Size

		class := detector.ClassBlank
		switch entity.Cell(value) {
		case entity.TokenX:
			class = detector.ClassX
		case entity.TokenO:
			class = detector.ClassO
		}

		detections = append(detections, detector.Detection{
			Class:      class,
			Confidence: that.Confidence,
			Box: detector.Box{
				X1: float64(col)*cellW + cellW/4,
				Y1: float64(row)*cellH + cellH/4,
				X2: float64(col+1)*cellW - cellW/4,
				Y2: float64(row+1)*cellH - cellH/4,
			},
		})
	}

	return detections, nil
}
