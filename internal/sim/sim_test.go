package sim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-robot/internal/detector"
	"github.com/rocketscienceinc/tictactoe-robot/internal/entity"
	"github.com/rocketscienceinc/tictactoe-robot/internal/framesource"
)

var errJammed = errors.New("pen jammed")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubPlotter struct {
	err   error
	drawn int
}

func (that *stubPlotter) MoveToNamedPoint(context.Context, string) error { return nil }
func (that *stubPlotter) MoveToParkPosition(context.Context) error       { return nil }
func (that *stubPlotter) DrawSymbol(context.Context, entity.Cell, int, int) error {
	that.drawn++
	return that.err
}

func TestPaper_Mark(t *testing.T) {
	paper := NewPaper()

	require.NoError(t, paper.Mark(entity.TokenX, entity.Position{Row: 1, Col: 2}))
	assert.Equal(t, entity.TokenX, paper.Board()[1][2])

	require.ErrorIs(t, paper.Mark(entity.TokenO, entity.Position{Row: 1, Col: 2}), ErrCellInked)
	require.ErrorIs(t, paper.Mark(entity.TokenO, entity.Position{Row: 3, Col: 0}), entity.ErrUnknownCell)
}

func TestPen_DrawSymbol(t *testing.T) {
	ctx := context.Background()

	t.Run("Inks the paper after drawing", func(t *testing.T) {
		paper := NewPaper()
		next := &stubPlotter{}
		pen := NewPen(next, paper)

		require.NoError(t, pen.DrawSymbol(ctx, entity.TokenO, 0, 1))

		assert.Equal(t, 1, next.drawn)
		assert.Equal(t, entity.TokenO, paper.Board()[0][1])
	})

	t.Run("Failed drawings leave the paper blank", func(t *testing.T) {
		paper := NewPaper()
		pen := NewPen(&stubPlotter{err: errJammed}, paper)

		require.ErrorIs(t, pen.DrawSymbol(ctx, entity.TokenO, 0, 1), errJammed)

		assert.Equal(t, entity.Board{}, paper.Board())
	})
}

func TestCamera_RoundTripThroughDetector(t *testing.T) {
	ctx := context.Background()

	for _, orientation := range []detector.Orientation{
		detector.Identity, detector.Rotate180, detector.MirrorHorizontal, detector.MirrorVertical,
	} {
		t.Run(string(orientation), func(t *testing.T) {
			// Given: a paper with a few marks, seen through a mounted camera
			paper := NewPaper()
			require.NoError(t, paper.Mark(entity.TokenX, entity.Position{Row: 0, Col: 0}))
			require.NoError(t, paper.Mark(entity.TokenO, entity.Position{Row: 1, Col: 2}))
			require.NoError(t, paper.Mark(entity.TokenX, entity.Position{Row: 2, Col: 1}))

			mount := Mount{Orientation: orientation, Width: 640, Height: 480}
			camera := NewCamera(paper, mount, 0)
			grid := detector.NewGrid(discardLogger(), Model{Confidence: 0.9}, orientation, 0.25)

			// When: a frame is captured and detected
			frame, err := camera.Capture(ctx)
			require.NoError(t, err)
			snapshot, err := grid.Detect(ctx, frame)
			require.NoError(t, err)

			// Then: the detected board matches the paper
			assert.Equal(t, paper.Board(), snapshot.Board)
		})
	}
}

func TestCamera_Close(t *testing.T) {
	camera := NewCamera(NewPaper(), Mount{Width: 300, Height: 300}, 0)
	camera.Close()

	_, err := camera.Capture(context.Background())

	require.ErrorIs(t, err, framesource.ErrCameraClosed)
}

func TestModel_RejectsForeignFrames(t *testing.T) {
	_, err := Model{Confidence: 0.9}.Predict(context.Background(), entity.Frame{Width: 2, Height: 2, Pixels: []byte{1}})

	require.ErrorIs(t, err, ErrBadFrame)
}

func TestOpponent(t *testing.T) {
	t.Run("Opens when it goes first", func(t *testing.T) {
		// Given: an opponent that chose to go first
		paper := NewPaper()
		opponent := NewOpponent(discardLogger(), paper, entity.Human,
			[]entity.Position{{Row: 1, Col: 1}, {Row: 0, Col: 0}}, time.Millisecond)
		first, err := opponent.ChooseFirstPlayer(context.Background())
		require.NoError(t, err)
		require.Equal(t, entity.Human, first)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go opponent.Run(ctx)

		// When: time passes
		require.Eventually(t, func() bool {
			return paper.Board().Count(entity.TokenX) == 1
		}, time.Second, time.Millisecond)

		// Then: it drew X on its first scripted cell and waits for the robot
		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, entity.TokenX, paper.Board()[1][1])
		assert.Equal(t, 1, paper.Board().Count(entity.TokenX))

		// And: answers the robot with the next free scripted cell
		require.NoError(t, paper.Mark(entity.TokenO, entity.Position{Row: 0, Col: 2}))
		require.Eventually(t, func() bool {
			return paper.Board()[0][0] == entity.TokenX
		}, time.Second, time.Millisecond)
	})

	t.Run("Waits for the robot when it goes second", func(t *testing.T) {
		paper := NewPaper()
		opponent := NewOpponent(discardLogger(), paper, entity.Robot, nil, time.Millisecond)
		_, err := opponent.ChooseFirstPlayer(context.Background())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go opponent.Run(ctx)

		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, entity.Board{}, paper.Board())

		require.NoError(t, paper.Mark(entity.TokenX, entity.Position{Row: 0, Col: 0}))

		// Without a script it takes the first free cell
		require.Eventually(t, func() bool {
			return paper.Board()[0][1] == entity.TokenO
		}, time.Second, time.Millisecond)
	})

	t.Run("Stops once the game is over", func(t *testing.T) {
		paper := NewPaper()
		for _, p := range []entity.Position{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}} {
			require.NoError(t, paper.Mark(entity.TokenO, p))
		}
		opponent := NewOpponent(discardLogger(), paper, entity.Human, nil, time.Millisecond)
		_, _ = opponent.ChooseFirstPlayer(context.Background())

		done := make(chan struct{})
		go func() {
			opponent.Run(context.Background())
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("opponent kept playing on a finished board")
		}
	})

	t.Run("Zero think time still plays", func(t *testing.T) {
		// Given: an opponent configured to think for no time at all
		paper := NewPaper()
		opponent := NewOpponent(discardLogger(), paper, entity.Human, nil, 0)
		_, err := opponent.ChooseFirstPlayer(context.Background())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// When: it runs
		go opponent.Run(ctx)

		// Then: it falls back to the default pace and opens
		require.Eventually(t, func() bool {
			return paper.Board().Count(entity.TokenX) == 1
		}, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, defaultThink, opponent.think)
	})
}
