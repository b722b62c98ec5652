// Package framesource keeps the freshest camera frame available to pollers.
//
// One goroutine captures frames as fast as the camera delivers them and
// overwrites a single slot; readers get a copy of whatever is in the slot.
// Frames nobody read are dropped, the game only cares about the current
// state of the paper.
package framesource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/rocketscienceinc/tictactoe-robot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-robot/internal/entity"
)

var (
	// ErrCameraClosed is returned by a Camera that will never deliver again.
	ErrCameraClosed = errors.New("camera closed")
	ErrStopTimeout  = errors.New("frame source did not stop in time")
)

type Camera interface {
	// Capture blocks until the next frame is available. The camera must not
	// touch the returned pixels afterwards.
	Capture(ctx context.Context) (entity.Frame, error)
}

type Config struct {
	// RetryDelay is the fixed pause after a failed capture.
	RetryDelay time.Duration
	// MaxAttempts is the number of consecutive failed captures tolerated;
	// zero retries forever.
	MaxAttempts uint
	StopTimeout time.Duration
}

type Source struct {
	logger *slog.Logger
	camera Camera
	conf   Config

	mu     sync.RWMutex
	latest *entity.Frame
	seq    uint64
	fault  error

	lifecycleMu sync.Mutex
	started     bool
	cancel      context.CancelFunc
	done        chan struct{}
}

func New(logger *slog.Logger, camera Camera, conf Config) *Source {
	return &Source{
		logger: logger.With("component", "framesource"),
		camera: camera,
		conf:   conf,
	}
}

// Start launches the capture loop. Calling it again is a no-op.
func (that *Source) Start(ctx context.Context) error {
	that.lifecycleMu.Lock()
	defer that.lifecycleMu.Unlock()

	if that.started {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	that.cancel = cancel
	that.done = make(chan struct{})
	that.started = true

	go that.loop(loopCtx)

	that.logger.Info("frame source started")

	return nil
}

// Stop cancels the capture loop and waits up to StopTimeout for it to exit.
// The last captured frame stays readable.
func (that *Source) Stop() error {
	that.lifecycleMu.Lock()
	defer that.lifecycleMu.Unlock()

	if !that.started {
		return nil
	}

	that.cancel()

	select {
	case <-that.done:
		that.logger.Info("frame source stopped")
		return nil
	case <-time.After(that.conf.StopTimeout):
		return fmt.Errorf("%w after %s", ErrStopTimeout, that.conf.StopTimeout)
	}
}

// Read returns a copy of the latest frame without blocking on the capture loop.
func (that *Source) Read() (entity.Frame, bool) {
	that.mu.RLock()
	latest := that.latest
	that.mu.RUnlock()

	if latest == nil {
		return entity.Frame{}, false
	}

	// stored frames are never written again, so copying outside the lock is safe
	return latest.Clone(), true
}

// Err reports the fault that ended the capture loop, or nil.
func (that *Source) Err() error {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.fault
}

func (that *Source) loop(ctx context.Context) {
	defer close(that.done)

	for ctx.Err() == nil {
		frame, err := that.capture(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			that.logger.Error("frame acquisition gave up", "error", err)
			that.setFault(fmt.Errorf("%w: %w", apperror.ErrFrameSourceFailed, err))

			return
		}

		that.store(frame)
	}
}

func (that *Source) capture(ctx context.Context) (entity.Frame, error) {
	return retry.DoWithData(
		func() (entity.Frame, error) {
			frame, err := that.camera.Capture(ctx)
			if errors.Is(err, ErrCameraClosed) {
				return frame, retry.Unrecoverable(err)
			}
			return frame, err
		},
		retry.Context(ctx),
		retry.Attempts(that.conf.MaxAttempts),
		retry.Delay(that.conf.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			that.logger.Debug("frame capture failed, retrying", "attempt", n+1, "error", err)
		}),
	)
}

func (that *Source) store(frame entity.Frame) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.seq++
	frame.Seq = that.seq
	if frame.CapturedAt.IsZero() {
		frame.CapturedAt = time.Now()
	}
	that.latest = &frame
}

func (that *Source) setFault(err error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.fault = err
}
