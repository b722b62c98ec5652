package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rocketscienceinc/tictactoe-robot/internal/actuator"
	"github.com/rocketscienceinc/tictactoe-robot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-robot/internal/config"
	"github.com/rocketscienceinc/tictactoe-robot/internal/detector"
	"github.com/rocketscienceinc/tictactoe-robot/internal/entity"
	"github.com/rocketscienceinc/tictactoe-robot/internal/framesource"
	"github.com/rocketscienceinc/tictactoe-robot/internal/repository"
	"github.com/rocketscienceinc/tictactoe-robot/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-robot/internal/sim"
	"github.com/rocketscienceinc/tictactoe-robot/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-robot/internal/transport/console"
	"github.com/rocketscienceinc/tictactoe-robot/internal/usecase"
)

var (
	ErrNoRig          = errors.New("no camera and model adapters configured, enable sim")
	ErrBadMove        = errors.New("invalid move, expected row:col")
	ErrNoFirstChooser = errors.New("no terminal to ask who goes first, set game.first-player")
)

const simConfidence = 0.9

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	if !conf.Sim.Enabled {
		return ErrNoRig
	}

	orientation, err := detector.ParseOrientation(conf.Detector.Orientation)
	if err != nil {
		return fmt.Errorf("failed to read detector config: %w", err)
	}

	plotter, err := newPlotter(logger, conf.Actuator)
	if err != nil {
		return err
	}

	// the terminal is optional, without it there is no quit key
	var quit <-chan struct{}
	term, err := console.New(logger)
	if err != nil {
		log.Warn("terminal unavailable", "error", err)
	} else {
		defer func() {
			if err = term.Close(); err != nil {
				log.Error("could not close terminal", "error", err)
			}
		}()
	}

	var sessionRepo repository.SessionRepository
	if conf.Redis.Enabled {
		redisStorage, err := storage.NewRedisStorage(ctx, conf.Redis.GetRedisAddr(), conf.Redis.DB)
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		sessionRepo = repository.NewSessionRepository(redisStorage.Connection, conf.Redis.SessionTTL)

		if err = pruneJournal(ctx, logger, sessionRepo); err != nil {
			log.Warn("could not prune session journal", "error", err)
		}
	}

	script, err := parseMoves(conf.Sim.HumanMoves)
	if err != nil {
		return fmt.Errorf("failed to read sim config: %w", err)
	}

	paper := sim.NewPaper()
	camera := sim.NewCamera(paper, sim.Mount{
		Orientation: orientation,
		Width:       conf.Sim.FrameWidth,
		Height:      conf.Sim.FrameHeight,
	}, conf.Sim.CaptureInterval)
	opponent := sim.NewOpponent(logger, paper, entity.Human, script, conf.Sim.ThinkTime)
	pen := sim.NewPen(plotter, paper)

	chooser, err := firstPlayerChooser(term, conf.Game)
	switch {
	case errors.Is(err, ErrNoFirstChooser):
		log.Warn("nobody to ask who goes first, the simulated human opens")
		chooser = opponent
	case err != nil:
		return err
	}

	if term != nil {
		quit = term.Quit()
		// the console starts watching by itself once it has asked
		if conf.Game.FirstPlayer != "" {
			term.Watch()
		}
	}

	frames := framesource.New(logger, camera, framesource.Config{
		RetryDelay:  conf.FrameSource.RetryDelay,
		MaxAttempts: conf.FrameSource.MaxAttempts,
		StopTimeout: conf.FrameSource.StopTimeout,
	})
	if err = frames.Start(ctx); err != nil {
		return fmt.Errorf("failed to start frame source: %w", err)
	}
	defer func() {
		if err = frames.Stop(); err != nil {
			log.Error("could not stop frame source", "error", err)
		}
		camera.Close()
	}()

	if conf.Actuator.DrawGrid {
		if err = drawGrid(ctx, plotter, conf.Actuator.GridDelay); err != nil {
			return err
		}
	}

	go opponent.Run(ctx)

	manager := usecase.NewGameManager(
		logger,
		usecase.Config{
			PollInterval: conf.Game.PollInterval,
			SettleDelay:  conf.Game.SettleDelay,
			Tick:         conf.Game.Tick,
		},
		frames,
		detector.NewGrid(logger, sim.Model{Confidence: simConfidence}, orientation, conf.Detector.MinConfidence),
		pen,
		tictactoe.NewEngine(),
		sessionRepo,
		simChooser{next: chooser, opponent: opponent},
	)

	session, err := manager.Run(ctx, quit)
	switch {
	case errors.Is(err, apperror.ErrQuit), errors.Is(err, context.Canceled):
		log.Info("Game stopped before the end")
		return nil
	case err != nil:
		return fmt.Errorf("game failed: %w", err)
	}

	log.Info("Game finished", "session", session.ID, "status", session.Status.String(), "board", session.Current.String())

	return nil
}

// pruneJournal drops sessions an earlier run left unfinished. Finished ones
// stay until their TTL runs out.
func pruneJournal(ctx context.Context, logger *slog.Logger, sessions repository.SessionRepository) error {
	log := logger.With("method", "pruneJournal")

	ids, err := sessions.ListIDs(ctx)
	if err != nil {
		return err
	}

	var finished, dropped int
	for _, id := range ids {
		session, err := sessions.GetByID(ctx, id)
		if errors.Is(err, repository.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		if session.IsFinished() {
			finished++
			continue
		}

		if err = sessions.DeleteByID(ctx, id); err != nil {
			return err
		}
		dropped++
	}

	log.Info("session journal checked", "finished", finished, "dropped", dropped)

	return nil
}

// firstPlayerChooser prefers the configured first player over asking.
func firstPlayerChooser(term *console.Console, conf config.Game) (usecase.FirstPlayerChooser, error) {
	if conf.FirstPlayer != "" {
		player, err := entity.ParsePlayer(conf.FirstPlayer)
		if err != nil {
			return nil, fmt.Errorf("failed to read game config: %w", err)
		}
		return fixedChooser(player), nil
	}

	if term == nil {
		return nil, ErrNoFirstChooser
	}

	return term, nil
}

type fixedChooser entity.Player

func (that fixedChooser) ChooseFirstPlayer(context.Context) (entity.Player, error) {
	return entity.Player(that), nil
}

// simChooser tells the simulated human which token it got.
type simChooser struct {
	next     usecase.FirstPlayerChooser
	opponent *sim.Opponent
}

func (that simChooser) ChooseFirstPlayer(ctx context.Context) (entity.Player, error) {
	first, err := that.next.ChooseFirstPlayer(ctx)
	if err != nil {
		return "", err
	}

	that.opponent.Assign(first)

	return first, nil
}

func newPlotter(logger *slog.Logger, conf config.Actuator) (*actuator.Plotter, error) {
	gridMap := actuator.DefaultGridMap()
	if conf.GridMap != "" {
		loaded, err := actuator.LoadGridMap(conf.GridMap)
		if err != nil {
			return nil, fmt.Errorf("failed to load grid map: %w", err)
		}
		gridMap = loaded
	}

	calibration, problems := actuator.NewCalibration(actuator.Geometry{
		Origin:   actuator.Point{X: conf.Origin.X, Y: conf.Origin.Y, Z: conf.Origin.Z, R: conf.Origin.R},
		CellSize: conf.CellSize,
		Offset:   conf.Offset,
		Lift:     conf.Lift,
		Park:     actuator.Point{X: conf.Park.X, Y: conf.Park.Y, Z: conf.Park.Z, R: conf.Park.R},
	}, gridMap)
	for _, problem := range problems {
		logger.Warn("grid map entry skipped", "error", problem)
	}

	return actuator.NewPlotter(logger, actuator.NewLogDriver(logger), calibration), nil
}

func drawGrid(ctx context.Context, plotter *actuator.Plotter, settle time.Duration) error {
	if err := plotter.DrawGrid(ctx); err != nil {
		return fmt.Errorf("failed to draw grid: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settle):
		return nil
	}
}

func parseMoves(values []string) ([]entity.Position, error) {
	moves := make([]entity.Position, 0, len(values))
	for _, value := range values {
		row, col, ok := strings.Cut(strings.TrimSpace(value), ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrBadMove, value)
		}

		r, err := strconv.Atoi(row)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadMove, value)
		}
		c, err := strconv.Atoi(col)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadMove, value)
		}

		p := entity.Position{Row: r, Col: c}
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrBadMove, value)
		}
		moves = append(moves, p)
	}

	return moves, nil
}
