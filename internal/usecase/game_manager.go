package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-robot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-robot/internal/entity"
	"github.com/rocketscienceinc/tictactoe-robot/internal/tracker"
)

const (
	homePoint   = "home"
	defaultTick = 100 * time.Millisecond
)

type frameSource interface {
	Read() (entity.Frame, bool)
	Err() error
}

type detector interface {
	Detect(ctx context.Context, frame entity.Frame) (entity.Snapshot, error)
}

type actuator interface {
	MoveToNamedPoint(ctx context.Context, id string) error
	MoveToParkPosition(ctx context.Context) error
	DrawSymbol(ctx context.Context, token entity.Cell, row, col int) error
}

type engine interface {
	BestMove(board entity.Board, mover entity.Cell) entity.Position
}

type sessionRepo interface {
	CreateOrUpdate(ctx context.Context, session *entity.Session) error
}

// FirstPlayerChooser asks who opens the game.
type FirstPlayerChooser interface {
	ChooseFirstPlayer(ctx context.Context) (entity.Player, error)
}

type State int

const (
	AwaitingFirstChoice State = iota
	HumanPolling
	RobotComputing
	RobotActuating
	Terminal
)

func (s State) String() string {
	switch s {
	case AwaitingFirstChoice:
		return "awaiting_first_choice"
	case HumanPolling:
		return "human_polling"
	case RobotComputing:
		return "robot_computing"
	case RobotActuating:
		return "robot_actuating"
	case Terminal:
		return "terminal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Config struct {
	// PollInterval is the minimum time between two detections.
	PollInterval time.Duration
	// SettleDelay is how long the arm is given to finish a symbol.
	SettleDelay time.Duration
	// Tick is how often the loop wakes up while waiting for the human.
	Tick time.Duration
}

// GameManager runs one game between the human and the robot.
type GameManager struct {
	logger *slog.Logger
	conf   Config

	frames      frameSource
	detector    detector
	actuator    actuator
	engine      engine
	sessionRepo sessionRepo
	chooser     FirstPlayerChooser

	now func() time.Time
}

// NewGameManager wires the game loop. sessionRepo may be nil to skip journaling.
func NewGameManager(
	logger *slog.Logger,
	conf Config,
	frames frameSource,
	detector detector,
	actuator actuator,
	engine engine,
	sessionRepo sessionRepo,
	chooser FirstPlayerChooser,
) *GameManager {
	if conf.Tick <= 0 {
		conf.Tick = defaultTick
	}

	return &GameManager{
		logger: logger.With("component", "game_manager"),
		conf:   conf,

		frames:      frames,
		detector:    detector,
		actuator:    actuator,
		engine:      engine,
		sessionRepo: sessionRepo,
		chooser:     chooser,

		now: time.Now,
	}
}

// Run plays a game until it ends, quit is closed, ctx is done or the frame
// source fails. The session is returned in every case once it exists; an
// interrupted session keeps its in-progress status.
func (that *GameManager) Run(ctx context.Context, quit <-chan struct{}) (*entity.Session, error) {
	log := that.logger.With("method", "Run")

	defer that.goHome(ctx)

	first, err := that.chooser.ChooseFirstPlayer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to choose first player: %w", err)
	}

	session := entity.NewSession(first)
	log = log.With("session", session.ID)
	log.Info("game started", "first", first,
		"human", session.Assignment.Human.String(), "robot", session.Assignment.Robot.String())

	that.journal(ctx, session)

	state := RobotComputing
	if first == entity.Human {
		state = that.enterHumanPolling(ctx)
	}

	ticker := time.NewTicker(that.conf.Tick)
	defer ticker.Stop()

	var (
		lastPoll time.Time
		target   entity.Position
	)

	for {
		// a finished game keeps its result even if a quit or fault races it
		if state == Terminal {
			log.Info("game over", "status", session.Status.String(), "moves", len(session.Moves))
			return session, nil
		}

		if err = interrupted(ctx, quit); err != nil {
			log.Info("game interrupted", "state", state.String(), "reason", err)
			return session, err
		}

		if err = that.frames.Err(); err != nil {
			log.Error("frame source failed", "state", state.String(), "error", err)
			if !errors.Is(err, apperror.ErrFrameSourceFailed) {
				err = fmt.Errorf("%w: %w", apperror.ErrFrameSourceFailed, err)
			}
			return session, err
		}

		switch state {
		case HumanPolling:
			if that.now().Sub(lastPoll) < that.conf.PollInterval {
				break
			}
			lastPoll = that.now()

			state, err = that.pollHuman(ctx, session)
			if err != nil {
				return session, err
			}

		case RobotComputing:
			target = that.engine.BestMove(session.Current, session.Assignment.Robot)
			if !target.Valid() {
				that.finish(ctx, session, entity.Draw())
				state = Terminal
				break
			}

			log.Info("robot chose", "row", target.Row, "col", target.Col)
			state = RobotActuating

		case RobotActuating:
			state, err = that.actuateRobot(ctx, session, target)
			if err != nil {
				return session, err
			}

		default:
			return session, fmt.Errorf("unexpected state %s", state)
		}

		if state != HumanPolling {
			continue
		}

		select {
		case <-ctx.Done():
		case <-quit:
		case <-ticker.C:
		}
	}
}

// pollHuman runs one detection and reconciles it against the board as it was
// before the human's turn.
func (that *GameManager) pollHuman(ctx context.Context, session *entity.Session) (State, error) {
	log := that.logger.With("method", "pollHuman", "session", session.ID)

	frame, ok := that.frames.Read()
	if !ok {
		log.Debug("no frame yet")
		return HumanPolling, nil
	}

	snapshot, err := that.detector.Detect(ctx, frame)
	if err != nil {
		log.Warn("detection failed, skipping poll", "frame", frame.Seq, "error", err)
		return HumanPolling, nil
	}

	outcome := tracker.Reconcile(session.Previous, snapshot.Board, session.Assignment.Human)

	switch outcome.Kind {
	case tracker.NoMove:
		return HumanPolling, nil

	case tracker.Invalid:
		log.Warn("detected board rejected", "reason", outcome.Reason, "detected", snapshot.Board.String())
		that.finish(ctx, session, entity.Aborted(outcome.Reason))
		return Terminal, nil

	default:
		if err = session.Apply(entity.Human, outcome.Position); err != nil {
			return Terminal, fmt.Errorf("failed to apply human move: %w", err)
		}

		log.Info("human moved", "row", outcome.Position.Row, "col", outcome.Position.Col, "board", session.Current.String())
		that.journal(ctx, session)

		if that.checkResult(ctx, session) {
			return Terminal, nil
		}

		return RobotComputing, nil
	}
}

// actuateRobot draws the robot's move. The canonical board takes the move
// whether or not the arm reported success.
func (that *GameManager) actuateRobot(ctx context.Context, session *entity.Session, target entity.Position) (State, error) {
	log := that.logger.With("method", "actuateRobot", "session", session.ID)

	token := session.Assignment.Robot
	if err := that.actuator.DrawSymbol(context.WithoutCancel(ctx), token, target.Row, target.Col); err != nil {
		log.Warn("failed to draw symbol", "row", target.Row, "col", target.Col, "error", err)
	}

	time.Sleep(that.conf.SettleDelay)

	if err := session.Apply(entity.Robot, target); err != nil {
		return Terminal, fmt.Errorf("failed to apply robot move: %w", err)
	}
	session.Commit()

	log.Info("robot moved", "row", target.Row, "col", target.Col, "board", session.Current.String())
	that.journal(ctx, session)

	if that.checkResult(ctx, session) {
		return Terminal, nil
	}

	return that.enterHumanPolling(ctx), nil
}

// enterHumanPolling parks the arm out of the camera's view.
func (that *GameManager) enterHumanPolling(ctx context.Context) State {
	if err := that.actuator.MoveToParkPosition(context.WithoutCancel(ctx)); err != nil {
		that.logger.Warn("failed to park arm", "error", err)
	}

	return HumanPolling
}

func (that *GameManager) checkResult(ctx context.Context, session *entity.Session) bool {
	status, over := session.Result()
	if !over {
		return false
	}

	that.finish(ctx, session, status)

	return true
}

func (that *GameManager) finish(ctx context.Context, session *entity.Session, status entity.Status) {
	if err := session.Finish(status); err != nil {
		that.logger.Error("failed to finish session", "session", session.ID, "error", err)
		return
	}

	that.journal(ctx, session)
}

func (that *GameManager) journal(ctx context.Context, session *entity.Session) {
	if that.sessionRepo == nil {
		return
	}

	if err := that.sessionRepo.CreateOrUpdate(context.WithoutCancel(ctx), session); err != nil {
		that.logger.Error("failed to save session", "session", session.ID, "error", err)
	}
}

func (that *GameManager) goHome(ctx context.Context) {
	if err := that.actuator.MoveToNamedPoint(context.WithoutCancel(ctx), homePoint); err != nil {
		that.logger.Warn("failed to move arm home", "error", err)
	}
}

func interrupted(ctx context.Context, quit <-chan struct{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-quit:
		return apperror.ErrQuit
	default:
		return nil
	}
}
