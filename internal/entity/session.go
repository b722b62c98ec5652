package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-robot/internal/apperror"
)

var ErrStatusNotTerminal = errors.New("status is not terminal")

const (
	StatusInProgress = "in_progress"
	StatusWin        = "win"
	StatusDraw       = "draw"
	StatusAborted    = "aborted"
)

// Status is the outcome of a session. Every kind except in_progress is terminal.
type Status struct {
	Kind   string `json:"kind"`
	Winner Player `json:"winner,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func InProgress() Status {
	return Status{Kind: StatusInProgress}
}

func Win(winner Player) Status {
	return Status{Kind: StatusWin, Winner: winner}
}

func Draw() Status {
	return Status{Kind: StatusDraw}
}

func Aborted(reason string) Status {
	return Status{Kind: StatusAborted, Reason: reason}
}

func (that Status) IsTerminal() bool {
	return that.Kind != StatusInProgress && that.Kind != ""
}

func (that Status) String() string {
	switch that.Kind {
	case StatusWin:
		return fmt.Sprintf("%s wins", that.Winner)
	case StatusAborted:
		return "aborted: " + that.Reason
	default:
		return that.Kind
	}
}

type Move struct {
	Player   Player    `json:"player"`
	Token    Cell      `json:"token"`
	Position Position  `json:"position"`
	At       time.Time `json:"at"`
}

// Session is the canonical game state. Previous holds the board as it was
// before the latest human move, or after the latest robot move.
type Session struct {
	ID         string     `json:"id"`
	Current    Board      `json:"current"`
	Previous   Board      `json:"previous"`
	Turn       Player     `json:"turn"`
	Assignment Assignment `json:"assignment"`
	Status     Status     `json:"status"`
	Moves      []Move     `json:"moves,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

func NewSession(first Player) *Session {
	return &Session{
		ID:         uuid.NewString(),
		Turn:       first,
		Assignment: NewAssignment(first),
		Status:     InProgress(),
		StartedAt:  time.Now(),
	}
}

// Apply places the token of player at p. Previous is set to the board as it
// was before the move.
func (that *Session) Apply(player Player, p Position) error {
	if that.Status.IsTerminal() {
		return apperror.ErrGameFinished
	}

	if !p.Valid() {
		return fmt.Errorf("%w: %s", apperror.ErrInvalidCell, p)
	}

	if that.Turn != player {
		return apperror.ErrNotYourTurn
	}

	if that.Current.At(p) != Empty {
		return apperror.ErrCellOccupied
	}

	token := that.Assignment.Token(player)

	that.Previous = that.Current
	that.Current = that.Current.With(p, token)
	that.Turn = player.Other()
	that.Moves = append(that.Moves, Move{Player: player, Token: token, Position: p, At: time.Now()})

	return nil
}

// Commit makes the current board the baseline for the next reconciliation.
func (that *Session) Commit() {
	that.Previous = that.Current
}

// Result reports the terminal status implied by the current board, if any.
func (that *Session) Result() (Status, bool) {
	if winner := that.Current.Winner(); winner != Empty {
		owner, ok := that.Assignment.Owner(winner)
		if ok {
			return Win(owner), true
		}
	}

	if that.Current.Full() {
		return Draw(), true
	}

	return InProgress(), false
}

// Finish records a terminal status. It can only happen once.
func (that *Session) Finish(status Status) error {
	if that.Status.IsTerminal() {
		return apperror.ErrGameFinished
	}

	if !status.IsTerminal() {
		return fmt.Errorf("%w: %q", ErrStatusNotTerminal, status.Kind)
	}

	that.Status = status
	that.FinishedAt = time.Now()

	return nil
}

func (that *Session) IsFinished() bool {
	return that.Status.IsTerminal()
}
