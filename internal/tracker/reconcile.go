// Package tracker turns detected board snapshots into at most one legal move.
package tracker

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-robot/internal/entity"
)

const (
	ReasonMultipleCells  = "multiple cells changed"
	ReasonIllegalChange  = "illegal overwrite or wrong token"
	ReasonUnknownSymbols = "unknown cell value detected"
)

type Kind int

const (
	NoMove Kind = iota
	Move
	Invalid
)

func (k Kind) String() string {
	switch k {
	case NoMove:
		return "no_move"
	case Move:
		return "move"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the verdict of one reconciliation. Position is set for Move,
// Reason for Invalid.
type Outcome struct {
	Kind     Kind
	Position entity.Position
	Reason   string
}

// Reconcile compares detected with previous. It is a pure function: exactly
// one newly filled cell holding expected is a Move, no change is NoMove, and
// anything else is Invalid.
func Reconcile(previous, detected entity.Board, expected entity.Cell) Outcome {
	if !detected.Valid() {
		return Outcome{Kind: Invalid, Reason: ReasonUnknownSymbols}
	}

	diff := previous.Diff(detected)

	switch {
	case len(diff) == 0:
		return Outcome{Kind: NoMove}
	case len(diff) > 1:
		return Outcome{Kind: Invalid, Reason: ReasonMultipleCells}
	}

	p := diff[0]
	if previous.At(p) != entity.Empty || detected.At(p) != expected {
		return Outcome{Kind: Invalid, Position: p, Reason: ReasonIllegalChange}
	}

	return Outcome{Kind: Move, Position: p}
}
