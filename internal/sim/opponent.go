package sim

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rocketscienceinc/tictactoe-robot/internal/entity"
)

const defaultThink = 500 * time.Millisecond

// Opponent plays the human side on the paper. It can answer the first-player
// prompt with a fixed choice, and draws its next scripted free cell whenever
// it is its turn.
type Opponent struct {
	logger *slog.Logger
	paper  *Paper
	first  entity.Player
	script []entity.Position
	think  time.Duration

	token atomic.Uint32
}

// NewOpponent falls back to a short think time when think is not positive.
func NewOpponent(logger *slog.Logger, paper *Paper, first entity.Player, script []entity.Position, think time.Duration) *Opponent {
	if think <= 0 {
		think = defaultThink
	}

	return &Opponent{
		logger: logger.With("component", "sim_opponent"),
		paper:  paper,
		first:  first,
		script: script,
		think:  think,
	}
}

func (that *Opponent) ChooseFirstPlayer(_ context.Context) (entity.Player, error) {
	that.Assign(that.first)
	return that.first, nil
}

// Assign tells the opponent who opens; it plays the human's token from then on.
func (that *Opponent) Assign(first entity.Player) {
	assignment := entity.NewAssignment(first)
	that.token.Store(uint32(assignment.Human))

	that.logger.Info("tokens assigned", "first", first, "token", assignment.Human.String())
}

// Run draws moves until the paper shows a finished game or ctx ends.
func (that *Opponent) Run(ctx context.Context) {
	ticker := time.NewTicker(that.think)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		board := that.paper.Board()
		if board.Winner() != entity.Empty || board.Full() {
			return
		}

		token := entity.Cell(that.token.Load())
		if token == entity.Empty || toMove(board) != token {
			continue
		}

		p := that.next(board)
		if err := that.paper.Mark(token, p); err != nil {
			that.logger.Warn("failed to draw", "error", err)
			continue
		}

		that.logger.Info("human moved", "row", p.Row, "col", p.Col)
	}
}

func (that *Opponent) next(board entity.Board) entity.Position {
	for _, p := range that.script {
		if p.Valid() && board.At(p) == entity.Empty {
			return p
		}
	}

	return board.EmptyCells()[0]
}

// toMove returns the token whose turn it is, X always opens.
func toMove(board entity.Board) entity.Cell {
	if board.Count(entity.TokenX) > board.Count(entity.TokenO) {
		return entity.TokenO
	}
	return entity.TokenX
}
