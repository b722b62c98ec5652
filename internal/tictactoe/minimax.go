package tictactoe

import (
	"github.com/rocketscienceinc/tictactoe-robot/internal/entity"
)

const (
	WinScore  = 10
	LossScore = -10

	// outside any reachable score
	inf = 1 << 10
)

// Engine picks optimal moves by exhaustive minimax search.
// X is always the maximizing side; boards are swapped for an O mover.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// BestMove returns the cell mover should play, or entity.NoPosition when the
// board has no empty cell. Ties go to the first cell in row-major order.
func (that *Engine) BestMove(board entity.Board, mover entity.Cell) entity.Position {
	if mover == entity.TokenO {
		board = board.Swapped()
	}

	bestValue := -inf
	best := entity.NoPosition

	for _, p := range entity.AllPositions {
		if board.At(p) != entity.Empty {
			continue
		}

		board[p.Row][p.Col] = entity.TokenX
		value := minimax(&board, false, -inf, inf)
		board[p.Row][p.Col] = entity.Empty

		if value > bestValue {
			best = p
			bestValue = value
		}
	}

	return best
}

// Evaluate scores a board from X's point of view: +10 for the first complete
// X line, -10 for the first complete O line, 0 otherwise.
func Evaluate(board entity.Board) int {
	switch board.Winner() {
	case entity.TokenX:
		return WinScore
	case entity.TokenO:
		return LossScore
	default:
		return 0
	}
}

func minimax(board *entity.Board, maximizing bool, alpha, beta int) int {
	if score := Evaluate(*board); score == WinScore || score == LossScore {
		return score
	}

	if board.Full() {
		return 0
	}

	token, best := entity.TokenO, inf
	if maximizing {
		token, best = entity.TokenX, -inf
	}

	for _, p := range entity.AllPositions {
		if board.At(p) != entity.Empty {
			continue
		}

		board[p.Row][p.Col] = token
		value := minimax(board, !maximizing, alpha, beta)
		board[p.Row][p.Col] = entity.Empty

		if maximizing {
			best = max(best, value)
			alpha = max(alpha, best)
		} else {
			best = min(best, value)
			beta = min(beta, best)
		}

		if alpha >= beta {
			break
		}
	}

	return best
}
