package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Size is the side length of the board.
const Size = 3

type Cell uint8

const (
	Empty Cell = iota
	TokenX
	TokenO
)

var ErrUnknownCell = errors.New("unknown cell value")

func (c Cell) Valid() bool {
	return c == Empty || c == TokenX || c == TokenO
}

// Opponent returns the other token. Empty stays Empty.
func (c Cell) Opponent() Cell {
	switch c {
	case TokenX:
		return TokenO
	case TokenO:
		return TokenX
	default:
		return Empty
	}
}

func (c Cell) String() string {
	switch c {
	case TokenX:
		return "X"
	case TokenO:
		return "O"
	default:
		return " "
	}
}

func (c Cell) MarshalText() ([]byte, error) {
	switch c {
	case TokenX:
		return []byte("X"), nil
	case TokenO:
		return []byte("O"), nil
	case Empty:
		return []byte("_"), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCell, c)
	}
}

func (c *Cell) UnmarshalText(text []byte) error {
	switch string(text) {
	case "X", "x":
		*c = TokenX
	case "O", "o":
		*c = TokenO
	case "_", " ", "":
		*c = Empty
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCell, text)
	}

	return nil
}

// Position addresses a cell, zero-based.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// NoPosition is returned when no cell can be chosen.
var NoPosition = Position{Row: -1, Col: -1}

func (p Position) Valid() bool {
	return p.Row >= 0 && p.Row < Size && p.Col >= 0 && p.Col < Size
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

var (
	// AllPositions lists every cell in row-major order.
	AllPositions = func() []Position {
		positions := make([]Position, 0, Size*Size)
		for row := 0; row < Size; row++ {
			for col := 0; col < Size; col++ {
				positions = append(positions, Position{Row: row, Col: col})
			}
		}
		return positions
	}()

	// WinLines are scanned rows first, then columns, then the two diagonals.
	WinLines = [][3]Position{
		{{0, 0}, {0, 1}, {0, 2}},
		{{1, 0}, {1, 1}, {1, 2}},
		{{2, 0}, {2, 1}, {2, 2}},
		{{0, 0}, {1, 0}, {2, 0}},
		{{0, 1}, {1, 1}, {2, 1}},
		{{0, 2}, {1, 2}, {2, 2}},
		{{0, 0}, {1, 1}, {2, 2}},
		{{0, 2}, {1, 1}, {2, 0}},
	}
)

// Board is a 3x3 grid in row-major order.
type Board [Size][Size]Cell

func (b Board) At(p Position) Cell {
	return b[p.Row][p.Col]
}

// With returns a copy of the board with p set to c.
func (b Board) With(p Position, c Cell) Board {
	b[p.Row][p.Col] = c
	return b
}

// Swapped exchanges X and O, leaving empty cells untouched.
func (b Board) Swapped() Board {
	for row := range b {
		for col := range b[row] {
			b[row][col] = b[row][col].Opponent()
		}
	}
	return b
}

func (b Board) EmptyCells() []Position {
	return lo.Filter(AllPositions, func(p Position, _ int) bool {
		return b.At(p) == Empty
	})
}

func (b Board) Full() bool {
	return !lo.ContainsBy(AllPositions, func(p Position) bool {
		return b.At(p) == Empty
	})
}

// Diff lists the cells, row-major, where b and other disagree.
func (b Board) Diff(other Board) []Position {
	return lo.Filter(AllPositions, func(p Position, _ int) bool {
		return b.At(p) != other.At(p)
	})
}

// Winner returns the token of the first complete line, or Empty.
func (b Board) Winner() Cell {
	for _, line := range WinLines {
		first, second, third := b.At(line[0]), b.At(line[1]), b.At(line[2])
		if first != Empty && first == second && second == third {
			return first
		}
	}

	return Empty
}

func (b Board) Count(c Cell) int {
	return lo.CountBy(AllPositions, func(p Position) bool {
		return b.At(p) == c
	})
}

func (b Board) Valid() bool {
	return lo.EveryBy(AllPositions, func(p Position) bool {
		return b.At(p).Valid()
	})
}

func (b Board) String() string {
	rows := make([]string, 0, 2*Size-1)
	for row := 0; row < Size; row++ {
		cells := lo.Map(b[row][:], func(c Cell, _ int) string {
			return c.String()
		})
		rows = append(rows, " "+strings.Join(cells, " | ")+" ")
		if row < Size-1 {
			rows = append(rows, "---+---+---")
		}
	}

	return strings.Join(rows, "\n")
}
