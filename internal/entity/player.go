package entity

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownPlayer = errors.New("unknown player")

type Player string

const (
	Human Player = "human"
	Robot Player = "robot"
)

func ParsePlayer(value string) (Player, error) {
	switch player := Player(strings.ToLower(strings.TrimSpace(value))); player {
	case Human, Robot:
		return player, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlayer, value)
	}
}

func (p Player) Other() Player {
	if p == Human {
		return Robot
	}
	return Human
}

// Assignment maps each player to its token. The first mover always holds X.
type Assignment struct {
	Human Cell `json:"human"`
	Robot Cell `json:"robot"`
}

func NewAssignment(first Player) Assignment {
	if first == Robot {
		return Assignment{Human: TokenO, Robot: TokenX}
	}
	return Assignment{Human: TokenX, Robot: TokenO}
}

func (that Assignment) Token(player Player) Cell {
	if player == Robot {
		return that.Robot
	}
	return that.Human
}

// Owner returns who plays token. The second result is false for Empty.
func (that Assignment) Owner(token Cell) (Player, bool) {
	switch token {
	case that.Human:
		return Human, true
	case that.Robot:
		return Robot, true
	default:
		return "", false
	}
}
