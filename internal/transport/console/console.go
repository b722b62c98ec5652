// Package console is the operator's terminal: it asks who opens the game and
// turns a "q" line into a quit signal.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/rocketscienceinc/tictactoe-robot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-robot/internal/entity"
)

const (
	firstPrompt = "Do you want to go first? [y/n] "
	idlePrompt  = "q to quit> "
)

type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Close() error
}

type Console struct {
	logger *slog.Logger
	rl     lineReader
	out    io.Writer

	quit     chan struct{}
	quitOnce sync.Once
	watch    sync.Once
}

func New(logger *slog.Logger) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          firstPrompt,
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open terminal: %w", err)
	}

	return newConsole(logger, rl, rl.Stderr()), nil
}

func newConsole(logger *slog.Logger, rl lineReader, out io.Writer) *Console {
	return &Console{
		logger: logger.With("component", "console"),
		rl:     rl,
		out:    out,
		quit:   make(chan struct{}),
	}
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// ChooseFirstPlayer asks until it gets an answer. Quitting, ^C or EOF at the
// prompt return apperror.ErrQuit.
func (that *Console) ChooseFirstPlayer(ctx context.Context) (entity.Player, error) {
	that.rl.SetPrompt(firstPrompt)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		line, err := that.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return "", apperror.ErrQuit
			}
			return "", fmt.Errorf("failed to read answer: %w", err)
		}

		answer := strings.ToLower(strings.TrimSpace(line))
		if isQuit(answer) {
			that.stop()
			return "", apperror.ErrQuit
		}

		player, ok := parseAnswer(answer)
		if !ok {
			_, _ = fmt.Fprintln(that.out, "Please answer y (you start) or n (robot starts), q quits.")
			continue
		}

		that.logger.Info("first player chosen", "first", player)
		that.Watch()

		return player, nil
	}
}

// Quit returns a channel closed once the operator asks to stop.
func (that *Console) Quit() <-chan struct{} {
	return that.quit
}

// Watch reads the terminal in the background until a quit line. It starts
// by itself once ChooseFirstPlayer got its answer.
func (that *Console) Watch() {
	that.watch.Do(func() {
		that.rl.SetPrompt(idlePrompt)
		go that.watchQuit()
	})
}

func (that *Console) watchQuit() {
	defer that.stop()

	for {
		line, err := that.rl.Readline()
		if err != nil {
			if !errors.Is(err, readline.ErrInterrupt) && !errors.Is(err, io.EOF) {
				that.logger.Error("failed to read terminal", "error", err)
			}
			return
		}

		if isQuit(strings.ToLower(strings.TrimSpace(line))) {
			that.logger.Info("quit requested")
			return
		}
	}
}

func (that *Console) stop() {
	that.quitOnce.Do(func() {
		close(that.quit)
	})
}

func (that *Console) Close() error {
	return that.rl.Close()
}

func isQuit(answer string) bool {
	return answer == "q" || answer == "quit" || answer == "exit"
}

func parseAnswer(answer string) (entity.Player, bool) {
	switch answer {
	case "y", "yes":
		return entity.Human, true
	case "n", "no":
		return entity.Robot, true
	}

	player, err := entity.ParsePlayer(answer)
	if err != nil {
		return "", false
	}

	return player, true
}
