package console

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-robot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-robot/internal/entity"
)

type readResult struct {
	line string
	err  error
}

// scriptedReader replays lines, then reports EOF.
type scriptedReader struct {
	mu      sync.Mutex
	results []readResult
	prompts []string
}

func (that *scriptedReader) Readline() (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if len(that.results) == 0 {
		return "", io.EOF
	}

	result := that.results[0]
	that.results = that.results[1:]

	return result.line, result.err
}

func (that *scriptedReader) SetPrompt(prompt string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.prompts = append(that.prompts, prompt)
}

func (that *scriptedReader) Close() error { return nil }

func lines(values ...string) []readResult {
	results := make([]readResult, 0, len(values))
	for _, value := range values {
		results = append(results, readResult{line: value})
	}
	return results
}

func newTestConsole(results []readResult) (*Console, *scriptedReader, *bytes.Buffer) {
	reader := &scriptedReader{results: results}
	out := &bytes.Buffer{}
	return newConsole(slog.New(slog.NewTextHandler(io.Discard, nil)), reader, out), reader, out
}

func TestConsole_ChooseFirstPlayer(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		answer string
		want   entity.Player
	}{
		{"yes means human", "y", entity.Human},
		{"no means robot", " N ", entity.Robot},
		{"player name", "robot", entity.Robot},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			console, reader, _ := newTestConsole(lines(tc.answer))

			player, err := console.ChooseFirstPlayer(ctx)

			require.NoError(t, err)
			assert.Equal(t, tc.want, player)
			assert.Equal(t, []string{firstPrompt}, reader.prompts)
		})
	}

	t.Run("Asks again after a bad answer", func(t *testing.T) {
		// Given: gibberish followed by a valid answer
		console, _, out := newTestConsole(lines("maybe", "yes"))

		// When: asking
		player, err := console.ChooseFirstPlayer(ctx)

		// Then: the second answer counts and the operator was told why
		require.NoError(t, err)
		assert.Equal(t, entity.Human, player)
		assert.Contains(t, out.String(), "Please answer")
	})

	t.Run("Quit, interrupt and EOF end the prompt", func(t *testing.T) {
		for _, results := range [][]readResult{
			lines("q"),
			{{err: readline.ErrInterrupt}},
			nil,
		} {
			console, _, _ := newTestConsole(results)

			_, err := console.ChooseFirstPlayer(ctx)

			require.ErrorIs(t, err, apperror.ErrQuit)
		}
	})

	t.Run("Cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		console, _, _ := newTestConsole(lines("y"))

		_, err := console.ChooseFirstPlayer(cancelled)

		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestConsole_Quit(t *testing.T) {
	t.Run("Closes on q", func(t *testing.T) {
		// Given: the operator types something, then q
		console, reader, _ := newTestConsole(lines("hello", "q", "never read"))

		// When: watching for quit
		console.Watch()

		// Then: the channel closes and later lines stay unread
		select {
		case <-console.Quit():
		case <-time.After(time.Second):
			t.Fatal("quit was not signalled")
		}
		reader.mu.Lock()
		assert.Len(t, reader.results, 1)
		assert.Equal(t, []string{idlePrompt}, reader.prompts)
		reader.mu.Unlock()
	})

	t.Run("Closes on EOF", func(t *testing.T) {
		console, _, _ := newTestConsole(nil)
		console.Watch()

		select {
		case <-console.Quit():
		case <-time.After(time.Second):
			t.Fatal("quit was not signalled")
		}
	})

	t.Run("Answering the prompt starts watching", func(t *testing.T) {
		// Given: an answer followed by q
		console, _, _ := newTestConsole(lines("n", "q"))

		// When: the first player is chosen
		player, err := console.ChooseFirstPlayer(context.Background())
		require.NoError(t, err)
		assert.Equal(t, entity.Robot, player)

		// Then: the following q is picked up in the background
		select {
		case <-console.Quit():
		case <-time.After(time.Second):
			t.Fatal("quit was not signalled")
		}
	})

	t.Run("Quitting at the prompt closes the channel", func(t *testing.T) {
		console, _, _ := newTestConsole(lines("quit"))

		_, err := console.ChooseFirstPlayer(context.Background())
		require.ErrorIs(t, err, apperror.ErrQuit)

		select {
		case <-console.Quit():
		default:
			t.Fatal("quit channel still open")
		}
	})
}
