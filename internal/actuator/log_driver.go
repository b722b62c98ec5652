package actuator

import (
	"context"
	"log/slog"
	"sync"
)

// Command is one instruction sent to a Driver.
type Command struct {
	Home   bool
	Motion Motion
	Point  Point
}

// LogDriver accepts every command, logs it and keeps a record. It stands in
// for the arm when none is attached.
type LogDriver struct {
	logger *slog.Logger

	mu       sync.Mutex
	commands []Command
}

func NewLogDriver(logger *slog.Logger) *LogDriver {
	return &LogDriver{logger: logger.With("component", "log_driver")}
}

func (that *LogDriver) Home(ctx context.Context) error {
	that.record(Command{Home: true})
	that.logger.DebugContext(ctx, "home")
	return nil
}

func (that *LogDriver) MoveTo(ctx context.Context, motion Motion, point Point) error {
	that.record(Command{Motion: motion, Point: point})
	that.logger.DebugContext(ctx, "move", "motion", motion.String(),
		"x", point.X, "y", point.Y, "z", point.Z, "r", point.R)
	return nil
}

// Commands returns everything received so far.
func (that *LogDriver) Commands() []Command {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]Command(nil), that.commands...)
}

func (that *LogDriver) record(command Command) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.commands = append(that.commands, command)
}
