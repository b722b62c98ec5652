package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestMustLoad(t *testing.T) {
	t.Run("Fills defaults", func(t *testing.T) {
		// Given: a config that only sets the log level
		path := writeConfig(t, "log-level: debug\n")

		// When: loading it
		conf := MustLoad(path)

		// Then: everything else has its default
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, 15*time.Second, conf.Game.PollInterval)
		assert.Equal(t, 5*time.Second, conf.Game.SettleDelay)
		assert.Equal(t, uint(10), conf.FrameSource.MaxAttempts)
		assert.Equal(t, "identity", conf.Detector.Orientation)
		assert.InDelta(t, 0.25, conf.Detector.MinConfidence, 1e-9)
		assert.InDelta(t, 250, conf.Actuator.Origin.X, 1e-9)
		assert.InDelta(t, 44.833, conf.Actuator.Park.Z, 1e-9)
		assert.InDelta(t, 40, conf.Actuator.CellSize, 1e-9)
		assert.False(t, conf.Redis.Enabled)
		assert.True(t, conf.Sim.Enabled)
	})

	t.Run("Reads nested sections", func(t *testing.T) {
		path := writeConfig(t, `
game:
  first-player: robot
  poll-interval: 2s
actuator:
  origin: {x: 200, y: -60, z: -25, r: 1}
  draw-grid: true
sim:
  human-moves: ["1:1", "0:2"]
`)

		conf := MustLoad(path)

		assert.Equal(t, "robot", conf.Game.FirstPlayer)
		assert.Equal(t, 2*time.Second, conf.Game.PollInterval)
		assert.Equal(t, Origin{X: 200, Y: -60, Z: -25, R: 1}, conf.Actuator.Origin)
		assert.True(t, conf.Actuator.DrawGrid)
		assert.Equal(t, []string{"1:1", "0:2"}, conf.Sim.HumanMoves)
	})

	t.Run("Environment wins over the file", func(t *testing.T) {
		t.Setenv("REDIS_HOST", "redis.lab")
		path := writeConfig(t, "redis:\n  host: localhost\n  port: \"6380\"\n")

		conf := MustLoad(path)

		assert.Equal(t, "redis.lab:6380", conf.Redis.GetRedisAddr())
	})

	t.Run("Panics without a file", func(t *testing.T) {
		assert.Panics(t, func() {
			MustLoad(filepath.Join(t.TempDir(), "missing.yml"))
		})
	})
}
