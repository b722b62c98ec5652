package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel    string      `yaml:"log-level" env-default:"info"`
	Game        Game        `yaml:"game"`
	FrameSource FrameSource `yaml:"frame-source"`
	Detector    Detector    `yaml:"detector"`
	Actuator    Actuator    `yaml:"actuator"`
	Redis       Redis       `yaml:"redis"`
	Sim         Sim         `yaml:"sim"`
}

type Game struct {
	// FirstPlayer skips the prompt when set to human or robot.
	FirstPlayer  string        `yaml:"first-player" env:"GAME_FIRST_PLAYER" env-default:""`
	PollInterval time.Duration `yaml:"poll-interval" env-default:"15s"`
	SettleDelay  time.Duration `yaml:"settle-delay" env-default:"5s"`
	Tick         time.Duration `yaml:"tick" env-default:"100ms"`
}

type FrameSource struct {
	RetryDelay  time.Duration `yaml:"retry-delay" env-default:"200ms"`
	MaxAttempts uint          `yaml:"max-attempts" env-default:"10"`
	StopTimeout time.Duration `yaml:"stop-timeout" env-default:"2s"`
}

type Detector struct {
	Orientation   string  `yaml:"orientation" env-default:"identity"`
	MinConfidence float64 `yaml:"min-confidence" env-default:"0.25"`
}

type Actuator struct {
	Origin    Origin        `yaml:"origin"`
	Park      Park          `yaml:"park"`
	CellSize  float64       `yaml:"cell-size" env-default:"40"`
	Offset    float64       `yaml:"offset" env-default:"5"`
	Lift      float64       `yaml:"lift" env-default:"20"`
	GridMap   string        `yaml:"grid-map" env-default:""`
	DrawGrid  bool          `yaml:"draw-grid" env-default:"false"`
	GridDelay time.Duration `yaml:"grid-delay" env-default:"30s"`
}

// Origin is the A1 corner of the drawing area, in arm coordinates.
type Origin struct {
	X float64 `yaml:"x" env-default:"250"`
	Y float64 `yaml:"y" env-default:"-80"`
	Z float64 `yaml:"z" env-default:"-30"`
	R float64 `yaml:"r" env-default:"0"`
}

// Park is where the arm waits while the camera looks at the paper.
type Park struct {
	X float64 `yaml:"x" env-default:"228.106"`
	Y float64 `yaml:"y" env-default:"2.180"`
	Z float64 `yaml:"z" env-default:"44.833"`
	R float64 `yaml:"r" env-default:"0.703"`
}

type Redis struct {
	Enabled    bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host       string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port       string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	DB         int           `yaml:"db" env-default:"0"`
	SessionTTL time.Duration `yaml:"session-ttl" env-default:"0s"`
}

type Sim struct {
	Enabled         bool          `yaml:"enabled" env:"SIM_ENABLED" env-default:"true"`
	FrameWidth      int           `yaml:"frame-width" env-default:"640"`
	FrameHeight     int           `yaml:"frame-height" env-default:"480"`
	CaptureInterval time.Duration `yaml:"capture-interval" env-default:"33ms"`
	ThinkTime       time.Duration `yaml:"think-time" env-default:"2s"`
	// HumanMoves are the cells the simulated human prefers, as "row:col".
	HumanMoves []string `yaml:"human-moves"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
