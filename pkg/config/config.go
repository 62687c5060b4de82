package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Board and scoring defaults
const (
	DefaultWidth         = 20
	DefaultHeight        = 20
	DefaultInitialLength = 3
	DefaultScorePerFood  = 10
	DefaultPlayerName    = "Player"
)

// Food placement settings
const (
	// Random draws before falling back to a scan of the free cells
	MaxFoodAttempts = 100
)

// Server settings
const (
	DefaultAddr         = ":8080"
	DefaultTickInterval = 150 * time.Millisecond // Same pace as the polling web client
	DefaultDBPath       = "data/game.db"
	MinTickInterval     = 10 * time.Millisecond
	DefaultLeaderboard  = 10
	MaxLeaderboard      = 100
)

// ErrInvalidConfig is wrapped by every validation failure in this package.
var ErrInvalidConfig = errors.New("invalid config")

// Rules are the engine options that shape a session.
type Rules struct {
	Width           int `json:"width" msgpack:"width"`
	Height          int `json:"height" msgpack:"height"`
	InitialLength   int `json:"initialLength" msgpack:"initialLength"`
	ScorePerFood    int `json:"scorePerFood" msgpack:"scorePerFood"`
	MaxFoodAttempts int `json:"-" msgpack:"-"`
}

// DefaultRules returns the classic 20x20 board with a 3-segment snake.
func DefaultRules() Rules {
	return Rules{
		Width:           DefaultWidth,
		Height:          DefaultHeight,
		InitialLength:   DefaultInitialLength,
		ScorePerFood:    DefaultScorePerFood,
		MaxFoodAttempts: MaxFoodAttempts,
	}
}

// Validate checks the options that do not depend on a particular board.
// Board fit is checked by the engine on reset.
func (r Rules) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: board %dx%d must be positive", ErrInvalidConfig, r.Width, r.Height)
	}
	if r.InitialLength < 1 {
		return fmt.Errorf("%w: initial length %d must be at least 1", ErrInvalidConfig, r.InitialLength)
	}
	if r.ScorePerFood < 0 {
		return fmt.Errorf("%w: score per food %d must not be negative", ErrInvalidConfig, r.ScorePerFood)
	}
	if r.MaxFoodAttempts < 0 {
		return fmt.Errorf("%w: max food attempts %d must not be negative", ErrInvalidConfig, r.MaxFoodAttempts)
	}
	return nil
}

// Server holds everything the webserver binary needs.
type Server struct {
	Addr         string
	TickInterval time.Duration
	DBPath       string
	RecordDir    string // Empty disables recording
	Rules        Rules
}

// Default returns the server settings before any override.
func Default() Server {
	return Server{
		Addr:         DefaultAddr,
		TickInterval: DefaultTickInterval,
		DBPath:       DefaultDBPath,
		Rules:        DefaultRules(),
	}
}

// Validate checks the server settings and the rules they carry.
func (s Server) Validate() error {
	if s.Addr == "" {
		return fmt.Errorf("%w: empty listen address", ErrInvalidConfig)
	}
	if s.TickInterval < MinTickInterval {
		return fmt.Errorf("%w: tick interval %v below %v", ErrInvalidConfig, s.TickInterval, MinTickInterval)
	}
	return s.Rules.Validate()
}

// Load returns the defaults with SNAKE_* environment overrides applied.
func Load() (Server, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with a custom lookup, so tests need not touch the process env.
func LoadFrom(getenv func(string) string) (Server, error) {
	s := Default()

	if v := getenv("SNAKE_ADDR"); v != "" {
		s.Addr = v
	}
	if v := getenv("SNAKE_DB"); v != "" {
		s.DBPath = v
	}
	if v := getenv("SNAKE_RECORD_DIR"); v != "" {
		s.RecordDir = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"SNAKE_WIDTH", &s.Rules.Width},
		{"SNAKE_HEIGHT", &s.Rules.Height},
		{"SNAKE_INITIAL_LENGTH", &s.Rules.InitialLength},
		{"SNAKE_SCORE_PER_FOOD", &s.Rules.ScorePerFood},
	}
	for _, it := range ints {
		v := getenv(it.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return s, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, it.key, v)
		}
		*it.dst = n
	}

	if v := getenv("SNAKE_TICK_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return s, fmt.Errorf("%w: SNAKE_TICK_MS=%q is not an integer", ErrInvalidConfig, v)
		}
		s.TickInterval = time.Duration(ms) * time.Millisecond
	}

	return s, s.Validate()
}
