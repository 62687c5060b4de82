package game

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidConfiguration is returned by Reset when the board cannot hold a new session.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrBoardFull means no free cell is left for food.
	ErrBoardFull = errors.New("board full")
	// ErrUnknownDirection is returned when a direction name cannot be parsed.
	ErrUnknownDirection = errors.New("unknown direction")
)

// Point represents a coordinate on the game board
type Point struct {
	X int `json:"x" msgpack:"x"`
	Y int `json:"y" msgpack:"y"`
}

// Add returns p moved by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

func (p Point) String() string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

// Direction is one of the four moves a snake can make.
type Direction uint8

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Delta returns the unit displacement of d. Up decreases Y.
func (d Direction) Delta() Point {
	switch d {
	case Up:
		return Point{X: 0, Y: -1}
	case Down:
		return Point{X: 0, Y: 1}
	case Left:
		return Point{X: -1, Y: 0}
	case Right:
		return Point{X: 1, Y: 0}
	}
	return Point{}
}

// Opposite returns the reverse of d.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

// Valid reports whether d is one of the four known directions.
func (d Direction) Valid() bool {
	return d <= Right
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	}
	return "UNKNOWN"
}

// ParseDirection accepts UP, DOWN, LEFT and RIGHT in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UP":
		return Up, nil
	case "DOWN":
		return Down, nil
	case "LEFT":
		return Left, nil
	case "RIGHT":
		return Right, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDirection, uint8(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	parsed, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Phase is where a session is in its lifecycle.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseRunning    Phase = "running"
	PhaseGameOver   Phase = "game_over"
)

// Reasons a session ended
const (
	DeathCauseWallCollision = "wall-collision"
	DeathCauseSelfCollision = "self-collision"
	DeathCauseBoardFull     = "board-full"
)

// Snapshot is a point-in-time copy of a session. It shares no memory with the engine.
type Snapshot struct {
	Snake      []Point   `json:"snake" msgpack:"snake"`
	Food       Point     `json:"food" msgpack:"food"`
	Score      int       `json:"score" msgpack:"score"`
	GameOver   bool      `json:"gameOver" msgpack:"gameOver"`
	PlayerName string    `json:"playerName" msgpack:"playerName"`
	Direction  Direction `json:"direction" msgpack:"direction"`
	Width      int       `json:"width" msgpack:"width"`
	Height     int       `json:"height" msgpack:"height"`
	Ticks      int       `json:"ticks" msgpack:"ticks"`
	FoodEaten  int       `json:"foodEaten" msgpack:"foodEaten"`
	Phase      Phase     `json:"phase" msgpack:"phase"`
	DeathCause string    `json:"deathCause,omitempty" msgpack:"deathCause,omitempty"`
}

// Head returns the first snake segment, or false for an empty snapshot.
func (s Snapshot) Head() (Point, bool) {
	if len(s.Snake) == 0 {
		return Point{}, false
	}
	return s.Snake[0], true
}

// session is the complete mutable state of one game.
type session struct {
	snake      []Point
	food       Point
	direction  Direction
	pending    Direction
	score      int
	gameOver   bool
	playerName string
	width      int
	height     int
	ticks      int
	foodEaten  int
	deathCause string
}
