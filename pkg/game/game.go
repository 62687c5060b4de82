package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/trytobebee/snake_engine/pkg/config"
)

// Game owns a single session. All methods are safe for concurrent use;
// one mutex covers the whole session so a tick is applied atomically.
type Game struct {
	mu      sync.Mutex
	rules   config.Rules
	rng     *rand.Rand
	started bool
	s       session
}

// Option customizes a Game.
type Option func(*Game)

// WithRand sets the random source used for food placement.
func WithRand(r *rand.Rand) Option {
	return func(g *Game) {
		g.rng = r
	}
}

// WithSeed makes food placement deterministic.
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

// NewGame creates an engine with no session; call Reset to start playing.
// Board dimensions in rules are only used by callers as defaults; Reset takes its own.
func NewGame(rules config.Rules, opts ...Option) *Game {
	if rules.InitialLength < 1 {
		rules.InitialLength = config.DefaultInitialLength
	}
	if rules.MaxFoodAttempts <= 0 {
		rules.MaxFoodAttempts = config.MaxFoodAttempts
	}
	g := &Game{rules: rules}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return g
}

// Rules returns the options the engine was built with.
func (g *Game) Rules() config.Rules {
	return g.rules
}

// Reset replaces the session with a fresh one on a width x height board.
// On error the previous session is kept.
func (g *Game) Reset(playerName string, width, height int) (Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	length := g.rules.InitialLength
	if width <= 0 || height <= 0 {
		return g.snapshotLocked(), fmt.Errorf("%w: board %dx%d must be positive", ErrInvalidConfiguration, width, height)
	}
	if width/2-(length-1) < 0 {
		return g.snapshotLocked(), fmt.Errorf("%w: width %d cannot fit a snake of length %d", ErrInvalidConfiguration, width, length)
	}
	if width*height <= length {
		return g.snapshotLocked(), fmt.Errorf("%w: board %dx%d leaves no room for food", ErrInvalidConfiguration, width, height)
	}

	if playerName == "" {
		playerName = config.DefaultPlayerName
	}

	startX, startY := width/2, height/2
	snake := make([]Point, 0, length)
	for i := 0; i < length; i++ {
		snake = append(snake, Point{X: startX - i, Y: startY})
	}

	next := session{
		snake:      snake,
		direction:  Right,
		pending:    Right,
		playerName: playerName,
		width:      width,
		height:     height,
	}
	food, err := placeFood(g.rng, &next, g.rules.MaxFoodAttempts)
	if err != nil {
		// Unreachable with the size checks above.
		return g.snapshotLocked(), fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	next.food = food

	g.s = next
	g.started = true
	return g.snapshotLocked(), nil
}

// SetDirection buffers d for the next tick. Reversals of the direction in
// effect, and calls while no game is running, are ignored.
func (g *Game) SetDirection(d Direction) {
	g.TrySetDirection(d)
}

// TrySetDirection is SetDirection that reports whether d was accepted.
func (g *Game) TrySetDirection(d Direction) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.started || g.s.gameOver || !d.Valid() {
		return false
	}
	if d == g.s.direction.Opposite() {
		return false
	}
	g.s.pending = d
	return true
}

// Tick advances the snake by one cell and returns the resulting snapshot.
// Ticking a finished or unstarted game changes nothing.
func (g *Game) Tick() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.started || g.s.gameOver {
		return g.snapshotLocked()
	}

	s := &g.s
	s.direction = s.pending
	newHead := s.snake[0].Add(s.direction.Delta())

	if !s.inBounds(newHead) {
		s.end(DeathCauseWallCollision)
		return g.snapshotLocked()
	}
	// The tail leaves its cell this tick, so it is not an obstacle.
	for _, seg := range s.snake[:len(s.snake)-1] {
		if seg == newHead {
			s.end(DeathCauseSelfCollision)
			return g.snapshotLocked()
		}
	}

	s.snake = append(s.snake, Point{})
	copy(s.snake[1:], s.snake)
	s.snake[0] = newHead
	s.ticks++

	if newHead == s.food {
		s.score += g.rules.ScorePerFood
		s.foodEaten++
		food, err := placeFood(g.rng, s, g.rules.MaxFoodAttempts)
		if err != nil {
			s.end(DeathCauseBoardFull)
			return g.snapshotLocked()
		}
		s.food = food
	} else {
		s.snake = s.snake[:len(s.snake)-1]
	}

	return g.snapshotLocked()
}

// Snapshot returns the current state without changing it.
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

// Direction returns the direction committed by the last tick.
func (g *Game) Direction() Direction {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.s.direction
}

// Pending returns the direction the next tick will commit.
func (g *Game) Pending() Direction {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.s.pending
}

func (g *Game) snapshotLocked() Snapshot {
	phase := PhaseNotStarted
	switch {
	case g.started && g.s.gameOver:
		phase = PhaseGameOver
	case g.started:
		phase = PhaseRunning
	}

	snake := make([]Point, len(g.s.snake))
	copy(snake, g.s.snake)

	return Snapshot{
		Snake:      snake,
		Food:       g.s.food,
		Score:      g.s.score,
		GameOver:   g.s.gameOver,
		PlayerName: g.s.playerName,
		Direction:  g.s.direction,
		Width:      g.s.width,
		Height:     g.s.height,
		Ticks:      g.s.ticks,
		FoodEaten:  g.s.foodEaten,
		Phase:      phase,
		DeathCause: g.s.deathCause,
	}
}

func (s *session) inBounds(p Point) bool {
	return p.X >= 0 && p.X < s.width && p.Y >= 0 && p.Y < s.height
}

func (s *session) occupied(p Point) bool {
	for _, seg := range s.snake {
		if seg == p {
			return true
		}
	}
	return false
}

func (s *session) end(cause string) {
	s.gameOver = true
	s.deathCause = cause
}
