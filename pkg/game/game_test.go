package game

import (
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/trytobebee/snake_engine/pkg/config"
)

func newTestGame(t *testing.T, seed int64) *Game {
	t.Helper()
	return NewGame(config.DefaultRules(), WithSeed(seed))
}

// install replaces the running session's body, direction and food.
func install(g *Game, snake []Point, dir Direction, food Point) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.s.snake = append([]Point(nil), snake...)
	g.s.direction = dir
	g.s.pending = dir
	g.s.food = food
}

// dumpBoard draws a snapshot for failure messages: H head, s body, * food.
func dumpBoard(s Snapshot) string {
	grid := make([][]byte, s.Height)
	for y := range grid {
		grid[y] = []byte(strings.Repeat(".", s.Width))
	}
	if s.Food.Y >= 0 && s.Food.Y < s.Height && s.Food.X >= 0 && s.Food.X < s.Width {
		grid[s.Food.Y][s.Food.X] = '*'
	}
	for i, p := range s.Snake {
		if p.Y < 0 || p.Y >= s.Height || p.X < 0 || p.X >= s.Width {
			continue
		}
		if i == 0 {
			grid[p.Y][p.X] = 'H'
		} else {
			grid[p.Y][p.X] = 's'
		}
	}
	var sb strings.Builder
	for _, row := range grid {
		sb.Write(row)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func checkRunningInvariants(t *testing.T, s Snapshot) {
	t.Helper()
	seen := make(map[Point]bool, len(s.Snake))
	for _, p := range s.Snake {
		if p.X < 0 || p.X >= s.Width || p.Y < 0 || p.Y >= s.Height {
			t.Fatalf("segment %v out of bounds\n%s", p, dumpBoard(s))
		}
		if seen[p] {
			t.Fatalf("segment %v repeated\n%s", p, dumpBoard(s))
		}
		seen[p] = true
	}
	if seen[s.Food] {
		t.Fatalf("food %v on snake\n%s", s.Food, dumpBoard(s))
	}
}

func TestResetPlacesSnakeInCenter(t *testing.T) {
	g := newTestGame(t, 1)

	s, err := g.Reset("Ada", 20, 20)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	want := []Point{{10, 10}, {9, 10}, {8, 10}}
	if !reflect.DeepEqual(s.Snake, want) {
		t.Errorf("Expected snake %v, got %v", want, s.Snake)
	}
	if g.Direction() != Right || g.Pending() != Right {
		t.Errorf("Expected RIGHT/RIGHT, got %v/%v", g.Direction(), g.Pending())
	}
	if s.Score != 0 || s.GameOver {
		t.Errorf("Expected score 0 and running, got score=%d gameOver=%v", s.Score, s.GameOver)
	}
	if s.PlayerName != "Ada" {
		t.Errorf("Expected player Ada, got %q", s.PlayerName)
	}
	if s.Phase != PhaseRunning {
		t.Errorf("Expected phase running, got %s", s.Phase)
	}
	checkRunningInvariants(t, s)
}

func TestResetDefaultsPlayerName(t *testing.T) {
	g := newTestGame(t, 1)
	s, err := g.Reset("", 20, 20)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if s.PlayerName != config.DefaultPlayerName {
		t.Errorf("Expected %q, got %q", config.DefaultPlayerName, s.PlayerName)
	}
}

func TestResetRejectsBadBoards(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{"zero width", 0, 20},
		{"zero height", 20, 0},
		{"negative", -4, -4},
		{"too narrow for snake", 3, 20},
		{"single cell", 1, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGame(t, 1)
			_, err := g.Reset("Ada", tc.width, tc.height)
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("Expected ErrInvalidConfiguration, got %v", err)
			}
			if g.Snapshot().Phase != PhaseNotStarted {
				t.Errorf("Failed reset must not start a session")
			}
		})
	}
}

func TestFailedResetKeepsSession(t *testing.T) {
	g := newTestGame(t, 1)
	before, _ := g.Reset("Ada", 20, 20)
	g.Tick()
	after := g.Snapshot()

	if _, err := g.Reset("Bob", 0, 0); err == nil {
		t.Fatal("Expected error")
	}
	if got := g.Snapshot(); !reflect.DeepEqual(got, after) {
		t.Errorf("Session changed by failed reset: before %+v, after %+v", after, got)
	}
	if before.PlayerName != "Ada" {
		t.Errorf("Unexpected player %q", before.PlayerName)
	}
}

func TestSmallestBoards(t *testing.T) {
	rules := config.DefaultRules()
	rules.InitialLength = 1
	g := NewGame(rules, WithSeed(3))

	s, err := g.Reset("Ada", 2, 1)
	if err != nil {
		t.Fatalf("2x1 board should fit a 1-cell snake: %v", err)
	}
	if s.Snake[0] != (Point{1, 0}) || s.Food != (Point{0, 0}) {
		t.Errorf("Unexpected layout\n%s", dumpBoard(s))
	}
}

func TestTickMovesOneCell(t *testing.T) {
	g := newTestGame(t, 1)
	g.Reset("Ada", 20, 20)
	install(g, []Point{{10, 10}, {9, 10}, {8, 10}}, Right, Point{0, 0})

	s := g.Tick()

	want := []Point{{11, 10}, {10, 10}, {9, 10}}
	if !reflect.DeepEqual(s.Snake, want) {
		t.Errorf("Expected %v, got %v", want, s.Snake)
	}
	if s.Score != 0 {
		t.Errorf("Expected score 0, got %d", s.Score)
	}
	if s.Ticks != 1 {
		t.Errorf("Expected 1 tick, got %d", s.Ticks)
	}
}

func TestTickEatsFood(t *testing.T) {
	g := newTestGame(t, 1)
	g.Reset("Ada", 20, 20)
	install(g, []Point{{10, 10}, {9, 10}, {8, 10}}, Right, Point{11, 10})

	s := g.Tick()

	want := []Point{{11, 10}, {10, 10}, {9, 10}, {8, 10}}
	if !reflect.DeepEqual(s.Snake, want) {
		t.Errorf("Expected %v, got %v", want, s.Snake)
	}
	if s.Score != 10 || s.FoodEaten != 1 {
		t.Errorf("Expected score 10 and 1 food eaten, got %d/%d", s.Score, s.FoodEaten)
	}
	checkRunningInvariants(t, s)
	t.Logf("New food at %v", s.Food)
}

func TestWallCollision(t *testing.T) {
	tests := []struct {
		name  string
		snake []Point
		dir   Direction
	}{
		{"right wall", []Point{{19, 10}, {18, 10}, {17, 10}}, Right},
		{"left wall", []Point{{0, 10}, {1, 10}, {2, 10}}, Left},
		{"top wall", []Point{{5, 0}, {5, 1}, {5, 2}}, Up},
		{"bottom wall", []Point{{5, 19}, {5, 18}, {5, 17}}, Down},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGame(t, 1)
			g.Reset("Ada", 20, 20)
			install(g, tc.snake, tc.dir, Point{10, 10})

			s := g.Tick()
			if !s.GameOver || s.DeathCause != DeathCauseWallCollision {
				t.Fatalf("Expected wall collision, got gameOver=%v cause=%q", s.GameOver, s.DeathCause)
			}
			if !reflect.DeepEqual(s.Snake, tc.snake) {
				t.Errorf("Snake must stay put: %v", s.Snake)
			}
			if s.Phase != PhaseGameOver {
				t.Errorf("Expected phase game_over, got %s", s.Phase)
			}
		})
	}
}

func TestSelfCollision(t *testing.T) {
	g := newTestGame(t, 1)
	g.Reset("Ada", 5, 5)
	body := []Point{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {2, 0}}
	install(g, body, Up, Point{4, 4})
	g.SetDirection(Right)

	s := g.Tick()
	if !s.GameOver || s.DeathCause != DeathCauseSelfCollision {
		t.Fatalf("Expected self collision\n%s", dumpBoard(s))
	}
	if !reflect.DeepEqual(s.Snake, body) {
		t.Errorf("Snake must stay put: %v", s.Snake)
	}
}

func TestHeadMayFollowTail(t *testing.T) {
	g := newTestGame(t, 1)
	g.Reset("Ada", 5, 5)
	install(g, []Point{{0, 0}, {0, 1}, {1, 1}, {1, 0}}, Up, Point{4, 4})
	g.SetDirection(Right)

	s := g.Tick()
	if s.GameOver {
		t.Fatalf("Moving into the tail cell is legal\n%s", dumpBoard(s))
	}
	want := []Point{{1, 0}, {0, 0}, {0, 1}, {1, 1}}
	if !reflect.DeepEqual(s.Snake, want) {
		t.Errorf("Expected %v, got %v", want, s.Snake)
	}
}

func TestReversalIgnored(t *testing.T) {
	g := newTestGame(t, 1)
	g.Reset("Ada", 20, 20)
	install(g, []Point{{10, 10}, {9, 10}, {8, 10}}, Right, Point{0, 0})

	if g.TrySetDirection(Left) {
		t.Error("Reversal should be rejected")
	}
	s := g.Tick()
	if g.Direction() != Right {
		t.Errorf("Expected RIGHT, got %v", g.Direction())
	}
	if s.Snake[0] != (Point{11, 10}) {
		t.Errorf("Expected head at 11,10, got %v", s.Snake[0])
	}
}

func TestNoReversalAnyDirection(t *testing.T) {
	for _, d := range []Direction{Up, Down, Left, Right} {
		t.Run(d.String(), func(t *testing.T) {
			g := newTestGame(t, 1)
			g.Reset("Ada", 20, 20)
			install(g, []Point{{10, 10}}, d, Point{0, 0})

			g.SetDirection(d.Opposite())
			g.Tick()
			if g.Direction() != d {
				t.Errorf("Expected %v, got %v", d, g.Direction())
			}
		})
	}
}

func TestDirectionBufferedUntilTick(t *testing.T) {
	g := newTestGame(t, 1)
	g.Reset("Ada", 20, 20)
	install(g, []Point{{10, 10}, {9, 10}, {8, 10}}, Right, Point{0, 0})

	// Up then Left between ticks: Left is checked against RIGHT, not UP.
	g.SetDirection(Up)
	g.SetDirection(Left)
	if g.Pending() != Up {
		t.Fatalf("Expected pending UP, got %v", g.Pending())
	}
	if g.Direction() != Right {
		t.Fatalf("Direction must not change before tick, got %v", g.Direction())
	}

	s := g.Tick()
	if s.Snake[0] != (Point{10, 9}) {
		t.Errorf("Expected head at 10,9, got %v", s.Snake[0])
	}
	if s.GameOver {
		t.Error("Buffered turns must not produce a reversal into the body")
	}
}

func TestLastTurnWins(t *testing.T) {
	g := newTestGame(t, 1)
	g.Reset("Ada", 20, 20)
	install(g, []Point{{10, 10}, {9, 10}, {8, 10}}, Right, Point{0, 0})

	g.SetDirection(Up)
	g.SetDirection(Down)
	s := g.Tick()
	if s.Snake[0] != (Point{10, 11}) {
		t.Errorf("Expected head at 10,11, got %v", s.Snake[0])
	}
}

func TestGameOverIsTerminal(t *testing.T) {
	g := newTestGame(t, 1)
	g.Reset("Ada", 20, 20)
	install(g, []Point{{19, 10}, {18, 10}, {17, 10}}, Right, Point{0, 0})

	first := g.Tick()
	if !first.GameOver {
		t.Fatal("Expected game over")
	}

	g.SetDirection(Up)
	for i := 0; i < 5; i++ {
		if got := g.Tick(); !reflect.DeepEqual(got, first) {
			t.Fatalf("Tick %d changed a finished game: %+v vs %+v", i, got, first)
		}
	}
	if g.Pending() != Right {
		t.Errorf("SetDirection after game over must be ignored, pending=%v", g.Pending())
	}
}

func TestOperationsBeforeReset(t *testing.T) {
	g := newTestGame(t, 1)

	g.SetDirection(Up)
	s := g.Tick()
	if s.Phase != PhaseNotStarted {
		t.Errorf("Expected not_started, got %s", s.Phase)
	}
	if len(s.Snake) != 0 || s.GameOver {
		t.Errorf("Unexpected state before reset: %+v", s)
	}
}

func TestResetAfterGameOver(t *testing.T) {
	g := newTestGame(t, 1)
	g.Reset("Ada", 20, 20)
	install(g, []Point{{19, 10}, {18, 10}, {17, 10}}, Right, Point{0, 0})
	g.Tick()

	s, err := g.Reset("Bob", 20, 20)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if s.GameOver || s.Score != 0 || s.Ticks != 0 || s.DeathCause != "" || s.PlayerName != "Bob" {
		t.Errorf("Reset must start from scratch: %+v", s)
	}
}

func TestBoardFullEndsGame(t *testing.T) {
	rules := config.DefaultRules()
	rules.InitialLength = 2
	g := NewGame(rules, WithSeed(7))

	s, err := g.Reset("Ada", 3, 1)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if s.Food != (Point{2, 0}) {
		t.Fatalf("Only free cell is 2,0, got %v", s.Food)
	}

	s = g.Tick()
	if !s.GameOver || s.DeathCause != DeathCauseBoardFull {
		t.Fatalf("Expected board-full game over, got %+v", s)
	}
	if s.Score != 10 || len(s.Snake) != 3 {
		t.Errorf("Expected score 10 and length 3, got %d/%d", s.Score, len(s.Snake))
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	g := newTestGame(t, 1)
	s, _ := g.Reset("Ada", 20, 20)
	s.Snake[0] = Point{-1, -1}

	if g.Snapshot().Snake[0] != (Point{10, 10}) {
		t.Error("Mutating a snapshot leaked into the engine")
	}
}

func TestSameSeedSameGame(t *testing.T) {
	play := func() Snapshot {
		g := newTestGame(t, 42)
		g.Reset("Ada", 12, 12)
		moves := rand.New(rand.NewSource(99))
		var s Snapshot
		for i := 0; i < 300; i++ {
			g.SetDirection(Direction(moves.Intn(4)))
			s = g.Tick()
		}
		return s
	}

	a, b := play(), play()
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Same seed and inputs diverged:\n%s\nvs\n%s", dumpBoard(a), dumpBoard(b))
	}
}

func TestRandomPlayKeepsInvariants(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		g := newTestGame(t, seed)
		moves := rand.New(rand.NewSource(seed * 31))
		s, _ := g.Reset("Ada", 8, 8)
		lastScore := 0

		for i := 0; i < 2000; i++ {
			g.SetDirection(Direction(moves.Intn(4)))
			prevLen := len(s.Snake)
			prevEaten := s.FoodEaten
			s = g.Tick()

			if s.Score < lastScore || s.Score%config.DefaultScorePerFood != 0 {
				t.Fatalf("seed %d: bad score %d after %d", seed, s.Score, lastScore)
			}
			lastScore = s.Score

			if s.GameOver {
				s, _ = g.Reset("Ada", 8, 8)
				lastScore = 0
				continue
			}
			checkRunningInvariants(t, s)

			grew := len(s.Snake) - prevLen
			ate := s.FoodEaten - prevEaten
			if grew != ate {
				t.Fatalf("seed %d: grew %d but ate %d", seed, grew, ate)
			}
			if len(s.Snake) != config.DefaultInitialLength+s.FoodEaten {
				t.Fatalf("seed %d: length %d with %d eaten", seed, len(s.Snake), s.FoodEaten)
			}
		}
	}
}

func TestConcurrentTickAndSetDirection(t *testing.T) {
	g := newTestGame(t, 5)
	g.Reset("Ada", 20, 20)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			g.Tick()
		}
	}()
	go func() {
		defer wg.Done()
		dirs := []Direction{Up, Left, Down, Right}
		for i := 0; i < 500; i++ {
			g.SetDirection(dirs[i%len(dirs)])
			_ = g.Snapshot()
		}
	}()
	wg.Wait()

	if s := g.Snapshot(); !s.GameOver {
		checkRunningInvariants(t, s)
	}
}
