package proto

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/trytobebee/snake_engine/pkg/game"
)

// ErrMalformed is wrapped by every decode failure in this package.
var ErrMalformed = errors.New("malformed wire state")

// WireState is the string-typed state the original HTTP API returned.
type WireState struct {
	Snake      string `json:"snake"`
	Food       string `json:"food"`
	Score      string `json:"score"`
	GameOver   string `json:"gameOver"`
	PlayerName string `json:"playerName"`
}

// FormatPoint encodes p as "x,y".
func FormatPoint(p game.Point) string {
	return strconv.Itoa(p.X) + "," + strconv.Itoa(p.Y)
}

// ParsePoint decodes "x,y".
func ParsePoint(s string) (game.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return game.Point{}, fmt.Errorf("%w: point %q", ErrMalformed, s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return game.Point{}, fmt.Errorf("%w: point %q", ErrMalformed, s)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return game.Point{}, fmt.Errorf("%w: point %q", ErrMalformed, s)
	}
	return game.Point{X: x, Y: y}, nil
}

// ToWireState encodes a snapshot: segments joined by ";", numbers and
// booleans as decimal and "true"/"false" strings.
func ToWireState(s game.Snapshot) WireState {
	segs := make([]string, len(s.Snake))
	for i, p := range s.Snake {
		segs[i] = FormatPoint(p)
	}
	return WireState{
		Snake:      strings.Join(segs, ";"),
		Food:       FormatPoint(s.Food),
		Score:      strconv.Itoa(s.Score),
		GameOver:   strconv.FormatBool(s.GameOver),
		PlayerName: s.PlayerName,
	}
}

// ParseWireState decodes the fields the wire format carries. Everything
// else in the returned snapshot is left zero.
func ParseWireState(w WireState) (game.Snapshot, error) {
	var s game.Snapshot

	if w.Snake != "" {
		for _, seg := range strings.Split(w.Snake, ";") {
			p, err := ParsePoint(seg)
			if err != nil {
				return s, err
			}
			s.Snake = append(s.Snake, p)
		}
	}

	food, err := ParsePoint(w.Food)
	if err != nil {
		return s, err
	}
	s.Food = food

	score, err := strconv.Atoi(w.Score)
	if err != nil {
		return s, fmt.Errorf("%w: score %q", ErrMalformed, w.Score)
	}
	s.Score = score

	switch w.GameOver {
	case "true":
		s.GameOver = true
	case "false":
	default:
		return s, fmt.Errorf("%w: gameOver %q", ErrMalformed, w.GameOver)
	}

	s.PlayerName = w.PlayerName
	return s, nil
}

// ParseDirection maps a client direction or key action ("UP", "up", ...) to the engine enum.
func ParseDirection(s string) (game.Direction, error) {
	return game.ParseDirection(s)
}
