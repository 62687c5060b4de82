package game

import "math/rand"

// placeFood picks a uniformly random cell not covered by the snake.
// It draws up to maxAttempts random cells, then falls back to scanning the
// board so a crowded board still terminates. ErrBoardFull means no cell is free.
func placeFood(rng *rand.Rand, s *session, maxAttempts int) (Point, error) {
	for attempts := 0; attempts < maxAttempts; attempts++ {
		pos := Point{
			X: rng.Intn(s.width),
			Y: rng.Intn(s.height),
		}
		if !s.occupied(pos) {
			return pos, nil
		}
	}

	free := freeCells(s)
	if len(free) == 0 {
		return Point{}, ErrBoardFull
	}
	return free[rng.Intn(len(free))], nil
}

// freeCells lists every cell not covered by the snake, row by row.
func freeCells(s *session) []Point {
	taken := make(map[Point]struct{}, len(s.snake))
	for _, seg := range s.snake {
		taken[seg] = struct{}{}
	}

	free := make([]Point, 0, s.width*s.height-len(taken))
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			p := Point{X: x, Y: y}
			if _, ok := taken[p]; !ok {
				free = append(free, p)
			}
		}
	}
	return free
}
