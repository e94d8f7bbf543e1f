package route

import (
	"math/rand"
	"testing"
)

// bruteNearest is the reference implementation: linear scan with strict
// less-than so the lowest index wins ties.
func bruteNearest(points []Point, x, y float64) int {
	best := -1
	bestDist := 0.0
	for i, p := range points {
		dx := p.X - x
		dy := p.Y - y
		d := dx*dx + dy*dy
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

func TestIndex_NearestMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	points := make([]Point, 200)
	for i := range points {
		points[i] = Point{X: rng.Float64() * 1000, Y: rng.Float64() * 1000}
	}
	ix := NewIndex(points)

	for q := 0; q < 500; q++ {
		x := rng.Float64()*1200 - 100
		y := rng.Float64()*1200 - 100

		got := ix.Nearest(x, y)
		want := bruteNearest(points, x, y)
		if got != want {
			t.Fatalf("query (%v, %v): expected waypoint %d, got %d", x, y, want, got)
		}
	}
}

func TestIndex_NearestTieResolvesToLowestIndex(t *testing.T) {
	// Query point equidistant from waypoints 0 and 2.
	points := []Point{
		{X: 0, Y: 0},
		{X: 100, Y: 100},
		{X: 2, Y: 0},
	}
	ix := NewIndex(points)

	if got := ix.Nearest(1, 0); got != 0 {
		t.Errorf("expected tie to resolve to waypoint 0, got %d", got)
	}
}

func TestIndex_NearestDuplicatePoints(t *testing.T) {
	points := []Point{
		{X: 5, Y: 5},
		{X: 50, Y: 50},
		{X: 5, Y: 5},
	}
	ix := NewIndex(points)

	if got := ix.Nearest(5, 5); got != 0 {
		t.Errorf("expected duplicate to resolve to waypoint 0, got %d", got)
	}
	if got := ix.Nearest(6, 4); got != 0 {
		t.Errorf("expected nearby query to resolve to waypoint 0, got %d", got)
	}
}

func TestIndex_Empty(t *testing.T) {
	if got := NewIndex(nil).Nearest(0, 0); got != -1 {
		t.Errorf("expected -1 from empty index, got %d", got)
	}
	if got := NewIndex(nil).Len(); got != 0 {
		t.Errorf("expected length 0, got %d", got)
	}

	var ix *Index
	if got := ix.Nearest(0, 0); got != -1 {
		t.Errorf("expected -1 from nil index, got %d", got)
	}
	if got := ix.Len(); got != 0 {
		t.Errorf("expected length 0 from nil index, got %d", got)
	}
}

func TestIndex_SinglePoint(t *testing.T) {
	ix := NewIndex([]Point{{X: 3, Y: 4}})
	if got := ix.Nearest(-100, 200); got != 0 {
		t.Errorf("expected waypoint 0, got %d", got)
	}
	if p := ix.At(0); p.X != 3 || p.Y != 4 {
		t.Errorf("expected (3, 4), got %v", p)
	}
}

func TestIndex_CopiesInput(t *testing.T) {
	points := []Point{{X: 0, Y: 0}, {X: 10, Y: 0}}
	ix := NewIndex(points)
	points[0].X = 9999

	if got := ix.Nearest(1, 0); got != 0 {
		t.Errorf("expected waypoint 0 after caller mutation, got %d", got)
	}
}
