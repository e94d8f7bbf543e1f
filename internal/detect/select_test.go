package detect

import (
	"testing"

	"github.com/banshee-data/stopline.report/internal/route"
)

// straightRoute builds a route along the x axis with one waypoint per
// unit of distance.
func straightRoute(n int) *route.Index {
	points := make([]route.Point, n)
	for i := range points {
		points[i] = route.Point{X: float64(i), Y: 0}
	}
	return route.NewIndex(points)
}

func TestSelectUpcoming_PicksNearestAhead(t *testing.T) {
	ix := straightRoute(300)

	// Vehicle at waypoint 20. Stop lines at waypoint distances
	// -5, +10, +250 and +40: behind, near, beyond the corridor, far.
	stopLines := []routePoint{
		{X: 15, Y: 0},
		{X: 30, Y: 0},
		{X: 270, Y: 0},
		{X: 60, Y: 0},
	}
	lights := []TrafficLight{
		{X: 15.2, Y: 1, Z: 5, State: LightRed},
		{X: 30.2, Y: 1, Z: 5, State: LightRed},
		{X: 270.2, Y: 1, Z: 5, State: LightRed},
		{X: 60.2, Y: 1, Z: 5, State: LightGreen},
	}

	cand := SelectUpcoming(ix, stopLines, lights, 20, DefaultMaxStopDistance)
	if cand.StopWaypoint != 30 {
		t.Errorf("expected stop waypoint 30, got %d", cand.StopWaypoint)
	}
	if cand.LightWaypoint != 30 {
		t.Errorf("expected light waypoint 30, got %d", cand.LightWaypoint)
	}
	if cand.State != LightRed {
		t.Errorf("expected red, got %s", cand.State)
	}
	if cand.LightX != 30.2 || cand.LightY != 1 || cand.LightZ != 5 {
		t.Errorf("expected winner position (30.2, 1, 5), got (%v, %v, %v)", cand.LightX, cand.LightY, cand.LightZ)
	}
}

func TestSelectUpcoming_SkipsBehindAndBeyondCorridor(t *testing.T) {
	ix := straightRoute(300)
	stopLines := []routePoint{
		{X: 15, Y: 0},
		{X: 270, Y: 0},
	}
	lights := []TrafficLight{
		{X: 15.2, Y: 1, State: LightRed},
		{X: 270.2, Y: 1, State: LightRed},
	}

	cand := SelectUpcoming(ix, stopLines, lights, 20, DefaultMaxStopDistance)
	if cand != NoCandidate {
		t.Errorf("expected no candidate, got %+v", cand)
	}
}

func TestSelectUpcoming_ExactCorridorBoundaryExcluded(t *testing.T) {
	ix := straightRoute(300)
	stopLines := []routePoint{{X: 220, Y: 0}}
	lights := []TrafficLight{{X: 220.2, Y: 1, State: LightRed}}

	// Distance of exactly maxDistance does not qualify.
	if cand := SelectUpcoming(ix, stopLines, lights, 20, 200); cand != NoCandidate {
		t.Errorf("expected no candidate at the boundary, got %+v", cand)
	}
	if cand := SelectUpcoming(ix, stopLines, lights, 20, 201); cand.StopWaypoint != 220 {
		t.Errorf("expected stop waypoint 220 inside the corridor, got %d", cand.StopWaypoint)
	}
}

func TestSelectUpcoming_StopLineAtVehicleWaypointExcluded(t *testing.T) {
	ix := straightRoute(100)
	stopLines := []routePoint{{X: 20, Y: 0}}
	lights := []TrafficLight{{X: 20.2, Y: 1, State: LightRed}}

	if cand := SelectUpcoming(ix, stopLines, lights, 20, DefaultMaxStopDistance); cand != NoCandidate {
		t.Errorf("expected no candidate at zero distance, got %+v", cand)
	}
}

func TestSelectUpcoming_YellowReportedAsRed(t *testing.T) {
	ix := straightRoute(100)
	stopLines := []routePoint{{X: 30, Y: 0}}
	lights := []TrafficLight{{X: 30.2, Y: 1, State: LightYellow}}

	cand := SelectUpcoming(ix, stopLines, lights, 20, DefaultMaxStopDistance)
	if cand.State != LightRed {
		t.Errorf("expected yellow winner reported as red, got %s", cand.State)
	}
}

func TestSelectUpcoming_UnknownVehicleWaypoint(t *testing.T) {
	ix := straightRoute(100)
	stopLines := []routePoint{{X: 30, Y: 0}}
	lights := []TrafficLight{{X: 30.2, Y: 1, State: LightRed}}

	if cand := SelectUpcoming(ix, stopLines, lights, -1, DefaultMaxStopDistance); cand != NoCandidate {
		t.Errorf("expected no candidate without vehicle position, got %+v", cand)
	}
}

func TestSelectUpcoming_NoLights(t *testing.T) {
	ix := straightRoute(100)
	stopLines := []routePoint{{X: 30, Y: 0}}

	if cand := SelectUpcoming(ix, stopLines, nil, 20, DefaultMaxStopDistance); cand != NoCandidate {
		t.Errorf("expected no candidate without lights, got %+v", cand)
	}
}
