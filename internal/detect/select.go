package detect

import (
	"github.com/banshee-data/stopline.report/internal/route"
)

// DefaultMaxStopDistance bounds how far ahead, in waypoint indices, a
// light may be and still be considered upcoming.
const DefaultMaxStopDistance = 200

// SelectUpcoming scans the live light list and returns the single light
// whose stop waypoint is strictly ahead of the vehicle and nearer than
// any other candidate within maxDistance. Distance is measured as the
// waypoint-index difference, which assumes the route list is ordered
// monotonically along the route with roughly uniform spacing.
//
// A YELLOW winner is reported as RED: an amber light still requires the
// vehicle to stop.
func SelectUpcoming(ix *route.Index, stopLines []routePoint, lights []TrafficLight, vehicleWaypoint, maxDistance int) Candidate {
	if vehicleWaypoint < 0 {
		return NoCandidate
	}

	best := NoCandidate
	bestDistance := maxDistance
	for _, light := range lights {
		lightWP := ix.Nearest(light.X, light.Y)
		stopWP := StopWaypointFor(ix, stopLines, light.X, light.Y)
		if stopWP < 0 {
			continue
		}

		// Lights behind the vehicle have non-positive distance.
		distance := stopWP - vehicleWaypoint
		if distance <= 0 || distance >= bestDistance {
			continue
		}
		bestDistance = distance
		best = Candidate{
			LightWaypoint: lightWP,
			StopWaypoint:  stopWP,
			State:         light.State,
			LightX:        light.X,
			LightY:        light.Y,
			LightZ:        light.Z,
		}
	}

	if best.StopWaypoint < 0 {
		return NoCandidate
	}
	if best.State == LightYellow {
		best.State = LightRed
	}
	return best
}
