package detect

import (
	"github.com/banshee-data/stopline.report/internal/geom"
	"github.com/banshee-data/stopline.report/internal/route"
)

// NearestStopLine returns the configured stop line closest to the given
// light position by 2D Euclidean distance, scanning in config order so
// equidistant lines resolve to the first encountered. There is no
// distance cap: a light is always matched to some stop line, and the
// selector bounds the overall corridor distance instead.
func NearestStopLine(stopLines []routePoint, lightX, lightY float64) (routePoint, bool) {
	if len(stopLines) == 0 {
		return routePoint{}, false
	}
	best := stopLines[0]
	bestDist := geom.Distance2D(best.X, best.Y, lightX, lightY)
	for _, sl := range stopLines[1:] {
		if d := geom.Distance2D(sl.X, sl.Y, lightX, lightY); d < bestDist {
			best = sl
			bestDist = d
		}
	}
	return best, true
}

// StopWaypointFor returns the route waypoint index nearest to the stop
// line associated with the given light position, or -1 when no stop
// lines are configured or the route index is empty.
func StopWaypointFor(ix *route.Index, stopLines []routePoint, lightX, lightY float64) int {
	sl, ok := NearestStopLine(stopLines, lightX, lightY)
	if !ok {
		return -1
	}
	return ix.Nearest(sl.X, sl.Y)
}
