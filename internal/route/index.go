// Package route maintains the planned route waypoint list and a
// nearest-neighbour index over it. The index is rebuilt wholesale each
// time a new waypoint list arrives; queries never observe a partially
// built tree.
package route

import (
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Point is a 2D route waypoint position on the ground plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// waypoint is a kdtree node carrying its position in the route list so
// queries can report the waypoint index rather than its coordinates.
type waypoint struct {
	x, y float64
	idx  int
}

func (w waypoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(waypoint)
	switch d {
	case 0:
		return w.x - q.x
	default:
		return w.y - q.y
	}
}

func (w waypoint) Dims() int { return 2 }

func (w waypoint) Distance(c kdtree.Comparable) float64 {
	q := c.(waypoint)
	dx := w.x - q.x
	dy := w.y - q.y
	return dx*dx + dy*dy
}

// waypoints implements kdtree.Interface over a slice of nodes.
type waypoints []waypoint

func (p waypoints) Index(i int) kdtree.Comparable { return p[i] }
func (p waypoints) Len() int                      { return len(p) }
func (p waypoints) Pivot(d kdtree.Dim) int        { return plane{Dim: d, waypoints: p}.Pivot() }
func (p waypoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

// plane sorts waypoints along a single dimension for tree construction.
type plane struct {
	kdtree.Dim
	waypoints
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.waypoints[i].x < p.waypoints[j].x
	default:
		return p.waypoints[i].y < p.waypoints[j].y
	}
}

func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.waypoints = p.waypoints[start:end]
	return p
}

func (p plane) Swap(i, j int) {
	p.waypoints[i], p.waypoints[j] = p.waypoints[j], p.waypoints[i]
}

// Index answers nearest-waypoint queries over an immutable waypoint
// list. A nil or empty Index is valid and reports no waypoints.
type Index struct {
	points []Point
	tree   *kdtree.Tree
}

// NewIndex builds a nearest-neighbour index over the given route
// waypoints. The slice is copied; insertion order is route order and is
// the index reported by Nearest.
func NewIndex(points []Point) *Index {
	ix := &Index{points: append([]Point(nil), points...)}
	if len(points) == 0 {
		return ix
	}
	nodes := make(waypoints, len(points))
	for i, p := range points {
		nodes[i] = waypoint{x: p.X, y: p.Y, idx: i}
	}
	ix.tree = kdtree.New(nodes, false)
	return ix
}

// Len returns the number of waypoints in the index.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.points)
}

// At returns the waypoint at index i.
func (ix *Index) At(i int) Point { return ix.points[i] }

// Nearest returns the index of the waypoint closest to (x, y) by
// Euclidean distance, or -1 if the index is empty. Equidistant
// waypoints resolve to the lowest route index.
func (ix *Index) Nearest(x, y float64) int {
	if ix == nil || ix.tree == nil {
		return -1
	}
	q := waypoint{x: x, y: y, idx: -1}
	best, bestDist := ix.tree.Nearest(q)
	if best == nil {
		return -1
	}
	idx := best.(waypoint).idx

	// Sweep everything at the winning distance so ties resolve
	// deterministically to the lowest index.
	keep := kdtree.NewDistKeeper(bestDist)
	ix.tree.NearestSet(keep, q)
	for _, cd := range keep.Heap {
		w, ok := cd.Comparable.(waypoint)
		if ok && cd.Dist == bestDist && w.idx < idx {
			idx = w.idx
		}
	}
	return idx
}
