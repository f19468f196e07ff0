package catalog

import (
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/kilianp07/stationfinder/core/model"
)

// point is a station position stored in the k-d tree.
type point struct {
	x, y float64
	id   string
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(point)
	if d == 0 {
		return p.x - q.x
	}
	return p.y - q.y
}

func (p point) Dims() int { return 2 }

func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	dx, dy := p.x-q.x, p.y-q.y
	return dx*dx + dy*dy
}

type points []point

func (p points) Index(i int) kdtree.Comparable { return p[i] }
func (p points) Len() int                      { return len(p) }
func (p points) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}
func (p points) Pivot(d kdtree.Dim) int {
	pl := plane{points: p, dim: d}
	return kdtree.Partition(pl, kdtree.MedianOfMedians(pl))
}

type plane struct {
	points
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	if p.dim == 0 {
		return p.points[i].x < p.points[j].x
	}
	return p.points[i].y < p.points[j].y
}
func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}

// spatialIndex answers radius queries over station positions.
type spatialIndex struct {
	tree *kdtree.Tree
}

func buildIndex(stations map[string]*model.Station) spatialIndex {
	pts := make(points, 0, len(stations))
	for id, st := range stations {
		pts = append(pts, point{x: st.Position.X, y: st.Position.Y, id: id})
	}
	if len(pts) == 0 {
		return spatialIndex{}
	}
	return spatialIndex{tree: kdtree.New(pts, false)}
}

// within returns the ids of stations at most radius meters from pos.
func (ix spatialIndex) within(pos model.Position, radius float64) []string {
	if ix.tree == nil || radius < 0 {
		return nil
	}
	keep := kdtree.NewDistKeeper(radius * radius)
	ix.tree.NearestSet(keep, point{x: pos.X, y: pos.Y})
	ids := make([]string, 0, len(keep.Heap))
	for _, c := range keep.Heap {
		// the keeper starts with a sentinel entry holding no point
		if c.Comparable == nil {
			continue
		}
		ids = append(ids, c.Comparable.(point).id)
	}
	return ids
}
