package usecases

import (
	"math"
	"sort"

	"github.com/planmetric/planmetric/internal/core/domain"
)

// WallSegmentBuilder merges wall candidates into discrete wall segments
// and reconstructs the enclosing polygon for area computation.
type WallSegmentBuilder struct {
	// EpsilonFactor scales the average stroke thickness into the spatial
	// epsilon used for colinear merging and corner snapping.
	EpsilonFactor float64
	// MinEpsilonPts floors the epsilon for very thin candidate sets.
	MinEpsilonPts float64
	// OutlierIQRFactor removes extreme length outliers (title-block
	// borders) above Q3 + factor*IQR.
	OutlierIQRFactor float64
}

// NewWallSegmentBuilder creates a builder with the default tolerances.
func NewWallSegmentBuilder() *WallSegmentBuilder {
	return &WallSegmentBuilder{
		EpsilonFactor:    2.0,
		MinEpsilonPts:    2.0,
		OutlierIQRFactor: 3.0,
	}
}

// WallAnalysis is the geometry branch output: merged wall segments plus
// the reconstructed outer boundary, if one closed.
type WallAnalysis struct {
	Segments       []domain.WallSegment
	Boundary       domain.Polygon
	CandidateCount int
	Warnings       []string
}

// Build merges candidates into wall segments and attempts to close the
// outer boundary loop. It never fails; missing geometry yields an empty
// analysis with warnings.
func (b *WallSegmentBuilder) Build(candidates []domain.LineSegment) WallAnalysis {
	analysis := WallAnalysis{CandidateCount: len(candidates)}
	if len(candidates) == 0 {
		analysis.Warnings = append(analysis.Warnings, "no wall candidates above stroke-width threshold")
		return analysis
	}

	candidates = b.removeLengthOutliers(candidates)
	eps := b.epsilon(candidates)

	groups := b.mergeGroups(candidates, eps)
	for _, group := range groups {
		analysis.Segments = append(analysis.Segments, mergeGroup(candidates, group))
	}

	boundary := b.closeBoundary(analysis.Segments, eps)
	if boundary == nil {
		analysis.Warnings = append(analysis.Warnings, "wall segments do not form a closed boundary; gross area unavailable")
	}
	analysis.Boundary = boundary
	return analysis
}

func (b *WallSegmentBuilder) epsilon(candidates []domain.LineSegment) float64 {
	total := 0.0
	for _, c := range candidates {
		total += c.StrokeWidth
	}
	eps := b.EpsilonFactor * total / float64(len(candidates))
	if eps < b.MinEpsilonPts {
		eps = b.MinEpsilonPts
	}
	return eps
}

// removeLengthOutliers drops candidates above Q3 + factor*IQR. Sheet
// borders and title-block frames are much longer than structural walls.
func (b *WallSegmentBuilder) removeLengthOutliers(candidates []domain.LineSegment) []domain.LineSegment {
	if len(candidates) < 4 {
		return candidates
	}
	lengths := make([]float64, len(candidates))
	for i, c := range candidates {
		lengths[i] = c.Length()
	}
	sorted := append([]float64(nil), lengths...)
	sort.Float64s(sorted)
	q1 := sorted[len(sorted)/4]
	q3 := sorted[3*len(sorted)/4]
	upper := q3 + b.OutlierIQRFactor*(q3-q1)

	out := candidates[:0:0]
	for i, c := range candidates {
		if lengths[i] <= upper {
			out = append(out, c)
		}
	}
	return out
}

// mergeGroups unions colinear, overlapping candidates of the same
// orientation via an index-based disjoint set, and returns the member
// indices of each group in input order.
func (b *WallSegmentBuilder) mergeGroups(candidates []domain.LineSegment, eps float64) [][]int {
	uf := newUnionFind(len(candidates))
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if segmentsMergeable(candidates[i], candidates[j], eps) {
				uf.union(i, j)
			}
		}
	}

	byRoot := make(map[int][]int)
	var roots []int
	for i := range candidates {
		r := uf.find(i)
		if _, seen := byRoot[r]; !seen {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], i)
	}

	groups := make([][]int, 0, len(roots))
	for _, r := range roots {
		groups = append(groups, byRoot[r])
	}
	return groups
}

// segmentsMergeable reports whether two candidates belong to the same
// wall run: same orientation, supporting lines colinear within eps, and
// axis projections overlapping or within eps of each other.
func segmentsMergeable(a, b domain.LineSegment, eps float64) bool {
	oa := domain.ClassifyOrientation(a.Start, a.End)
	ob := domain.ClassifyOrientation(b.Start, b.End)
	if oa != ob || oa == domain.OrientationDiagonal {
		// Diagonal runs merge only when nearly identical; treat each as
		// its own wall rather than guessing at a shared support line.
		return oa == ob && oa == domain.OrientationDiagonal &&
			a.Start.DistanceTo(b.Start)+a.End.DistanceTo(b.End) <= 2*eps
	}

	if perpendicularDistance(b.Start, a.Start, a.End) > eps ||
		perpendicularDistance(b.End, a.Start, a.End) > eps {
		return false
	}

	aLo, aHi := axisInterval(a, oa)
	bLo, bHi := axisInterval(b, ob)
	return bLo <= aHi+eps && aLo <= bHi+eps
}

func axisInterval(s domain.LineSegment, o domain.Orientation) (lo, hi float64) {
	var v0, v1 float64
	if o == domain.OrientationHorizontal {
		v0, v1 = s.Start.X, s.End.X
	} else {
		v0, v1 = s.Start.Y, s.End.Y
	}
	return math.Min(v0, v1), math.Max(v0, v1)
}

// perpendicularDistance returns the distance from p to the infinite line
// through a and b.
func perpendicularDistance(p, a, b domain.Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	length := math.Hypot(dx, dy)
	if length < 1e-9 {
		return p.DistanceTo(a)
	}
	return math.Abs((p.X-a.X)*dy-(p.Y-a.Y)*dx) / length
}

// mergeGroup replaces a group with one segment spanning its extreme
// endpoints; thickness is the heaviest stroke in the run.
func mergeGroup(candidates []domain.LineSegment, group []int) domain.WallSegment {
	endpoints := make([]domain.Point, 0, 2*len(group))
	thickness := 0.0
	for _, idx := range group {
		endpoints = append(endpoints, candidates[idx].Start, candidates[idx].End)
		if candidates[idx].StrokeWidth > thickness {
			thickness = candidates[idx].StrokeWidth
		}
	}

	start, end := endpoints[0], endpoints[1]
	best := start.DistanceTo(end)
	for i := 0; i < len(endpoints); i++ {
		for j := i + 1; j < len(endpoints); j++ {
			if d := endpoints[i].DistanceTo(endpoints[j]); d > best {
				best = d
				start, end = endpoints[i], endpoints[j]
			}
		}
	}

	return domain.WallSegment{
		Start:        start,
		End:          end,
		Orientation:  domain.ClassifyOrientation(start, end),
		LengthPts:    best,
		ThicknessPts: thickness,
	}
}

// closeBoundary snaps segment endpoints into corner nodes and walks the
// resulting graph for closed loops, preferring the maximum-extent outer
// loop when several are nested. Returns nil when no loop closes; callers
// must not fabricate an area from an open contour.
func (b *WallSegmentBuilder) closeBoundary(segments []domain.WallSegment, eps float64) domain.Polygon {
	if len(segments) < 3 {
		return nil
	}

	// Snap endpoints within eps into shared corner nodes.
	points := make([]domain.Point, 0, 2*len(segments))
	for _, s := range segments {
		points = append(points, s.Start, s.End)
	}
	uf := newUnionFind(len(points))
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			if points[i].DistanceTo(points[j]) <= eps {
				uf.union(i, j)
			}
		}
	}

	nodeOf := make(map[int]int) // uf root -> node id
	var nodes []domain.Point
	var counts []int
	nodeID := func(i int) int {
		r := uf.find(i)
		id, ok := nodeOf[r]
		if !ok {
			id = len(nodes)
			nodeOf[r] = id
			nodes = append(nodes, domain.Point{})
			counts = append(counts, 0)
		}
		nodes[id] = domain.Point{
			X: (nodes[id].X*float64(counts[id]) + points[i].X) / float64(counts[id]+1),
			Y: (nodes[id].Y*float64(counts[id]) + points[i].Y) / float64(counts[id]+1),
		}
		counts[id]++
		return id
	}

	var edges []wallEdge
	adjacency := make(map[int][]int) // node -> edge indices
	for i := range segments {
		from := nodeID(2 * i)
		to := nodeID(2*i + 1)
		if from == to {
			continue // degenerate after snapping
		}
		edges = append(edges, wallEdge{from, to})
		adjacency[from] = append(adjacency[from], len(edges)-1)
		adjacency[to] = append(adjacency[to], len(edges)-1)
	}
	if len(edges) < 3 {
		return nil
	}

	// Walk loops: follow unused edges from each start node until we
	// return to it. Edge order is input order, so the walk is
	// deterministic for identical input.
	used := make([]bool, len(edges))
	var best domain.Polygon
	bestExtent := -1.0

	for startEdge := range edges {
		if used[startEdge] {
			continue
		}
		loop := walkLoop(edges, adjacency, used, startEdge)
		if len(loop) < 3 {
			continue
		}
		poly := make(domain.Polygon, len(loop))
		for i, n := range loop {
			poly[i] = nodes[n]
		}
		if poly.Area() <= 0 {
			continue
		}
		bbox := poly.BBox()
		extent := bbox.Width() + bbox.Height()
		if extent > bestExtent {
			bestExtent = extent
			best = poly
		}
	}
	return best
}

// wallEdge connects two snapped corner nodes.
type wallEdge struct{ a, b int }

// walkLoop traverses unused edges starting from startEdge and returns the
// node cycle if the walk closes, marking traversed edges used.
func walkLoop(edges []wallEdge, adjacency map[int][]int, used []bool, startEdge int) []int {
	start := edges[startEdge].a
	current := edges[startEdge].b
	used[startEdge] = true
	loop := []int{start, current}

	for current != start {
		next := -1
		for _, ei := range adjacency[current] {
			if used[ei] {
				continue
			}
			next = ei
			break
		}
		if next == -1 {
			return nil // dead end: open contour
		}
		used[next] = true
		if edges[next].a == current {
			current = edges[next].b
		} else {
			current = edges[next].a
		}
		if current != start {
			loop = append(loop, current)
		}
	}
	return loop
}

// unionFind is an index-based disjoint set with path halving.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(i, j int) {
	ri, rj := u.find(i), u.find(j)
	if ri != rj {
		u.parent[rj] = ri
	}
}
