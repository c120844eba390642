package domain

import "math"

// Orientation classifies a wall segment by its dominant axis.
type Orientation string

const (
	OrientationHorizontal Orientation = "horizontal"
	OrientationVertical   Orientation = "vertical"
	OrientationDiagonal   Orientation = "diagonal"
)

// axisDominanceRatio is the factor by which one axis delta must exceed the
// other before a segment counts as horizontal or vertical.
const axisDominanceRatio = 10.0

// ClassifyOrientation derives the orientation from the dominant axis of
// end - start. A segment is diagonal only when neither delta dominates.
func ClassifyOrientation(start, end Point) Orientation {
	dx := math.Abs(end.X - start.X)
	dy := math.Abs(end.Y - start.Y)
	switch {
	case dx > axisDominanceRatio*dy:
		return OrientationHorizontal
	case dy > axisDominanceRatio*dx:
		return OrientationVertical
	default:
		return OrientationDiagonal
	}
}

// WallSegment is a merged wall candidate: one discrete run of wall.
type WallSegment struct {
	Start        Point       `json:"start"`
	End          Point       `json:"end"`
	Orientation  Orientation `json:"orientation"`
	LengthPts    float64     `json:"length_pts"`
	ThicknessPts float64     `json:"thickness_pts"`
}

// Polygon is a closed loop of vertices in drawing points. The closing edge
// from the last vertex back to the first is implicit.
type Polygon []Point

// Area returns the absolute polygon area in squared drawing points,
// computed with the shoelace formula.
func (pg Polygon) Area() float64 {
	if len(pg) < 3 {
		return 0
	}
	sum := 0.0
	for i := range pg {
		j := (i + 1) % len(pg)
		sum += pg[i].X*pg[j].Y - pg[j].X*pg[i].Y
	}
	return math.Abs(sum) / 2
}

// Perimeter returns the total edge length in drawing points.
func (pg Polygon) Perimeter() float64 {
	if len(pg) < 2 {
		return 0
	}
	total := 0.0
	for i := range pg {
		total += pg[i].DistanceTo(pg[(i+1)%len(pg)])
	}
	return total
}

// BBox returns the axis-aligned bounding rectangle of the polygon.
func (pg Polygon) BBox() Rect {
	if len(pg) == 0 {
		return Rect{}
	}
	r := Rect{X0: pg[0].X, Y0: pg[0].Y, X1: pg[0].X, Y1: pg[0].Y}
	for _, p := range pg[1:] {
		r.X0 = math.Min(r.X0, p.X)
		r.Y0 = math.Min(r.Y0, p.Y)
		r.X1 = math.Max(r.X1, p.X)
		r.Y1 = math.Max(r.Y1, p.Y)
	}
	return r
}
