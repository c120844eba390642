package domain

import "math"

// Point is a 2D point in drawing coordinate space (PDF points, 72 pts = 1 inch).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the Euclidean distance between two points.
func (p Point) DistanceTo(q Point) float64 {
	dx := q.X - p.X
	dy := q.Y - p.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Rect is an axis-aligned bounding rectangle in drawing points.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: (r.X0 + r.X1) / 2, Y: (r.Y0 + r.Y1) / 2}
}

// Contains reports whether the point lies within the rectangle.
func (r Rect) Contains(p Point) bool {
	return r.X0 <= p.X && p.X <= r.X1 && r.Y0 <= p.Y && p.Y <= r.Y1
}

// Union returns the smallest rectangle covering both r and other.
func (r Rect) Union(other Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, other.X0),
		Y0: math.Min(r.Y0, other.Y0),
		X1: math.Max(r.X1, other.X1),
		Y1: math.Max(r.Y1, other.Y1),
	}
}

// TextBlock is a span of extracted text with its page-relative bounding box.
// Produced once per page by the upstream page renderer; immutable.
type TextBlock struct {
	Text string `json:"text"`
	BBox Rect   `json:"bbox"`
}

// LineSegment is a raw vector stroke in drawing-unit coordinates.
type LineSegment struct {
	Start       Point   `json:"start"`
	End         Point   `json:"end"`
	StrokeWidth float64 `json:"stroke_width"`
}

// Length returns the segment length in drawing points.
func (s LineSegment) Length() float64 { return s.Start.DistanceTo(s.End) }

// Page is a single architectural drawing page as supplied by the upstream
// page renderer: extracted text, raw vector strokes, physical dimensions,
// and optionally a rendered raster image for verifier use.
type Page struct {
	TextBlocks []TextBlock   `json:"text_blocks"`
	Strokes    []LineSegment `json:"strokes"`
	WidthPts   float64       `json:"width_pts"`
	HeightPts  float64       `json:"height_pts"`
	// ImagePNG is the rendered page raster, sent to the external verifier
	// when deterministic scale detection fails. Optional.
	ImagePNG []byte `json:"image_png,omitempty"`
}

// Text returns the concatenated text of all blocks in reading order.
func (p *Page) Text() string {
	out := ""
	for i, tb := range p.TextBlocks {
		if i > 0 {
			out += "\n"
		}
		out += tb.Text
	}
	return out
}
