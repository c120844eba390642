package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"golang.org/x/image/vector"

	"github.com/planmetric/planmetric/internal/core/domain"
)

// Overlay rasterizes an analysis result into a PNG debug image: the
// reconstructed boundary filled, the merged wall segments stroked on top.
type Overlay struct {
	// PxPerPt controls raster resolution. 2.0 renders a letter sheet at
	// 1224x1584.
	PxPerPt float64
	// MinStrokePx keeps thin walls visible at low resolutions.
	MinStrokePx float64
}

// NewOverlay creates a renderer with default resolution.
func NewOverlay() *Overlay {
	return &Overlay{PxPerPt: 2.0, MinStrokePx: 2.0}
}

var (
	colorBackground = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorBoundary   = color.RGBA{R: 214, G: 234, B: 248, A: 255}
	colorWall       = color.RGBA{R: 31, G: 61, B: 122, A: 255}
)

// Render draws the measurements onto a white sheet-sized canvas and
// encodes it as PNG.
func (o *Overlay) Render(m *domain.Measurements, widthPts, heightPts float64) ([]byte, error) {
	if widthPts <= 0 || heightPts <= 0 {
		return nil, fmt.Errorf("page dimensions must be positive, got %gx%g", widthPts, heightPts)
	}

	w := int(math.Ceil(widthPts * o.PxPerPt))
	h := int(math.Ceil(heightPts * o.PxPerPt))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(colorBackground), image.Point{}, draw.Src)

	if len(m.Boundary) >= 3 {
		o.fillPolygon(img, m.Boundary)
	}
	for _, s := range m.WallSegments {
		o.strokeSegment(img, s)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (o *Overlay) fillPolygon(dst *image.RGBA, poly domain.Polygon) {
	r := vector.NewRasterizer(dst.Bounds().Dx(), dst.Bounds().Dy())
	r.DrawOp = draw.Over

	r.MoveTo(float32(poly[0].X*o.PxPerPt), float32(poly[0].Y*o.PxPerPt))
	for _, p := range poly[1:] {
		r.LineTo(float32(p.X*o.PxPerPt), float32(p.Y*o.PxPerPt))
	}
	r.ClosePath()
	r.Draw(dst, dst.Bounds(), image.NewUniform(colorBoundary), image.Point{})
}

// strokeSegment draws a wall as a filled quad around its centerline.
func (o *Overlay) strokeSegment(dst *image.RGBA, s domain.WallSegment) {
	width := s.ThicknessPts * o.PxPerPt
	if width < o.MinStrokePx {
		width = o.MinStrokePx
	}

	dx := (s.End.X - s.Start.X) * o.PxPerPt
	dy := (s.End.Y - s.Start.Y) * o.PxPerPt
	length := math.Hypot(dx, dy)
	if length < 1e-9 {
		return
	}
	// Unit normal scaled to half the stroke width.
	nx := -dy / length * width / 2
	ny := dx / length * width / 2

	x0 := s.Start.X * o.PxPerPt
	y0 := s.Start.Y * o.PxPerPt
	x1 := s.End.X * o.PxPerPt
	y1 := s.End.Y * o.PxPerPt

	r := vector.NewRasterizer(dst.Bounds().Dx(), dst.Bounds().Dy())
	r.DrawOp = draw.Over
	r.MoveTo(float32(x0+nx), float32(y0+ny))
	r.LineTo(float32(x1+nx), float32(y1+ny))
	r.LineTo(float32(x1-nx), float32(y1-ny))
	r.LineTo(float32(x0-nx), float32(y0-ny))
	r.ClosePath()
	r.Draw(dst, dst.Bounds(), image.NewUniform(colorWall), image.Point{})
}
