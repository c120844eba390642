package render

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/planmetric/planmetric/internal/core/domain"
)

func TestRender_ProducesSheetSizedPNG(t *testing.T) {
	o := NewOverlay()
	m := &domain.Measurements{
		WallSegments: []domain.WallSegment{
			{
				Start:        domain.Point{X: 100, Y: 100},
				End:          domain.Point{X: 500, Y: 100},
				ThicknessPts: 2,
			},
		},
		Boundary: domain.Polygon{
			{X: 100, Y: 100}, {X: 500, Y: 100}, {X: 500, Y: 400}, {X: 100, Y: 400},
		},
	}

	data, err := o.Render(m, 612, 792)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() != 1224 || img.Bounds().Dy() != 1584 {
		t.Errorf("expected 1224x1584, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}

	// A wall pixel must differ from the white background.
	r, g, b, _ := img.At(600, 200).RGBA()
	if r == 0xffff && g == 0xffff && b == 0xffff {
		t.Error("expected wall stroke at (600,200), found background")
	}
}

func TestRender_EmptyMeasurements(t *testing.T) {
	o := NewOverlay()
	data, err := o.Render(&domain.Measurements{}, 612, 792)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected PNG bytes")
	}
}

func TestRender_RejectsBadDimensions(t *testing.T) {
	o := NewOverlay()
	if _, err := o.Render(&domain.Measurements{}, 0, 792); err == nil {
		t.Fatal("expected error for zero width")
	}
}
