package roi

import (
	"errors"
	"testing"
)

func TestArea(t *testing.T) {

	tests := []struct {
		poly []Point
		want float64
	}{
		{square, 100},
		{[]Point{{0, 0}, {0, 10}, {10, 10}, {10, 0}}, 100},
		{[]Point{{0, 0}, {20, 0}, {10, 20}}, 200},
		{[]Point{{0, 0}, {1, 1}}, 0},
	}

	for _, tc := range tests {
		if got := Area(tc.poly); got != tc.want {
			t.Errorf("Area(%v) = %f, want %f", tc.poly, got, tc.want)
		}
	}
}

func TestOffsetZeroMarginUnchanged(t *testing.T) {

	out, err := Offset(square, 0)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(out) != len(square) {
		t.Fatalf("expected %d points, got %d", len(square), len(out))
	}

	for i := range square {
		if out[i] != square[i] {
			t.Errorf("point %d changed from %v to %v", i, square[i], out[i])
		}
	}
}

func TestOffsetGrowAndShrink(t *testing.T) {

	grown, err := Offset(square, 2)

	if err != nil {
		t.Fatalf("unexpected error growing: %v", err)
	}

	// mitred square grows to 14x14
	if a := Area(grown); a != 196 {
		t.Errorf("grown area = %f, want 196", a)
	}

	r := mustROI(t, grown)

	if got := r.Contains(Pt(11, 11)); got != Inside {
		t.Errorf("point just outside original should be inside grown polygon, got %s", got)
	}

	shrunk, err := Offset(square, -2)

	if err != nil {
		t.Fatalf("unexpected error shrinking: %v", err)
	}

	if a := Area(shrunk); a != 36 {
		t.Errorf("shrunk area = %f, want 36", a)
	}

	r = mustROI(t, shrunk)

	if got := r.Contains(Pt(1, 1)); got != Outside {
		t.Errorf("point near original corner should be outside shrunk polygon, got %s", got)
	}
}

func TestOffsetCollapse(t *testing.T) {

	_, err := Offset(square, -6)

	if !errors.Is(err, ErrCollapsed) {
		t.Errorf("expected ErrCollapsed, got %v", err)
	}
}

func TestOffsetTooFewPoints(t *testing.T) {

	_, err := Offset([]Point{{0, 0}, {1, 0}}, 1)

	if !errors.Is(err, ErrTooFewPoints) {
		t.Errorf("expected ErrTooFewPoints, got %v", err)
	}
}
