package main

import (
	"github.com/google/go-cmp/cmp"
	"image"
	"testing"
)

func TestRectPolygon(t *testing.T) {

	got := rectPolygon(image.Rect(10, 20, 110, 80))

	want := [][2]int{{10, 20}, {110, 20}, {110, 80}, {10, 80}}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("polygon mismatch (-want +got):\n%s", diff)
	}
}
