package occupancy

import (
	"fmt"
	"github.com/swdee/go-parkcount/roi"
	"image"
)

// BoundingBox are the pixel dimensions of a detected object in the current
// frame.  XMin <= XMax and YMin <= YMax is expected but not enforced.
type BoundingBox struct {
	XMin int
	YMin int
	XMax int
	YMax int
}

// Box is shorthand for creating a BoundingBox
func Box(xMin, yMin, xMax, yMax int) BoundingBox {
	return BoundingBox{XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax}
}

// Center returns the reference point of the box used for deciding
// containment.  Halves are floored, odd negative sums round down the same
// as positive ones.
func (b BoundingBox) Center() roi.Point {
	return roi.Point{
		X: floorHalf(b.XMin + b.XMax),
		Y: floorHalf(b.YMin + b.YMax),
	}
}

// floorHalf returns v/2 rounded towards negative infinity
func floorHalf(v int) int {

	if v < 0 && v%2 != 0 {
		return v/2 - 1
	}

	return v / 2
}

// Rect returns the box as an image.Rectangle for drawing
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.XMin, b.YMin, b.XMax, b.YMax)
}

// String formats the box as (xmin,ymin,xmax,ymax)
func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", b.XMin, b.YMin, b.XMax, b.YMax)
}

// Detection is a single object found in a frame by the detector
type Detection struct {
	// Label is the class name of the object as given by the detector
	Label string
	// Box is the location of the object
	Box BoundingBox
	// Score is the detector confidence.  It is only used for display.
	Score float32
}
