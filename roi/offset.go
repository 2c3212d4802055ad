package roi

import (
	clipper "github.com/ctessum/go.clipper"
	"github.com/pkg/errors"
	"math"
)

// ErrCollapsed is returned when shrinking a polygon leaves no area
var ErrCollapsed = errors.New("polygon collapsed after offset")

// Offset grows the polygon outwards by margin pixels, or shrinks it inwards
// when margin is negative.  Corners are mitred so a rectangle stays a
// rectangle.  When shrinking splits the polygon into pieces the piece with
// the largest area is kept.
func Offset(points []Point, margin float64) ([]Point, error) {

	if len(points) < 3 {
		return nil, errors.Wrapf(ErrTooFewPoints, "got %d", len(points))
	}

	if margin == 0 {
		out := make([]Point, len(points))
		copy(out, points)
		return out, nil
	}

	// convert the points to a Clipper Path
	var path clipper.Path

	for _, pt := range points {
		path = append(path, &clipper.IntPoint{X: clipper.CInt(pt.X), Y: clipper.CInt(pt.Y)})
	}

	co := clipper.NewClipperOffset()
	co.AddPath(path, clipper.JtMiter, clipper.EtClosedPolygon)

	solution := co.Execute(margin)

	var best []Point
	bestArea := 0.0

	for _, sol := range solution {
		poly := make([]Point, 0, len(sol))

		for _, pt := range sol {
			poly = append(poly, Point{X: int(pt.X), Y: int(pt.Y)})
		}

		if a := Area(poly); a > bestArea {
			best = poly
			bestArea = a
		}
	}

	if len(best) < 3 {
		return nil, errors.Wrapf(ErrCollapsed, "margin %.1f", margin)
	}

	return best, nil
}

// Area returns the absolute area of the polygon using the shoelace formula
func Area(points []Point) float64 {

	if len(points) < 3 {
		return 0
	}

	sum := 0

	for i, j := 0, len(points)-1; i < len(points); j, i = i, i+1 {
		sum += points[j].X*points[i].Y - points[i].X*points[j].Y
	}

	return math.Abs(float64(sum)) / 2
}
