/*
Package roi holds the monitored Region of Interest, a closed polygon in frame
pixel coordinates, and answers whether a point lies inside it.
*/
package roi

import (
	"github.com/pkg/errors"
	"image"
)

// ErrTooFewPoints is returned when a polygon is given with less than three
// points
var ErrTooFewPoints = errors.New("polygon requires at least 3 points")

// Point is a 2D integer pixel coordinate
type Point struct {
	X int
	Y int
}

// Pt is shorthand for Point{X: x, Y: y}
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// ImagePoint converts the Point to an image.Point for drawing
func (p Point) ImagePoint() image.Point {
	return image.Pt(p.X, p.Y)
}

// Containment is the result of testing a point against the polygon.  The
// values follow the usual point in polygon convention where negative is
// outside, zero is on an edge and positive is inside.
type Containment int

const (
	Outside    Containment = -1
	OnBoundary Containment = 0
	Inside     Containment = 1
)

// Counts reports if the point occupies the area, being inside or on the
// boundary
func (c Containment) Counts() bool {
	return c >= OnBoundary
}

// String returns a readable name of the containment result
func (c Containment) String() string {
	switch c {
	case Inside:
		return "inside"
	case OnBoundary:
		return "on-boundary"
	default:
		return "outside"
	}
}

// ROI is the monitored polygon.  The polygon is closed implicitly between the
// last and first point.  It is not checked for self intersection, a malformed
// polygon gives well defined but meaningless results.
type ROI struct {
	// points are the polygon vertices in the order given
	points []Point
}

// New returns an ROI for the given polygon points
func New(points []Point) (*ROI, error) {

	if len(points) < 3 {
		return nil, errors.Wrapf(ErrTooFewPoints, "got %d", len(points))
	}

	r := &ROI{
		points: make([]Point, len(points)),
	}

	copy(r.points, points)

	return r, nil
}

// BoundaryPoints returns a copy of the polygon points for rendering
func (r *ROI) BoundaryPoints() []Point {
	pts := make([]Point, len(r.points))
	copy(pts, r.points)
	return pts
}

// Bounds returns the axis aligned rectangle enclosing the polygon
func (r *ROI) Bounds() image.Rectangle {

	rect := image.Rectangle{Min: r.points[0].ImagePoint(), Max: r.points[0].ImagePoint()}

	for _, p := range r.points[1:] {
		rect.Min.X = min(rect.Min.X, p.X)
		rect.Min.Y = min(rect.Min.Y, p.Y)
		rect.Max.X = max(rect.Max.X, p.X)
		rect.Max.Y = max(rect.Max.Y, p.Y)
	}

	return rect
}

// Contains tests where the point lies in relation to the polygon.  Points
// exactly on an edge or vertex return OnBoundary, otherwise even-odd ray
// casting decides between Inside and Outside.
func (r *ROI) Contains(p Point) Containment {

	n := len(r.points)
	inside := false

	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a := r.points[j]
		b := r.points[i]

		if onSegment(a, b, p) {
			return OnBoundary
		}

		// cast a ray towards +x and count the edges it crosses
		if (b.Y > p.Y) != (a.Y > p.Y) {
			// x coordinate of the edge at height p.Y compared without division,
			// the sign of dy flips the inequality
			dy := a.Y - b.Y
			lhs := (p.X - b.X) * dy
			rhs := (a.X - b.X) * (p.Y - b.Y)

			if (dy > 0 && lhs < rhs) || (dy < 0 && lhs > rhs) {
				inside = !inside
			}
		}
	}

	if inside {
		return Inside
	}

	return Outside
}

// onSegment reports if p lies on the closed segment a-b
func onSegment(a, b, p Point) bool {

	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)

	if cross != 0 {
		return false
	}

	return p.X >= min(a.X, b.X) && p.X <= max(a.X, b.X) &&
		p.Y >= min(a.Y, b.Y) && p.Y <= max(a.Y, b.Y)
}
