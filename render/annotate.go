/*
Package render draws the occupancy result onto a video frame: boxes and labels
of the occupied detections, the ROI outline and the count of objects in the
area.
*/
package render

import (
	"fmt"
	"github.com/swdee/go-parkcount/occupancy"
	"github.com/swdee/go-parkcount/roi"
	"gocv.io/x/gocv"
	"image"
	"image/color"
)

// Style defines the colors and fonts used to annotate a frame
type Style struct {
	// BoxColor is the rectangle color drawn around occupied detections
	BoxColor     color.RGBA
	BoxThickness int
	LabelFont    Font
	// LabelBackground draws each label on a filled box in a palette color
	// instead of plain text
	LabelBackground bool
	ROIColor        color.RGBA
	ROIThickness    int
	CountFont       Font
	// CountPosition is the baseline origin of the count text
	CountPosition image.Point
	// CountFormat is the fmt format of the count text, given the count
	CountFormat string
}

// DefaultStyle returns the parking lot annotation style, red boxes with blue
// labels, a green ROI outline and the count in red at the top left
func DefaultStyle() Style {
	return Style{
		BoxColor:      Red,
		BoxThickness:  3,
		LabelFont:     PlainFont(Blue),
		ROIColor:      Green,
		ROIThickness:  2,
		CountFont:     PlainFont(Red),
		CountPosition: image.Pt(50, 80),
		CountFormat:   "Number of cars in parking: %d",
	}
}

// Annotate draws the occupied detections, the ROI boundary and the count on
// the image
func Annotate(img *gocv.Mat, res occupancy.Result, boundary []roi.Point, style Style) {

	if style.LabelBackground {
		DetectionBoxes(img, res.Occupied, nil, LabelFont(), style.BoxThickness, true)
	} else {
		DetectionBoxes(img, res.Occupied, &style.BoxColor, style.LabelFont, style.BoxThickness, false)
	}

	Boundary(img, boundary, style.ROIColor, style.ROIThickness)

	Text(img, fmt.Sprintf(style.CountFormat, res.Count), style.CountPosition, style.CountFont)
}

// Boundary draws the polygon as a closed outline
func Boundary(img *gocv.Mat, boundary []roi.Point, clr color.RGBA, thickness int) {

	if len(boundary) < 2 {
		return
	}

	pts := make([]image.Point, len(boundary))

	for i, p := range boundary {
		pts[i] = p.ImagePoint()
	}

	ptsVec := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer ptsVec.Close()

	gocv.Polylines(img, ptsVec, true, clr, thickness)
}
