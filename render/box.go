package render

import (
	"fmt"
	"github.com/swdee/go-parkcount/occupancy"
	"gocv.io/x/gocv"
	"image"
	"image/color"
)

// DetectionBoxes draws a rectangle around each detection with its label at
// the top left corner of the box.  Boxes are drawn in clr, or in the class
// color of their label when clr is nil.  With background set the label also
// shows the score and is written on a filled box in the box color.
func DetectionBoxes(img *gocv.Mat, dets []occupancy.Detection, clr *color.RGBA,
	font Font, thickness int, background bool) {

	colorOf := func(det occupancy.Detection) color.RGBA {
		if clr != nil {
			return *clr
		}
		return ClassColor(det.Label)
	}

	for _, det := range dets {
		gocv.Rectangle(img, det.Box.Rect(), colorOf(det), thickness)
	}

	// labels go on top of every box so a neighbouring box can't cover them
	for _, det := range dets {

		text := det.Label
		origin := image.Pt(det.Box.XMin, det.Box.YMin)

		if background {
			text = fmt.Sprintf("%s %.2f", det.Label, det.Score)
			size := font.Size(text)

			bg := image.Rect(det.Box.XMin, det.Box.YMin-size.Y-2*font.Pad,
				det.Box.XMin+size.X+2*font.Pad, det.Box.YMin)

			gocv.Rectangle(img, bg, colorOf(det), -1)

			origin = image.Pt(bg.Min.X+font.Pad, bg.Max.Y-font.Pad)
		}

		Text(img, text, origin, font)
	}
}
