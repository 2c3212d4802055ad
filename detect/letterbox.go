package detect

import (
	"gocv.io/x/gocv"
	"image"
	"image/color"
)

// letterboxColor is the grey YOLOv5 was trained with for padding
var letterboxColor = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// Letterbox fits frames of one size into the model input without distorting
// them.  The frame is scaled until its limiting side fills the input and the
// remaining space is padded equally on both sides.
type Letterbox struct {
	frame image.Point
	input image.Point
	// fitted is the frame size after scaling
	fitted image.Point
	// offset is the left and top padding
	offset image.Point
	scale  float32
	// scaled holds the frame between scaling and padding
	scaled gocv.Mat
}

// NewLetterbox returns a Letterbox for frames of the given size
func NewLetterbox(frame, input image.Point) *Letterbox {

	sx := float32(input.X) / float32(frame.X)
	sy := float32(input.Y) / float32(frame.Y)

	lb := &Letterbox{
		frame:  frame,
		input:  input,
		fitted: input,
		scale:  min(sx, sy),
		scaled: gocv.NewMat(),
	}

	if sx < sy {
		lb.fitted.Y = int(float32(frame.Y) * lb.scale)
	} else {
		lb.fitted.X = int(float32(frame.X) * lb.scale)
	}

	lb.offset = input.Sub(lb.fitted).Div(2)

	return lb
}

// Apply scales and pads the frame into dst
func (lb *Letterbox) Apply(frame gocv.Mat, dst *gocv.Mat) {

	gocv.Resize(frame, &lb.scaled, lb.fitted, 0, 0, gocv.InterpolationArea)

	rest := lb.input.Sub(lb.fitted).Sub(lb.offset)

	gocv.CopyMakeBorder(lb.scaled, dst, lb.offset.Y, rest.Y, lb.offset.X, rest.X,
		gocv.BorderConstant, letterboxColor)
}

// ToFrame maps a point of the model input back to frame coordinates.  Points
// in the padding are clamped to the frame edge.
func (lb *Letterbox) ToFrame(x, y float32) (float32, float32) {

	fx := (x - float32(lb.offset.X)) / lb.scale
	fy := (y - float32(lb.offset.Y)) / lb.scale

	return clamp(fx, 0, float32(lb.frame.X)), clamp(fy, 0, float32(lb.frame.Y))
}

// Fits reports if the Letterbox was made for frames of this size
func (lb *Letterbox) Fits(frame image.Point) bool {
	return lb.frame == frame
}

// Scale is the factor applied to the frame
func (lb *Letterbox) Scale() float32 {
	return lb.scale
}

// Offset is the left and top padding
func (lb *Letterbox) Offset() image.Point {
	return lb.offset
}

// Close frees the scaling buffer
func (lb *Letterbox) Close() error {
	return lb.scaled.Close()
}

// clamp restricts v to the range lo to hi
func clamp(v, lo, hi float32) float32 {
	return max(lo, min(v, hi))
}
