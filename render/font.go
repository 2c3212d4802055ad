package render

import (
	"gocv.io/x/gocv"
	"image"
	"image/color"
)

// Font describes how text is drawn with OpenCV's Hershey fonts
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Pad is the space in pixels kept between the text and the edge of its
	// background box
	Pad int
}

// LabelFont returns the small antialiased font written on filled label
// backgrounds
func LabelFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		Pad:       4,
	}
}

// PlainFont returns the large plain font used for the object labels and
// occupancy count
func PlainFont(clr color.RGBA) Font {
	return Font{
		Face:      gocv.FontHersheyPlain,
		Scale:     2,
		Color:     clr,
		Thickness: 2,
		LineType:  gocv.Line8,
	}
}

// Size returns the width and height of the text in pixels, excluding the
// part below the baseline
func (f Font) Size(text string) image.Point {
	return gocv.GetTextSize(text, f.Face, f.Scale, f.Thickness)
}

// Text writes the text with its baseline starting at pos
func Text(img *gocv.Mat, text string, pos image.Point, font Font) {
	gocv.PutTextWithParams(img, text, pos, font.Face, font.Scale, font.Color,
		font.Thickness, font.LineType, false)
}
