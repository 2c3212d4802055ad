package render

import (
	"fmt"
	"github.com/swdee/go-parkcount/occupancy"
	"github.com/swdee/go-parkcount/roi"
	"gocv.io/x/gocv"
	"testing"
)

// pixelBGR returns the blue, green, red values at x,y of a CV8UC3 Mat
func pixelBGR(img gocv.Mat, x, y int) (uint8, uint8, uint8) {
	return img.GetUCharAt(y, x*3), img.GetUCharAt(y, x*3+1), img.GetUCharAt(y, x*3+2)
}

func TestAnnotate(t *testing.T) {

	img := gocv.NewMatWithSize(600, 1020, gocv.MatTypeCV8UC3)
	defer img.Close()

	boundary := []roi.Point{{100, 300}, {900, 300}, {900, 550}, {100, 550}}

	res := occupancy.Result{
		Count: 1,
		Occupied: []occupancy.Detection{
			{Label: "car", Box: occupancy.Box(400, 350, 500, 450)},
		},
	}

	Annotate(&img, res, boundary, DefaultStyle())

	// left edge of the box is drawn red
	if b, g, r := pixelBGR(img, 400, 400); r != 255 || g != 0 || b != 0 {
		t.Errorf("expected red box edge, got bgr(%d,%d,%d)", b, g, r)
	}

	// middle of the bottom ROI edge is drawn green
	if b, g, r := pixelBGR(img, 500, 550); g != 255 || r != 0 || b != 0 {
		t.Errorf("expected green ROI edge, got bgr(%d,%d,%d)", b, g, r)
	}

	// inside of the box is left untouched
	if b, g, r := pixelBGR(img, 450, 400); r != 0 || g != 0 || b != 0 {
		t.Errorf("expected untouched pixel, got bgr(%d,%d,%d)", b, g, r)
	}
}

func TestBoundaryIgnoresShortPolygon(t *testing.T) {

	img := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
	defer img.Close()

	Boundary(&img, []roi.Point{{1, 1}}, Green, 1)

	gray := img.Reshape(1, 0)
	defer gray.Close()

	if gocv.CountNonZero(gray) != 0 {
		t.Errorf("expected blank image")
	}
}

func TestClassColor(t *testing.T) {

	if ClassColor("car") != ClassColor("car") {
		t.Errorf("expected the same color for the same label")
	}

	seen := make(map[string]bool)

	for _, label := range []string{"car", "truck", "bus", "motorcycle", "person", "bicycle"} {
		clr := ClassColor(label)
		seen[fmt.Sprint(clr)] = true

		if clr.A != 255 {
			t.Errorf("%s: expected opaque color, got %v", label, clr)
		}
	}

	if len(seen) < 2 {
		t.Errorf("expected labels spread over the palette, got %d colors", len(seen))
	}
}

func TestDetectionBoxesBackground(t *testing.T) {

	img := gocv.NewMatWithSize(200, 300, gocv.MatTypeCV8UC3)
	defer img.Close()

	dets := []occupancy.Detection{
		{Label: "car", Box: occupancy.Box(100, 100, 200, 150), Score: 0.9},
	}

	style := DefaultStyle()
	style.LabelBackground = true

	Annotate(&img, occupancy.Result{Count: 1, Occupied: dets}, nil, style)

	want := ClassColor("car")

	// left padding of the filled label background just above the box
	if b, g, r := pixelBGR(img, 101, 98); r != want.R || g != want.G || b != want.B {
		t.Errorf("expected label background %v, got bgr(%d,%d,%d)", want, b, g, r)
	}

	// box edge uses the class color too
	if b, g, r := pixelBGR(img, 100, 125); r != want.R || g != want.G || b != want.B {
		t.Errorf("expected box edge %v, got bgr(%d,%d,%d)", want, b, g, r)
	}
}
