/*
Package detect provides the object detectors that turn a video frame into a
list of labelled bounding boxes for occupancy evaluation.

The YOLOv5 detector runs an ONNX exported model through the OpenCV DNN
module via GoCV.  The RKNN detector runs a YOLOv5 model compiled for the
Rockchip NPU, it requires building with the rknn tag and librknnrt.

	go build -tags rknn ./example/parking
*/
package detect

import (
	"github.com/swdee/go-parkcount/occupancy"
	"gocv.io/x/gocv"
)

// Detector finds objects in a frame.  Returned boxes are in the pixel space
// of the frame passed in.
type Detector interface {
	Detect(img gocv.Mat) ([]occupancy.Detection, error)
	Close() error
}

// Func adapts an ordinary function to the Detector interface
type Func func(img gocv.Mat) ([]occupancy.Detection, error)

// Detect calls f(img)
func (f Func) Detect(img gocv.Mat) ([]occupancy.Detection, error) {
	return f(img)
}

// Close does nothing
func (f Func) Close() error {
	return nil
}
