package stream

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"image"
	"io"
	"strconv"
)

// Source supplies raster frames until the end of the stream
type Source interface {
	// Read decodes the next frame into dst, returning io.EOF at the end of
	// the stream
	Read(dst *gocv.Mat) error
	// Size returns the pixel dimensions of the frames
	Size() image.Point
	// FPS returns the nominal frame rate, or zero if unknown
	FPS() float64
	Close() error
}

// VideoSource reads frames from a video file, capture device or network
// stream using OpenCV
type VideoSource struct {
	vc   *gocv.VideoCapture
	uri  string
	size image.Point
	fps  float64
}

// OpenVideo opens the video at uri.  A uri that is an integer opens the
// capture device with that index, anything else is passed to OpenCV as a
// file name or URL.
func OpenVideo(uri string) (*VideoSource, error) {

	var vc *gocv.VideoCapture
	var err error

	if id, convErr := strconv.Atoi(uri); convErr == nil {
		vc, err = gocv.VideoCaptureDevice(id)
	} else {
		vc, err = gocv.VideoCaptureFile(uri)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "error opening video %s", uri)
	}

	if !vc.IsOpened() {
		vc.Close()
		return nil, errors.Errorf("video %s could not be opened", uri)
	}

	v := &VideoSource{
		vc:  vc,
		uri: uri,
		size: image.Pt(
			int(vc.Get(gocv.VideoCaptureFrameWidth)),
			int(vc.Get(gocv.VideoCaptureFrameHeight)),
		),
		fps: vc.Get(gocv.VideoCaptureFPS),
	}

	return v, nil
}

// Read the next frame, empty frames returned by the capture are skipped
func (v *VideoSource) Read(dst *gocv.Mat) error {

	for {
		if ok := v.vc.Read(dst); !ok {
			// reached last video frame
			return io.EOF
		}

		if !dst.Empty() {
			return nil
		}
	}
}

// Size returns the frame dimensions reported by the capture
func (v *VideoSource) Size() image.Point {
	return v.size
}

// FPS returns the frame rate reported by the capture
func (v *VideoSource) FPS() float64 {
	return v.fps
}

// URI returns the file name, URL or device index the video was opened with
func (v *VideoSource) URI() string {
	return v.uri
}

// Close releases the capture
func (v *VideoSource) Close() error {
	return v.vc.Close()
}
