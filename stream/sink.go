package stream

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
	"image"
)

// ErrExitRequested is returned by a Sink when the user asked for the stream
// to stop
var ErrExitRequested = errors.New("exit requested")

// KeyEsc is the key code that stops the stream from the display window
const KeyEsc = 27

// Sink accepts rendered frames for display or encoding
type Sink interface {
	Write(f *Frame) error
	Close() error
}

// WindowSink shows frames in a desktop window and watches for the exit key
type WindowSink struct {
	win     *gocv.Window
	exitKey int
	delay   int
}

// NewWindowSink opens a window with the given title.  Pressing ESC while the
// window has focus stops the stream.
func NewWindowSink(title string) *WindowSink {
	return &WindowSink{
		win:     gocv.NewWindow(title),
		exitKey: KeyEsc,
		delay:   1,
	}
}

// Write shows the frame and returns ErrExitRequested if the exit key was
// pressed
func (w *WindowSink) Write(f *Frame) error {

	w.win.IMShow(f.Image)

	if key := w.win.WaitKey(w.delay); key != -1 && key&0xFF == w.exitKey {
		return ErrExitRequested
	}

	return nil
}

// Close destroys the window
func (w *WindowSink) Close() error {
	return w.win.Close()
}

// VideoSink encodes frames into a video file
type VideoSink struct {
	writer *gocv.VideoWriter
	size   image.Point
	path   string
}

// NewVideoSink creates the video file at path using the four character codec
// code, eg: XVID, MJPG, mp4v
func NewVideoSink(path, codec string, fps float64, size image.Point) (*VideoSink, error) {

	if len(codec) != 4 {
		return nil, errors.Errorf("codec must be a four character code, got %q", codec)
	}

	writer, err := gocv.VideoWriterFile(path, codec, fps, size.X, size.Y, true)

	if err != nil {
		return nil, errors.Wrapf(err, "error creating video file %s", path)
	}

	if !writer.IsOpened() {
		writer.Close()
		return nil, errors.Errorf("video file %s could not be opened for writing", path)
	}

	return &VideoSink{
		writer: writer,
		size:   size,
		path:   path,
	}, nil
}

// Write encodes the frame.  Frames must match the size given at creation.
func (v *VideoSink) Write(f *Frame) error {

	if f.Image.Cols() != v.size.X || f.Image.Rows() != v.size.Y {
		return errors.Errorf("frame %d is %dx%d, video is %dx%d", f.Num,
			f.Image.Cols(), f.Image.Rows(), v.size.X, v.size.Y)
	}

	return errors.Wrapf(v.writer.Write(f.Image), "error writing frame %d to %s", f.Num, v.path)
}

// Close finishes the video file
func (v *VideoSink) Close() error {
	return v.writer.Close()
}

// MultiSink writes each frame to several sinks in order
type MultiSink []Sink

// Write passes the frame to every sink.  An exit request from any sink is
// reported after all sinks have been written to.
func (m MultiSink) Write(f *Frame) error {

	var err error

	for _, s := range m {
		err = multierr.Append(err, s.Write(f))
	}

	return err
}

// splitExit separates exit requests from the other errors of a combined
// sink write.  exit reports whether any sink asked to stop and rest holds
// the remaining errors.
func splitExit(err error) (exit bool, rest error) {

	for _, e := range multierr.Errors(err) {
		if errors.Is(e, ErrExitRequested) {
			exit = true
			continue
		}

		rest = multierr.Append(rest, e)
	}

	return exit, rest
}

// Close closes all sinks
func (m MultiSink) Close() error {

	var err error

	for _, s := range m {
		err = multierr.Append(err, s.Close())
	}

	return err
}
