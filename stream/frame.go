package stream

import (
	"github.com/swdee/go-parkcount/occupancy"
	"gocv.io/x/gocv"
	"time"
)

// Timing holds the timestamps taken while processing a frame
type Timing struct {
	ProcessStart time.Time
	CaptureEnd   time.Time
	DetectEnd    time.Time
	EvaluateEnd  time.Time
	RenderEnd    time.Time
}

// Capture returns the time spent reading and resizing the frame
func (t Timing) Capture() time.Duration {
	return t.CaptureEnd.Sub(t.ProcessStart)
}

// Detect returns the time spent in the detector
func (t Timing) Detect() time.Duration {
	return t.DetectEnd.Sub(t.CaptureEnd)
}

// Evaluate returns the time spent evaluating occupancy
func (t Timing) Evaluate() time.Duration {
	return t.EvaluateEnd.Sub(t.DetectEnd)
}

// Render returns the time spent annotating the frame
func (t Timing) Render() time.Duration {
	return t.RenderEnd.Sub(t.EvaluateEnd)
}

// Total returns the time from the start of the frame until it was rendered
func (t Timing) Total() time.Duration {
	return t.RenderEnd.Sub(t.ProcessStart)
}

// Frame is the state of a single processed frame handed to the sinks.  The
// Image is owned by the driver and is only valid during the sink Write call.
type Frame struct {
	// Num is the zero based frame number
	Num int
	// Image is the annotated frame
	Image gocv.Mat
	// Detections are all the objects found by the detector
	Detections []occupancy.Detection
	// Result is the occupancy of the frame
	Result occupancy.Result
	Timing Timing
}
