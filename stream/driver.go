/*
Package stream runs the frame loop of the parking monitor.  Each frame is
read from a Source, passed through the detector, evaluated against the
monitored area, annotated and written to the Sinks before the next frame is
read.
*/
package stream

import (
	"context"
	"github.com/pkg/errors"
	"github.com/swdee/go-parkcount/detect"
	"github.com/swdee/go-parkcount/metrics"
	"github.com/swdee/go-parkcount/occupancy"
	"github.com/swdee/go-parkcount/render"
	"github.com/swdee/go-parkcount/roi"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
	"image"
	"io"
	"time"
)

// DefaultFrameSize is the working frame size parking areas are defined in
var DefaultFrameSize = image.Pt(1020, 600)

// Driver connects a Source, Detector, occupancy Evaluator and Sinks
type Driver struct {
	src      Source
	det      detect.Detector
	eval     *occupancy.Evaluator
	boundary []roi.Point
	sink     Sink

	// frameSize is the working frame size, frames are resized to it before
	// detection.  A zero size keeps the source size.
	frameSize image.Point
	style     render.Style
	log       *zap.Logger
	metrics   *metrics.Metrics
	maxFrames int
	logEvery  int
}

// Option configures a Driver
type Option func(*Driver)

// WithFrameSize resizes every frame to the given size before processing,
// image.Point{} processes frames at the source size
func WithFrameSize(size image.Point) Option {
	return func(d *Driver) {
		d.frameSize = size
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(d *Driver) {
		d.log = logger
	}
}

// WithMetrics records per frame values in the Prometheus metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Driver) {
		d.metrics = m
	}
}

// WithStyle sets the annotation style
func WithStyle(style render.Style) Option {
	return func(d *Driver) {
		d.style = style
	}
}

// WithMaxFrames stops the run after n frames, zero is unlimited
func WithMaxFrames(n int) Option {
	return func(d *Driver) {
		d.maxFrames = n
	}
}

// WithLogEvery logs the occupancy at info level every n frames, zero only
// logs at debug level
func WithLogEvery(n int) Option {
	return func(d *Driver) {
		d.logEvery = n
	}
}

// NewDriver returns a Driver monitoring the area for the target classes.
// The Driver does not take ownership of the source, detector or sink.
func NewDriver(src Source, det detect.Detector, area *roi.ROI,
	targets occupancy.TargetClasses, sink Sink, opts ...Option) *Driver {

	d := &Driver{
		src:       src,
		det:       det,
		eval:      occupancy.NewEvaluator(area, targets),
		boundary:  area.BoundaryPoints(),
		sink:      sink,
		frameSize: DefaultFrameSize,
		style:     render.DefaultStyle(),
		log:       zap.NewNop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Run processes frames until the source ends, a sink requests exit, the
// context is cancelled or the maximum number of frames is reached.  These
// stops are not errors, the reason is given in the Summary.  An error is
// returned for failures reading from the source or writing to a sink.
func (d *Driver) Run(ctx context.Context) (Summary, error) {

	// raw holds the frame as read from the source, img the working copy
	// that gets annotated
	raw := gocv.NewMat()
	defer raw.Close()

	img := gocv.NewMat()
	defer img.Close()

	var stats summaryBuilder

	d.log.Info("stream started",
		zap.Int("source_width", d.src.Size().X),
		zap.Int("source_height", d.src.Size().Y),
		zap.Float64("source_fps", d.src.FPS()),
		zap.Int("frame_width", d.frameSize.X),
		zap.Int("frame_height", d.frameSize.Y),
		zap.Strings("targets", d.eval.Targets()),
	)

	for frameNum := 0; ; frameNum++ {

		if d.maxFrames > 0 && frameNum >= d.maxFrames {
			return d.finish(&stats, StopMaxFrames), nil
		}

		// cancellation is only observed between frames
		select {
		case <-ctx.Done():
			return d.finish(&stats, StopCancelled), nil
		default:
		}

		frame, err := d.processFrame(frameNum, &raw, &img)

		if errors.Is(err, io.EOF) {
			return d.finish(&stats, StopEndOfStream), nil
		}

		if err != nil {
			return d.finish(&stats, err.Error()), err
		}

		err = d.sink.Write(frame)

		took := frame.Timing.Total()
		stats.add(frame.Result.Count, took)

		if d.metrics != nil {
			d.metrics.ObserveFrame(len(frame.Detections), frame.Result.Count, took)
		}

		d.logFrame(frame)

		exit, err := splitExit(err)

		if err != nil {
			if exit {
				d.log.Warn("exit requested while a sink failed", zap.Int("frame", frameNum))
			}

			err = errors.Wrapf(err, "error writing frame %d", frameNum)
			return d.finish(&stats, err.Error()), err
		}

		if exit {
			return d.finish(&stats, StopExitKey), nil
		}
	}
}

// processFrame reads the next frame and runs it through detection,
// evaluation and rendering
func (d *Driver) processFrame(frameNum int, raw, img *gocv.Mat) (*Frame, error) {

	timing := Timing{
		ProcessStart: time.Now(),
	}

	if err := d.src.Read(raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, err
		}

		return nil, errors.Wrapf(err, "error reading frame %d", frameNum)
	}

	if d.frameSize.X > 0 && d.frameSize.Y > 0 &&
		(raw.Cols() != d.frameSize.X || raw.Rows() != d.frameSize.Y) {
		gocv.Resize(*raw, img, d.frameSize, 0, 0, gocv.InterpolationLinear)
	} else {
		raw.CopyTo(img)
	}

	timing.CaptureEnd = time.Now()

	dets, err := d.det.Detect(*img)

	if err != nil {
		// the frame is still shown, just with nothing counted
		d.log.Warn("detector failed", zap.Int("frame", frameNum), zap.Error(err))

		if d.metrics != nil {
			d.metrics.DetectorErrors.Inc()
		}

		dets = nil
	}

	timing.DetectEnd = time.Now()

	res := d.eval.Evaluate(dets)

	timing.EvaluateEnd = time.Now()

	render.Annotate(img, res, d.boundary, d.style)

	timing.RenderEnd = time.Now()

	return &Frame{
		Num:        frameNum,
		Image:      *img,
		Detections: dets,
		Result:     res,
		Timing:     timing,
	}, nil
}

// logFrame logs the frame result, at info level every logEvery frames
func (d *Driver) logFrame(f *Frame) {

	level := zap.DebugLevel

	if d.logEvery > 0 && f.Num%d.logEvery == 0 {
		level = zap.InfoLevel
	}

	if ce := d.log.Check(level, "frame processed"); ce != nil {
		ce.Write(
			zap.Int("frame", f.Num),
			zap.Int("detections", len(f.Detections)),
			zap.Int("occupied", f.Result.Count),
			zap.Duration("detect", f.Timing.Detect()),
			zap.Duration("render", f.Timing.Render()),
			zap.Duration("total", f.Timing.Total()),
		)
	}
}

// finish builds the summary and logs it
func (d *Driver) finish(stats *summaryBuilder, reason string) Summary {

	sum := stats.build(reason)

	d.log.Info("stream stopped",
		zap.String("reason", sum.Reason),
		zap.Int("frames", sum.Frames),
		zap.Int("min_count", sum.MinCount),
		zap.Int("max_count", sum.MaxCount),
		zap.Float64("mean_count", sum.MeanCount),
		zap.Float64("stddev_count", sum.StdDevCount),
		zap.Duration("mean_latency", sum.MeanLatency),
		zap.Duration("p95_latency", sum.P95Latency),
	)

	return sum
}
