package parkcount

import (
	"bytes"
	"encoding/json"
	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"github.com/swdee/go-parkcount/detect"
	"github.com/swdee/go-parkcount/occupancy"
	"github.com/swdee/go-parkcount/roi"
	"go.uber.org/zap/zapcore"
	"image"
)

// Config is the JSON configuration of a parking monitor
type Config struct {
	// Area is the ROI polygon of the monitored area as [x,y] pairs in the
	// working frame size
	Area [][]int `json:"roi"`
	// ROIMargin grows the ROI outwards by this many pixels, or shrinks it
	// when negative
	ROIMargin float64 `json:"roi_margin"`
	// Targets are the label tokens counted, matched by substring
	Targets     []string `json:"target_classes"`
	FrameWidth  int      `json:"frame_width"`
	FrameHeight int      `json:"frame_height"`
	// Source is a video file, capture device index, stream URL or directory
	// of images
	Source   string         `json:"source"`
	Detector DetectorConfig `json:"detector"`
	Output   OutputConfig   `json:"output"`
	// CPUCores pins the process to these cores, empty leaves the affinity
	// unchanged
	CPUCores []int  `json:"cpu_cores"`
	LogLevel string `json:"log_level"`
}

// DetectorConfig configures the YOLOv5 detector
type DetectorConfig struct {
	Model        string  `json:"model"`
	Labels       string  `json:"labels"`
	BoxThreshold float32 `json:"box_threshold"`
	NMSThreshold float32 `json:"nms_threshold"`
	InputWidth   int     `json:"input_width"`
	InputHeight  int     `json:"input_height"`
	// Backend is rknn to run an RKNN model on the NPU, otherwise the OpenCV
	// DNN backend name
	Backend string `json:"backend"`
	Target  string `json:"target"`
	// NPUCore selects the NPU cores of the rknn backend
	NPUCore string `json:"npu_core"`
}

// OutputConfig configures where annotated frames are sent
type OutputConfig struct {
	// Video is the output video file, empty disables recording
	Video string  `json:"video"`
	Codec string  `json:"codec"`
	FPS   float64 `json:"fps"`
	// Window is the display window title, empty disables the window
	Window string `json:"window"`
	// HTTPAddr is the listen address of the MJPEG stream server
	HTTPAddr string `json:"http_addr"`
	// MetricsAddr is the listen address of the Prometheus metrics server
	MetricsAddr string `json:"metrics_addr"`
}

// DefaultConfig returns the configuration of the reference parking lot
// video, a 1020x600 working frame with the car park's entry lane as ROI
func DefaultConfig() Config {

	p := detect.YOLOv5COCOParams()

	return Config{
		Area: [][]int{
			{26, 433}, {9, 516}, {389, 492}, {786, 419}, {720, 368},
		},
		Targets:     []string{"car"},
		FrameWidth:  1020,
		FrameHeight: 600,
		Source:      "videos/parking.mp4",
		Detector: DetectorConfig{
			Model:        "models/yolov5s.onnx",
			Labels:       "models/coco_80_labels_list.txt",
			BoxThreshold: p.BoxThreshold,
			NMSThreshold: p.NMSThreshold,
			InputWidth:   p.InputWidth,
			InputHeight:  p.InputHeight,
			Backend:      p.Backend,
			Target:       p.Target,
			NPUCore:      detect.NPUCoreAuto.String(),
		},
		Output: OutputConfig{
			Video:  "videos/output.avi",
			Codec:  "XVID",
			FPS:    20,
			Window: "FRAME",
		},
		LogLevel: "info",
	}
}

// LoadConfig reads the JSON config file at path over the defaults.  ${VAR}
// references in the file are replaced with environment variables before
// parsing.
func LoadConfig(path string) (Config, error) {

	buf, err := envsubst.ReadFile(path)

	if err != nil {
		return Config{}, errors.Wrapf(err, "error reading config %s", path)
	}

	cfg, err := ParseConfig(buf)

	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}

	return cfg, nil
}

// ParseConfig parses the JSON document over the defaults and validates the
// result
func ParseConfig(data []byte) (Config, error) {

	cfg := DefaultConfig()

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "error parsing config")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the configuration values are usable
func (c Config) Validate() error {

	if len(c.Area) < 3 {
		return errors.Errorf("roi: need at least 3 points, got %d", len(c.Area))
	}

	for i, p := range c.Area {
		if len(p) != 2 {
			return errors.Errorf("roi: point %d has %d values, expected [x,y]", i, len(p))
		}
	}

	if len(c.TargetClasses()) == 0 {
		return errors.New("target_classes: at least one class is required")
	}

	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		return errors.Errorf("frame_width/frame_height: must be positive, got %dx%d",
			c.FrameWidth, c.FrameHeight)
	}

	if c.Detector.InputWidth <= 0 || c.Detector.InputHeight <= 0 {
		return errors.Errorf("detector.input_width/input_height: must be positive, got %dx%d",
			c.Detector.InputWidth, c.Detector.InputHeight)
	}

	if c.Detector.BoxThreshold < 0 || c.Detector.BoxThreshold > 1 {
		return errors.Errorf("detector.box_threshold: must be within [0,1], got %v",
			c.Detector.BoxThreshold)
	}

	if c.Detector.NMSThreshold < 0 || c.Detector.NMSThreshold > 1 {
		return errors.Errorf("detector.nms_threshold: must be within [0,1], got %v",
			c.Detector.NMSThreshold)
	}

	if _, err := detect.ParseNPUCore(c.Detector.NPUCore); err != nil {
		return errors.Wrap(err, "detector.npu_core")
	}

	if c.Output.Video != "" {
		if len(c.Output.Codec) != 4 {
			return errors.Errorf("output.codec: must be a four character code, got %q",
				c.Output.Codec)
		}

		if c.Output.FPS <= 0 {
			return errors.Errorf("output.fps: must be positive, got %v", c.Output.FPS)
		}
	}

	for _, core := range c.CPUCores {
		if core < 0 {
			return errors.Errorf("cpu_cores: invalid core %d", core)
		}
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}

	return nil
}

// ROI builds the monitored area with the margin applied
func (c Config) ROI() (*roi.ROI, error) {

	pts := make([]roi.Point, len(c.Area))

	for i, p := range c.Area {
		if len(p) != 2 {
			return nil, errors.Errorf("roi: point %d has %d values, expected [x,y]", i, len(p))
		}

		pts[i] = roi.Pt(p[0], p[1])
	}

	pts, err := roi.Offset(pts, c.ROIMargin)

	if err != nil {
		return nil, errors.Wrapf(err, "roi: margin %v", c.ROIMargin)
	}

	area, err := roi.New(pts)

	if err != nil {
		return nil, errors.Wrap(err, "roi")
	}

	return area, nil
}

// TargetClasses returns the cleaned up target class tokens
func (c Config) TargetClasses() occupancy.TargetClasses {
	return occupancy.NewTargetClasses(c.Targets...)
}

// FrameSize returns the working frame size
func (c Config) FrameSize() image.Point {
	return image.Pt(c.FrameWidth, c.FrameHeight)
}

// DetectorParams returns the YOLOv5 parameters of the detector config
func (c Config) DetectorParams() detect.Params {

	p := detect.YOLOv5COCOParams()

	p.InputWidth = c.Detector.InputWidth
	p.InputHeight = c.Detector.InputHeight
	p.BoxThreshold = c.Detector.BoxThreshold
	p.NMSThreshold = c.Detector.NMSThreshold
	p.Backend = c.Detector.Backend
	p.Target = c.Detector.Target

	return p
}
