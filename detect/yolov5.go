package detect

import (
	"github.com/pkg/errors"
	"github.com/swdee/go-parkcount/occupancy"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
	"image"
	"os"
	"sort"
)

// Params defines the YOLOv5 parameters used for inference and post processing
type Params struct {
	// InputWidth and InputHeight are the pixel dimensions of the Model input
	// tensor
	InputWidth  int
	InputHeight int
	// BoxThreshold is the minimum probability score required for a bounding box
	// region to be considered for processing
	BoxThreshold float32
	// NMSThreshold is the Non-Maximum Suppression threshold used for defining
	// the maximum allowed Intersection Over Union (IoU) between two
	// bounding boxes for both to be kept
	NMSThreshold float32
	// MaxObjectNumber is the maximum number of objects detected that can be
	// returned
	MaxObjectNumber int
	// Backend is the OpenCV DNN backend name, eg: opencv, cuda, openvino
	Backend string
	// Target is the OpenCV DNN target device name, eg: cpu, cuda, cuda_fp16
	Target string
	// Strides are the anchor boxes of the raw detection heads, used by the
	// RKNN backend whose models leave the grid decode out of the graph
	Strides []Stride
}

// YOLOv5COCOParams returns Params for the standard yolov5s ONNX export
// trained on the COCO dataset featuring:
// - Input size: 640x640
// - Box Threshold: 0.25
// - NMS Threshold: 0.45
// - Maximum Object Number: 64
// - OpenCV backend on CPU
// - COCO anchor boxes for the RKNN backend
func YOLOv5COCOParams() Params {
	return Params{
		InputWidth:      640,
		InputHeight:     640,
		BoxThreshold:    0.25,
		NMSThreshold:    0.45,
		MaxObjectNumber: 64,
		Backend:         "opencv",
		Target:          "cpu",
		Strides:         YOLOv5Strides(),
	}
}

// YOLOv5 runs a YOLOv5 ONNX model with the OpenCV DNN module
type YOLOv5 struct {
	// Params are the Model configuration parameters
	Params Params
	// net is the loaded DNN network
	net gocv.Net
	// labels are the class names the Model was trained on
	labels []string
	// letterbox fits frames to the input size, it is recreated when the
	// frame dimensions change
	letterbox *Letterbox
	// input is the letterboxed frame
	input gocv.Mat
	log   *zap.Logger
}

// NewYOLOv5 loads the ONNX model file and returns a detector using the given
// class labels
func NewYOLOv5(modelFile string, labels []string, p Params, logger *zap.Logger) (*YOLOv5, error) {

	info, err := os.Stat(modelFile)

	if err != nil {
		return nil, errors.Wrapf(err, "model file does not exist at %s", modelFile)
	}

	if info.IsDir() {
		return nil, errors.Errorf("model file %s is a directory", modelFile)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	net := gocv.ReadNetFromONNX(modelFile)

	if net.Empty() {
		return nil, errors.Errorf("failed to load ONNX model %s", modelFile)
	}

	if err := net.SetPreferableBackend(gocv.ParseNetBackend(p.Backend)); err != nil {
		net.Close()
		return nil, errors.Wrapf(err, "setting DNN backend %q", p.Backend)
	}

	if err := net.SetPreferableTarget(gocv.ParseNetTarget(p.Target)); err != nil {
		net.Close()
		return nil, errors.Wrapf(err, "setting DNN target %q", p.Target)
	}

	logger.Info("loaded YOLOv5 model",
		zap.String("model", modelFile),
		zap.Int("labels", len(labels)),
		zap.Int("input_width", p.InputWidth),
		zap.Int("input_height", p.InputHeight),
		zap.String("backend", p.Backend),
		zap.String("target", p.Target),
	)

	return &YOLOv5{
		Params: p,
		net:    net,
		labels: labels,
		input:  gocv.NewMat(),
		log:    logger,
	}, nil
}

// Close frees the network and working Mats
func (y *YOLOv5) Close() error {

	if y.letterbox != nil {
		y.letterbox.Close()
	}

	y.input.Close()

	return y.net.Close()
}

// Detect runs inference on the frame and returns the objects found with boxes
// in the frame's coordinates
func (y *YOLOv5) Detect(img gocv.Mat) ([]occupancy.Detection, error) {

	if img.Empty() {
		return nil, errors.New("empty frame")
	}

	frame := image.Pt(img.Cols(), img.Rows())

	if y.letterbox == nil || !y.letterbox.Fits(frame) {
		if y.letterbox != nil {
			y.letterbox.Close()
		}

		y.letterbox = NewLetterbox(frame, image.Pt(y.Params.InputWidth, y.Params.InputHeight))

		y.log.Debug("letterbox created",
			zap.Int("frame_width", frame.X),
			zap.Int("frame_height", frame.Y),
			zap.Float32("scale", y.letterbox.Scale()),
			zap.Int("x_offset", y.letterbox.Offset().X),
			zap.Int("y_offset", y.letterbox.Offset().Y),
		)
	}

	y.letterbox.Apply(img, &y.input)

	// frames are BGR, the model expects RGB scaled to 0..1
	blob := gocv.BlobFromImage(y.input, 1.0/255.0,
		image.Pt(y.Params.InputWidth, y.Params.InputHeight),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	y.net.SetInput(blob, "")

	out := y.net.Forward("")
	defer out.Close()

	sizes := out.Size()

	// output is [1, rows, 5+classes] or [rows, 5+classes]
	if len(sizes) < 2 {
		return nil, errors.Errorf("unexpected output dimensions %v", sizes)
	}

	rows := sizes[len(sizes)-2]
	rowLen := sizes[len(sizes)-1]

	data, err := out.DataPtrFloat32()

	if err != nil {
		return nil, errors.Wrap(err, "reading output tensor")
	}

	cands, err := y.decode(data, rows, rowLen)

	if err != nil {
		return nil, err
	}

	return y.collate(cands, y.letterbox.ToFrame), nil
}

// decode filters the raw output rows.  Each row is center x, center y, width,
// height, objectness then one probability per class.  A row is a candidate
// when both its objectness and its best class score pass the box threshold.
func (y *YOLOv5) decode(data []float32, rows, rowLen int) ([]candidate, error) {

	if rowLen < 6 {
		return nil, errors.Errorf("output row length %d too short", rowLen)
	}

	if len(data) < rows*rowLen {
		return nil, errors.Errorf("output tensor has %d values, expected %d",
			len(data), rows*rowLen)
	}

	var cands []candidate

	for i := 0; i < rows; i++ {
		row := data[i*rowLen : (i+1)*rowLen]

		objectness := row[4]

		if objectness < y.Params.BoxThreshold {
			continue
		}

		class := 0
		classProbs := row[5:]

		for k, p := range classProbs {
			if p > classProbs[class] {
				class = k
			}
		}

		score := classProbs[class] * objectness

		if score < y.Params.BoxThreshold {
			continue
		}

		w, h := row[2], row[3]

		cands = append(cands, candidate{
			box:   [4]float32{row[0] - w/2, row[1] - h/2, w, h},
			score: score,
			class: class,
		})
	}

	return cands, nil
}

// collate maps the candidates through toFrame with the detector's params
func (y *YOLOv5) collate(cands []candidate,
	toFrame func(x, y float32) (float32, float32)) []occupancy.Detection {

	return collate(cands, y.Params, y.labels, toFrame)
}

// collate orders the candidates by score, suppresses overlaps and returns
// at most MaxObjectNumber detections with boxes mapped through toFrame
func collate(cands []candidate, p Params, labels []string,
	toFrame func(x, y float32) (float32, float32)) []occupancy.Detection {

	dets := make([]occupancy.Detection, 0)

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})

	kept := suppress(cands, p.NMSThreshold)

	for i, c := range cands {
		if !kept[i] {
			continue
		}

		if p.MaxObjectNumber > 0 && len(dets) >= p.MaxObjectNumber {
			break
		}

		x1, y1 := toFrame(c.box[0], c.box[1])
		x2, y2 := toFrame(c.box[0]+c.box[2], c.box[1]+c.box[3])

		dets = append(dets, occupancy.Detection{
			Label: labelName(labels, c.class),
			Box:   occupancy.Box(int(x1), int(y1), int(x2), int(y2)),
			Score: c.score,
		})
	}

	return dets
}
