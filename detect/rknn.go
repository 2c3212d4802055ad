//go:build rknn

package detect

/*
#cgo LDFLAGS: -lrknnrt
#include "rknn_api.h"
#include <stdlib.h>
*/
import "C"
import (
	"github.com/pkg/errors"
	"github.com/swdee/go-parkcount/occupancy"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
	"image"
	"os"
	"strings"
	"unsafe"
)

// rknnCompiled reports the NPU runtime is linked in
const rknnCompiled = true

// rknnError describes a non zero return code of the RKNN C API
func rknnError(call string, ret C.int) error {

	var msg string

	switch ret {
	case C.RKNN_ERR_FAIL:
		msg = "execution failed"
	case C.RKNN_ERR_TIMEOUT:
		msg = "execution timed out"
	case C.RKNN_ERR_DEVICE_UNAVAILABLE:
		msg = "device is unavailable"
	case C.RKNN_ERR_MALLOC_FAIL:
		msg = "C memory allocation failed"
	case C.RKNN_ERR_PARAM_INVALID:
		msg = "parameter is invalid"
	case C.RKNN_ERR_MODEL_INVALID:
		msg = "model file is invalid"
	case C.RKNN_ERR_CTX_INVALID:
		msg = "context is invalid"
	case C.RKNN_ERR_INPUT_INVALID:
		msg = "input is invalid"
	case C.RKNN_ERR_OUTPUT_INVALID:
		msg = "output is invalid"
	case C.RKNN_ERR_DEVICE_UNMATCH:
		msg = "device mismatch, update the rknn sdk and npu driver"
	case C.RKNN_ERR_TARGET_PLATFORM_UNMATCH:
		msg = "model target platform does not match this platform"
	default:
		msg = "unknown error"
	}

	return errors.Errorf("%s failed with code %d: %s", call, int(ret), msg)
}

// tensorAttr holds the fields of C.rknn_tensor_attr the detector uses
type tensorAttr struct {
	name  string
	dims  []uint32
	nhwc  bool
	dtype C.rknn_tensor_type
	zp    int32
	scale float32
}

// npuRuntime is a loaded RKNN model context
type npuRuntime struct {
	ctx     C.rknn_context
	inputs  []tensorAttr
	outputs []tensorAttr
}

// openRuntime loads the RKNN compiled model and queries its tensors
func openRuntime(modelFile string, core NPUCore) (*npuRuntime, error) {

	cModel := C.CString(modelFile)
	defer C.free(unsafe.Pointer(cModel))

	r := &npuRuntime{}

	if ret := C.rknn_init(&r.ctx, unsafe.Pointer(cModel), 0, 0, nil); ret != C.RKNN_SUCC {
		return nil, rknnError("rknn_init", ret)
	}

	if core != NPUSkipCores {
		if ret := C.rknn_set_core_mask(r.ctx, C.rknn_core_mask(core)); ret != C.RKNN_SUCC {
			r.close()
			return nil, rknnError("rknn_set_core_mask", ret)
		}
	}

	var ioNum C.rknn_input_output_num

	ret := C.rknn_query(r.ctx, C.RKNN_QUERY_IN_OUT_NUM, unsafe.Pointer(&ioNum),
		C.uint(C.sizeof_rknn_input_output_num))

	if ret != C.RKNN_SUCC {
		r.close()
		return nil, rknnError("rknn_query in_out_num", ret)
	}

	var err error

	if r.inputs, err = r.queryAttrs(C.RKNN_QUERY_INPUT_ATTR, int(ioNum.n_input)); err != nil {
		r.close()
		return nil, err
	}

	if r.outputs, err = r.queryAttrs(C.RKNN_QUERY_OUTPUT_ATTR, int(ioNum.n_output)); err != nil {
		r.close()
		return nil, err
	}

	return r, nil
}

func (r *npuRuntime) queryAttrs(cmd C.rknn_query_cmd, n int) ([]tensorAttr, error) {

	attrs := make([]tensorAttr, n)

	for i := range attrs {
		var a C.rknn_tensor_attr
		a.index = C.uint32_t(i)

		ret := C.rknn_query(r.ctx, cmd, unsafe.Pointer(&a), C.uint(unsafe.Sizeof(a)))

		if ret != C.RKNN_SUCC {
			return nil, rknnError("rknn_query tensor attr", ret)
		}

		name := C.GoStringN(&a.name[0], C.RKNN_MAX_NAME_LEN)

		if idx := strings.IndexByte(name, 0); idx >= 0 {
			name = name[:idx]
		}

		dims := make([]uint32, int(a.n_dims))

		for d := range dims {
			dims[d] = uint32(a.dims[d])
		}

		attrs[i] = tensorAttr{
			name:  name,
			dims:  dims,
			nhwc:  a.fmt == C.RKNN_TENSOR_NHWC,
			dtype: a._type,
			zp:    int32(a.zp),
			scale: float32(a.scale),
		}
	}

	return attrs, nil
}

// inputSize returns the width and height of the first input tensor
func (r *npuRuntime) inputSize() (image.Point, error) {

	if len(r.inputs) == 0 || len(r.inputs[0].dims) != 4 {
		return image.Point{}, errors.New("model input is not a 4 dimensional image tensor")
	}

	d := r.inputs[0].dims

	if r.inputs[0].nhwc {
		return image.Pt(int(d[2]), int(d[1])), nil
	}

	return image.Pt(int(d[3]), int(d[2])), nil
}

// run sets the RGB uint8 image as the model input and runs inference.  The
// returned outputs must be released.
func (r *npuRuntime) run(img gocv.Mat) ([]C.rknn_output, error) {

	data, err := img.DataPtrUint8()

	if err != nil {
		return nil, errors.Wrap(err, "reading input Mat")
	}

	in := []C.rknn_input{{
		index: 0,
		buf:   unsafe.Pointer(&data[0]),
		size:  C.uint32_t(len(data)),
		_type: C.RKNN_TENSOR_UINT8,
		fmt:   C.RKNN_TENSOR_NHWC,
	}}

	if ret := C.rknn_inputs_set(r.ctx, 1, &in[0]); ret != C.RKNN_SUCC {
		return nil, rknnError("rknn_inputs_set", ret)
	}

	if ret := C.rknn_run(r.ctx, nil); ret < 0 {
		return nil, rknnError("rknn_run", ret)
	}

	outs := make([]C.rknn_output, len(r.outputs))

	for i := range outs {
		outs[i].index = C.uint32_t(i)
		// keep int8 outputs quantized, they are dequantized lazily
		outs[i].want_float = 0
	}

	ret := C.rknn_outputs_get(r.ctx, C.uint32_t(len(outs)), &outs[0], nil)

	if ret < 0 {
		return nil, rknnError("rknn_outputs_get", ret)
	}

	return outs, nil
}

// heads wraps the output buffers without copying them
func (r *npuRuntime) heads(outs []C.rknn_output) ([]gridTensor, error) {

	heads := make([]gridTensor, len(outs))

	for i, o := range outs {
		attr := r.outputs[i]

		switch attr.dtype {
		case C.RKNN_TENSOR_INT8:
			heads[i] = quantTensor{
				data:  unsafe.Slice((*int8)(o.buf), int(o.size)),
				zp:    attr.zp,
				scale: attr.scale,
			}
		case C.RKNN_TENSOR_FLOAT16:
			heads[i] = floatTensor(float16ToFloat32(
				unsafe.Slice((*uint16)(o.buf), int(o.size)/2)))
		case C.RKNN_TENSOR_FLOAT32:
			heads[i] = floatTensor(unsafe.Slice((*float32)(o.buf), int(o.size)/4))
		default:
			return nil, errors.Errorf("output %s has unsupported tensor type %d",
				attr.name, int(attr.dtype))
		}
	}

	return heads, nil
}

func (r *npuRuntime) release(outs []C.rknn_output) error {

	if ret := C.rknn_outputs_release(r.ctx, C.uint32_t(len(outs)), &outs[0]); ret != C.RKNN_SUCC {
		return rknnError("rknn_outputs_release", ret)
	}

	return nil
}

func (r *npuRuntime) close() error {

	if ret := C.rknn_destroy(r.ctx); ret != C.RKNN_SUCC {
		return rknnError("rknn_destroy", ret)
	}

	return nil
}

// RKNN runs a YOLOv5 model compiled for the Rockchip NPU.  The model keeps
// its three raw detection heads and the anchor grid is decoded on the CPU.
type RKNN struct {
	// Params are the post processing parameters, the input size is taken
	// from the model
	Params    Params
	rt        *npuRuntime
	labels    []string
	classes   int
	input     image.Point
	letterbox *Letterbox
	fitted    gocv.Mat
	rgb       gocv.Mat
	log       *zap.Logger
}

// NewRKNN loads the RKNN model file onto the given NPU cores
func NewRKNN(modelFile string, labels []string, p Params, core NPUCore,
	logger *zap.Logger) (*RKNN, error) {

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

	if len(p.Strides) == 0 {
		p.Strides = YOLOv5Strides()
	}

	rt, err := openRuntime(modelFile, core)

	if err != nil {
		return nil, errors.Wrapf(err, "loading RKNN model %s", modelFile)
	}

	input, err := rt.inputSize()

	if err != nil {
		rt.close()
		return nil, err
	}

	if len(rt.outputs) != len(p.Strides) {
		rt.close()
		return nil, errors.Errorf("model has %d outputs, expected %d detection heads",
			len(rt.outputs), len(p.Strides))
	}

	// NCHW heads carry anchors * (5 + classes) channels
	classes := len(labels)

	if d := rt.outputs[0].dims; len(d) == 4 && !rt.outputs[0].nhwc {
		classes = int(d[1])/anchorsPerStride - 5
	}

	p.InputWidth, p.InputHeight = input.X, input.Y

	logger.Info("loaded RKNN model",
		zap.String("model", modelFile),
		zap.Int("labels", len(labels)),
		zap.Int("classes", classes),
		zap.Int("input_width", input.X),
		zap.Int("input_height", input.Y),
		zap.Stringer("npu_core", core),
	)

	return &RKNN{
		Params:  p,
		rt:      rt,
		labels:  labels,
		classes: classes,
		input:   input,
		fitted:  gocv.NewMat(),
		rgb:     gocv.NewMat(),
		log:     logger,
	}, nil
}

// Detect runs the model on the NPU and returns the objects found with boxes
// in the frame's coordinates
func (n *RKNN) Detect(img gocv.Mat) ([]occupancy.Detection, error) {

	if img.Empty() {
		return nil, errors.New("empty frame")
	}

	frame := image.Pt(img.Cols(), img.Rows())

	if n.letterbox == nil || !n.letterbox.Fits(frame) {
		if n.letterbox != nil {
			n.letterbox.Close()
		}

		n.letterbox = NewLetterbox(frame, n.input)
	}

	n.letterbox.Apply(img, &n.fitted)
	gocv.CvtColor(n.fitted, &n.rgb, gocv.ColorBGRToRGB)

	outs, err := n.rt.run(n.rgb)

	if err != nil {
		return nil, err
	}

	defer func() {
		if err := n.rt.release(outs); err != nil {
			n.log.Warn("error releasing outputs", zap.Error(err))
		}
	}()

	heads, err := n.rt.heads(outs)

	if err != nil {
		return nil, err
	}

	cands, err := decodeAnchors(heads, n.Params.Strides, n.input, n.classes,
		n.Params.BoxThreshold)

	if err != nil {
		return nil, err
	}

	return collate(cands, n.Params, n.labels, n.letterbox.ToFrame), nil
}

// Close unloads the model and frees the working Mats
func (n *RKNN) Close() error {

	if n.letterbox != nil {
		n.letterbox.Close()
	}

	n.fitted.Close()
	n.rgb.Close()

	return n.rt.close()
}
