package parkcount

import (
	"github.com/pkg/errors"
	"github.com/swdee/go-parkcount/detect"
	"go.uber.org/zap"
	"strings"
)

// NewDetector opens the detector selected by detector.backend, an RKNN model
// on the NPU for rknn and an ONNX model through OpenCV DNN otherwise
func (c Config) NewDetector(labels []string, logger *zap.Logger) (detect.Detector, error) {

	p := c.DetectorParams()

	if !strings.EqualFold(c.Detector.Backend, detect.BackendRKNN) {
		det, err := detect.NewYOLOv5(c.Detector.Model, labels, p, logger)

		if err != nil {
			return nil, err
		}

		return det, nil
	}

	core, err := detect.ParseNPUCore(c.Detector.NPUCore)

	if err != nil {
		return nil, errors.Wrap(err, "detector.npu_core")
	}

	det, err := detect.NewRKNN(c.Detector.Model, labels, p, core, logger)

	if err != nil {
		return nil, err
	}

	return det, nil
}
