//go:build !rknn

package detect

import (
	"github.com/swdee/go-parkcount/occupancy"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

const rknnCompiled = false

// RKNN is unavailable in builds without the rknn tag
type RKNN struct{}

// NewRKNN returns ErrRKNNUnavailable, build with -tags rknn on a Rockchip
// board with librknnrt installed to run models on the NPU
func NewRKNN(modelFile string, labels []string, p Params, core NPUCore,
	logger *zap.Logger) (*RKNN, error) {

	return nil, ErrRKNNUnavailable
}

// Detect returns ErrRKNNUnavailable
func (n *RKNN) Detect(img gocv.Mat) ([]occupancy.Detection, error) {
	return nil, ErrRKNNUnavailable
}

// Close does nothing
func (n *RKNN) Close() error {
	return nil
}
