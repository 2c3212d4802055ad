package detect

import (
	"github.com/pkg/errors"
	"strings"
)

// BackendRKNN is the detector backend name that runs an RKNN compiled model
// on the Rockchip NPU.  Any other backend name is an OpenCV DNN backend.
const BackendRKNN = "rknn"

// ErrRKNNUnavailable is returned by NewRKNN when the binary was built without
// the rknn build tag
var ErrRKNNUnavailable = errors.New("rknn backend not compiled in, rebuild with -tags rknn")

// NPUCore selects the NPU cores a model runs on, values match
// rknn_core_mask
type NPUCore int

const (
	NPUCoreAuto  NPUCore = 0
	NPUCore0     NPUCore = 1
	NPUCore1     NPUCore = 2
	NPUCore2     NPUCore = 4
	NPUCore01    NPUCore = 3
	NPUCore012   NPUCore = 7
	NPUSkipCores NPUCore = -1
)

var npuCoreNames = map[string]NPUCore{
	"auto":  NPUCoreAuto,
	"0":     NPUCore0,
	"1":     NPUCore1,
	"2":     NPUCore2,
	"0_1":   NPUCore01,
	"0_1_2": NPUCore012,
	// rk3566/rk3568/rk3562 do not support setting a core mask
	"skip": NPUSkipCores,
}

// ParseNPUCore parses an npu_core config value, one of auto, 0, 1, 2, 0_1,
// 0_1_2 or skip.  An empty value is auto.
func ParseNPUCore(s string) (NPUCore, error) {

	s = strings.ToLower(strings.TrimSpace(s))

	if s == "" {
		return NPUCoreAuto, nil
	}

	core, ok := npuCoreNames[s]

	if !ok {
		return 0, errors.Errorf("unknown NPU core %q", s)
	}

	return core, nil
}

func (c NPUCore) String() string {

	for name, v := range npuCoreNames {
		if v == c {
			return name
		}
	}

	return "unknown"
}
