package detect

import "github.com/x448/float16"

var f16Table [1 << 16]float32

func init() {
	for i := range f16Table {
		f16Table[i] = float16.Frombits(uint16(i)).Float32()
	}
}

// float16ToFloat32 widens IEEE half precision values read from an NPU output
// buffer
func float16ToFloat32(buf []uint16) []float32 {

	out := make([]float32, len(buf))

	for i, v := range buf {
		out[i] = f16Table[v]
	}

	return out
}
