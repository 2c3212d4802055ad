package detect

import (
	"github.com/pkg/errors"
	"image"
)

// Stride is one detection head of a YOLOv5 model that has not had its grid
// decode exported into the graph, as with models compiled for the RKNN NPU
type Stride struct {
	// Size is the number of input pixels covered by each grid cell
	Size int
	// Anchor are the three anchor box width, height pairs of the head
	Anchor []int
}

// YOLOv5Strides returns the COCO anchor boxes of the three YOLOv5 heads
// - Stride 8: (10x13), (16x30), (33x23)
// - Stride 16: (30x61), (62x45), (59x119)
// - Stride 32: (116x90), (156x198), (373x326)
func YOLOv5Strides() []Stride {
	return []Stride{
		{Size: 8, Anchor: []int{10, 13, 16, 30, 33, 23}},
		{Size: 16, Anchor: []int{30, 61, 62, 45, 59, 119}},
		{Size: 32, Anchor: []int{116, 90, 156, 198, 373, 326}},
	}
}

// anchorsPerStride is the number of anchor boxes predicted by each grid cell
const anchorsPerStride = 3

// gridTensor is the output of one head laid out as NCHW, channel planes of
// anchor * (5 + classes) values over the grid
type gridTensor interface {
	Len() int
	At(i int) float32
}

// floatTensor is a float32 head output
type floatTensor []float32

func (t floatTensor) Len() int { return len(t) }

func (t floatTensor) At(i int) float32 { return t[i] }

// quantTensor is an int8 head output with its affine quantization
type quantTensor struct {
	data  []int8
	zp    int32
	scale float32
}

func (t quantTensor) Len() int { return len(t.data) }

func (t quantTensor) At(i int) float32 {
	return deqnt(t.data[i], t.zp, t.scale)
}

// deqnt converts an affine quantized int8 back to float32
func deqnt(q int8, zp int32, scale float32) float32 {
	return (float32(q) - float32(zp)) * scale
}

// qnt converts f to an affine quantized int8, saturating at the int8 range
func qnt(f float32, zp int32, scale float32) int8 {

	v := f/scale + float32(zp)

	return int8(max(-128, min(v, 127)))
}

// decodeAnchors turns the raw head outputs into candidates in model input
// pixels.  Objectness and the best class probability must both pass
// threshold and the candidate score is their product.
func decodeAnchors(heads []gridTensor, strides []Stride, input image.Point,
	classes int, threshold float32) ([]candidate, error) {

	if len(heads) != len(strides) {
		return nil, errors.Errorf("model has %d outputs, expected %d strides",
			len(heads), len(strides))
	}

	if classes < 1 {
		return nil, errors.Errorf("invalid class count %d", classes)
	}

	boxSize := 5 + classes

	var cands []candidate

	for h, stride := range strides {
		gridH := input.Y / stride.Size
		gridW := input.X / stride.Size
		gridLen := gridH * gridW

		if want := anchorsPerStride * boxSize * gridLen; heads[h].Len() < want {
			return nil, errors.Errorf("output %d has %d values, expected %d",
				h, heads[h].Len(), want)
		}

		if len(stride.Anchor) < anchorsPerStride*2 {
			return nil, errors.Errorf("stride %d needs %d anchor values, got %d",
				stride.Size, anchorsPerStride*2, len(stride.Anchor))
		}

		t := heads[h]

		for a := 0; a < anchorsPerStride; a++ {
			for i := 0; i < gridH; i++ {
				for j := 0; j < gridW; j++ {

					base := boxSize*a*gridLen + i*gridW + j
					objectness := t.At(base + 4*gridLen)

					if objectness < threshold {
						continue
					}

					class := 0
					best := t.At(base + 5*gridLen)

					for k := 1; k < classes; k++ {
						if p := t.At(base + (5+k)*gridLen); p > best {
							class = k
							best = p
						}
					}

					if best < threshold {
						continue
					}

					bx := t.At(base)*2 - 0.5
					by := t.At(base+gridLen)*2 - 0.5
					bw := t.At(base+2*gridLen) * 2
					bh := t.At(base+3*gridLen) * 2

					bx = (bx + float32(j)) * float32(stride.Size)
					by = (by + float32(i)) * float32(stride.Size)
					bw = bw * bw * float32(stride.Anchor[a*2])
					bh = bh * bh * float32(stride.Anchor[a*2+1])

					cands = append(cands, candidate{
						box:   [4]float32{bx - bw/2, by - bh/2, bw, bh},
						score: best * objectness,
						class: class,
					})
				}
			}
		}
	}

	return cands, nil
}
