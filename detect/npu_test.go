package detect

import (
	"github.com/pkg/errors"
	"math"
	"testing"
)

func TestParseNPUCore(t *testing.T) {

	tests := []struct {
		in   string
		want NPUCore
	}{
		{"", NPUCoreAuto},
		{"auto", NPUCoreAuto},
		{" AUTO ", NPUCoreAuto},
		{"0", NPUCore0},
		{"1", NPUCore1},
		{"2", NPUCore2},
		{"0_1", NPUCore01},
		{"0_1_2", NPUCore012},
		{"skip", NPUSkipCores},
	}

	for _, tt := range tests {
		got, err := ParseNPUCore(tt.in)

		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.in, err)
			continue
		}

		if got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseNPUCore("3"); err == nil {
		t.Errorf("expected error for unknown core")
	}

	if NPUCore012.String() != "0_1_2" || NPUCore(99).String() != "unknown" {
		t.Errorf("unexpected core names %s %s", NPUCore012, NPUCore(99))
	}
}

func TestFloat16ToFloat32(t *testing.T) {

	got := float16ToFloat32([]uint16{0x0000, 0x3c00, 0xc000, 0x3800, 0x7c00})
	want := []float32{0, 1, -2, 0.5, float32(math.Inf(1))}

	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNewRKNNMissingModel(t *testing.T) {

	_, err := NewRKNN("does-not-exist.rknn", nil, YOLOv5COCOParams(), NPUCoreAuto, nil)

	if err == nil {
		t.Fatalf("expected error")
	}

	// without the rknn tag the backend reports it is not compiled in
	if !rknnCompiled && !errors.Is(err, ErrRKNNUnavailable) {
		t.Errorf("expected ErrRKNNUnavailable, got %v", err)
	}
}
