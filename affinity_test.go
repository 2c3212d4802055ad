package parkcount

import (
	"github.com/google/go-cmp/cmp"
	"testing"
)

func TestPlatformCores(t *testing.T) {

	tests := []struct {
		platform string
		ct       CoreType
		want     []int
	}{
		{"rk3588", FastCores, []int{4, 5, 6, 7}},
		{"rk3588", SlowCores, []int{0, 1, 2, 3}},
		{"RK3588 ", AllCores, []int{0, 1, 2, 3, 4, 5, 6, 7}},
		{"rk3582", FastCores, []int{4, 5}},
		{"rk3582", AllCores, []int{0, 1, 2, 3, 4, 5}},
		{"rk3576", FastCores, []int{4, 5, 6, 7}},
		{"rk3568", FastCores, []int{0, 1, 2, 3}},
		{"rk3566", AllCores, []int{0, 1, 2, 3}},
		{"rk3562", SlowCores, []int{0, 1, 2, 3}},
	}

	for _, tt := range tests {
		got, err := PlatformCores(tt.platform, tt.ct)

		if err != nil {
			t.Errorf("%s %s: unexpected error: %v", tt.platform, tt.ct, err)
			continue
		}

		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("%s %s mismatch (-want +got):\n%s", tt.platform, tt.ct, diff)
		}
	}
}

func TestPlatformCoresErrors(t *testing.T) {

	if _, err := PlatformCores("rk9999", FastCores); err == nil {
		t.Errorf("expected error for unknown platform")
	}

	if _, err := PlatformCores("rk3588", CoreType(7)); err == nil {
		t.Errorf("expected error for unknown core type")
	}
}

func TestPlatformCoresCopy(t *testing.T) {

	cores, _ := PlatformCores("rk3588", FastCores)
	cores[0] = 99

	again, _ := PlatformCores("rk3588", FastCores)

	if again[0] != 4 {
		t.Errorf("platform table was modified through returned slice")
	}
}

func TestParseCoreType(t *testing.T) {

	for _, ct := range []CoreType{FastCores, SlowCores, AllCores} {
		got, err := ParseCoreType(ct.String())

		if err != nil || got != ct {
			t.Errorf("expected %s, got %v err %v", ct, got, err)
		}
	}

	if got, err := ParseCoreType(" FAST "); err != nil || got != FastCores {
		t.Errorf("expected fast cores, got %v err %v", got, err)
	}

	if _, err := ParseCoreType("turbo"); err == nil {
		t.Errorf("expected error for unknown core type")
	}
}

func TestSetCPUAffinity(t *testing.T) {

	if err := SetCPUAffinity(nil); err != nil {
		t.Errorf("empty core list should be a no-op: %v", err)
	}

	if err := SetCPUAffinity([]int{-1}); err == nil {
		t.Errorf("expected error for negative core")
	}

	current, err := CPUAffinity()

	if err != nil {
		t.Fatalf("error getting affinity: %v", err)
	}

	if len(current) == 0 {
		t.Fatalf("expected at least one core")
	}

	// setting the current affinity is always permitted
	if err := SetCPUAffinity(current); err != nil {
		t.Errorf("error setting affinity to %v: %v", current, err)
	}

	after, err := CPUAffinity()

	if err != nil {
		t.Fatalf("error getting affinity: %v", err)
	}

	if diff := cmp.Diff(current, after); diff != "" {
		t.Errorf("affinity changed (-want +got):\n%s", diff)
	}
}
