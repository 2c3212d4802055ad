package parkcount

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
	"strings"
)

// CoreType specifies the CPU core type
type CoreType int

const (
	FastCores CoreType = 0
	SlowCores CoreType = 1
	AllCores  CoreType = 2
)

// String returns the core type name as accepted by ParseCoreType
func (ct CoreType) String() string {
	switch ct {
	case FastCores:
		return "fast"
	case SlowCores:
		return "slow"
	case AllCores:
		return "all"
	}
	return "unknown"
}

// ParseCoreType returns the CoreType named fast, slow or all
func ParseCoreType(name string) (CoreType, error) {

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fast":
		return FastCores, nil
	case "slow":
		return SlowCores, nil
	case "all":
		return AllCores, nil
	}

	return 0, errors.Errorf("unknown core type: %s", name)
}

var (
	// rk3588 and rk3576 have four fast cores 4-7 and four efficient cores 0-3
	quadBigLittle = map[CoreType][]int{
		FastCores: {4, 5, 6, 7},
		SlowCores: {0, 1, 2, 3},
		AllCores:  {0, 1, 2, 3, 4, 5, 6, 7},
	}

	// rk356x and rk3562 have four identical cores 0-3
	quadOnly = map[CoreType][]int{
		FastCores: {0, 1, 2, 3},
		SlowCores: {0, 1, 2, 3},
		AllCores:  {0, 1, 2, 3},
	}
)

// platformCores lists the CPU cores of each Rockchip SoC by core type
var platformCores = map[string]map[CoreType][]int{
	"rk3562": quadOnly,
	"rk3566": quadOnly,
	"rk3568": quadOnly,
	"rk3576": quadBigLittle,
	"rk3582": {
		FastCores: {4, 5},
		SlowCores: {0, 1, 2, 3},
		AllCores:  {0, 1, 2, 3, 4, 5},
	},
	"rk3588": quadBigLittle,
}

// PlatformCores returns the CPU core numbers of the core type on the given
// platform of rk3562|rk3566|rk3568|rk3576|rk3582|rk3588
func PlatformCores(platform string, ct CoreType) ([]int, error) {

	platform = strings.ToLower(strings.TrimSpace(platform))

	types, ok := platformCores[platform]

	if !ok {
		return nil, errors.Errorf("unknown platform: %s", platform)
	}

	cores, ok := types[ct]

	if !ok {
		return nil, errors.Errorf("unknown core type %d for platform %s", ct, platform)
	}

	// copy so callers can't modify the table
	return append([]int(nil), cores...), nil
}

// SetCPUAffinity pins the program to run on the given CPU cores, eg:
// []int{4,5,6,7}.  An empty list leaves the affinity unchanged.
func SetCPUAffinity(cores []int) error {

	if len(cores) == 0 {
		return nil
	}

	var set unix.CPUSet

	for _, core := range cores {
		if core < 0 {
			return errors.Errorf("invalid CPU core %d", core)
		}

		set.Set(core)
	}

	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errors.Wrapf(err, "failed to set CPU affinity to cores %v", cores)
	}

	return nil
}

// CPUAffinity returns the CPU cores the program is allowed to run on
func CPUAffinity() ([]int, error) {

	var set unix.CPUSet

	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, errors.Wrap(err, "failed to get CPU affinity")
	}

	count := set.Count()
	cores := make([]int, 0, count)

	for core := 0; len(cores) < count; core++ {
		if set.IsSet(core) {
			cores = append(cores, core)
		}
	}

	return cores, nil
}
