package stream

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"sort"
	"time"
)

// Reasons a stream run stopped
const (
	StopEndOfStream = "end of stream"
	StopExitKey     = "exit key"
	StopCancelled   = "cancelled"
	StopMaxFrames   = "max frames"
)

// Summary describes a finished stream run
type Summary struct {
	// Frames is the number of frames processed
	Frames int
	// Reason is why the run stopped
	Reason string
	// MinCount, MaxCount, MeanCount and StdDevCount describe the occupancy
	// count over all frames
	MinCount    int
	MaxCount    int
	MeanCount   float64
	StdDevCount float64
	// MeanLatency and P95Latency are the per frame processing times
	MeanLatency time.Duration
	P95Latency  time.Duration
}

// summaryBuilder collects per frame values during a run
type summaryBuilder struct {
	counts    []float64
	latencies []float64
}

// add records the occupancy count and processing time of a frame
func (s *summaryBuilder) add(count int, took time.Duration) {
	s.counts = append(s.counts, float64(count))
	s.latencies = append(s.latencies, float64(took))
}

// build calculates the Summary statistics
func (s *summaryBuilder) build(reason string) Summary {

	sum := Summary{
		Frames: len(s.counts),
		Reason: reason,
	}

	if len(s.counts) == 0 {
		return sum
	}

	sum.MinCount = int(floats.Min(s.counts))
	sum.MaxCount = int(floats.Max(s.counts))

	if len(s.counts) > 1 {
		sum.MeanCount, sum.StdDevCount = stat.MeanStdDev(s.counts, nil)
	} else {
		sum.MeanCount = s.counts[0]
	}

	lat := make([]float64, len(s.latencies))
	copy(lat, s.latencies)
	sort.Float64s(lat)

	sum.MeanLatency = time.Duration(stat.Mean(lat, nil))
	sum.P95Latency = time.Duration(stat.Quantile(0.95, stat.Empirical, lat, nil))

	return sum
}
