package stream

import (
	"math"
	"testing"
	"time"
)

func TestSummaryEmpty(t *testing.T) {

	var s summaryBuilder
	sum := s.build(StopEndOfStream)

	if sum.Frames != 0 {
		t.Errorf("expected 0 frames, got %d", sum.Frames)
	}

	if sum.Reason != StopEndOfStream {
		t.Errorf("expected reason %q, got %q", StopEndOfStream, sum.Reason)
	}

	if sum.MeanCount != 0 || sum.P95Latency != 0 {
		t.Errorf("expected zero statistics, got %+v", sum)
	}
}

func TestSummarySingleFrame(t *testing.T) {

	var s summaryBuilder
	s.add(4, 10*time.Millisecond)

	sum := s.build(StopMaxFrames)

	if sum.Frames != 1 || sum.MinCount != 4 || sum.MaxCount != 4 {
		t.Errorf("unexpected summary %+v", sum)
	}

	if sum.MeanCount != 4 || sum.StdDevCount != 0 {
		t.Errorf("expected mean 4 stddev 0, got %v %v", sum.MeanCount, sum.StdDevCount)
	}

	if sum.MeanLatency != 10*time.Millisecond || sum.P95Latency != 10*time.Millisecond {
		t.Errorf("unexpected latency %v %v", sum.MeanLatency, sum.P95Latency)
	}
}

func TestSummaryStatistics(t *testing.T) {

	var s summaryBuilder

	counts := []int{2, 4, 4, 4, 5, 5, 7, 9}

	for i, c := range counts {
		// latencies added out of order, 1ms to 8ms
		s.add(c, time.Duration(len(counts)-i)*time.Millisecond)
	}

	sum := s.build(StopCancelled)

	if sum.Frames != len(counts) {
		t.Errorf("expected %d frames, got %d", len(counts), sum.Frames)
	}

	if sum.MinCount != 2 || sum.MaxCount != 9 {
		t.Errorf("expected min 2 max 9, got %d %d", sum.MinCount, sum.MaxCount)
	}

	if sum.MeanCount != 5 {
		t.Errorf("expected mean 5, got %v", sum.MeanCount)
	}

	// sample standard deviation of the counts is sqrt(32/7)
	if want := math.Sqrt(32.0 / 7.0); math.Abs(sum.StdDevCount-want) > 1e-9 {
		t.Errorf("expected stddev %v, got %v", want, sum.StdDevCount)
	}

	if want := 4500 * time.Microsecond; sum.MeanLatency != want {
		t.Errorf("expected mean latency %v, got %v", want, sum.MeanLatency)
	}

	if want := 8 * time.Millisecond; sum.P95Latency != want {
		t.Errorf("expected p95 latency %v, got %v", want, sum.P95Latency)
	}
}
