package metrics

import (
	"github.com/prometheus/client_golang/prometheus/testutil"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestObserveFrame(t *testing.T) {

	m := New()

	m.ObserveFrame(7, 3, 20*time.Millisecond)
	m.ObserveFrame(5, 2, 30*time.Millisecond)
	m.DetectorErrors.Inc()

	if got := testutil.ToFloat64(m.FramesProcessed); got != 2 {
		t.Errorf("frames processed = %f, want 2", got)
	}

	if got := testutil.ToFloat64(m.Occupancy); got != 2 {
		t.Errorf("occupancy = %f, want 2", got)
	}

	if got := testutil.ToFloat64(m.Detections); got != 5 {
		t.Errorf("detections = %f, want 5", got)
	}

	if got := testutil.ToFloat64(m.DetectorErrors); got != 1 {
		t.Errorf("detector errors = %f, want 1", got)
	}

	if got := testutil.CollectAndCount(m.FrameDuration); got != 1 {
		t.Errorf("expected one histogram series, got %d", got)
	}
}

func TestHandler(t *testing.T) {

	m := New()
	m.ObserveFrame(1, 1, time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	for _, name := range []string{"parkcount_occupancy 1", "parkcount_frames_processed_total 1", "parkcount_stream_clients 0"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %q", name)
		}
	}
}
