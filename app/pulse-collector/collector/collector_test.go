package collector

import (
	"testing"
	"time"

	"github.com/burakkagann/berlin-pulse/business/data/transit"
	"github.com/matryer/is"
)

func TestNextSleep(t *testing.T) {
	tests := []struct {
		name         string
		loopDuration time.Duration
		workTook     time.Duration
		want         time.Duration
	}{
		{
			name:         "fast cycle sleeps the remainder",
			loopDuration: 30 * time.Second,
			workTook:     5 * time.Second,
			want:         25 * time.Second,
		},
		{
			name:         "instant cycle sleeps the full interval",
			loopDuration: 30 * time.Second,
			workTook:     0,
			want:         30 * time.Second,
		},
		{
			name:         "overrunning cycle does not sleep",
			loopDuration: 30 * time.Second,
			workTook:     35 * time.Second,
			want:         0,
		},
		{
			name:         "exact cycle does not sleep",
			loopDuration: 30 * time.Second,
			workTook:     30 * time.Second,
			want:         0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextSleep(tt.loopDuration, tt.workTook); got != tt.want {
				t.Errorf("nextSleep(%v, %v) = %v, want %v", tt.loopDuration, tt.workTook, got, tt.want)
			}
		})
	}
}

func TestRunCollectionCycleRecoversPanic(t *testing.T) {
	is := is.New(t)

	rec := &testRecorder{}
	count, completed := runCollectionCycle(testLogger(), "panicky", func() int {
		panic("nil pointer somewhere in normalization")
	}, rec)
	is.Equal(completed, false)
	is.Equal(count, 0)

	rec = &testRecorder{}
	count, completed = runCollectionCycle(testLogger(), "healthy", func() int {
		return 42
	}, rec)
	is.Equal(completed, true)
	is.Equal(count, 42)
	is.Equal(len(rec.statusUpdates), 0)
}

func TestRunCollectionCycleMarksStatusErrorOnPanic(t *testing.T) {
	is := is.New(t)

	// a cycle that reports running and then dies must not leave the status
	// row at running, the health checks would keep reading it as healthy
	rec := &testRecorder{}
	_, completed := runCollectionCycle(testLogger(), "panicky", func() int {
		rec.upsertCollectionStatus("panicky", transit.CollectorStatusRunning, 0, nil)
		panic("upstream response shape changed")
	}, rec)
	is.Equal(completed, false)

	last := rec.statusUpdates[len(rec.statusUpdates)-1]
	is.Equal(last.collectorName, "panicky")
	is.Equal(last.status, transit.CollectorStatusError)
	is.Equal(last.recordsDelta, 0)
	is.Equal(*last.errorMessage, "collection cycle failed: upstream response shape changed")
}

func TestRunCollectionLoopStopsOnShutdown(t *testing.T) {
	is := is.New(t)

	cycles := make(chan struct{}, 100)
	shutdown := make(chan struct{})
	done := make(chan struct{})

	go func() {
		runCollectionLoop(testLogger(), "test_loop", 3600, func() int {
			cycles <- struct{}{}
			return 0
		}, &testRecorder{}, shutdown)
		close(done)
	}()

	// the first cycle runs without delay
	select {
	case <-cycles:
	case <-time.After(5 * time.Second):
		t.Fatal("first collection cycle never ran")
	}

	close(shutdown)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not exit on shutdown")
	}
	is.Equal(len(cycles), 0)
}
