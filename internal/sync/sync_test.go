package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// mockDestination records calls to Write.
type mockDestination struct {
	name   string
	err    error
	writes atomic.Int64
	last   atomic.Value // []byte
}

func (d *mockDestination) Name() string {
	if d.name == "" {
		return "mock"
	}
	return d.name
}

func (d *mockDestination) Write(_ context.Context, data []byte) error {
	d.writes.Add(1)
	cp := make([]byte, len(data))
	copy(cp, data)
	d.last.Store(cp)
	return d.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerStartStop(t *testing.T) {
	ms := seededStore(t)
	dest := &mockDestination{}

	sched := NewScheduler(ms, []Destination{dest}, 50*time.Millisecond, discardLogger())
	sched.Start()

	// Wait for at least the initial sync + one tick.
	time.Sleep(120 * time.Millisecond)
	sched.Stop()

	if writes := dest.writes.Load(); writes < 2 {
		t.Fatalf("expected at least 2 writes, got %d", writes)
	}

	data, ok := dest.last.Load().([]byte)
	if !ok || len(data) == 0 {
		t.Fatal("expected non-empty data")
	}
	// header + 2 workspaces + 2 journeys + 1 broadcast
	if lines := nonEmptyLines(string(data)); len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d", len(lines))
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	sched := NewScheduler(seededStore(t), nil, time.Minute, discardLogger())
	// Stop without Start should not panic.
	sched.Stop()
}

func TestSchedulerMultipleDestinations(t *testing.T) {
	dest1 := &mockDestination{}
	dest2 := &mockDestination{}

	sched := NewScheduler(seededStore(t), []Destination{dest1, dest2}, time.Second, discardLogger())
	sched.Start()

	// Wait for the initial sync.
	time.Sleep(50 * time.Millisecond)
	sched.Stop()

	if dest1.writes.Load() < 1 {
		t.Fatal("dest1 expected at least 1 write")
	}
	if dest2.writes.Load() < 1 {
		t.Fatal("dest2 expected at least 1 write")
	}
}

func TestRunOnce_FailingDestinationDoesNotStopOthers(t *testing.T) {
	bad := &mockDestination{name: "bad", err: errors.New("bucket gone")}
	good := &mockDestination{name: "good"}

	sched := NewScheduler(seededStore(t), []Destination{bad, good}, time.Minute, discardLogger())
	err := sched.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "bad: bucket gone") {
		t.Fatalf("RunOnce() error = %v, want bad destination error", err)
	}
	if good.writes.Load() != 1 {
		t.Errorf("good destination writes = %d, want 1", good.writes.Load())
	}
}

func TestRunOnce_ExportError(t *testing.T) {
	dest := &mockDestination{}
	sched := NewScheduler(failingStore{}, []Destination{dest}, time.Minute, discardLogger())
	if err := sched.RunOnce(context.Background()); err == nil {
		t.Fatal("expected export error")
	}
	if dest.writes.Load() != 0 {
		t.Errorf("destination written despite export failure")
	}
}
