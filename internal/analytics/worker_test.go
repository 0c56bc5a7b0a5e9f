package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/logicloom/logicloom/internal/metrics"
	"github.com/logicloom/logicloom/internal/model"
	"github.com/logicloom/logicloom/internal/repository"
)

// flakyWriter fails the first failures calls, then records events.
type flakyWriter struct {
	mu       sync.Mutex
	failures int
	calls    int
	written  map[string]bool
}

func (f *flakyWriter) CreateEvent(ctx context.Context, event *model.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("database unavailable")
	}
	if f.written == nil {
		f.written = map[string]bool{}
	}
	if f.written[event.ID] {
		return repository.ErrDuplicate
	}
	f.written[event.ID] = true
	return nil
}

func newTestWorker(writer EventWriter, rec metrics.Recorder) *Worker {
	w := NewWorker(nil, writer, discardLogger(), "test-consumer", rec)
	w.backoff = time.Millisecond
	return w
}

func pending(n int) []pendingEvent {
	out := make([]pendingEvent, n)
	for i := range out {
		ev := model.NewEvent("u1", model.EventSubscriptionUpdated, nil)
		ev.ID = NewEventID()
		out[i] = pendingEvent{event: ev, publishedAt: time.Now()}
	}
	return out
}

func TestWorker_WriteWithRetry(t *testing.T) {
	t.Parallel()

	writer := &flakyWriter{failures: 1}
	rec := metrics.NewInMemory()
	w := newTestWorker(writer, rec)

	if err := w.writeWithRetry(context.Background(), pending(3)); err != nil {
		t.Fatalf("writeWithRetry() error = %v", err)
	}
	if len(writer.written) != 3 {
		t.Errorf("written = %d, want 3", len(writer.written))
	}
	if got := rec.Count("stream_events", "written"); got != 3 {
		t.Errorf("written count = %d, want 3", got)
	}
}

func TestWorker_WriteWithRetry_DuplicatesCountAsWritten(t *testing.T) {
	t.Parallel()

	writer := &flakyWriter{}
	w := newTestWorker(writer, nil)
	batch := pending(2)

	if err := w.writeWithRetry(context.Background(), batch); err != nil {
		t.Fatalf("first write error = %v", err)
	}
	// Redelivery of the same entries.
	if err := w.writeWithRetry(context.Background(), batch); err != nil {
		t.Fatalf("redelivery error = %v", err)
	}
	if len(writer.written) != 2 {
		t.Errorf("written = %d, want 2", len(writer.written))
	}
}

func TestWorker_WriteWithRetry_GivesUp(t *testing.T) {
	t.Parallel()

	writer := &flakyWriter{failures: 100}
	rec := metrics.NewInMemory()
	w := newTestWorker(writer, rec)

	if err := w.writeWithRetry(context.Background(), pending(2)); err == nil {
		t.Fatal("expected error after retries")
	}
	if writer.calls != DefaultMaxRetries {
		t.Errorf("calls = %d, want %d", writer.calls, DefaultMaxRetries)
	}
	if got := rec.Count("stream_events", "failed"); got != 2 {
		t.Errorf("failed count = %d, want 2", got)
	}
}

func TestWorker_WriteWithRetry_ContextCancelled(t *testing.T) {
	t.Parallel()

	w := newTestWorker(&flakyWriter{failures: 100}, nil)
	w.backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	err := w.writeWithRetry(ctx, pending(1))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestWorker_ShutdownBeforeRun(t *testing.T) {
	t.Parallel()

	w := newTestWorker(&flakyWriter{}, nil)
	if err := w.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestWorker_Setters(t *testing.T) {
	t.Parallel()

	w := newTestWorker(&flakyWriter{}, nil)
	w.SetBatchSize(0)
	w.SetClaimIdle(-time.Second)
	if w.batchSize != DefaultBatchSize || w.claimIdle != DefaultClaimIdle {
		t.Errorf("non-positive values changed defaults: batch %d, idle %v", w.batchSize, w.claimIdle)
	}

	w.SetBatchSize(25)
	w.SetClaimIdle(time.Second)
	if w.batchSize != 25 {
		t.Errorf("batchSize = %d, want 25", w.batchSize)
	}
	if w.claimIdle != time.Second {
		t.Errorf("claimIdle = %v, want 1s", w.claimIdle)
	}
}

func TestIsGroupExists(t *testing.T) {
	t.Parallel()

	if !isGroupExists(errors.New("BUSYGROUP Consumer Group name already exists")) {
		t.Error("BUSYGROUP not recognised")
	}
	if isGroupExists(errors.New("ERR no such key")) || isGroupExists(nil) {
		t.Error("unexpected match")
	}
}
