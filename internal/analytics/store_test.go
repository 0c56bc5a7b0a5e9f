package analytics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/logicloom/logicloom/internal/metrics"
	"github.com/logicloom/logicloom/internal/model"
	"github.com/logicloom/logicloom/internal/testutil"
)

type fakePublisher struct {
	err       error
	published []*model.Event
}

func (f *fakePublisher) Publish(ctx context.Context, event *model.Event) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.published = append(f.published, event)
	return "1-0", nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBufferedStore_Publishes(t *testing.T) {
	t.Parallel()

	inner := testutil.NewMemoryStore()
	pub := &fakePublisher{}
	rec := metrics.NewInMemory()
	store := NewBufferedStore(inner, pub, discardLogger(), rec)

	ev := model.NewEvent("u1", model.EventPaymentSucceeded, nil)
	if err := store.CreateEvent(context.Background(), ev); err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published = %d, want 1", len(pub.published))
	}
	if len(inner.Events) != 0 {
		t.Errorf("inner events = %d, want 0", len(inner.Events))
	}
	if got := rec.Count("stream_events", "published"); got != 1 {
		t.Errorf("published count = %d, want 1", got)
	}
}

func TestBufferedStore_FallsBackToStore(t *testing.T) {
	t.Parallel()

	inner := testutil.NewMemoryStore()
	rec := metrics.NewInMemory()
	store := NewBufferedStore(inner, &fakePublisher{err: errors.New("connection refused")}, discardLogger(), rec)

	ev := model.NewEvent("", model.EventWaitlistJoined, map[string]any{"email_domain": "example.com"})
	if err := store.CreateEvent(context.Background(), ev); err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if got := inner.EventTypes(); len(got) != 1 || got[0] != model.EventWaitlistJoined {
		t.Errorf("inner events = %v", got)
	}
	if got := rec.Count("stream_events", "fallback"); got != 1 {
		t.Errorf("fallback count = %d, want 1", got)
	}
}

func TestBufferedStore_DelegatesReads(t *testing.T) {
	t.Parallel()

	inner := testutil.NewMemoryStore()
	p := testutil.NewTestProfile("maya")
	inner.AddProfile(p)
	store := NewBufferedStore(inner, &fakePublisher{}, discardLogger(), nil)

	got, err := store.GetProfileByUsername(context.Background(), "maya")
	if err != nil {
		t.Fatalf("GetProfileByUsername() error = %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("profile id = %q, want %q", got.ID, p.ID)
	}
}
