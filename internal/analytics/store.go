package analytics

import (
	"context"
	"log/slog"

	"github.com/logicloom/logicloom/internal/metrics"
	"github.com/logicloom/logicloom/internal/model"
	"github.com/logicloom/logicloom/internal/repository"
)

// EventPublisher adds an event to the stream and returns its stream id.
type EventPublisher interface {
	Publish(ctx context.Context, event *model.Event) (string, error)
}

// BufferedStore is a repository.Store whose CreateEvent goes through the
// stream. Every other method is served by the wrapped store. When the
// stream is unavailable the event is written directly.
type BufferedStore struct {
	repository.Store

	publisher EventPublisher
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewBufferedStore wraps store so events are published instead of inserted.
func NewBufferedStore(store repository.Store, publisher EventPublisher, logger *slog.Logger, recorder metrics.Recorder) *BufferedStore {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &BufferedStore{
		Store:     store,
		publisher: publisher,
		logger:    logger.With("component", "analytics.store"),
		metrics:   recorder,
	}
}

// CreateEvent publishes the event, falling back to the wrapped store.
func (s *BufferedStore) CreateEvent(ctx context.Context, event *model.Event) error {
	streamID, err := s.publisher.Publish(ctx, event)
	if err == nil {
		s.metrics.IncStreamEvent("published")
		s.logger.Debug("event_published", "event_type", event.EventType, "stream_id", streamID)
		return nil
	}

	s.logger.Warn("event_publish_failed", "event_type", event.EventType, "error", err)
	s.metrics.IncStreamEvent("fallback")
	return s.Store.CreateEvent(ctx, event)
}
