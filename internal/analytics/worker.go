package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/logicloom/logicloom/internal/metrics"
	"github.com/logicloom/logicloom/internal/model"
	"github.com/logicloom/logicloom/internal/repository"
)

const (
	// ConsumerGroup is the Redis consumer group name.
	ConsumerGroup = "event_writers"

	DefaultBatchSize     = 100
	DefaultBlockTimeout  = 5 * time.Second
	DefaultMaxRetries    = 3
	DefaultClaimInterval = 10 * time.Second
	DefaultClaimIdle     = 30 * time.Second

	// DefaultBacklogInterval is how often the backlog gauge is refreshed.
	DefaultBacklogInterval = 5 * time.Second
)

// EventWriter persists a single event. repository.Store satisfies it.
type EventWriter interface {
	CreateEvent(ctx context.Context, event *model.Event) error
}

// pendingEvent is a decoded stream entry awaiting its write.
type pendingEvent struct {
	event       *model.Event
	publishedAt time.Time
}

// Worker drains the event stream into the event_stream table.
type Worker struct {
	redis           *redis.Client
	writer          EventWriter
	logger          *slog.Logger
	metrics         metrics.Recorder
	consumerID      string
	batchSize       int
	blockTimeout    time.Duration
	maxRetries      int
	backoff         time.Duration
	claimInterval   time.Duration
	claimIdle       time.Duration
	backlogInterval time.Duration
	claimStartID    string
	lastClaim       time.Time
	lastBacklog     time.Time

	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewWorker creates a worker reading as consumerID.
func NewWorker(client *redis.Client, writer EventWriter, logger *slog.Logger, consumerID string, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		redis:           client,
		writer:          writer,
		logger:          logger.With("component", "analytics.worker", "consumer_id", consumerID),
		metrics:         recorder,
		consumerID:      consumerID,
		batchSize:       DefaultBatchSize,
		blockTimeout:    DefaultBlockTimeout,
		maxRetries:      DefaultMaxRetries,
		backoff:         time.Second,
		claimInterval:   DefaultClaimInterval,
		claimIdle:       DefaultClaimIdle,
		backlogInterval: DefaultBacklogInterval,
		claimStartID:    "0-0",
	}
}

// SetBatchSize overrides the default batch size.
func (w *Worker) SetBatchSize(size int) {
	if size > 0 {
		w.batchSize = size
	}
}

// SetBlockTimeout overrides the default blocking read timeout.
func (w *Worker) SetBlockTimeout(timeout time.Duration) {
	if timeout > 0 {
		w.blockTimeout = timeout
	}
}

// SetClaimIdle overrides how long an entry must sit unacknowledged before
// another consumer reclaims it.
func (w *Worker) SetClaimIdle(idle time.Duration) {
	if idle > 0 {
		w.claimIdle = idle
	}
}

// Run reads the stream until ctx is cancelled or Shutdown is called.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("worker already started")
	}
	w.started = true
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	defer close(w.done)

	if err := w.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	w.logger.Info("event_worker_started")

	for {
		w.mu.Lock()
		draining := w.draining
		w.mu.Unlock()
		if draining {
			return nil
		}

		select {
		case <-ctx.Done():
			w.logger.Info("event_worker_stopping")
			return nil
		default:
		}

		if err := w.processOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			w.logger.Error("event_worker_error", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

// Shutdown stops the worker after its in-flight batch. It matches
// server.ShutdownFunc.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.draining = true
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	select {
	case <-done:
		w.logger.Info("event_worker_stopped")
		return nil
	case <-ctx.Done():
		w.logger.Warn("event_worker_shutdown_timeout")
		return ctx.Err()
	}
}

func (w *Worker) ensureConsumerGroup(ctx context.Context) error {
	err := w.redis.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !isGroupExists(err) {
		return err
	}
	return nil
}

func (w *Worker) processOnce(ctx context.Context) error {
	w.maybeUpdateBacklog(ctx)

	messages, err := w.maybeClaimPending(ctx)
	if err != nil {
		w.logger.Warn("event_claim_failed", "error", err)
	}
	if len(messages) == 0 {
		messages, err = w.readBatch(ctx)
		if err != nil {
			return err
		}
	}
	if len(messages) == 0 {
		return nil
	}

	events, ids := w.parseMessages(ctx, messages)
	if len(events) > 0 {
		if err := w.writeWithRetry(ctx, events); err != nil {
			// Left unacknowledged; a later claim retries them.
			return err
		}
	}
	return w.ack(ctx, ids)
}

func (w *Worker) maybeClaimPending(ctx context.Context) ([]redis.XMessage, error) {
	if !w.lastClaim.IsZero() && time.Since(w.lastClaim) < w.claimInterval {
		return nil, nil
	}
	w.lastClaim = time.Now()

	messages, start, err := w.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		MinIdle:  w.claimIdle,
		Start:    w.claimStartID,
		Count:    int64(w.batchSize),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if start != "" {
		w.claimStartID = start
	}
	return messages, nil
}

func (w *Worker) maybeUpdateBacklog(ctx context.Context) {
	if !w.lastBacklog.IsZero() && time.Since(w.lastBacklog) < w.backlogInterval {
		return
	}
	w.lastBacklog = time.Now()

	groups, err := w.redis.XInfoGroups(ctx, StreamKey).Result()
	if err != nil {
		return
	}
	for _, g := range groups {
		if g.Name == ConsumerGroup {
			w.metrics.SetStreamBacklog(g.Pending + g.Lag)
			return
		}
	}
}

func (w *Worker) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := w.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    int64(w.batchSize),
		Block:    w.blockTimeout,
	}).Result()
	if errors.Is(err, redis.Nil) || len(streams) == 0 {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}
	return streams[0].Messages, nil
}

// parseMessages decodes entries, dead-lettering the ones that cannot be
// decoded. Every message id is returned for acknowledgement.
func (w *Worker) parseMessages(ctx context.Context, messages []redis.XMessage) ([]pendingEvent, []string) {
	events := make([]pendingEvent, 0, len(messages))
	ids := make([]string, 0, len(messages))
	for _, msg := range messages {
		ids = append(ids, msg.ID)
		event, at, err := decodePayload(msg.Values)
		if err != nil {
			w.deadLetter(ctx, msg, failureReason(err), err.Error())
			continue
		}
		events = append(events, pendingEvent{event: event, publishedAt: at})
	}
	return events, ids
}

func (w *Worker) deadLetter(ctx context.Context, msg redis.XMessage, reason, detail string) {
	w.logger.Warn("event_dead_lettered", "message_id", msg.ID, "reason", reason, "detail", detail)

	err := w.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: 10000,
		Approx: true,
		Values: map[string]interface{}{
			"original_id":      msg.ID,
			"reason":           reason,
			"detail":           detail,
			"payload":          msg.Values["payload"],
			"dead_lettered_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		w.logger.Error("event_dead_letter_failed", "message_id", msg.ID, "error", err)
	}
	w.metrics.IncStreamEvent("dead_lettered")
}

// writeWithRetry writes the batch, retrying with exponential backoff.
// Events written by an earlier attempt come back as duplicates and count
// as written.
func (w *Worker) writeWithRetry(ctx context.Context, events []pendingEvent) error {
	var lastErr error
	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		if lastErr = w.writeBatch(ctx, events); lastErr == nil {
			return nil
		}
		if attempt == w.maxRetries {
			break
		}
		backoff := w.backoff << attempt
		w.logger.Warn("event_batch_retry", "attempt", attempt, "backoff", backoff, "error", lastErr)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	for range events {
		w.metrics.IncStreamEvent("failed")
	}
	w.logger.Error("event_batch_failed", "batch_size", len(events), "error", lastErr)
	return lastErr
}

func (w *Worker) writeBatch(ctx context.Context, events []pendingEvent) error {
	start := time.Now()
	for _, pe := range events {
		err := w.writer.CreateEvent(ctx, pe.event)
		if err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("write event %s: %w", pe.event.ID, err)
		}
	}
	for _, pe := range events {
		w.metrics.IncStreamEvent("written")
		w.logger.Debug("event_written", "event_id", pe.event.ID, "lag", time.Since(pe.publishedAt))
	}
	w.logger.Info("event_batch_written", "events", len(events), "duration", time.Since(start))
	return nil
}

func (w *Worker) ack(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := w.redis.XAck(ctx, StreamKey, ConsumerGroup, ids...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func isGroupExists(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
