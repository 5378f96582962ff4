package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	appoutbox "hotelbook/internal/app/outbox"
)

const (
	defaultInterval  = 500 * time.Millisecond
	defaultBatchSize = 50
	defaultSource    = "app://hotelbook"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

type releaser interface {
	Release(ctx context.Context, staleAfter time.Duration) (int64, error)
}

// Worker relays outbox records to the broker as CloudEvents. Records are keyed
// by aggregate id, so every event of a booking lands on the same partition.
type Worker struct {
	Queue       appoutbox.Queue
	Producer    Producer
	Interval    time.Duration
	BatchSize   int
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	StaleAfter  time.Duration
	Logger      *slog.Logger
	Now         func() time.Time
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Queue == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if r, ok := w.Queue.(releaser); ok && w.StaleAfter > 0 {
		if n, err := r.Release(ctx, w.StaleAfter); err != nil {
			w.logger().Warn("outbox release failed", "error", err)
		} else if n > 0 {
			w.logger().Info("outbox released stale claims", "count", n)
		}
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Drain(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger().Error("outbox drain failed", "error", err)
			}
		}
	}
}

// Drain relays due records until the queue is empty or the batch is used up.
// It returns the number of records published.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	sent := 0
	for i := 0; i < w.batchSize(); i++ {
		ok, published, err := w.processOnce(ctx)
		if err != nil {
			return sent, err
		}
		if !ok {
			break
		}
		if published {
			sent++
		}
	}
	return sent, nil
}

func (w *Worker) processOnce(ctx context.Context) (claimed bool, published bool, err error) {
	rec, err := w.Queue.Claim(ctx, w.workerID())
	if err != nil || rec == nil {
		return false, false, err
	}
	topic := w.topicFor(rec.Name)
	payload, headers, err := w.formatPayload(rec)
	if err != nil {
		return true, false, w.fail(ctx, rec, err)
	}
	if err := w.Producer.Publish(ctx, topic, rec.Aggregate, payload, headers); err != nil {
		return true, false, w.fail(ctx, rec, err)
	}
	if err := w.Queue.MarkSent(ctx, rec.ID); err != nil {
		return true, true, err
	}
	w.logger().Debug("outbox record published", "id", rec.ID, "event", rec.Name, "topic", topic)
	return true, true, nil
}

func (w *Worker) fail(ctx context.Context, rec *appoutbox.Pending, cause error) error {
	next := w.nextRetry(rec.Attempts)
	w.logger().Warn("outbox publish failed",
		"id", rec.ID,
		"event", rec.Name,
		"attempts", rec.Attempts+1,
		"next_attempt_at", next,
		"error", cause,
	)
	return w.Queue.MarkFailed(ctx, rec.ID, next, cause.Error())
}

func (w *Worker) formatPayload(rec *appoutbox.Pending) ([]byte, map[string]string, error) {
	data := map[string]any{}
	if err := json.Unmarshal(rec.Payload, &data); err != nil {
		return nil, nil, err
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              rec.ID,
		"type":            rec.Name + ".v1",
		"source":          w.source(),
		"subject":         rec.Aggregate,
		"time":            rec.OccurredAt.UTC(),
		"datacontenttype": "application/json",
		"data":            data,
	}
	if trace, ok := rec.Headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
		"ce-type":      rec.Name + ".v1",
	}
	for k, v := range rec.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// topicFor maps "booking.created" to "<prefix>booking.events.v1".
func (w *Worker) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	topic := base + ".events.v1"
	if w.TopicPrefix != "" {
		topic = w.TopicPrefix + topic
	}
	return topic
}

func (w *Worker) workerID() string {
	if w.ID != "" {
		return w.ID
	}
	return "outbox-worker"
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return defaultInterval
	}
	return w.Interval
}

func (w *Worker) batchSize() int {
	if w.BatchSize <= 0 {
		return defaultBatchSize
	}
	return w.BatchSize
}

func (w *Worker) nextRetry(attempts int) time.Time {
	now := time.Now()
	if w.Now != nil {
		now = w.Now()
	}
	if attempts < len(w.Backoff) {
		return now.Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return now.Add(w.Backoff[len(w.Backoff)-1])
	}
	return now.Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return defaultSource
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}
