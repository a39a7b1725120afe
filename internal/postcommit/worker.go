package postcommit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/threadline-store/threadline-backend/pkg/config"
	"github.com/threadline-store/threadline-backend/pkg/db/models"
	"github.com/threadline-store/threadline-backend/pkg/enums"
	"github.com/threadline-store/threadline-backend/pkg/logger"
	"github.com/threadline-store/threadline-backend/pkg/metrics"
	"github.com/threadline-store/threadline-backend/pkg/outbox"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type outboxSource interface {
	FetchPending(limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(id uuid.UUID) error
	MarkFailed(id uuid.UUID, err error) error
}

// Worker drains the outbox and runs the post-commit side effects for each
// event. A failing event is retried on the next poll; it never blocks the
// rest of the batch.
type Worker struct {
	repo         outboxSource
	handlers     *Handlers
	logg         *logger.Logger
	metrics      *metrics.WorkerMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewWorker(repo outboxSource, handlers *Handlers, cfg config.OutboxConfig, logg *logger.Logger, m *metrics.WorkerMetrics) (*Worker, error) {
	if repo == nil {
		return nil, errors.New("outbox repository is required")
	}
	if handlers == nil {
		return nil, errors.New("handlers are required")
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := cfg.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Worker{
		repo:         repo,
		handlers:     handlers,
		logg:         logg,
		metrics:      m,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

// Run polls until the context is canceled. Batch errors back off
// exponentially with jitter; an empty batch sleeps one poll interval.
func (w *Worker) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	interval := w.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			if w.logg != nil {
				w.logg.Info(ctx, "post-commit worker context canceled")
			}
			return ctx.Err()
		default:
		}

		processed, err := w.processBatch(ctx)
		if err != nil {
			if w.logg != nil {
				w.logg.Error(ctx, "post-commit batch error", err)
			}
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := w.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if processed {
			continue
		}

		if err := w.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) (bool, error) {
	events, err := w.repo.FetchPending(w.batchSize, w.maxAttempts)
	if err != nil {
		return false, err
	}
	if len(events) == 0 {
		return false, nil
	}

	for _, event := range events {
		handler := string(event.EventType)
		started := time.Now()
		err := w.dispatch(ctx, event)
		w.metrics.ObserveDuration(handler, time.Since(started))
		if err != nil {
			w.metrics.IncFailure(handler)
			if w.logg != nil {
				fields := map[string]any{
					"outbox_id":     event.ID.String(),
					"event_type":    event.EventType,
					"aggregate_id":  event.AggregateID.String(),
					"attempt_count": event.AttemptCount + 1,
					"error":         err.Error(),
				}
				w.logg.Warn(w.logg.WithFields(ctx, fields), "post-commit handler failed")
			}
			if markErr := w.repo.MarkFailed(event.ID, err); markErr != nil {
				return true, fmt.Errorf("mark failure %s: %w", event.ID, markErr)
			}
			continue
		}
		if markErr := w.repo.MarkPublished(event.ID); markErr != nil {
			return true, fmt.Errorf("mark published %s: %w", event.ID, markErr)
		}
		w.metrics.IncSuccess(handler)
	}
	return true, nil
}

func (w *Worker) dispatch(ctx context.Context, event models.OutboxEvent) error {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return fmt.Errorf("decoding envelope: %w", err)
	}

	switch event.EventType {
	case enums.EventOrderSettled:
		var payload outbox.OrderSettledPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("decoding payload: %w", err)
		}
		return w.handlers.HandleOrderSettled(ctx, payload)
	case enums.EventOrderCancelled:
		var payload outbox.OrderCancelledPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("decoding payload: %w", err)
		}
		return w.handlers.HandleOrderCancelled(ctx, payload)
	case enums.EventPaymentFailed:
		var payload outbox.PaymentFailedPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("decoding payload: %w", err)
		}
		return w.handlers.HandlePaymentFailed(ctx, payload)
	default:
		return fmt.Errorf("no handler for event type %s", event.EventType)
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}
