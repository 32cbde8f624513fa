package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/replicon/internal/filter"
	"github.com/roach88/replicon/internal/queue"
)

// Defaults for worker options.
const (
	DefaultConcurrency = 4
	DefaultMaxAttempts = 5
)

// Handler processes one message. Returning a recoverable error hands the
// message back for redelivery.
type Handler func(ctx context.Context, m queue.Message) error

// Worker consumes the reconciliation topics with a fixed number of
// consumers per topic. Consumers share nothing but the queue and the lease
// store.
type Worker struct {
	newConsumer func(topic string) queue.Consumer
	handlers    map[string]Handler
	concurrency int
	maxAttempts int
	logger      *zap.Logger
	metrics     *Metrics
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithConcurrency sets the number of consumers per topic.
func WithConcurrency(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// WithMaxAttempts sets how many deliveries a message gets before it is
// dropped.
func WithMaxAttempts(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// WithWorkerLogger sets the logger.
func WithWorkerLogger(l *zap.Logger) WorkerOption {
	return func(w *Worker) { w.logger = l }
}

// WithWorkerMetrics sets the metrics sink.
func WithWorkerMetrics(m *Metrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

// NewWorker creates a Worker serving the three reconciliation topics.
// newConsumer is called once per consumer goroutine.
func NewWorker(svc *Service, newConsumer func(topic string) queue.Consumer, opts ...WorkerOption) *Worker {
	w := &Worker{
		newConsumer: newConsumer,
		concurrency: DefaultConcurrency,
		maxAttempts: DefaultMaxAttempts,
		logger:      zap.NewNop(),
		metrics:     NewMetrics(nil),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.handlers = map[string]Handler{
		queue.TopicReconcileRequest: svc.handleReconcileRequest,
		queue.TopicReplicationApply: svc.handleApplyBatch,
		queue.TopicDriftCheck:       svc.handleDriftCheck,
	}
	return w
}

// Run consumes until ctx is cancelled or a consumer fails with an error
// other than queue.ErrClosed.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for topic, handler := range w.handlers {
		for i := 0; i < w.concurrency; i++ {
			c := w.newConsumer(topic)
			log := w.logger.With(zap.String("topic", topic), zap.Int("consumer", i))
			g.Go(func() error {
				defer c.Close()
				return w.consume(ctx, c, handler, log)
			})
		}
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) consume(ctx context.Context, c queue.Consumer, handle Handler, log *zap.Logger) error {
	for {
		m, err := c.Receive(ctx)
		if errors.Is(err, queue.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := w.dispatch(ctx, c, m, handle, log); err != nil {
			return err
		}
	}
}

// dispatch runs the handler and settles the message. It only returns
// queue errors.
func (w *Worker) dispatch(ctx context.Context, c queue.Consumer, m queue.Message, handle Handler, log *zap.Logger) error {
	err := handle(ctx, m)
	switch {
	case err == nil:
		w.metrics.Messages.WithLabelValues(m.Topic, "ok").Inc()
		return c.Ack(ctx, m)

	case IsRecoverable(err) && m.Attempt < w.maxAttempts:
		w.metrics.Messages.WithLabelValues(m.Topic, "retried").Inc()
		log.Warn("handler failed, redelivering",
			zap.String("message", m.ID),
			zap.Int("attempt", m.Attempt),
			zap.Error(err))
		return c.Nack(ctx, m)

	case errors.Is(err, context.Canceled):
		return err

	default:
		w.metrics.Messages.WithLabelValues(m.Topic, "dropped").Inc()
		log.Error("dropping message",
			zap.String("message", m.ID),
			zap.Int("attempt", m.Attempt),
			zap.Error(err))
		return c.Ack(ctx, m)
	}
}

// Handle routes a message to the handler for its topic.
func (s *Service) Handle(ctx context.Context, m queue.Message) error {
	switch m.Topic {
	case queue.TopicReconcileRequest:
		return s.handleReconcileRequest(ctx, m)
	case queue.TopicReplicationApply:
		return s.handleApplyBatch(ctx, m)
	case queue.TopicDriftCheck:
		return s.handleDriftCheck(ctx, m)
	default:
		return &ReplicationError{
			Code:    ErrCodeStructural,
			Message: "route message",
			Err:     fmt.Errorf("%w: unknown topic %q", errUndecodable, m.Topic),
		}
	}
}

func (s *Service) handleReconcileRequest(ctx context.Context, m queue.Message) error {
	var req queue.ReconcileRequest
	if err := m.Decode(&req); err != nil {
		return undecodable(err)
	}
	f, err := filter.FromEnvelope(req.Filter)
	if err != nil {
		return Classify(err, "decode reconcile request", "")
	}
	_, err = s.Reconcile(ctx, f)
	return err
}

func (s *Service) handleApplyBatch(ctx context.Context, m queue.Message) error {
	var batch queue.ApplyBatch
	if err := m.Decode(&batch); err != nil {
		return undecodable(err)
	}
	return s.Replicate(ctx, batch.Events)
}

func (s *Service) handleDriftCheck(ctx context.Context, m queue.Message) error {
	var check queue.DriftCheck
	if err := m.Decode(&check); err != nil {
		return undecodable(err)
	}
	_, err := s.CheckDrift(ctx, check)
	return err
}

func undecodable(err error) error {
	return &ReplicationError{
		Code:    ErrCodeStructural,
		Message: "decode message",
		Err:     fmt.Errorf("%w: %v", errUndecodable, err),
	}
}
