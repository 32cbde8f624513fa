package cli

import (
	"context"
	"errors"

	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/roach88/replicon/internal/config"
	"github.com/roach88/replicon/internal/engine"
	"github.com/roach88/replicon/internal/lease"
	"github.com/roach88/replicon/internal/queue"
	"github.com/roach88/replicon/internal/store"
)

// runtime is everything a command needs to talk to the stores and queue.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *engine.Metrics
	truth    *store.Store
	replica  *store.Store
	leases   lease.Store
	broker   *queue.MemoryBroker
	kafka    *queue.KafkaPublisher
	svc      *engine.Service

	closers []func() error
}

// newLogger builds a production logger, or a development one when verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openRuntime loads configuration and opens stores, lease store and queue.
func openRuntime(opts *RootOptions) (*runtime, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build logger", err)
	}

	rt := &runtime{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	rt.metrics = engine.NewMetrics(rt.registry)
	rt.closers = append(rt.closers, func() error {
		_ = logger.Sync()
		return nil
	})

	if rt.truth, err = store.Open(cfg.Truth.Path); err != nil {
		rt.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open truth store", err)
	}
	rt.closers = append(rt.closers, rt.truth.Close)

	if rt.replica, err = store.Open(cfg.Replica.Path); err != nil {
		rt.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open replica store", err)
	}
	rt.closers = append(rt.closers, rt.replica.Close)

	switch cfg.Lease.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Lease.Redis.Addr,
			Password: cfg.Lease.Redis.Password,
			DB:       cfg.Lease.Redis.DB,
		})
		rt.closers = append(rt.closers, client.Close)
		rt.leases = lease.NewRedisStore(client, clock.WallClock, cfg.Lease.Redis.Prefix)
	default:
		rt.leases = rt.replica.Leases()
	}

	var publisher queue.Publisher
	switch cfg.Queue.Backend {
	case config.BackendKafka:
		rt.kafka = queue.NewKafkaPublisher(rt.kafkaConfig(), logger.Named("kafka"))
		rt.closers = append(rt.closers, rt.kafka.Close)
		publisher = rt.kafka
	default:
		rt.broker = queue.NewMemoryBroker()
		rt.closers = append(rt.closers, rt.broker.Close)
		publisher = rt.broker
	}

	rt.svc = engine.NewService(rt.truth.Truth(), rt.replica.Replica(), rt.leases, publisher,
		engine.WithLeaseWindow(cfg.Reconcile.LeaseWindow),
		engine.WithPageSize(cfg.Reconcile.PageSize),
		engine.WithLogger(logger),
		engine.WithMetrics(rt.metrics),
	)
	return rt, nil
}

func (rt *runtime) kafkaConfig() queue.KafkaConfig {
	return queue.KafkaConfig{
		Brokers:      rt.cfg.Queue.Kafka.Brokers,
		GroupID:      rt.cfg.Queue.Kafka.Group,
		BatchTimeout: rt.cfg.Queue.Kafka.BatchTimeout,
	}
}

// consumerFactory returns the per-goroutine consumer constructor for the
// configured backend.
func (rt *runtime) consumerFactory() func(topic string) queue.Consumer {
	if rt.kafka != nil {
		return func(topic string) queue.Consumer {
			return queue.NewKafkaConsumer(rt.kafkaConfig(), topic, rt.kafka, rt.logger.Named("kafka"))
		}
	}
	return rt.broker.Consumer
}

// drain handles every message queued on the in-memory broker. It does
// nothing with Kafka, where a worker process consumes instead.
func (rt *runtime) drain(ctx context.Context) (int, error) {
	if rt.broker == nil {
		return 0, nil
	}
	return rt.svc.Drain(ctx, rt.broker, nil)
}

// Close releases everything in reverse order of opening.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// replicationErrorCode maps engine errors to CLI error codes.
func replicationErrorCode(err error) string {
	switch {
	case engine.IsContractViolation(err):
		return ErrCodeContractViolation
	case engine.IsStructural(err):
		return ErrCodeStructural
	case engine.IsNotFound(err):
		return ErrCodeObjectNotFound
	case engine.IsRecoverable(err):
		return ErrCodeTransient
	default:
		return ErrCodeGeneric
	}
}
