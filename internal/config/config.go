// Package config loads replicon settings from an optional YAML file and
// REPLICON_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Queue and lease backends.
const (
	BackendMemory = "memory"
	BackendKafka  = "kafka"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// ErrInvalid reports a configuration value outside its allowed range.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full replicon configuration.
type Config struct {
	Truth     StoreConfig     `mapstructure:"truth"`
	Replica   StoreConfig     `mapstructure:"replica"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Lease     LeaseConfig     `mapstructure:"lease"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type ReconcileConfig struct {
	LeaseWindow    time.Duration `mapstructure:"lease_window"`
	SplitThreshold int           `mapstructure:"split_threshold"`
	PageSize       int           `mapstructure:"page_size"`
}

type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	MaxAttempts int `mapstructure:"max_attempts"`
}

type QueueConfig struct {
	Backend string      `mapstructure:"backend"`
	Kafka   KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Group        string        `mapstructure:"group"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

type LeaseConfig struct {
	Backend string      `mapstructure:"backend"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("truth.path", "truth.db")
	v.SetDefault("replica.path", "replica.db")
	v.SetDefault("reconcile.lease_window", "30m")
	v.SetDefault("reconcile.split_threshold", 1)
	v.SetDefault("reconcile.page_size", 1000)
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.max_attempts", 5)
	v.SetDefault("queue.backend", BackendMemory)
	v.SetDefault("queue.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("queue.kafka.group", "replicon")
	v.SetDefault("queue.kafka.batch_timeout", "10ms")
	v.SetDefault("lease.backend", BackendSQLite)
	v.SetDefault("lease.redis.addr", "localhost:6379")
	v.SetDefault("lease.redis.db", 0)
	v.SetDefault("lease.redis.password", "")
	v.SetDefault("lease.redis.prefix", "replicon:lease:")
}

// Load reads path (skipped when empty), overlays the environment and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("REPLICON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and backend names.
func (c *Config) Validate() error {
	switch {
	case c.Truth.Path == "" || c.Replica.Path == "":
		return fmt.Errorf("%w: truth.path and replica.path are required", ErrInvalid)
	case c.Truth.Path == c.Replica.Path:
		return fmt.Errorf("%w: truth and replica must be separate databases", ErrInvalid)
	case c.Reconcile.LeaseWindow <= 0:
		return fmt.Errorf("%w: reconcile.lease_window must be positive", ErrInvalid)
	case c.Reconcile.SplitThreshold < 1:
		return fmt.Errorf("%w: reconcile.split_threshold must be at least 1", ErrInvalid)
	case c.Reconcile.PageSize < 1:
		return fmt.Errorf("%w: reconcile.page_size must be at least 1", ErrInvalid)
	case c.Worker.Concurrency < 1:
		return fmt.Errorf("%w: worker.concurrency must be at least 1", ErrInvalid)
	case c.Worker.MaxAttempts < 1:
		return fmt.Errorf("%w: worker.max_attempts must be at least 1", ErrInvalid)
	}
	switch c.Queue.Backend {
	case BackendMemory:
	case BackendKafka:
		if len(c.Queue.Kafka.Brokers) == 0 {
			return fmt.Errorf("%w: queue.kafka.brokers is empty", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown queue backend %q", ErrInvalid, c.Queue.Backend)
	}
	switch c.Lease.Backend {
	case BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("%w: unknown lease backend %q", ErrInvalid, c.Lease.Backend)
	}
	return nil
}
