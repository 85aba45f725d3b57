package config

import "time"

// Config is the top-level runtime configuration shared by the worker binaries.
type Config struct {
	Runner   RunnerConfig   `yaml:"runner" mapstructure:"runner"`
	Kafka    KafkaConfig    `yaml:"kafka" mapstructure:"kafka"`
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`

	// Params seeds the parameter payload of tasks launched by the binaries.
	// Arbitrary key/value data, passed through untouched.
	Params map[string]any `yaml:"params" mapstructure:"params"`
}

// RunnerConfig controls the task runner service.
type RunnerConfig struct {
	// Entrypoints lists the task types this runner consumes from the bus.
	Entrypoints []string `yaml:"entrypoints" mapstructure:"entrypoints"`

	// ShutdownTimeout bounds how long the runner waits for in-flight tasks
	// during a graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// KafkaConfig holds the broker connection settings for the Kafka message bus.
type KafkaConfig struct {
	Brokers  []string `yaml:"brokers" mapstructure:"brokers"`
	Topic    string   `yaml:"topic" mapstructure:"topic"`
	GroupID  string   `yaml:"group_id" mapstructure:"group_id"`
	ClientID string   `yaml:"client_id" mapstructure:"client_id"`
}

// PostgresConfig holds the connection settings for the snapshot store.
type PostgresConfig struct {
	DSN      string `yaml:"dsn" mapstructure:"dsn"`
	MaxConns int32  `yaml:"max_conns" mapstructure:"max_conns"`
}
