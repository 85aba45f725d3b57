package envloader

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ahrav/taskflow/internal/config"
)

// envPrefix namespaces the environment variables the loader reads,
// e.g. TASKFLOW_KAFKA_BROKERS.
const envPrefix = "TASKFLOW"

// EnvLoader loads configuration from an optional file overlaid with
// environment variables. It implements the Loader interface for deployments
// that configure workers through the environment.
type EnvLoader struct {
	// path is the filesystem path to an optional base configuration file.
	// Empty means environment only.
	path string
}

// NewEnvLoader creates an EnvLoader that overlays environment variables on top
// of the configuration file at path. Pass an empty path to read the
// environment alone.
func NewEnvLoader(path string) *EnvLoader {
	return &EnvLoader{path: path}
}

// Load builds the configuration from the file (when present) and the
// environment. Environment variables win over file values.
func (l *EnvLoader) Load(ctx context.Context) (*config.Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("runner.shutdown_timeout", "30s")
	v.SetDefault("kafka.client_id", "taskflow")
	v.SetDefault("postgres.max_conns", 4)

	if l.path != "" {
		v.SetConfigFile(l.path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
