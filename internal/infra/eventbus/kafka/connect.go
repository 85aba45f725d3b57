package kafka

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/taskflow/internal/domain/execution"
	"github.com/ahrav/taskflow/pkg/common/logger"
)

// ConnectWithRetry attempts to establish a connection to Kafka with
// exponential backoff. It retries failed connection attempts for up to 5
// minutes, starting with 5 second intervals. This helps handle temporary
// network issues or cluster unavailability during startup.
func ConnectWithRetry(cfg *Config, logger *logger.Logger, tracer trace.Tracer) (execution.MessageBus, error) {
	var bus execution.MessageBus

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = 5 * time.Minute
	expBackoff.InitialInterval = 5 * time.Second

	operation := func() error {
		var err error
		bus, err = NewEventBusFromConfig(cfg, logger, tracer)
		return err
	}

	if err := backoff.Retry(operation, expBackoff); err != nil {
		return nil, fmt.Errorf("failed to connect to Kafka after retries: %w", err)
	}

	return bus, nil
}
