// Package runner provides the application service that consumes task
// envelopes from a message bus, executes the tasks they describe, and
// persists the outcome.
package runner

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/taskflow/internal/domain/execution"
	"github.com/ahrav/taskflow/pkg/common/logger"
)

// resultSuffix marks envelopes carrying finished results so they are not
// consumed again as work.
const resultSuffix = ":result"

// ResultEntrypoint returns the entrypoint result envelopes are published
// under for the given task entrypoint.
func ResultEntrypoint(entrypoint string) string { return entrypoint + resultSuffix }

// Service consumes task envelopes, executes the tasks they describe through
// the registry, snapshots the outcome, and publishes result envelopes back to
// the bus.
type Service struct {
	registry  *Registry
	bus       execution.MessageBus
	snapshots execution.SnapshotRepository

	logger *logger.Logger
	tracer trace.Tracer
}

// NewService wires a runner from its collaborators.
func NewService(
	registry *Registry,
	bus execution.MessageBus,
	snapshots execution.SnapshotRepository,
	log *logger.Logger,
	tracer trace.Tracer,
) *Service {
	return &Service{
		registry:  registry,
		bus:       bus,
		snapshots: snapshots,
		logger:    log.With("component", "runner"),
		tracer:    tracer,
	}
}

// Start subscribes the runner to every registered entrypoint. It returns once
// the subscription is in place; envelope processing happens on the bus's
// consumer goroutines until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	entrypoints := s.registry.Entrypoints()
	if len(entrypoints) == 0 {
		return fmt.Errorf("runner has no registered entrypoints")
	}

	if err := s.bus.Subscribe(ctx, entrypoints, s.handle); err != nil {
		return fmt.Errorf("failed to subscribe runner: %w", err)
	}

	s.logger.Info(ctx, "Runner started", "entrypoints", entrypoints)
	return nil
}

// Submit publishes a new task envelope for the given entrypoint. The params
// map seeds the task's parameters on the consuming side.
func (s *Service) Submit(ctx context.Context, entrypoint string, params map[string]any) (execution.Message, error) {
	msg := execution.NewMessage(entrypoint, execution.WithMessageParams(params))
	if err := s.bus.Publish(ctx, msg); err != nil {
		return execution.Message{}, fmt.Errorf("failed to submit task %s: %w", entrypoint, err)
	}

	s.logger.Info(ctx, "Submitted task", "entrypoint", entrypoint, "uuid", msg.UUID())
	return msg, nil
}

// handle processes a single incoming envelope: build the task, execute it,
// snapshot the outcome, and publish the result envelope.
func (s *Service) handle(ctx context.Context, msg execution.Message) error {
	ctx, span := s.tracer.Start(ctx, "runner.handle_envelope",
		trace.WithAttributes(
			attribute.String("entrypoint", msg.Entrypoint()),
			attribute.String("uuid", msg.UUID().String()),
		))
	defer span.End()

	factory, err := s.registry.Resolve(msg.Entrypoint())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown entrypoint")
		return err
	}

	task, err := factory(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build task")
		return fmt.Errorf("failed to build task for %s: %w", msg.Entrypoint(), err)
	}

	// Operations derive their children before the pipeline runs.
	if op, ok := task.(execution.Operation); ok {
		if _, err := execution.Build(ctx, op); err != nil {
			span.RecordError(err)
			s.logger.Error(ctx, "Failed to build operation", "uuid", task.UUID(), "error", err)
			return s.finish(ctx, msg, task, execution.ResultFromError(err, execution.WithUUID(task.UUID())))
		}
	}

	seed := msg.Result()
	res := execution.Execute(ctx, task, &seed)

	return s.finish(ctx, msg, task, res)
}

// finish snapshots the task's outcome and publishes the result envelope.
func (s *Service) finish(ctx context.Context, msg execution.Message, task execution.Task, res execution.Result) error {
	if err := s.snapshots.Save(ctx, execution.NewSnapshot(task, time.Now().UTC())); err != nil {
		// The task already ran; losing the snapshot degrades resumability but
		// must not fail the delivery.
		s.logger.Error(ctx, "Failed to save snapshot", "uuid", task.UUID(), "error", err)
	}

	resultMsg := execution.NewMessage(ResultEntrypoint(msg.Entrypoint()),
		execution.WithMessageUUID(task.UUID()),
		execution.WithMessageResult(res),
	)
	if err := s.bus.Publish(ctx, resultMsg); err != nil {
		return fmt.Errorf("failed to publish result for %s: %w", msg.Entrypoint(), err)
	}

	s.logger.Info(ctx, "Task executed",
		"entrypoint", msg.Entrypoint(),
		"uuid", task.UUID(),
		"status", task.Status(),
		"retcode", res.Retcode(),
	)

	return nil
}
