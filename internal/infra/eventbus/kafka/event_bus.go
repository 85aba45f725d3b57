// Package kafka provides a Kafka-based implementation of the message bus for
// moving task envelopes between processes.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/taskflow/internal/domain/execution"
	"github.com/ahrav/taskflow/internal/infra/eventbus/kafka/tracing"
	"github.com/ahrav/taskflow/pkg/common/logger"
)

// entrypointHeader carries the envelope's entrypoint in Kafka message headers
// so consumers can filter without deserializing the payload.
const entrypointHeader = "entrypoint"

// Config contains settings for connecting to and interacting with Kafka
// brokers. It defines the topic, consumer group, and client identifiers
// needed for envelope routing.
type Config struct {
	// Brokers is a list of Kafka broker addresses to connect to.
	Brokers []string

	// Topic is the topic name task envelopes are published to.
	Topic string

	// GroupID identifies the consumer group for this bus instance.
	GroupID string
	// ClientID uniquely identifies this client to the Kafka cluster.
	ClientID string

	// ServiceType identifies the type of service (e.g., "runner", "cli").
	ServiceType string
}

var _ execution.MessageBus = (*EventBus)(nil)

// EventBus implements execution.MessageBus using Kafka as the underlying
// broker. It handles publishing and consuming task envelopes across
// distributed workers.
type EventBus struct {
	producer      sarama.SyncProducer
	consumerGroup sarama.ConsumerGroup
	topic         string

	logger *logger.Logger
	tracer trace.Tracer
}

// NewEventBusFromConfig creates a new Kafka-based message bus from the
// provided configuration. It establishes connections to Kafka brokers and
// configures both producer and consumer components for reliable envelope
// delivery and consumption.
func NewEventBusFromConfig(
	cfg *Config,
	logger *logger.Logger,
	tracer trace.Tracer,
) (*EventBus, error) {
	logger = logger.With(
		"component", "kafka_event_bus",
		"client_id", cfg.ClientID,
		"group_id", cfg.GroupID,
		"service_type", cfg.ServiceType,
	)

	producerConfig := sarama.NewConfig()
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Return.Successes = true
	producerConfig.Producer.Partitioner = sarama.NewHashPartitioner
	producerConfig.ClientID = cfg.ClientID

	producer, err := sarama.NewSyncProducer(cfg.Brokers, producerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	// Configure consumer group for reliable envelope processing with
	// rebalancing and manual offset commits.
	consumerConfig := sarama.NewConfig()
	consumerConfig.ClientID = cfg.ClientID
	consumerConfig.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	consumerConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	consumerConfig.Consumer.Group.Session.Timeout = 20 * time.Second
	consumerConfig.Consumer.Group.Heartbeat.Interval = 6 * time.Second
	consumerConfig.Consumer.Offsets.AutoCommit.Enable = false
	consumerConfig.Version = sarama.V2_8_0_0

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, consumerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &EventBus{
		producer:      producer,
		consumerGroup: consumerGroup,
		topic:         cfg.Topic,
		logger:        logger,
		tracer:        tracer,
	}, nil
}

// Publish sends a task envelope to the configured topic. Envelopes are keyed
// by their identifier so retries of the same task land on the same partition.
func (b *EventBus) Publish(ctx context.Context, msg execution.Message) error {
	ctx, span := tracing.StartProducerSpan(ctx, b.topic, msg.Entrypoint(), b.tracer)
	defer span.End()

	msgBytes, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize envelope")
		return fmt.Errorf("failed to serialize envelope %s: %w", msg.UUID(), err)
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(msg.UUID().String()),
		Value: sarama.ByteEncoder(msgBytes),
		Headers: []sarama.RecordHeader{
			{Key: []byte(entrypointHeader), Value: []byte(msg.Entrypoint())},
		},
	}

	tracing.InjectTraceContext(ctx, kafkaMsg)

	partition, offset, err := b.producer.SendMessage(kafkaMsg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send envelope")
		return fmt.Errorf("failed to send envelope to kafka topic %s: %w", b.topic, err)
	}

	b.logger.Debug(ctx, "Published envelope to Kafka",
		"topic", b.topic,
		"partition", partition,
		"offset", offset,
		"entrypoint", msg.Entrypoint(),
		"uuid", msg.UUID(),
	)

	return nil
}

// Subscribe registers a handler for envelopes targeting the given
// entrypoints. It manages consumer group membership and envelope processing
// in a separate goroutine. An empty entrypoint list subscribes to everything.
func (b *EventBus) Subscribe(
	ctx context.Context,
	entrypoints []string,
	handler execution.MessageHandler,
) error {
	ctx, span := b.tracer.Start(ctx, "kafka_event_bus.subscribe",
		trace.WithAttributes(
			attribute.String("component", "kafka_event_bus"),
			attribute.StringSlice("entrypoints", entrypoints),
		))
	defer span.End()

	set := make(map[string]struct{}, len(entrypoints))
	for _, ep := range entrypoints {
		set[ep] = struct{}{}
	}

	go b.consumeLoop(ctx, set, handler)
	b.logger.Info(ctx, "Subscribed to task envelopes", "entrypoints", entrypoints)

	return nil
}

// consumeLoop maintains a continuous consumer group session for processing
// envelopes.
func (b *EventBus) consumeLoop(
	ctx context.Context,
	entrypoints map[string]struct{},
	handler execution.MessageHandler,
) {
	cgHandler := &envelopeHandler{
		entrypoints: entrypoints,
		userHandler: handler,
		logger:      b.logger,
		tracer:      b.tracer,
	}

	for {
		if err := b.consumerGroup.Consume(ctx, []string{b.topic}, cgHandler); err != nil {
			b.logger.Error(ctx, "Error from consumer group", "error", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// envelopeHandler implements sarama.ConsumerGroupHandler to deserialize Kafka
// messages into task envelopes and invoke the user handler.
type envelopeHandler struct {
	entrypoints map[string]struct{}
	userHandler execution.MessageHandler

	logger *logger.Logger
	tracer trace.Tracer
}

func (h *envelopeHandler) Setup(sess sarama.ConsumerGroupSession) error {
	h.logger.Info(context.Background(),
		"Consumer group session setup",
		"generation_id", sess.GenerationID(),
		"member_id", sess.MemberID(),
	)
	return nil
}

func (h *envelopeHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	h.logger.Info(context.Background(),
		"Consumer group session cleanup",
		"generation_id", sess.GenerationID(),
		"member_id", sess.MemberID(),
	)
	return nil
}

// wants reports whether the handler is interested in the given entrypoint.
func (h *envelopeHandler) wants(entrypoint string) bool {
	if len(h.entrypoints) == 0 {
		return true
	}
	_, ok := h.entrypoints[entrypoint]
	return ok
}

// ConsumeClaim processes messages from an assigned partition, deserializing
// them into envelopes and invoking the user-provided handler. Envelopes for
// other entrypoints are acknowledged without processing so the group's offset
// still advances.
func (h *envelopeHandler) ConsumeClaim(
	sess sarama.ConsumerGroupSession,
	claim sarama.ConsumerGroupClaim,
) error {
	consumeLogger := h.logger.With("operation", "consume_claim", "partition", claim.Partition())

	lastCommit := time.Now()
	commitInterval := 1 * time.Second

	for msg := range claim.Messages() {
		func() {
			msgCtx := tracing.ExtractTraceContext(sess.Context(), msg)
			msgCtx, span := tracing.StartConsumerSpan(msgCtx, msg, h.tracer)
			defer span.End()

			if !h.wants(headerValue(msg, entrypointHeader)) {
				sess.MarkMessage(msg, "")
				return
			}

			var envelope execution.Message
			if err := json.Unmarshal(msg.Value, &envelope); err != nil {
				// A malformed envelope will never deserialize; skip it.
				sess.MarkMessage(msg, "")
				span.RecordError(err)
				consumeLogger.Error(msgCtx, "Failed to deserialize envelope", "error", err)
				return
			}

			consumeLogger.Debug(msgCtx, "Received envelope",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"entrypoint", envelope.Entrypoint(),
				"uuid", envelope.UUID(),
			)

			if err := h.userHandler(msgCtx, envelope); err != nil {
				consumeLogger.Error(msgCtx, "Failed to handle envelope", "error", err)
				span.RecordError(err)
				return
			}

			sess.MarkMessage(msg, "")

			// Commit offsets periodically rather than per message.
			if time.Since(lastCommit) > commitInterval {
				sess.Commit()
				lastCommit = time.Now()
			}
		}()
	}

	// Final commit before exiting.
	sess.Commit()

	return nil
}

func headerValue(msg *sarama.ConsumerMessage, key string) string {
	for _, h := range msg.Headers {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

// Close gracefully shuts down the bus by closing both producer and consumer
// connections.
func (b *EventBus) Close() error {
	logger := b.logger.With("operation", "close")
	ctx, span := b.tracer.Start(context.Background(), "kafka_event_bus.close")
	defer span.End()

	if err := b.producer.Close(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to close producer")
		logger.Error(ctx, "Failed to close producer", "error", err)
		return err
	}
	if err := b.consumerGroup.Close(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to close consumer group")
		logger.Error(ctx, "Failed to close consumer group", "error", err)
		return err
	}

	logger.Info(ctx, "Closed event bus")

	return nil
}
