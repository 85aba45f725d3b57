package main

import (
	"context"
	"encoding/json"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/ahrav/taskflow/internal/app/dicegame"
	"github.com/ahrav/taskflow/internal/app/hello"
	"github.com/ahrav/taskflow/internal/app/runner"
	"github.com/ahrav/taskflow/internal/config/envloader"
	"github.com/ahrav/taskflow/internal/domain/execution"
	"github.com/ahrav/taskflow/internal/infra/eventbus/kafka"
	snapshotStore "github.com/ahrav/taskflow/internal/infra/storage/snapshots/postgres"
	"github.com/ahrav/taskflow/pkg/common/logger"
	"github.com/ahrav/taskflow/pkg/common/otel"
)

const serviceType = "runner"

func main() {
	_, _ = maxprocs.Set()

	hostname, err := os.Hostname()
	if err != nil {
		stdlog.Fatalf("failed to get hostname: %v", err)
	}

	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}
			for k, v := range r.Attributes {
				errorAttrs[k] = v
			}

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}

			fmt.Fprintf(os.Stderr, "Error event: %s, details: %s\n",
				r.Message, errorAttrsJSON)
		},
	}

	traceIDFn := func(ctx context.Context) string {
		return otel.GetTraceID(ctx)
	}

	svcName := fmt.Sprintf("RUNNER-%s", hostname)
	metadata := map[string]string{
		"service":  svcName,
		"hostname": hostname,
		"app":      serviceType,
	}

	log := logger.NewWithMetadata(os.Stdout, logger.LevelDebug, svcName, traceIDFn, logEvents, metadata)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := envloader.NewEnvLoader(os.Getenv("CONFIG_PATH")).Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	tp, telemetryTeardown, err := otel.InitTelemetry(log, otel.Config{
		ServiceName:      svcName,
		ExporterEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Probability:      1,
		ResourceAttributes: map[string]string{
			"library.language": "go",
			"hostname":         hostname,
		},
		InsecureExporter: true,
	})
	if err != nil {
		log.Error(ctx, "failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer telemetryTeardown(ctx)

	tracer := tp.Tracer(svcName)

	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN)
	if err != nil {
		log.Error(ctx, "failed to parse db config", "error", err)
		os.Exit(1)
	}
	if cfg.Postgres.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Postgres.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error(ctx, "failed to open db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	snapshots := snapshotStore.NewSnapshotStore(pool, tracer)
	if err := snapshots.EnsureSchema(ctx); err != nil {
		log.Error(ctx, "failed to ensure snapshot schema", "error", err)
		os.Exit(1)
	}

	bus, err := kafka.ConnectWithRetry(&kafka.Config{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       cfg.Kafka.Topic,
		GroupID:     cfg.Kafka.GroupID,
		ClientID:    cfg.Kafka.ClientID,
		ServiceType: serviceType,
	}, log, tracer)
	if err != nil {
		log.Error(ctx, "failed to connect event bus", "error", err)
		os.Exit(1)
	}

	svc := runner.NewService(newRegistry(), bus, snapshots, log, tracer)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start runner", "error", err)
		os.Exit(1)
	}

	sig := <-sigCh
	log.Info(ctx, "Received shutdown signal", "signal", sig)
	cancel()

	shutdownTimeout := cfg.Runner.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := bus.Close(); err != nil {
		log.Error(shutdownCtx, "Failed to close event bus", "error", err)
	}
}

// newRegistry binds every task type this worker knows how to run.
func newRegistry() *runner.Registry {
	registry := runner.NewRegistry()

	registry.Register(hello.TaskPath, func(msg execution.Message) (execution.Task, error) {
		user, _ := msg.Params()["user"].(string)
		return hello.New(hello.Params{User: user}), nil
	})

	registry.Register(dicegame.RollPath, func(msg execution.Message) (execution.Task, error) {
		return dicegame.NewDiceRoll(dicegame.RollParams{
			LaunchNumber: intParam(msg.Params(), "launch_number"),
		}, dicegame.DefaultContext()), nil
	})

	registry.Register(dicegame.DisplayScorePath, func(msg execution.Message) (execution.Task, error) {
		return dicegame.NewDisplayScore(dicegame.DefaultContext()), nil
	})

	registry.Register(dicegame.ZanzibarPath, func(msg execution.Message) (execution.Task, error) {
		return dicegame.NewZanzibar(dicegame.GameSettings{
			NbLaunch: intParam(msg.Params(), "nb_launch"),
		}, dicegame.DefaultContext()), nil
	})

	return registry
}

// intParam reads an integer out of an untyped param payload. JSON numbers
// decode as float64.
func intParam(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
