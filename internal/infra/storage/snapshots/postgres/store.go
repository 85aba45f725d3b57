// Package postgres provides a PostgreSQL-backed implementation of the
// snapshot repository.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/taskflow/internal/domain/execution"
	"github.com/ahrav/taskflow/internal/infra/storage"
)

var defaultDBAttributes = []attribute.KeyValue{attribute.String("db.system", "postgresql")}

// Schema creates the table backing the snapshot store.
const Schema = `
CREATE TABLE IF NOT EXISTS task_snapshots (
    task_id    UUID PRIMARY KEY,
    path       TEXT NOT NULL,
    status     TEXT NOT NULL,
    result     JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`

var _ execution.SnapshotRepository = (*SnapshotStore)(nil)

// SnapshotStore implements execution.SnapshotRepository using PostgreSQL.
type SnapshotStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewSnapshotStore creates a new PostgreSQL-backed snapshot repository with
// tracing.
func NewSnapshotStore(pool *pgxpool.Pool, tracer trace.Tracer) *SnapshotStore {
	return &SnapshotStore{pool: pool, tracer: tracer}
}

// EnsureSchema creates the backing table when it does not exist yet.
func (s *SnapshotStore) EnsureSchema(ctx context.Context) error {
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.ensure_snapshot_schema", defaultDBAttributes, func(ctx context.Context) error {
		if _, err := s.pool.Exec(ctx, Schema); err != nil {
			return fmt.Errorf("failed to create task_snapshots table: %w", err)
		}
		return nil
	})
}

// Save persists a snapshot, replacing any previous one for the same task.
func (s *SnapshotStore) Save(ctx context.Context, snapshot execution.Snapshot) error {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.String("task_id", snapshot.TaskID.String()),
		attribute.String("status", snapshot.Status.String()),
	)

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.save_snapshot", dbAttrs, func(ctx context.Context) error {
		resultJSON, err := json.Marshal(snapshot.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot result: %w", err)
		}

		_, err = s.pool.Exec(ctx, `
			INSERT INTO task_snapshots (task_id, path, status, result, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (task_id) DO UPDATE SET
				path = EXCLUDED.path,
				status = EXCLUDED.status,
				result = EXCLUDED.result,
				updated_at = EXCLUDED.updated_at`,
			pgtype.UUID{Bytes: snapshot.TaskID, Valid: true},
			snapshot.Path,
			snapshot.Status.String(),
			resultJSON,
			pgtype.Timestamptz{Time: snapshot.UpdatedAt, Valid: true},
		)
		if err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		return nil
	})
}

// Get returns the snapshot for the given task, or nil when none exists.
func (s *SnapshotStore) Get(ctx context.Context, taskID uuid.UUID) (*execution.Snapshot, error) {
	dbAttrs := append(defaultDBAttributes, attribute.String("task_id", taskID.String()))

	var snapshot *execution.Snapshot
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.get_snapshot", dbAttrs, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			SELECT task_id, path, status, result, updated_at
			FROM task_snapshots
			WHERE task_id = $1`,
			pgtype.UUID{Bytes: taskID, Valid: true},
		)

		decoded, err := scanSnapshot(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("failed to get snapshot: %w", err)
		}
		snapshot = &decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// List returns every stored snapshot.
func (s *SnapshotStore) List(ctx context.Context) ([]execution.Snapshot, error) {
	var snapshots []execution.Snapshot
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.list_snapshots", defaultDBAttributes, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT task_id, path, status, result, updated_at
			FROM task_snapshots
			ORDER BY updated_at`,
		)
		if err != nil {
			return fmt.Errorf("failed to list snapshots: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			snapshot, err := scanSnapshot(rows)
			if err != nil {
				return fmt.Errorf("failed to scan snapshot: %w", err)
			}
			snapshots = append(snapshots, snapshot)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

// scanSnapshot decodes one row into a domain snapshot.
func scanSnapshot(row pgx.Row) (execution.Snapshot, error) {
	var (
		taskID     pgtype.UUID
		path       string
		status     string
		resultJSON []byte
		updatedAt  pgtype.Timestamptz
	)
	if err := row.Scan(&taskID, &path, &status, &resultJSON, &updatedAt); err != nil {
		return execution.Snapshot{}, err
	}

	var result execution.Result
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return execution.Snapshot{}, fmt.Errorf("failed to unmarshal snapshot result: %w", err)
	}

	return execution.Snapshot{
		TaskID:    taskID.Bytes,
		Path:      path,
		Status:    execution.ParseStatus(status),
		Result:    result,
		UpdatedAt: updatedAt.Time,
	}, nil
}
