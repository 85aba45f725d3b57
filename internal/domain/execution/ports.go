package execution

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MessageHandler processes a single envelope delivered by a MessageBus.
type MessageHandler func(ctx context.Context, msg Message) error

// MessageBus moves task envelopes between processes. It abstracts the
// messaging infrastructure (Kafka, in-memory, ...) so the framework stays
// decoupled from transport mechanics; the core never publishes by itself,
// the surrounding system does.
type MessageBus interface {
	// Publish sends an envelope to every interested subscriber of its
	// entrypoint. Returns an error if delivery to the transport fails.
	Publish(ctx context.Context, msg Message) error

	// Subscribe registers a handler for envelopes targeting the given
	// entrypoints. The handler executes for each matching envelope received
	// on this bus.
	Subscribe(ctx context.Context, entrypoints []string, handler MessageHandler) error

	// Close releases the transport resources held by the bus.
	Close() error
}

// Snapshot is the persisted view of a task's execution state: enough to
// resume an operation in another process by skipping children already marked
// SUCCESS.
type Snapshot struct {
	TaskID    uuid.UUID
	Path      string
	Status    Status
	Result    Result
	UpdatedAt time.Time
}

// NewSnapshot captures a task's current execution state.
func NewSnapshot(t Task, now time.Time) Snapshot {
	return Snapshot{
		TaskID:    t.UUID(),
		Path:      t.Path(),
		Status:    t.Status(),
		Result:    t.Result(),
		UpdatedAt: now,
	}
}

// SnapshotRepository persists task execution state. Implementations live in
// the infrastructure layer; the core only defines the contract.
type SnapshotRepository interface {
	// Save persists a snapshot, replacing any previous one for the same task.
	Save(ctx context.Context, snapshot Snapshot) error

	// Get returns the snapshot for the given task, or nil when none exists.
	Get(ctx context.Context, taskID uuid.UUID) (*Snapshot, error)

	// List returns every stored snapshot.
	List(ctx context.Context) ([]Snapshot, error)
}
