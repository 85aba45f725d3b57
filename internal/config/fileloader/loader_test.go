package fileloader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLoader_Load(t *testing.T) {
	t.Parallel()

	raw := `
runner:
  entrypoints:
    - hello.Hello
    - dice.Zanzibar
  shutdown_timeout: 15s
kafka:
  brokers:
    - localhost:9092
  topic: taskflow-tasks
  group_id: taskflow-runner
postgres:
  dsn: postgres://localhost:5432/taskflow
  max_conns: 8
params:
  user: John
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := NewFileLoader(path).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"hello.Hello", "dice.Zanzibar"}, cfg.Runner.Entrypoints)
	assert.Equal(t, 15*time.Second, cfg.Runner.ShutdownTimeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "taskflow-tasks", cfg.Kafka.Topic)
	assert.Equal(t, "taskflow-runner", cfg.Kafka.GroupID)
	assert.Equal(t, "postgres://localhost:5432/taskflow", cfg.Postgres.DSN)
	assert.Equal(t, int32(8), cfg.Postgres.MaxConns)
	assert.Equal(t, map[string]any{"user": "John"}, cfg.Params)
}

func TestFileLoader_Load_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := NewFileLoader(filepath.Join(t.TempDir(), "absent.yaml")).Load(context.Background())
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("runner: [unbalanced"), 0o600))

		_, err := NewFileLoader(path).Load(context.Background())
		assert.Error(t, err)
	})
}
