package hello

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/taskflow/internal/domain/execution"
)

func TestHello_GreetsUser(t *testing.T) {
	t.Parallel()

	task := New(Params{User: "Cedric"})
	res := execution.Execute(context.Background(), task, nil)

	require.False(t, res.IsError())
	assert.Equal(t, execution.StatusSuccess, task.Status())

	stdout, ok := res.Stdout()
	require.True(t, ok)
	assert.Equal(t, "Hello Cedric", stdout)
}

func TestHello_RequiresUser(t *testing.T) {
	t.Parallel()

	task := New(Params{})
	res := execution.Execute(context.Background(), task, nil)

	assert.True(t, res.IsError())
	assert.Equal(t, execution.CodeInvalidParams, res.Retcode())
	assert.Equal(t, execution.StatusFailed, task.Status())
}
