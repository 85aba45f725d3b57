// Package hello provides the smallest useful task: greet a user on stdout.
// It doubles as the reference wiring for new task types.
package hello

import (
	"context"

	"github.com/ahrav/taskflow/internal/domain/execution"
)

// TaskPath identifies the greeting task on the bus.
const TaskPath = "hello.Hello"

// Params configures the greeting.
type Params struct {
	User string `validate:"required"`
}

// Hello greets the configured user.
type Hello struct {
	*execution.Base[Params, struct{}]
}

var _ execution.Task = (*Hello)(nil)

// New creates a greeting task for the given user.
func New(params Params, opts ...execution.BaseOption) *Hello {
	return &Hello{Base: execution.NewBase(TaskPath, params, struct{}{}, opts...)}
}

func (t *Hello) Run(ctx context.Context, res execution.Result) (execution.Result, error) {
	res.SetStdout("Hello " + t.Params().User)
	return res, nil
}
