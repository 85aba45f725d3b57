package execution

import (
	"context"
	"fmt"
)

// Operation is a Task that additionally owns an ordered collection of child
// Tasks, builds that collection lazily, and runs the children in sequence
// while accumulating their Results. Operations satisfy Task, so they can be
// nested inside other operations.
type Operation interface {
	Task

	// Tasks returns the ordered child list. It is empty until Build installs
	// the list produced by BuildTasks.
	Tasks() []Task

	// SetTasks installs the ordered child list.
	SetTasks(tasks []Task)

	// PreBuild runs before BuildTasks derives the child list.
	PreBuild(ctx context.Context, res Result) (Result, error)

	// BuildTasks derives the concrete ordered child list from the
	// operation's own params and metadata. This is where fan-out logic
	// lives; the default returns no children.
	BuildTasks(ctx context.Context) ([]Task, error)

	// Next resolves the child to hand execution to after the given one
	// finishes. It is an optional strategy for distributed schedulers; the
	// default returns nil, meaning no resolver is installed and LaunchNext
	// folds the finished child back into the operation instead.
	Next(task Task) Task
}

// OperationBase supplies the sequential aggregation semantics on top of Base:
// its Run iterates the children in list order, its CheckRequiredParams
// delegates to each child, and its Finalize folds each child's Finalize
// output into the operation's result. Concrete operations embed
// *OperationBase and override BuildTasks.
type OperationBase[P, M any] struct {
	*Base[P, M]

	tasks []Task
}

// NewOperationBase creates the embedded core of an operation with a fresh
// unique identifier, StatusPending, and no children.
func NewOperationBase[P, M any](path string, params P, metadata M, opts ...BaseOption) *OperationBase[P, M] {
	return &OperationBase[P, M]{Base: NewBase[P, M](path, params, metadata, opts...)}
}

// Tasks returns the ordered child list.
func (o *OperationBase[P, M]) Tasks() []Task { return o.tasks }

// SetTasks installs the ordered child list.
func (o *OperationBase[P, M]) SetTasks(tasks []Task) { o.tasks = tasks }

// PreBuild is a no-op by default.
func (o *OperationBase[P, M]) PreBuild(ctx context.Context, res Result) (Result, error) {
	return res, nil
}

// BuildTasks returns no children by default.
func (o *OperationBase[P, M]) BuildTasks(ctx context.Context) ([]Task, error) {
	return nil, nil
}

// Next returns nil by default: no continuation resolver is installed.
func (o *OperationBase[P, M]) Next(task Task) Task { return nil }

// CheckRequiredParams delegates to each child's own CheckRequiredParams in
// list order, failing on the first child that fails.
func (o *OperationBase[P, M]) CheckRequiredParams(ctx context.Context, res Result) (Result, error) {
	for _, task := range o.tasks {
		if _, err := task.CheckRequiredParams(ctx, newStageResult(task)); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Run executes the children strictly sequentially, in list order. A child
// that is already SUCCESS is not re-executed; its stored result is merged
// into the accumulator instead, which is what makes a partially completed
// operation resumable. Every other child's execution is seeded with the
// accumulator so far. The first child failure aborts the loop and propagates,
// so no further children run.
func (o *OperationBase[P, M]) Run(ctx context.Context, res Result) (Result, error) {
	for _, task := range o.tasks {
		if task.Status() == StatusSuccess {
			res = res.Merge(task.Result())
			continue
		}

		var err error
		res, err = UncheckedExecute(ctx, task, &res)
		if err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

// Finalize folds each child's Finalize output into the operation's result in
// list order.
func (o *OperationBase[P, M]) Finalize(ctx context.Context) (Result, error) {
	res := o.Result()
	for _, task := range o.tasks {
		taskRes, err := task.Finalize(ctx)
		if err != nil {
			return Result{}, err
		}
		res = res.Merge(taskRes)
	}
	return res, nil
}

// Build populates the operation's child list exactly once before any run: it
// invokes the PreBuild hook, derives the ordered children via BuildTasks,
// installs them, and then finalizes, giving each child a chance to react to
// being attached.
func Build(ctx context.Context, op Operation) (Result, error) {
	res, err := runHook(ctx, op, "PreBuild", false, op.PreBuild)
	if err != nil {
		return Result{}, err
	}
	op.SetResult(op.Result().Merge(res))

	tasks, err := op.BuildTasks(ctx)
	if err != nil {
		return Result{}, err
	}
	op.SetTasks(tasks)
	op.Logger().Debug(ctx, fmt.Sprintf("%s: %d task(s) found", label(op, "Build"), len(tasks)))

	return op.Finalize(ctx)
}

// Launch hands the operation off to its first child for remote execution.
// See LaunchNext for the full contract.
func Launch(ctx context.Context, op Operation, res *Result) (Result, error) {
	return LaunchNext(ctx, op, nil, res)
}

// LaunchNext models handing execution to an external scheduler between steps.
// Given a just-finished child, it resolves the following child via the
// operation's Next strategy and forwards execution to it through Send. When
// no resolver is installed (Next returns nil), the result is merged into the
// operation and the finished child's status becomes the operation's own.
// With no finished child, execution is forwarded to the first child; an
// operation with no children at all yields a dedicated non-error
// "nothing to do" result.
func LaunchNext(ctx context.Context, op Operation, finished Task, res *Result) (Result, error) {
	if finished == nil {
		if tasks := op.Tasks(); len(tasks) > 0 {
			return tasks[0].Send(ctx, res)
		}

		opRes := op.Result()
		opRes.SetStderr("Nothing to do, empty operation !")
		op.SetResult(opRes)
		return op.Result(), nil
	}

	if next := op.Next(finished); next != nil {
		return next.Send(ctx, res)
	}

	if res != nil {
		op.SetResult(op.Result().Merge(*res))
	}
	setStatus(ctx, op, finished.Status())
	return op.Result(), nil
}
