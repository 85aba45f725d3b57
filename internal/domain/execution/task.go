package execution

import (
	"context"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ahrav/taskflow/pkg/common/logger"
)

// validate checks task parameters against their `validate` struct tags.
// Parameter types without tags always pass, preserving the default
// "accept anything" contract of CheckRequiredParams.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Task is the capability set every executable unit of work exposes: identity,
// mutable status and result, and the fixed set of user-overridable hooks
// invoked by the pipeline. Concrete task types embed *Base, which supplies
// identity storage and no-op hook defaults, and override only the hooks they
// need.
type Task interface {
	// UUID returns the opaque identifier assigned once at construction.
	UUID() uuid.UUID

	// Path identifies the task's type for logging and routing, e.g.
	// "dicegame.DiceRoll".
	Path() string

	// Status returns the task's current lifecycle state.
	Status() Status

	// SetStatus replaces the task's lifecycle state.
	SetStatus(status Status)

	// Result returns the task's accumulated result.
	Result() Result

	// SetResult replaces the task's accumulated result.
	SetResult(result Result)

	// Logger returns the logger lifecycle transitions are reported to.
	Logger() *logger.Logger

	// CheckRequiredParams validates that required parameters are present
	// before any other hook runs. A failure here behaves like any other hook
	// failure.
	CheckRequiredParams(ctx context.Context, res Result) (Result, error)

	// PostInit runs after parameter validation and before PreRun.
	PostInit(ctx context.Context, res Result) (Result, error)

	// PreRun runs immediately before the task transitions to RUNNING.
	PreRun(ctx context.Context, res Result) (Result, error)

	// Run carries the task's user logic. It executes with the task in the
	// RUNNING state.
	Run(ctx context.Context, res Result) (Result, error)

	// PostRun runs after Run and before the task transitions to SUCCESS.
	PostRun(ctx context.Context, res Result) (Result, error)

	// OnSuccess runs once the task has reached SUCCESS.
	OnSuccess(ctx context.Context, res Result) (Result, error)

	// OnError runs once the task has reached FAILED. Its output is merged
	// into the task's result, but its own failure is swallowed so that
	// Execute stays total.
	OnError(ctx context.Context, cause error, res Result) (Result, error)

	// Finalize gives the task a chance to react to being attached to an
	// owning operation, e.g. to persist itself. The default returns the
	// current result unchanged.
	Finalize(ctx context.Context) (Result, error)

	// Send merges an optional incoming result into the task's own and
	// returns it. It is the extension point used when chaining tasks across
	// a process boundary.
	Send(ctx context.Context, res *Result) (Result, error)
}

// baseConfig collects construction options shared by Base and OperationBase.
type baseConfig struct {
	log *logger.Logger
}

// BaseOption configures a Base during construction.
type BaseOption func(*baseConfig)

// WithLogger sets the logger lifecycle transitions are reported to. Tasks
// constructed without one discard all log output.
func WithLogger(log *logger.Logger) BaseOption {
	return func(c *baseConfig) { c.log = log }
}

// Base provides identity, parameter, metadata, status, and result storage for
// a concrete task type, along with default no-op hook implementations. P is
// the read-mostly parameter payload and M the mutable contextual metadata;
// both only need a usable zero value.
type Base[P, M any] struct {
	id       uuid.UUID
	path     string
	params   P
	metadata M
	status   Status
	result   Result
	log      *logger.Logger
}

// NewBase creates the embedded core of a task with a fresh unique identifier
// and StatusPending.
func NewBase[P, M any](path string, params P, metadata M, opts ...BaseOption) *Base[P, M] {
	cfg := baseConfig{log: logger.Noop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	id := uuid.New()
	return &Base[P, M]{
		id:       id,
		path:     path,
		params:   params,
		metadata: metadata,
		status:   StatusPending,
		result:   NewResult(WithUUID(id)),
		log:      cfg.log,
	}
}

// UUID returns the identifier assigned at construction.
func (b *Base[P, M]) UUID() uuid.UUID { return b.id }

// Path returns the task's type identifier.
func (b *Base[P, M]) Path() string { return b.path }

// Status returns the task's current lifecycle state.
func (b *Base[P, M]) Status() Status { return b.status }

// SetStatus replaces the task's lifecycle state.
func (b *Base[P, M]) SetStatus(status Status) { b.status = status }

// Result returns the task's accumulated result.
func (b *Base[P, M]) Result() Result { return b.result }

// SetResult replaces the task's accumulated result.
func (b *Base[P, M]) SetResult(result Result) { b.result = result }

// Logger returns the logger lifecycle transitions are reported to.
func (b *Base[P, M]) Logger() *logger.Logger { return b.log }

// Params returns the task's parameter payload.
func (b *Base[P, M]) Params() P { return b.params }

// Metadata returns a pointer to the task's mutable contextual metadata.
func (b *Base[P, M]) Metadata() *M { return &b.metadata }

// SearchResult looks up a value in the accumulated result's return value map.
func (b *Base[P, M]) SearchResult(key string) (any, bool) {
	return b.result.Value(key)
}

// CheckRequiredParams validates the parameter payload against its `validate`
// struct tags. Parameter types that are not structs, or carry no tags, always
// pass.
func (b *Base[P, M]) CheckRequiredParams(ctx context.Context, res Result) (Result, error) {
	rv := reflect.ValueOf(b.params)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return res, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return res, nil
	}

	if err := validate.StructCtx(ctx, rv.Interface()); err != nil {
		return res, NewError(CodeInvalidParams, fmt.Sprintf("invalid task parameters: %v", err)).
			WithDetail("path", b.path)
	}
	return res, nil
}

// PostInit is a no-op by default.
func (b *Base[P, M]) PostInit(ctx context.Context, res Result) (Result, error) {
	return res, nil
}

// PreRun is a no-op by default.
func (b *Base[P, M]) PreRun(ctx context.Context, res Result) (Result, error) {
	return res, nil
}

// Run is a no-op by default; concrete tasks override it with their user logic.
func (b *Base[P, M]) Run(ctx context.Context, res Result) (Result, error) {
	return res, nil
}

// PostRun is a no-op by default.
func (b *Base[P, M]) PostRun(ctx context.Context, res Result) (Result, error) {
	return res, nil
}

// OnSuccess is a no-op by default.
func (b *Base[P, M]) OnSuccess(ctx context.Context, res Result) (Result, error) {
	return res, nil
}

// OnError is a no-op by default.
func (b *Base[P, M]) OnError(ctx context.Context, cause error, res Result) (Result, error) {
	return res, nil
}

// Finalize returns the current result unchanged by default.
func (b *Base[P, M]) Finalize(ctx context.Context) (Result, error) {
	return b.result, nil
}

// Send merges an optional incoming result into the task's own and returns it.
func (b *Base[P, M]) Send(ctx context.Context, res *Result) (Result, error) {
	if res == nil {
		return b.result, nil
	}
	return b.result.Merge(*res), nil
}

// label renders the advisory log prefix "<path>[<uuid>] - <stage>" emitted at
// each hook boundary.
func label(t Task, stage string) string {
	if stage == "" {
		return fmt.Sprintf("%s[%s]", t.Path(), t.UUID())
	}
	return fmt.Sprintf("%s[%s] - %s", t.Path(), t.UUID(), stage)
}

// newStageResult seeds a hook invocation with an empty result carrying the
// task's identity, so every partial output stays correlated to the task.
func newStageResult(t Task) Result {
	return NewResult(WithUUID(t.UUID()))
}

// hookFn is the shape shared by every lifecycle hook except OnError.
type hookFn func(ctx context.Context, res Result) (Result, error)

// runHook invokes a single hook with Start/End logging. Run-level stages log
// at info, the rest at debug.
func runHook(ctx context.Context, t Task, stage string, info bool, fn hookFn) (Result, error) {
	log := t.Logger()
	if info {
		log.Info(ctx, label(t, stage+"-Start"))
	} else {
		log.Debug(ctx, label(t, stage+"-Start"))
	}

	res, err := fn(ctx, newStageResult(t))

	switch {
	case err != nil:
		log.Debug(ctx, fmt.Sprintf("%s => %v", label(t, stage+"-End"), err))
	case info:
		log.Info(ctx, fmt.Sprintf("%s => %s", label(t, stage+"-End"), res))
	default:
		log.Debug(ctx, fmt.Sprintf("%s => %s", label(t, stage+"-End"), res))
	}
	return res, err
}

// setStatus records a lifecycle transition with a debug log line.
func setStatus(ctx context.Context, t Task, status Status) {
	t.Logger().Debug(ctx, fmt.Sprintf("%s: status updated '%s' -> '%s'",
		label(t, "SetStatus"), t.Status(), status))
	t.SetStatus(status)
}

// UncheckedExecute runs the fixed hook pipeline against the task, folding
// each step's partial result into the task's accumulated result as soon as
// the step returns:
//
//	CheckRequiredParams → PostInit → PreRun → [RUNNING] → Run → PostRun →
//	[SUCCESS] → OnSuccess
//
// The first hook failure aborts the remainder and propagates; the caller
// (Execute, or an owning operation) decides how to route the failure. The
// optional seed is merged into the task's result before any hook runs.
func UncheckedExecute(ctx context.Context, t Task, seed *Result) (Result, error) {
	if seed != nil {
		t.SetResult(t.Result().Merge(*seed))
	}

	// Each step folds immediately so a failure partway through still leaves
	// all prior partial outputs recorded on the task.
	fold := func(res Result, err error) error {
		if err != nil {
			return err
		}
		t.SetResult(t.Result().Merge(res))
		return nil
	}

	if err := fold(t.CheckRequiredParams(ctx, newStageResult(t))); err != nil {
		return Result{}, err
	}
	if err := fold(runHook(ctx, t, "PostInit", false, t.PostInit)); err != nil {
		return Result{}, err
	}
	if err := fold(runHook(ctx, t, "PreRun", false, t.PreRun)); err != nil {
		return Result{}, err
	}

	setStatus(ctx, t, StatusRunning)
	if err := fold(runHook(ctx, t, "Run", true, t.Run)); err != nil {
		return Result{}, err
	}
	if err := fold(runHook(ctx, t, "PostRun", false, t.PostRun)); err != nil {
		return Result{}, err
	}

	setStatus(ctx, t, StatusSuccess)
	if err := fold(runHook(ctx, t, "OnSuccess", false, t.OnSuccess)); err != nil {
		return Result{}, err
	}

	return t.Result(), nil
}

// Execute is the single public entry point for running a task. It never
// fails: any hook failure is routed through the OnError hook and converted
// into the returned Result, whose IsError communicates the outcome. Once
// Execute returns, the task's status is always SUCCESS or FAILED.
func Execute(ctx context.Context, t Task, seed *Result) Result {
	log := t.Logger()
	log.Info(ctx, label(t, "TaskExecution-Start"))

	res, err := UncheckedExecute(ctx, t, seed)
	if err != nil {
		res = failTask(ctx, t, err)
		log.Error(ctx, fmt.Sprintf("%s => %s", label(t, "TaskExecution-End"), res))
		return res
	}

	log.Info(ctx, fmt.Sprintf("%s => %s", label(t, "TaskExecution-End"), res))
	return res
}

// failTask routes a hook failure: the task transitions to FAILED, the failure
// is converted into a Result and folded into the task's accumulator, and the
// OnError hook runs with its own failures swallowed so the path stays total.
func failTask(ctx context.Context, t Task, cause error) Result {
	log := t.Logger()
	log.Debug(ctx, label(t, "OnError-Start"))

	setStatus(ctx, t, StatusFailed)
	t.SetResult(t.Result().Merge(ResultFromError(cause, WithUUID(t.UUID()))))

	hookRes, hookErr := t.OnError(ctx, cause, newStageResult(t))
	if hookErr != nil {
		// A secondary failure inside OnError is recorded but never propagated.
		log.Debug(ctx, fmt.Sprintf("%s => %v", label(t, "OnError-End"), hookErr))
		return t.Result()
	}
	t.SetResult(t.Result().Merge(hookRes))

	log.Debug(ctx, fmt.Sprintf("%s => %s", label(t, "OnError-End"), t.Result()))
	return t.Result()
}
