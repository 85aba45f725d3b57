package execution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type helloParams struct {
	User string
}

// helloTask mirrors the simplest possible unit of work: greet the configured
// user on stdout.
type helloTask struct {
	*Base[helloParams, struct{}]
}

var _ Task = (*helloTask)(nil)

func newHelloTask(user string) *helloTask {
	return &helloTask{Base: NewBase("tests.Hello", helloParams{User: user}, struct{}{})}
}

func (t *helloTask) Run(ctx context.Context, res Result) (Result, error) {
	res.SetStdout("Hello " + t.Params().User)
	return res, nil
}

// failingTask always fails its run hook with a classified error.
type failingTask struct {
	*Base[struct{}, struct{}]
}

func newFailingTask() *failingTask {
	return &failingTask{Base: NewBase[struct{}, struct{}]("tests.HelloError", struct{}{}, struct{}{})}
}

func (t *failingTask) Run(ctx context.Context, res Result) (Result, error) {
	return res, NewError(500, "Task failed !")
}

// hookRecorder overrides every hook to record invocation order and the status
// observed while running.
type hookRecorder struct {
	*Base[struct{}, struct{}]

	calls           []string
	statusDuringRun Status
	failAt          string
	onErrorErr      error
}

func newHookRecorder() *hookRecorder {
	return &hookRecorder{Base: NewBase[struct{}, struct{}]("tests.Recorder", struct{}{}, struct{}{})}
}

func (t *hookRecorder) hook(name string, res Result) (Result, error) {
	t.calls = append(t.calls, name)
	if t.failAt == name {
		return res, Unexpected(name + " failed")
	}
	res.SetValue(name, true)
	return res, nil
}

func (t *hookRecorder) CheckRequiredParams(ctx context.Context, res Result) (Result, error) {
	return t.hook("CheckRequiredParams", res)
}

func (t *hookRecorder) PostInit(ctx context.Context, res Result) (Result, error) {
	return t.hook("PostInit", res)
}

func (t *hookRecorder) PreRun(ctx context.Context, res Result) (Result, error) {
	return t.hook("PreRun", res)
}

func (t *hookRecorder) Run(ctx context.Context, res Result) (Result, error) {
	t.statusDuringRun = t.Status()
	return t.hook("Run", res)
}

func (t *hookRecorder) PostRun(ctx context.Context, res Result) (Result, error) {
	return t.hook("PostRun", res)
}

func (t *hookRecorder) OnSuccess(ctx context.Context, res Result) (Result, error) {
	return t.hook("OnSuccess", res)
}

func (t *hookRecorder) OnError(ctx context.Context, cause error, res Result) (Result, error) {
	t.calls = append(t.calls, "OnError")
	if t.onErrorErr != nil {
		return res, t.onErrorErr
	}
	res.SetValue("OnError", true)
	return res, nil
}

func TestExecute_Success(t *testing.T) {
	t.Parallel()

	task := newHelloTask("John")
	res := Execute(context.Background(), task, nil)

	assert.Equal(t, uint16(0), res.Retcode())
	assert.False(t, res.IsError())

	stdout, ok := res.Stdout()
	require.True(t, ok)
	assert.Equal(t, "Hello John", stdout)

	assert.Equal(t, StatusSuccess, task.Status())
	assert.Equal(t, task.UUID(), res.UUID())
	assert.Equal(t, res, task.Result())
}

func TestExecute_RunFailure(t *testing.T) {
	t.Parallel()

	task := newFailingTask()
	res := Execute(context.Background(), task, nil)

	assert.Equal(t, uint16(500), res.Retcode())
	assert.True(t, res.IsError())

	stderr, ok := res.Stderr()
	require.True(t, ok)
	assert.Equal(t, "Task failed !", stderr)

	assert.Equal(t, StatusFailed, task.Status())
}

func TestExecute_HookOrder(t *testing.T) {
	t.Parallel()

	task := newHookRecorder()
	res := Execute(context.Background(), task, nil)

	assert.Equal(t, []string{
		"CheckRequiredParams",
		"PostInit",
		"PreRun",
		"Run",
		"PostRun",
		"OnSuccess",
	}, task.calls)

	assert.Equal(t, StatusRunning, task.statusDuringRun)
	assert.Equal(t, StatusSuccess, task.Status())

	// Every hook's partial output was folded into the accumulator.
	for _, name := range task.calls {
		_, ok := res.Value(name)
		assert.True(t, ok, "missing retval entry for %s", name)
	}
}

func TestExecute_FailureShortCircuits(t *testing.T) {
	t.Parallel()

	task := newHookRecorder()
	task.failAt = "PreRun"
	res := Execute(context.Background(), task, nil)

	assert.Equal(t, []string{"CheckRequiredParams", "PostInit", "PreRun", "OnError"}, task.calls)
	assert.Equal(t, StatusFailed, task.Status())
	assert.True(t, res.IsError())

	// Run never executed, so it never transitioned through RUNNING.
	assert.Equal(t, Status(""), task.statusDuringRun)
}

func TestExecute_PartialResultsSurviveLateFailure(t *testing.T) {
	t.Parallel()

	task := newHookRecorder()
	task.failAt = "PostRun"
	res := Execute(context.Background(), task, nil)

	assert.Equal(t, StatusFailed, task.Status())
	assert.True(t, res.IsError())

	stderr, _ := res.Stderr()
	assert.Equal(t, "PostRun failed", stderr)

	// Outputs from the hooks that ran before the failure are still recorded.
	for _, name := range []string{"CheckRequiredParams", "PostInit", "PreRun", "Run"} {
		_, ok := res.Value(name)
		assert.True(t, ok, "missing retval entry for %s", name)
	}
}

func TestExecute_OnErrorOutputMerged(t *testing.T) {
	t.Parallel()

	task := newHookRecorder()
	task.failAt = "Run"
	res := Execute(context.Background(), task, nil)

	_, ok := res.Value("OnError")
	assert.True(t, ok)
	assert.Equal(t, StatusFailed, task.Status())
}

func TestExecute_OnErrorFailureSwallowed(t *testing.T) {
	t.Parallel()

	task := newHookRecorder()
	task.failAt = "Run"
	task.onErrorErr = Unexpected("on_error also failed")

	res := Execute(context.Background(), task, nil)

	// The original failure is what the caller sees; the secondary one is
	// swallowed to keep Execute total.
	stderr, _ := res.Stderr()
	assert.Equal(t, "Run failed", stderr)
	assert.Equal(t, StatusFailed, task.Status())
}

func TestExecute_SeedMergedBeforeHooks(t *testing.T) {
	t.Parallel()

	seed := NewResult(
		WithStdout("from upstream"),
		WithRetval(map[string]any{"upstream": 1}),
	)

	task := newHookRecorder()
	res := Execute(context.Background(), task, &seed)

	// The hooks produce no stdout of their own, so the seed's survives.
	stdout, ok := res.Stdout()
	require.True(t, ok)
	assert.Equal(t, "from upstream", stdout)

	v, ok := res.Value("upstream")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

type requiredParams struct {
	User string `validate:"required"`
}

type strictTask struct {
	*Base[requiredParams, struct{}]
}

func TestCheckRequiredParams_Validation(t *testing.T) {
	t.Parallel()

	t.Run("missing required parameter fails the pipeline", func(t *testing.T) {
		t.Parallel()

		task := &strictTask{Base: NewBase("tests.Strict", requiredParams{}, struct{}{})}
		res := Execute(context.Background(), task, nil)

		assert.True(t, res.IsError())
		assert.Equal(t, CodeInvalidParams, res.Retcode())
		assert.Equal(t, StatusFailed, task.Status())
	})

	t.Run("present required parameter passes", func(t *testing.T) {
		t.Parallel()

		task := &strictTask{Base: NewBase("tests.Strict", requiredParams{User: "John"}, struct{}{})}
		res := Execute(context.Background(), task, nil)

		assert.False(t, res.IsError())
		assert.Equal(t, StatusSuccess, task.Status())
	})

	t.Run("untagged parameters always pass", func(t *testing.T) {
		t.Parallel()

		task := newHelloTask("")
		res := Execute(context.Background(), task, nil)
		assert.False(t, res.IsError())
	})
}

func TestBase_Send(t *testing.T) {
	t.Parallel()

	task := newHelloTask("John")

	t.Run("without seed returns own result", func(t *testing.T) {
		res, err := task.Send(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, task.Result(), res)
	})

	t.Run("with seed merges into own result", func(t *testing.T) {
		seed := NewResult(WithRetval(map[string]any{"seeded": true}))
		res, err := task.Send(context.Background(), &seed)
		require.NoError(t, err)

		v, ok := res.Value("seeded")
		require.True(t, ok)
		assert.Equal(t, true, v)
	})
}

func TestBase_SearchResult(t *testing.T) {
	t.Parallel()

	task := newHelloTask("John")
	res := task.Result()
	res.SetValue("answer", 42)
	task.SetResult(res)

	v, ok := task.SearchResult("answer")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = task.SearchResult("missing")
	assert.False(t, ok)
}
