// Package dicegame implements a small Zanzibar-style dice game as a chained
// operation: a configurable number of rolls followed by a score display. It
// exercises the full task pipeline, including mid-chain failures when a roll
// turns out not to be regulatory.
package dicegame

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/ahrav/taskflow/internal/domain/execution"
	"github.com/ahrav/taskflow/pkg/common/logger"
)

// Task paths for the dice game on the bus.
const (
	RollPath         = "dice.Roll"
	DisplayScorePath = "dice.DisplayScore"
	ZanzibarPath     = "dice.Zanzibar"
)

// scorePrefix keys the per-launch scores in the shared result payload.
const scorePrefix = "Score-"

// Context is the metadata shared by every task in a game.
type Context struct {
	Env string
}

// DefaultContext returns the metadata used when the caller does not provide
// any.
func DefaultContext() Context { return Context{Env: "production"} }

// RollParams configures a single dice roll.
type RollParams struct {
	LaunchNumber int `validate:"required,min=1"`
}

// DiceRoll rolls one die and records the launch's score. A six scores 60, a
// one scores 100, everything else scores its face value. A seven means the
// die is not regulatory and fails the task.
type DiceRoll struct {
	*execution.Base[RollParams, Context]

	roll func() int
}

var _ execution.Task = (*DiceRoll)(nil)

// RollOption configures a DiceRoll beyond its base options.
type RollOption func(*DiceRoll)

// WithRollFunc replaces the random roll, pinning the outcome. Used by tests
// and loaded dice.
func WithRollFunc(roll func() int) RollOption {
	return func(t *DiceRoll) { t.roll = roll }
}

// NewDiceRoll creates a roll task for the given launch number.
func NewDiceRoll(params RollParams, meta Context, opts ...execution.BaseOption) *DiceRoll {
	return &DiceRoll{
		Base: execution.NewBase(RollPath, params, meta, opts...),
		roll: defaultRoll,
	}
}

// defaultRoll throws a die that can land on 7, faithful to the original
// game's dubious hardware.
func defaultRoll() int { return rand.IntN(7) + 1 }

func (t *DiceRoll) Run(ctx context.Context, res execution.Result) (execution.Result, error) {
	roll := t.roll()

	var score int
	switch roll {
	case 2, 3, 4, 5:
		score = roll
	case 6:
		score = 60
	case 7:
		return res, execution.Unexpected("non-regulatory dice!")
	default:
		score = 100
	}

	n := t.Params().LaunchNumber
	res.SetStdout(fmt.Sprintf("Roll %d: you made a %d", n, roll))
	res.SetValue(fmt.Sprintf("LaunchNumber-%d", n), roll)
	res.SetValue(fmt.Sprintf("%s%d", scorePrefix, n), score)
	return res, nil
}

// DisplayScore sums every recorded launch score and reports the total.
type DisplayScore struct {
	*execution.Base[struct{}, Context]
}

var _ execution.Task = (*DisplayScore)(nil)

// NewDisplayScore creates the score display task.
func NewDisplayScore(meta Context, opts ...execution.BaseOption) *DisplayScore {
	return &DisplayScore{Base: execution.NewBase(DisplayScorePath, struct{}{}, meta, opts...)}
}

func (t *DisplayScore) Run(ctx context.Context, res execution.Result) (execution.Result, error) {
	// The scores live in the accumulated result, seeded by the earlier rolls;
	// the hook parameter is a fresh partial.
	var total int
	for key, value := range t.Result().Retval() {
		if !strings.HasPrefix(key, scorePrefix) {
			continue
		}
		switch v := value.(type) {
		case int:
			total += v
		case float64:
			// Scores arriving through JSON decode as float64.
			total += int(v)
		}
	}

	res.SetStdout(fmt.Sprintf("Your score is %d", total))
	return res, nil
}

// GameSettings configures a Zanzibar game.
type GameSettings struct {
	NbLaunch int
}

// Zanzibar chains NbLaunch dice rolls and a final score display.
type Zanzibar struct {
	*execution.OperationBase[GameSettings, Context]

	roll func() int
}

var _ execution.Operation = (*Zanzibar)(nil)

// GameOption configures a Zanzibar game beyond its base options.
type GameOption func(*Zanzibar)

// WithGameRollFunc pins the roll outcome for every dice task in the game.
func WithGameRollFunc(roll func() int) GameOption {
	return func(g *Zanzibar) { g.roll = roll }
}

// NewZanzibar creates a game with the given settings.
func NewZanzibar(settings GameSettings, meta Context, opts ...execution.BaseOption) *Zanzibar {
	return &Zanzibar{OperationBase: execution.NewOperationBase(ZanzibarPath, settings, meta, opts...)}
}

// Configure applies game options after construction.
func (g *Zanzibar) Configure(opts ...GameOption) *Zanzibar {
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// BuildTasks fans out one roll per launch followed by the score display.
func (g *Zanzibar) BuildTasks(ctx context.Context) ([]execution.Task, error) {
	meta := *g.Metadata()
	tasks := make([]execution.Task, 0, g.Params().NbLaunch+1)
	for launch := 1; launch <= g.Params().NbLaunch; launch++ {
		roll := NewDiceRoll(RollParams{LaunchNumber: launch}, meta, execution.WithLogger(g.Logger()))
		if g.roll != nil {
			roll.roll = g.roll
		}
		tasks = append(tasks, roll)
	}
	tasks = append(tasks, NewDisplayScore(meta, execution.WithLogger(g.Logger())))
	return tasks, nil
}

// Play builds and executes a full game, returning the final accumulated
// result. The result reports the failure when a roll was not regulatory.
func Play(ctx context.Context, nbLaunch int, log *logger.Logger, opts ...GameOption) execution.Result {
	game := NewZanzibar(GameSettings{NbLaunch: nbLaunch}, Context{Env: "development"},
		execution.WithLogger(log)).Configure(opts...)
	if _, err := execution.Build(ctx, game); err != nil {
		return execution.ResultFromError(err, execution.WithUUID(game.UUID()))
	}
	return execution.Execute(ctx, game, nil)
}
