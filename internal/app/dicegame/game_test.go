package dicegame

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/taskflow/internal/domain/execution"
	"github.com/ahrav/taskflow/pkg/common/logger"
)

// fixedRolls returns a roll func that replays the given sequence.
func fixedRolls(rolls ...int) func() int {
	i := 0
	return func() int {
		roll := rolls[i%len(rolls)]
		i++
		return roll
	}
}

func TestDiceRoll_Scoring(t *testing.T) {
	t.Parallel()

	tests := []struct {
		roll  int
		score int
	}{
		{roll: 1, score: 100},
		{roll: 2, score: 2},
		{roll: 3, score: 3},
		{roll: 4, score: 4},
		{roll: 5, score: 5},
		{roll: 6, score: 60},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(fmt.Sprintf("roll of %d scores %d", tt.roll, tt.score), func(t *testing.T) {
			t.Parallel()

			task := NewDiceRoll(RollParams{LaunchNumber: 1}, DefaultContext())
			task.roll = fixedRolls(tt.roll)

			res := execution.Execute(context.Background(), task, nil)

			require.False(t, res.IsError())
			assert.Equal(t, execution.StatusSuccess, task.Status())

			stdout, ok := res.Stdout()
			require.True(t, ok)
			assert.Equal(t, fmt.Sprintf("Roll 1: you made a %d", tt.roll), stdout)

			rollValue, ok := res.Value("LaunchNumber-1")
			require.True(t, ok)
			assert.Equal(t, tt.roll, rollValue)

			score, ok := res.Value("Score-1")
			require.True(t, ok)
			assert.Equal(t, tt.score, score)
		})
	}
}

func TestDiceRoll_NonRegulatoryDice(t *testing.T) {
	t.Parallel()

	task := NewDiceRoll(RollParams{LaunchNumber: 1}, DefaultContext())
	task.roll = fixedRolls(7)

	res := execution.Execute(context.Background(), task, nil)

	assert.True(t, res.IsError())
	assert.Equal(t, execution.CodeUnexpected, res.Retcode())
	assert.Equal(t, execution.StatusFailed, task.Status())

	stderr, ok := res.Stderr()
	require.True(t, ok)
	assert.Equal(t, "non-regulatory dice!", stderr)
}

func TestDiceRoll_RequiresLaunchNumber(t *testing.T) {
	t.Parallel()

	task := NewDiceRoll(RollParams{}, DefaultContext())
	res := execution.Execute(context.Background(), task, nil)

	assert.True(t, res.IsError())
	assert.Equal(t, execution.CodeInvalidParams, res.Retcode())
}

func TestDisplayScore_SumsScores(t *testing.T) {
	t.Parallel()

	seed := execution.NewResult(execution.WithRetval(map[string]any{
		"Score-1":        2,
		"Score-2":        60,
		"Score-3":        float64(100), // scores decoded from JSON arrive as float64
		"LaunchNumber-1": 2,
		"unrelated":      "ignored",
	}))

	task := NewDisplayScore(DefaultContext())
	res := execution.Execute(context.Background(), task, &seed)

	require.False(t, res.IsError())
	stdout, ok := res.Stdout()
	require.True(t, ok)
	assert.Equal(t, "Your score is 162", stdout)
}

func TestZanzibar_FullGame(t *testing.T) {
	t.Parallel()

	res := Play(context.Background(), 3, logger.Noop(), WithGameRollFunc(fixedRolls(2, 6, 1)))

	require.False(t, res.IsError())

	stdout, ok := res.Stdout()
	require.True(t, ok)
	assert.Equal(t, "Your score is 162", stdout)

	for launch := 1; launch <= 3; launch++ {
		_, ok := res.Value(fmt.Sprintf("Score-%d", launch))
		assert.True(t, ok, "missing score for launch %d", launch)
	}
}

func TestZanzibar_NonRegulatoryDiceAbortsGame(t *testing.T) {
	t.Parallel()

	game := NewZanzibar(GameSettings{NbLaunch: 3}, DefaultContext()).
		Configure(WithGameRollFunc(fixedRolls(2, 7, 4)))

	_, err := execution.Build(context.Background(), game)
	require.NoError(t, err)

	res := execution.Execute(context.Background(), game, nil)

	assert.True(t, res.IsError())
	assert.Equal(t, execution.StatusFailed, game.Status())

	stderr, ok := res.Stderr()
	require.True(t, ok)
	assert.Equal(t, "non-regulatory dice!", stderr)

	// The first roll landed before the failure; its score stays on the child,
	// while the game's failure result carries only the error. The game routes
	// the failure itself, leaving the bad roll mid-run and later children
	// untouched.
	_, ok = res.Value("Score-1")
	assert.False(t, ok)
	tasks := game.Tasks()
	require.Len(t, tasks, 4)
	score, ok := tasks[0].Result().Value("Score-1")
	require.True(t, ok)
	assert.Equal(t, 2, score)
	assert.Equal(t, execution.StatusSuccess, tasks[0].Status())
	assert.Equal(t, execution.StatusRunning, tasks[1].Status())
	assert.Equal(t, execution.StatusPending, tasks[2].Status())
	assert.Equal(t, execution.StatusPending, tasks[3].Status())
}

func TestZanzibar_BuildFansOutRollsPlusDisplay(t *testing.T) {
	t.Parallel()

	game := NewZanzibar(GameSettings{NbLaunch: 5}, DefaultContext())
	_, err := execution.Build(context.Background(), game)
	require.NoError(t, err)

	tasks := game.Tasks()
	require.Len(t, tasks, 6)
	for i := 0; i < 5; i++ {
		roll, ok := tasks[i].(*DiceRoll)
		require.True(t, ok)
		assert.Equal(t, i+1, roll.Params().LaunchNumber)
	}
	_, ok := tasks[5].(*DisplayScore)
	assert.True(t, ok)
}
