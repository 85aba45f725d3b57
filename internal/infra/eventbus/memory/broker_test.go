package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/taskflow/internal/domain/execution"
)

func TestPublishAndSubscribe(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	ctx := context.Background()

	expected := execution.NewMessage("hello.Hello",
		execution.WithMessageParams(map[string]any{"user": "John"}),
	)

	var received []execution.Message
	err := broker.Subscribe(ctx, []string{"hello.Hello"}, func(ctx context.Context, msg execution.Message) error {
		received = append(received, msg)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, expected))

	require.Len(t, received, 1)
	assert.Equal(t, expected.UUID(), received[0].UUID())
	assert.Equal(t, map[string]any{"user": "John"}, received[0].Params())
}

func TestEntrypointFiltering(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	ctx := context.Background()

	var helloCount, diceCount, allCount int
	require.NoError(t, broker.Subscribe(ctx, []string{"hello.Hello"}, func(ctx context.Context, msg execution.Message) error {
		helloCount++
		return nil
	}))
	require.NoError(t, broker.Subscribe(ctx, []string{"dice.Roll"}, func(ctx context.Context, msg execution.Message) error {
		diceCount++
		return nil
	}))
	require.NoError(t, broker.Subscribe(ctx, nil, func(ctx context.Context, msg execution.Message) error {
		allCount++
		return nil
	}))

	require.NoError(t, broker.Publish(ctx, execution.NewMessage("hello.Hello")))
	require.NoError(t, broker.Publish(ctx, execution.NewMessage("dice.Roll")))
	require.NoError(t, broker.Publish(ctx, execution.NewMessage("dice.DisplayScore")))

	assert.Equal(t, 1, helloCount)
	assert.Equal(t, 1, diceCount)
	assert.Equal(t, 3, allCount)
}

func TestMultipleSubscribers(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	ctx := context.Background()

	const subscriberCount = 3
	var deliveries int
	for i := 0; i < subscriberCount; i++ {
		err := broker.Subscribe(ctx, []string{"hello.Hello"}, func(ctx context.Context, msg execution.Message) error {
			deliveries++
			return nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, broker.Publish(ctx, execution.NewMessage("hello.Hello")))
	assert.Equal(t, subscriberCount, deliveries)
}

func TestHandlerError(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	ctx := context.Background()
	expectedErr := errors.New("handler error")

	err := broker.Subscribe(ctx, []string{"hello.Hello"}, func(ctx context.Context, msg execution.Message) error {
		return expectedErr
	})
	require.NoError(t, err)

	err = broker.Publish(ctx, execution.NewMessage("hello.Hello"))
	assert.ErrorIs(t, err, expectedErr)
}

func TestNilHandlerRejected(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	err := broker.Subscribe(context.Background(), []string{"hello.Hello"}, nil)
	assert.Error(t, err)
}

func TestContextCancellation(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())

	// Cancel context before publishing.
	cancel()

	err := broker.Publish(ctx, execution.NewMessage("hello.Hello"))
	assert.ErrorIs(t, err, context.Canceled)

	err = broker.Subscribe(ctx, []string{"hello.Hello"}, func(ctx context.Context, msg execution.Message) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClose(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	ctx := context.Background()

	require.NoError(t, broker.Subscribe(ctx, nil, func(ctx context.Context, msg execution.Message) error {
		t.Fatal("handler should not run after close")
		return nil
	}))

	require.NoError(t, broker.Close())

	err := broker.Publish(ctx, execution.NewMessage("hello.Hello"))
	assert.Error(t, err)
}
