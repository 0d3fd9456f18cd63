package notify

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestQueueDrainOrder(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	q := NewQueue(WithClock(func() time.Time { return fixed }))
	q.Error("Please provide valid credentials.")
	q.Success("Form Submitted Successfully!")

	toasts := q.Drain()
	require.Len(t, toasts, 2)
	require.Equal(t, LevelError, toasts[0].Level)
	require.Equal(t, "Form Submitted Successfully!", toasts[1].Message)
	require.Equal(t, fixed, toasts[0].CreatedAt)
	_, err := uuid.Parse(toasts[0].ID)
	require.NoError(t, err)
	require.NotEqual(t, toasts[0].ID, toasts[1].ID)

	require.Empty(t, q.Drain())
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	t.Parallel()

	q := NewQueue(WithCapacity(2))
	q.Info("one")
	q.Info("two")
	q.Info("three")

	require.Equal(t, 2, q.Len())
	toasts := q.Drain()
	require.Equal(t, "two", toasts[0].Message)
	require.Equal(t, "three", toasts[1].Message)
}

func TestQueueSubscribers(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	var got []string
	cancel := q.Subscribe(func(toast Toast) { got = append(got, toast.Message) })

	q.Success("first")
	cancel()
	q.Success("second")

	require.Equal(t, []string{"first"}, got)
	require.Equal(t, 2, q.Len(), "subscribers do not consume the buffer")
}
