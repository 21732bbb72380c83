package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_Success(t *testing.T) {
	err := Do(context.Background(), func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}

func TestDo_RetrySuccess(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, WithMaxAttempts(3), WithBackoff(Fixed(time.Millisecond)))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_MaxAttempts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("persistent error")
	}, WithMaxAttempts(4), WithBackoff(Fixed(time.Millisecond)))

	assert.EqualError(t, err, "persistent error")
	assert.Equal(t, 4, attempts)
}

func TestBackoff_Next(t *testing.T) {
	assert.Equal(t, 50*time.Millisecond, Fixed(50*time.Millisecond).Next(7))

	lin := Linear(10*time.Millisecond, 25*time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, lin.Next(0))
	assert.Equal(t, 20*time.Millisecond, lin.Next(1))
	assert.Equal(t, 25*time.Millisecond, lin.Next(2))

	exp := Exponential(time.Second, 5*time.Second)
	assert.Equal(t, time.Second, exp.Next(0))
	assert.Equal(t, 2*time.Second, exp.Next(1))
	assert.Equal(t, 4*time.Second, exp.Next(2))
	assert.Equal(t, 5*time.Second, exp.Next(3))
	assert.Equal(t, 5*time.Second, exp.Next(100))
}

func TestDo_CustomRetryIf(t *testing.T) {
	attempts := 0
	retryable := errors.New("retryable")
	fatal := errors.New("non-retryable")

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return retryable
		}
		return fatal
	}, WithMaxAttempts(3), WithBackoff(Fixed(time.Millisecond)), WithRetryIf(func(err error) bool {
		return errors.Is(err, retryable)
	}))

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 2, attempts)
}

func TestDo_Permanent(t *testing.T) {
	attempts := 0
	notFound := errors.New("plugin not found in registry")

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return Permanent(notFound)
	}, WithMaxAttempts(5), WithBackoff(Fixed(time.Millisecond)))

	assert.Same(t, notFound, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_Notify(t *testing.T) {
	var seen []int
	_ = Do(context.Background(), func(ctx context.Context) error {
		return errors.New("locked")
	}, WithMaxAttempts(3), WithBackoff(Fixed(time.Millisecond)), WithNotify(func(attempt int, err error, wait time.Duration) {
		seen = append(seen, attempt)
		assert.EqualError(t, err, "locked")
		assert.Equal(t, time.Millisecond, wait)
	}))

	assert.Equal(t, []int{1, 2}, seen)
}

func TestDo_ContextCancellationDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	attempts := 0
	err := Do(ctx, func(ctx context.Context) error {
		attempts++
		return errors.New("error")
	}, WithMaxAttempts(5), WithBackoff(Fixed(time.Second)))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDo_MaxElapsedTime(t *testing.T) {
	start := time.Now()
	err := Do(context.Background(), func(ctx context.Context) error {
		return errors.New("error")
	}, WithMaxAttempts(100), WithBackoff(Fixed(20*time.Millisecond)), WithMaxElapsedTime(100*time.Millisecond))

	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDo_NoRetryOnContextError(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return context.Canceled
	}, WithMaxAttempts(3))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDo_ZeroMaxAttemptsKeepsDefault(t *testing.T) {
	attempts := 0
	_ = Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("error")
	}, WithMaxAttempts(0), WithBackoff(Fixed(time.Millisecond)))

	assert.Equal(t, 3, attempts)
}

func TestFullJitter(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := FullJitter(10 * time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, 10*time.Millisecond)
	}
	assert.Equal(t, time.Duration(0), FullJitter(0))
}
