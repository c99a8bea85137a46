package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BullionBear/aggbook/pkg/book"
)

func summary(spread float64) book.Summary {
	return book.Summary{Spread: spread}
}

func TestFastSubscriberSeesFullSequence(t *testing.T) {
	b := New(8)
	s := b.Subscribe()

	for i := 0; i < 5; i++ {
		b.Publish(summary(float64(i)))
	}
	for i := 0; i < 5; i++ {
		got, err := s.Recv(context.Background())
		require.NoError(t, err)
		assert.Equal(t, float64(i), got.Spread)
	}
}

func TestRecvBlocksUntilPublish(t *testing.T) {
	b := New(8)
	s := b.Subscribe()

	done := make(chan book.Summary)
	go func() {
		got, err := s.Recv(context.Background())
		require.NoError(t, err)
		done <- got
	}()

	time.Sleep(10 * time.Millisecond)
	b.Publish(summary(42))
	assert.Equal(t, 42.0, (<-done).Spread)
}

func TestSlowSubscriberLagsWithoutStallingPublisher(t *testing.T) {
	b := New(10)
	fast := b.Subscribe()

	// Publishing far past capacity must never block, whatever the
	// subscribers are doing.
	published := make(chan struct{})
	go func() {
		defer close(published)
		for i := 0; i < 100; i++ {
			b.Publish(summary(float64(i)))
		}
	}()
	select {
	case <-published:
	case <-time.After(5 * time.Second):
		t.Fatal("publisher stalled")
	}

	// The fast subscriber was attached before publishing but reads late;
	// it lags like any other slow consumer.
	_, err := fast.Recv(context.Background())
	var lagged *LaggedError
	require.ErrorAs(t, err, &lagged)
	assert.Equal(t, uint64(90), lagged.Missed)

	// After the lag signal the subscriber resumes at the oldest retained
	// summary and sees a gap-free suffix.
	for i := 90; i < 100; i++ {
		got, err := fast.Recv(context.Background())
		require.NoError(t, err)
		assert.Equal(t, float64(i), got.Spread)
	}
}

func TestNewSubscriberSeesOnlyNewSummaries(t *testing.T) {
	b := New(8)
	b.Publish(summary(1))
	b.Publish(summary(2))

	s := b.Subscribe()
	b.Publish(summary(3))

	got, err := s.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.Spread)
}

func TestCloseCompletesReceivers(t *testing.T) {
	b := New(8)
	s := b.Subscribe()

	errCh := make(chan error)
	go func() {
		_, err := s.Recv(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	b.Close()
	assert.ErrorIs(t, <-errCh, ErrClosed)
}

func TestCloseDrainsRetained(t *testing.T) {
	b := New(8)
	s := b.Subscribe()
	b.Publish(summary(1))
	b.Close()

	got, err := s.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Spread)

	_, err = s.Recv(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRecvHonorsContext(t *testing.T) {
	b := New(8)
	s := b.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIndependentCursors(t *testing.T) {
	b := New(8)
	s1 := b.Subscribe()
	s2 := b.Subscribe()

	b.Publish(summary(1))
	b.Publish(summary(2))

	got, err := s1.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Spread)
	got, err = s1.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.Spread)

	// s2's cursor is untouched by s1's reads.
	got, err = s2.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Spread)
}
