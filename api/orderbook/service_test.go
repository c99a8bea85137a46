package orderbookapi

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/BullionBear/aggbook/internal/bus"
	"github.com/BullionBear/aggbook/pkg/book"
	pb "github.com/BullionBear/aggbook/pkg/protobuf/orderbook"
)

type fakeStream struct {
	grpc.ServerStream
	ctx     context.Context
	mu      sync.Mutex
	sent    []*pb.Summary
	sendErr error
}

func (s *fakeStream) Context() context.Context { return s.ctx }

func (s *fakeStream) Send(m *pb.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, m)
	return nil
}

func (s *fakeStream) summaries() []*pb.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*pb.Summary, len(s.sent))
	copy(out, s.sent)
	return out
}

func testSummary() book.Summary {
	return book.Summary{
		Spread: 0.4,
		Bids: []book.ExchangeLevel{
			{Exchange: book.ExchangeBitstamp, Level: book.Level{Price: 100.5, Amount: 2}},
			{Exchange: book.ExchangeBinance, Level: book.Level{Price: 100, Amount: 1}},
		},
		Asks: []book.ExchangeLevel{
			{Exchange: book.ExchangeBitstamp, Level: book.Level{Price: 100.9, Amount: 2}},
			{Exchange: book.ExchangeBinance, Level: book.Level{Price: 101, Amount: 1}},
		},
	}
}

func TestToProto(t *testing.T) {
	got := ToProto(testSummary())

	assert.Equal(t, 0.4, got.GetSpread())
	require.Len(t, got.GetBids(), 2)
	assert.Equal(t, "Bitstamp", got.GetBids()[0].GetExchange())
	assert.Equal(t, 100.5, got.GetBids()[0].GetPrice())
	assert.Equal(t, 2.0, got.GetBids()[0].GetAmount())
	assert.Equal(t, "Binance", got.GetBids()[1].GetExchange())
	require.Len(t, got.GetAsks(), 2)
	assert.Equal(t, 100.9, got.GetAsks()[0].GetPrice())
}

func TestBookSummaryForwardsUntilDisconnect(t *testing.T) {
	b := bus.New(16)
	service := NewService(b)

	ctx, cancel := context.WithCancel(context.Background())
	stream := &fakeStream{ctx: ctx}

	done := make(chan error, 1)
	go func() {
		done <- service.BookSummary(&pb.Empty{}, stream)
	}()

	// Let the service attach its subscriber first: the bus only delivers
	// summaries published after subscription.
	time.Sleep(10 * time.Millisecond)
	b.Publish(testSummary())
	b.Publish(book.Summary{Spread: 1.0})

	assert.Eventually(t, func() bool {
		return len(stream.summaries()) == 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	sent := stream.summaries()
	assert.Equal(t, 0.4, sent[0].GetSpread())
	assert.Equal(t, 1.0, sent[1].GetSpread())
}

func TestBookSummaryEndsWhenBusCloses(t *testing.T) {
	b := bus.New(16)
	service := NewService(b)
	stream := &fakeStream{ctx: context.Background()}

	done := make(chan error, 1)
	go func() {
		done <- service.BookSummary(&pb.Empty{}, stream)
	}()

	time.Sleep(10 * time.Millisecond)
	b.Close()
	assert.NoError(t, <-done)
}

func TestBookSummaryEndsOnSendFailure(t *testing.T) {
	b := bus.New(16)
	service := NewService(b)
	sendErr := errors.New("transport broken")
	stream := &fakeStream{ctx: context.Background(), sendErr: sendErr}

	done := make(chan error, 1)
	go func() {
		done <- service.BookSummary(&pb.Empty{}, stream)
	}()

	time.Sleep(10 * time.Millisecond)
	b.Publish(testSummary())
	assert.ErrorIs(t, <-done, sendErr)
}

func TestBookSummarySkipsLagSilently(t *testing.T) {
	b := bus.New(4)
	service := NewService(b)

	// Publish well past the ring's capacity in one burst, so a subscriber
	// that falls behind is told it lagged and has to carry on.
	ctx, cancel := context.WithCancel(context.Background())
	stream := &fakeStream{ctx: ctx}

	done := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		close(started)
		done <- service.BookSummary(&pb.Empty{}, stream)
	}()
	<-started
	time.Sleep(10 * time.Millisecond)

	for i := 0; i < 20; i++ {
		b.Publish(book.Summary{Spread: float64(i)})
	}

	// The stream keeps going after the gap: whatever arrives is a suffix
	// of the published sequence, in order.
	assert.Eventually(t, func() bool {
		sent := stream.summaries()
		return len(sent) > 0 && sent[len(sent)-1].GetSpread() == 19.0
	}, 5*time.Second, 10*time.Millisecond)

	sent := stream.summaries()
	for i := 1; i < len(sent); i++ {
		assert.Less(t, sent[i-1].GetSpread(), sent[i].GetSpread())
	}

	cancel()
	<-done
}
