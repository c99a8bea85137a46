package inprocq

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BullionBear/aggbook/pkg/mq"
)

func TestSendRecvOrder(t *testing.T) {
	q := NewInprocQueue[int]()

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Send(i))
	}
	assert.Equal(t, uint64(10), q.Size())

	for i := 0; i < 10; i++ {
		v, err := q.Recv()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
}

func TestRecvBlocksUntilSend(t *testing.T) {
	q := NewInprocQueue[string]()

	done := make(chan string)
	go func() {
		v, err := q.Recv()
		require.NoError(t, err)
		done <- v
	}()

	require.NoError(t, q.Send("hello"))
	assert.Equal(t, "hello", <-done)
}

func TestCloseDrains(t *testing.T) {
	q := NewInprocQueue[int]()
	require.NoError(t, q.Send(1))
	require.NoError(t, q.Send(2))
	q.Close()

	v, err := q.Recv()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = q.Recv()
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = q.Recv()
	assert.ErrorIs(t, err, mq.ErrClosed)
}

func TestSendAfterClose(t *testing.T) {
	q := NewInprocQueue[int]()
	q.Close()
	assert.ErrorIs(t, q.Send(1), mq.ErrClosed)
}

func TestConcurrentProducersPreservePerProducerOrder(t *testing.T) {
	q := NewInprocQueue[[2]int]()

	const producers = 4
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				require.NoError(t, q.Send([2]int{p, i}))
			}
		}(p)
	}
	wg.Wait()
	q.Close()

	last := map[int]int{}
	for {
		v, err := q.Recv()
		if err != nil {
			break
		}
		p, i := v[0], v[1]
		if prev, ok := last[p]; ok {
			assert.Equal(t, prev+1, i, "producer %d out of order", p)
		} else {
			assert.Equal(t, 0, i)
		}
		last[p] = i
	}
	for p := 0; p < producers; p++ {
		assert.Equal(t, perProducer-1, last[p])
	}
}
