package exchange

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/BullionBear/aggbook/pkg/book"
	"github.com/BullionBear/aggbook/pkg/logger"
	"github.com/BullionBear/aggbook/pkg/mq"
)

// State is the connection state of one venue adapter.
type State string

const (
	StateDisconnected State = "disconnected"
	StateSubscribing  State = "subscribing"
	StateStreaming    State = "streaming"
)

// Client is the venue-specific half of an adapter. Implementations build
// the stream URL, open the connection (including any subscription
// handshake) and decode text frames; the shared Runner owns everything
// else.
type Client interface {
	Exchange() book.Exchange

	// BuildURL derives the stream URL from the adapter configuration.
	BuildURL() string

	// Connect dials url and performs the venue's subscription handshake,
	// if it has one. The returned connection is ready to stream depth
	// frames.
	Connect(ctx context.Context, url string) (*websocket.Conn, error)

	// Decode parses one text frame into the two book sides.
	Decode(payload []byte) (bids, asks []book.Level, err error)
}

// Runner drives one venue adapter: connect, stream, reconnect, forever.
// Decoded snapshots are published to the shared fan-in queue; the queue is
// unbounded so a Runner never blocks on the aggregator.
type Runner struct {
	client Client
	cfg    Config
	out    mq.MessageQueue[book.Snapshot]
	log    zerolog.Logger
	state  atomic.Value

	backoffBase time.Duration
	backoffMax  time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithBackoffSettings overrides the reconnect backoff window.
func WithBackoffSettings(base, max time.Duration) RunnerOption {
	return func(r *Runner) {
		r.backoffBase = base
		r.backoffMax = max
	}
}

// NewRunner wraps a venue client with the shared run loop.
func NewRunner(client Client, cfg Config, out mq.MessageQueue[book.Snapshot], opts ...RunnerOption) *Runner {
	r := &Runner{
		client:      client,
		cfg:         cfg,
		out:         out,
		log:         logger.Log.With().Str("exchange", client.Exchange().String()).Logger(),
		backoffBase: 1 * time.Second,
		backoffMax:  30 * time.Second,
	}
	r.state.Store(StateDisconnected)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State reports the current connection state for the ops surface.
func (r *Runner) State() State {
	return r.state.Load().(State)
}

// Run connects to the venue and streams frames until ctx is cancelled.
// Every disconnect, whatever its cause, leads back to a reconnect attempt:
// a stream that ends is redialled at once, and a failed dial is retried
// after an exponentially growing backoff interval.
func (r *Runner) Run(ctx context.Context) {
	url := r.client.BuildURL()
	backoff := r.backoffBase

	for ctx.Err() == nil {
		r.state.Store(StateSubscribing)
		r.log.Info().Str("url", url).Msg("connecting")

		conn, err := r.client.Connect(ctx, url)
		if err != nil {
			r.state.Store(StateDisconnected)
			r.log.Error().Err(err).Dur("backoff", backoff).Msg("connect failed")
			if !sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, r.backoffMax)
			continue
		}

		backoff = r.backoffBase
		r.state.Store(StateStreaming)
		r.log.Info().Str("url", url).Msg("streaming")

		r.processFrames(ctx, conn)
		conn.Close()
		r.state.Store(StateDisconnected)
	}
}

// processFrames consumes the stream until it ends. Decode errors are
// non-fatal; a binary frame or a transport error ends the current attempt.
func (r *Runner) processFrames(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	conn.SetPingHandler(func(appData string) error {
		r.log.Debug().Msg("ping")
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})
	conn.SetPongHandler(func(string) error {
		r.log.Debug().Msg("pong")
		return nil
	})

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				r.log.Warn().Err(err).Msg("stream ended")
			}
			return
		}

		switch msgType {
		case websocket.TextMessage:
			if len(payload) == 0 {
				continue
			}
			bids, asks, err := r.client.Decode(payload)
			if err != nil {
				r.log.Warn().Err(err).Msg("dropping undecodable frame")
				continue
			}
			r.publish(bids, asks)
		case websocket.BinaryMessage:
			r.log.Error().Msg("unexpected binary frame, reconnecting")
			return
		}
	}
}

func (r *Runner) publish(bids, asks []book.Level) {
	snapshot := book.Snapshot{
		Exchange: r.client.Exchange(),
		Symbol:   r.cfg.Symbol,
		Bids:     bids,
		Asks:     asks,
	}
	if err := r.out.Send(snapshot); err != nil {
		r.log.Warn().Err(err).Msg("aggregator gone, dropping snapshot")
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	current *= 2
	if current > max {
		return max
	}
	return current
}
