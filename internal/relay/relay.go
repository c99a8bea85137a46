// Package relay mirrors every published summary to a NATS JetStream
// subject for out-of-process consumers.
package relay

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"
	"google.golang.org/protobuf/proto"

	orderbookapi "github.com/BullionBear/aggbook/api/orderbook"
	"github.com/BullionBear/aggbook/internal/bus"
	"github.com/BullionBear/aggbook/internal/config"
	"github.com/BullionBear/aggbook/pkg/logger"
)

// Relay owns one NATS connection; Run consumes one bus subscriber. Publish
// failures are logged and dropped; the relay must never stall the pipeline.
type Relay struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
}

// New connects to the NATS server named by the connection config.
func New(conn *config.ConnectionConfig) (*Relay, error) {
	nc, err := nats.Connect(conn.URL)
	if err != nil {
		return nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}
	return &Relay{nc: nc, js: js, subject: conn.Subject}, nil
}

// Run forwards summaries from the bus until the bus closes or ctx ends.
func (r *Relay) Run(ctx context.Context, subscriber *bus.Subscriber) {
	for {
		summary, err := subscriber.Recv(ctx)
		var lagged *bus.LaggedError
		switch {
		case errors.As(err, &lagged):
			logger.Log.Warn().Uint64("missed", lagged.Missed).Msg("relay lagged")
			continue
		case err != nil:
			logger.Log.Info().Msg("relay stopped")
			return
		}

		data, err := proto.Marshal(orderbookapi.ToProto(summary))
		if err != nil {
			logger.Log.Error().Err(err).Msg("failed to marshal summary")
			continue
		}
		if _, err := r.js.Publish(r.subject, data); err != nil {
			logger.Log.Warn().Err(err).Str("subject", r.subject).Msg("failed to publish summary")
		}
	}
}

// Close tears down the NATS connection.
func (r *Relay) Close() {
	r.nc.Close()
}
