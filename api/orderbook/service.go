// Package orderbookapi exposes the aggregated book over gRPC.
package orderbookapi

import (
	"errors"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/BullionBear/aggbook/internal/bus"
	"github.com/BullionBear/aggbook/pkg/book"
	"github.com/BullionBear/aggbook/pkg/logger"
	pb "github.com/BullionBear/aggbook/pkg/protobuf/orderbook"
)

// Service implements the OrderbookAggregator streaming service on top of
// the summary bus.
type Service struct {
	pb.UnimplementedOrderbookAggregatorServer
	bus *bus.Bus
}

func NewService(b *bus.Bus) *Service {
	return &Service{bus: b}
}

// BookSummary attaches a fresh bus subscriber and forwards summaries until
// the client goes away. A lagging subscriber silently skips the summaries
// it missed; only its own slowness costs it data, never the producer.
func (s *Service) BookSummary(_ *pb.Empty, stream grpc.ServerStreamingServer[pb.Summary]) error {
	subscriber := s.bus.Subscribe()
	log := logger.Log.With().Str("subscriber", uuid.New().String()).Logger()
	log.Info().Msg("subscriber attached")

	for {
		summary, err := subscriber.Recv(stream.Context())
		var lagged *bus.LaggedError
		switch {
		case errors.As(err, &lagged):
			log.Warn().Uint64("missed", lagged.Missed).Msg("subscriber lagged")
			continue
		case errors.Is(err, bus.ErrClosed):
			log.Info().Msg("bus closed, ending stream")
			return nil
		case err != nil:
			log.Info().Err(err).Msg("subscriber detached")
			return err
		}

		if err := stream.Send(ToProto(summary)); err != nil {
			log.Info().Err(err).Msg("subscriber send failed")
			return err
		}
	}
}

// ToProto converts a summary into the streaming wire model.
func ToProto(s book.Summary) *pb.Summary {
	return &pb.Summary{
		Spread: s.Spread,
		Bids:   toProtoLevels(s.Bids),
		Asks:   toProtoLevels(s.Asks),
	}
}

func toProtoLevels(levels []book.ExchangeLevel) []*pb.Level {
	out := make([]*pb.Level, 0, len(levels))
	for _, l := range levels {
		out = append(out, &pb.Level{
			Exchange: l.Exchange.String(),
			Price:    l.Level.Price,
			Amount:   l.Level.Amount,
		})
	}
	return out
}
