// A minimal BookSummary consumer. It dials the aggregation server and logs
// every summary it receives; rendering is left to real clients.
package main

import (
	"context"
	"flag"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/BullionBear/aggbook/pkg/logger"
	pb "github.com/BullionBear/aggbook/pkg/protobuf/orderbook"
)

func main() {
	address := flag.String("address", "localhost:50051", "Server address")
	flag.Parse()

	logger.InitLogger(true)

	conn, err := grpc.NewClient(*address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logger.Log.Error().Err(err).Msg("failed to connect")
		os.Exit(1)
	}
	defer conn.Close()

	client := pb.NewOrderbookAggregatorClient(conn)
	stream, err := client.BookSummary(context.Background(), &pb.Empty{})
	if err != nil {
		logger.Log.Error().Err(err).Msg("failed to subscribe")
		os.Exit(1)
	}

	for {
		summary, err := stream.Recv()
		if err != nil {
			logger.Log.Error().Err(err).Msg("stream ended")
			os.Exit(1)
		}
		event := logger.Log.Info().Float64("spread", summary.GetSpread())
		if bids := summary.GetBids(); len(bids) > 0 {
			event = event.
				Str("bestBidExchange", bids[0].GetExchange()).
				Float64("bestBid", bids[0].GetPrice())
		}
		if asks := summary.GetAsks(); len(asks) > 0 {
			event = event.
				Str("bestAskExchange", asks[0].GetExchange()).
				Float64("bestAsk", asks[0].GetPrice())
		}
		event.Msg("summary")
	}
}
