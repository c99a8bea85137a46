package main

import (
	"flag"
	"net"
	"os"
	"syscall"
	"time"

	"google.golang.org/grpc"

	orderbookapi "github.com/BullionBear/aggbook/api/orderbook"
	"github.com/BullionBear/aggbook/internal/aggregator"
	"github.com/BullionBear/aggbook/internal/bus"
	"github.com/BullionBear/aggbook/internal/config"
	"github.com/BullionBear/aggbook/internal/exchange"
	"github.com/BullionBear/aggbook/internal/ops"
	"github.com/BullionBear/aggbook/internal/relay"
	"github.com/BullionBear/aggbook/pkg/book"
	"github.com/BullionBear/aggbook/pkg/logger"
	"github.com/BullionBear/aggbook/pkg/mq/inprocq"
	pb "github.com/BullionBear/aggbook/pkg/protobuf/orderbook"
	"github.com/BullionBear/aggbook/pkg/shutdown"
)

func main() {
	symbol := flag.String("symbol", "ethbtc", "Trading symbol to aggregate")
	address := flag.String("address", ":50051", "gRPC listen address")
	opsAddress := flag.String("ops-address", "", "HTTP ops listen address (empty disables)")
	depth := flag.Int("depth", config.DefaultDepth, "Per-venue book depth")
	binanceURL := flag.String("binance-url", config.DefaultBinanceURL, "Binance websocket base URL")
	bitstampURL := flag.String("bitstamp-url", config.DefaultBitstampURL, "Bitstamp websocket base URL")
	natsURI := flag.String("nats-uri", "", "Optional NATS relay, e.g. 'nats://localhost:4222?stream=book&subject=book.summary'")
	development := flag.Bool("dev", false, "Human-friendly debug logging")
	flag.Parse()

	logger.InitLogger(*development)

	parsedSymbol, err := book.ParseSymbol(*symbol)
	if err != nil {
		logger.Log.Error().Err(err).Msg("invalid symbol")
		os.Exit(1)
	}

	conf := &config.Config{
		Symbol:      parsedSymbol,
		Address:     *address,
		OpsAddress:  *opsAddress,
		Depth:       *depth,
		BinanceURL:  *binanceURL,
		BitstampURL: *bitstampURL,
		NatsURI:     *natsURI,
		Development: *development,
	}
	if err := conf.Validate(); err != nil {
		logger.Log.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}

	run(conf)
}

func run(conf *config.Config) {
	logger.Log.Info().
		Str("symbol", conf.Symbol.String()).
		Str("address", conf.Address).
		Int("depth", conf.Depth).
		Msg("aggbook starting")

	down := shutdown.NewShutdown(logger.Log)

	snapshots := inprocq.NewInprocQueue[book.Snapshot]()
	summaries := bus.New(bus.DefaultCapacity)

	runners := startAdapters(conf, down, snapshots)

	aggregatorDone := make(chan struct{})
	go func() {
		defer close(aggregatorDone)
		aggregator.Run(snapshots, summaries)
	}()
	down.HookShutdownCallback("aggregator", func() {
		snapshots.Close()
		<-aggregatorDone
		summaries.Close()
	}, 10*time.Second)

	if conf.NatsURI != "" {
		startRelay(conf, down, summaries)
	}
	if conf.OpsAddress != "" {
		holder := &ops.Holder{}
		go holder.Watch(down.Context(), summaries.Subscribe())
		go ops.NewServer(holder, runners).Run(conf.OpsAddress)
	}

	startGRPC(conf, down, summaries)

	down.WaitForShutdown(syscall.SIGINT, syscall.SIGTERM)
}

func startAdapters(conf *config.Config, down *shutdown.Shutdown, snapshots *inprocq.InprocQueue[book.Snapshot]) map[book.Exchange]*exchange.Runner {
	configs := map[book.Exchange]exchange.Config{
		book.ExchangeBinance:  {BaseURL: conf.BinanceURL, Symbol: conf.Symbol, Depth: conf.Depth},
		book.ExchangeBitstamp: {BaseURL: conf.BitstampURL, Symbol: conf.Symbol, Depth: conf.Depth},
	}
	runners := make(map[book.Exchange]*exchange.Runner, len(configs))
	for _, ex := range book.Exchanges {
		runner, err := exchange.Start(down.Context(), ex, configs[ex], snapshots)
		if err != nil {
			logger.Log.Error().Err(err).Msg("failed to start adapter")
			os.Exit(1)
		}
		runners[ex] = runner
	}
	return runners
}

func startRelay(conf *config.Config, down *shutdown.Shutdown, summaries *bus.Bus) {
	conn, err := config.ParseConnectionString(conf.NatsURI)
	if err != nil {
		logger.Log.Error().Err(err).Msg("invalid NATS URI")
		os.Exit(1)
	}
	r, err := relay.New(conn)
	if err != nil {
		logger.Log.Error().Err(err).Msg("failed to connect to NATS")
		os.Exit(1)
	}
	go r.Run(down.Context(), summaries.Subscribe())
	down.HookShutdownCallback("relay", r.Close, 5*time.Second)
}

func startGRPC(conf *config.Config, down *shutdown.Shutdown, summaries *bus.Bus) {
	listener, err := net.Listen("tcp", conf.Address)
	if err != nil {
		logger.Log.Error().Err(err).Str("address", conf.Address).Msg("failed to listen")
		os.Exit(1)
	}

	server := grpc.NewServer()
	pb.RegisterOrderbookAggregatorServer(server, orderbookapi.NewService(summaries))
	down.HookShutdownCallback("grpc", server.GracefulStop, 10*time.Second)

	go func() {
		logger.Log.Info().Str("address", listener.Addr().String()).Msg("gRPC server listening")
		if err := server.Serve(listener); err != nil {
			logger.Log.Error().Err(err).Msg("gRPC server stopped")
		}
	}()
}
