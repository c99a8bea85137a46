package exchange

import (
	"context"
	"fmt"

	"github.com/BullionBear/aggbook/pkg/book"
	"github.com/BullionBear/aggbook/pkg/mq"
)

// Constructor builds the venue-specific client for a Config.
type Constructor func(cfg Config) Client

var constructors = map[book.Exchange]Constructor{}

// Register installs a constructor for an exchange. Adapters register
// themselves from init.
func Register(ex book.Exchange, constructor Constructor) {
	constructors[ex] = constructor
}

// Start validates the configuration, constructs the adapter for the
// requested exchange and spawns its run loop. The returned Runner is the
// handle for connection-state inspection; the loop itself ends with ctx.
// An unregistered exchange is a programming error surfaced to the caller.
func Start(ctx context.Context, ex book.Exchange, cfg Config, out mq.MessageQueue[book.Snapshot], opts ...RunnerOption) (*Runner, error) {
	constructor, ok := constructors[ex]
	if !ok {
		return nil, fmt.Errorf("unsupported exchange: %s", ex)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", ex, err)
	}
	runner := NewRunner(constructor(cfg), cfg, out, opts...)
	go runner.Run(ctx)
	return runner, nil
}
