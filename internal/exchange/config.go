package exchange

import (
	"fmt"

	"github.com/BullionBear/aggbook/pkg/book"
)

// MaxDepth is the largest per-venue depth any adapter may be configured
// with. Venue partial-book streams top out at this many levels per side.
const MaxDepth = 10

// Config carries everything an adapter needs to subscribe to one venue's
// depth stream.
type Config struct {
	BaseURL string
	Symbol  book.Symbol
	Depth   int
}

// Validate checks the configuration before an adapter is constructed.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base url cannot be empty")
	}
	if c.Symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if c.Depth <= 0 || c.Depth > MaxDepth {
		return fmt.Errorf("depth must be in [1, %d], got %d", MaxDepth, c.Depth)
	}
	return nil
}
