package exchange

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/BullionBear/aggbook/pkg/book"
	"github.com/BullionBear/aggbook/pkg/book/decode"
)

func init() {
	Register(book.ExchangeBinance, func(cfg Config) Client {
		return NewBinance(cfg)
	})
}

// Binance streams the partial book depth stream. The stream carries full
// top-d snapshots every 100ms, and the bids and asks sit at the top level
// of the payload. No subscription handshake is required; the stream is
// encoded in the URL path.
type Binance struct {
	cfg Config
}

func NewBinance(cfg Config) *Binance {
	return &Binance{cfg: cfg}
}

func (b *Binance) Exchange() book.Exchange {
	return book.ExchangeBinance
}

func (b *Binance) BuildURL() string {
	return fmt.Sprintf("%s/%s@depth%d@100ms", b.cfg.BaseURL, b.cfg.Symbol, b.cfg.Depth)
}

func (b *Binance) Connect(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return conn, nil
}

func (b *Binance) Decode(payload []byte) ([]book.Level, []book.Level, error) {
	return decode.Decode(b.cfg.Depth, payload,
		func(root map[string]any) any { return root["bids"] },
		func(root map[string]any) any { return root["asks"] },
	)
}
