package exchange

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/BullionBear/aggbook/pkg/book"
	"github.com/BullionBear/aggbook/pkg/book/decode"
	"github.com/BullionBear/aggbook/pkg/logger"
)

func init() {
	Register(book.ExchangeBitstamp, func(cfg Config) Client {
		return NewBitstamp(cfg)
	})
}

// Bitstamp connects to the bare websocket endpoint and subscribes to the
// order_book channel explicitly. The server acknowledges the subscription
// with one frame before depth frames start; payload sides live under the
// "data" object.
type Bitstamp struct {
	cfg Config
}

type bitstampSubscription struct {
	Event string                   `json:"event"`
	Data  bitstampSubscriptionData `json:"data"`
}

type bitstampSubscriptionData struct {
	Channel string `json:"channel"`
}

func NewBitstamp(cfg Config) *Bitstamp {
	return &Bitstamp{cfg: cfg}
}

func (b *Bitstamp) Exchange() book.Exchange {
	return book.ExchangeBitstamp
}

func (b *Bitstamp) BuildURL() string {
	return b.cfg.BaseURL
}

func (b *Bitstamp) Connect(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if err := b.subscribe(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// subscribe sends the bts:subscribe event and consumes the acknowledgement
// frame. A failure here drops the connection so the run loop retries from
// scratch.
func (b *Bitstamp) subscribe(conn *websocket.Conn) error {
	msg, err := json.Marshal(bitstampSubscription{
		Event: "bts:subscribe",
		Data: bitstampSubscriptionData{
			Channel: fmt.Sprintf("order_book_%s", b.cfg.Symbol),
		},
	})
	if err != nil {
		return fmt.Errorf("marshal subscription: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("send subscription: %w", err)
	}
	_, ack, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read subscription ack: %w", err)
	}
	logger.Log.Info().
		Str("exchange", b.Exchange().String()).
		Str("ack", string(ack)).
		Msg("subscribed")
	return nil
}

func (b *Bitstamp) Decode(payload []byte) ([]book.Level, []book.Level, error) {
	return decode.Decode(b.cfg.Depth, payload,
		func(root map[string]any) any { return data(root)["bids"] },
		func(root map[string]any) any { return data(root)["asks"] },
	)
}

func data(root map[string]any) map[string]any {
	d, _ := root["data"].(map[string]any)
	return d
}
