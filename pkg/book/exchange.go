package book

import "fmt"

// Exchange identifies a supported venue. The string value is the display
// name that is attributed to every level streamed to subscribers.
type Exchange string

const (
	ExchangeBinance  Exchange = "Binance"
	ExchangeBitstamp Exchange = "Bitstamp"
)

// Exchanges lists every supported venue in a fixed order. The aggregator
// flattens its per-venue map in this order so that equal-key levels keep a
// deterministic venue ordering across runs.
var Exchanges = []Exchange{ExchangeBinance, ExchangeBitstamp}

// ParseExchange resolves a display name to an Exchange.
func ParseExchange(s string) (Exchange, error) {
	for _, ex := range Exchanges {
		if string(ex) == s {
			return ex, nil
		}
	}
	return "", fmt.Errorf("unsupported exchange: %s", s)
}

func (e Exchange) String() string {
	return string(e)
}
