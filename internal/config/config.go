package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/BullionBear/aggbook/internal/exchange"
	"github.com/BullionBear/aggbook/pkg/book"
)

// Default venue endpoints. Both are overridable from the command line.
const (
	DefaultBinanceURL  = "wss://stream.binance.com:9443/ws"
	DefaultBitstampURL = "wss://ws.bitstamp.net"
	DefaultDepth       = 10
)

// Config is the full process configuration assembled from flags.
type Config struct {
	Symbol      book.Symbol
	Address     string
	OpsAddress  string
	Depth       int
	BinanceURL  string
	BitstampURL string
	NatsURI     string
	Development bool
}

// Validate checks the assembled configuration before anything is started.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if c.Address == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if c.Depth <= 0 || c.Depth > exchange.MaxDepth {
		return fmt.Errorf("depth must be in [1, %d], got %d", exchange.MaxDepth, c.Depth)
	}
	if c.BinanceURL == "" || c.BitstampURL == "" {
		return fmt.Errorf("venue base urls cannot be empty")
	}
	if c.NatsURI != "" {
		if _, err := ParseConnectionString(c.NatsURI); err != nil {
			return err
		}
	}
	return nil
}

// ConnectionConfig is a parsed NATS connection string of the form
// nats://host:port?stream=<stream>&subject=<subject>.
type ConnectionConfig struct {
	URL     string
	Stream  string
	Subject string
}

// ParseConnectionString validates and splits a NATS URI into the dial URL
// and its stream/subject parameters.
func ParseConnectionString(uri string) (*ConnectionConfig, error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return nil, fmt.Errorf("invalid connection string '%s': %w", uri, err)
	}
	if u.Scheme != "nats" {
		return nil, fmt.Errorf("invalid connection string '%s': scheme must be nats", uri)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid connection string '%s': host cannot be empty", uri)
	}
	params := u.Query()
	conn := &ConnectionConfig{
		URL:     fmt.Sprintf("nats://%s", u.Host),
		Stream:  params.Get("stream"),
		Subject: params.Get("subject"),
	}
	if conn.Subject == "" {
		return nil, fmt.Errorf("invalid connection string '%s': subject parameter is required", uri)
	}
	return conn, nil
}
