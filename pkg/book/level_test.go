package book

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelCmpEqual(t *testing.T) {
	l1 := Level{Price: 1.0, Amount: 1.0}
	l2 := Level{Price: 1.0, Amount: 1.0}
	assert.Equal(t, 0, l1.Cmp(l2))
}

func TestLevelCmpGreater(t *testing.T) {
	cases := []struct {
		l1, l2 Level
	}{
		{Level{Price: 1.0, Amount: 2.0}, Level{Price: 1.0, Amount: 1.0}},
		{Level{Price: 2.0, Amount: 1.0}, Level{Price: 1.0, Amount: 1.0}},
		{Level{Price: 2.0, Amount: 2.0}, Level{Price: 1.0, Amount: 1.0}},
	}
	for _, c := range cases {
		assert.Equal(t, 1, c.l1.Cmp(c.l2))
	}
}

func TestLevelCmpLess(t *testing.T) {
	cases := []struct {
		l1, l2 Level
	}{
		{Level{Price: 1.0, Amount: 1.0}, Level{Price: 2.0, Amount: 1.0}},
		{Level{Price: 1.0, Amount: 1.0}, Level{Price: 1.0, Amount: 2.0}},
		{Level{Price: 1.0, Amount: 1.0}, Level{Price: 2.0, Amount: 2.0}},
	}
	for _, c := range cases {
		assert.Equal(t, -1, c.l1.Cmp(c.l2))
	}
}

func TestOrderNaNAlwaysLast(t *testing.T) {
	nan := math.NaN()

	assert.Equal(t, 1, OrderAsc(nan, 1.0))
	assert.Equal(t, -1, OrderAsc(1.0, nan))
	assert.Equal(t, 0, OrderAsc(nan, nan))

	assert.Equal(t, 1, OrderDesc(nan, 1.0))
	assert.Equal(t, -1, OrderDesc(1.0, nan))
	assert.Equal(t, 0, OrderDesc(nan, nan))
}

func TestOrderDescReversesNumbers(t *testing.T) {
	assert.Equal(t, -1, OrderDesc(2.0, 1.0))
	assert.Equal(t, 1, OrderDesc(1.0, 2.0))
	assert.Equal(t, 0, OrderDesc(1.0, 1.0))
}

func TestParseExchange(t *testing.T) {
	ex, err := ParseExchange("Binance")
	assert.NoError(t, err)
	assert.Equal(t, ExchangeBinance, ex)

	ex, err = ParseExchange("Bitstamp")
	assert.NoError(t, err)
	assert.Equal(t, ExchangeBitstamp, ex)

	_, err = ParseExchange("Kraken")
	assert.Error(t, err)
}

func TestParseSymbol(t *testing.T) {
	s, err := ParseSymbol("ETHBTC")
	assert.NoError(t, err)
	assert.Equal(t, SymbolETHBTC, s)

	s, err = ParseSymbol("btcusdt")
	assert.NoError(t, err)
	assert.Equal(t, SymbolBTCUSDT, s)

	_, err = ParseSymbol("dogeusd")
	assert.Error(t, err)
}
