// Package decode parses venue depth payloads into price levels.
//
// Every supported venue frames its book as two arrays of
// ["<price>", "<amount>"] string pairs, but nests them differently in the
// payload; callers pass selectors that pick each side out of the parsed
// document.
package decode

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/BullionBear/aggbook/pkg/book"
)

// SideFunc selects the bids or asks array out of the parsed payload root.
type SideFunc func(root map[string]any) any

// LengthError reports a side that carried fewer levels than the configured
// depth.
type LengthError struct {
	Got  int
	Want int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("invalid length: got %d levels, want %d", e.Got, e.Want)
}

// MissingFieldError reports a level entry missing its price or amount.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field `%s`", e.Field)
}

// TypeError reports a level entry whose price or amount is not a numeric
// string.
type TypeError struct {
	Value string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("invalid type: %q, expected an array [\"<price>\", \"<amount>\"]", e.Value)
}

// Decode parses payload as JSON once and decodes exactly depth levels per
// side. The two sides are decoded concurrently; when both fail the returned
// error carries both messages.
func Decode(depth int, payload []byte, bids, asks SideFunc) ([]book.Level, []book.Level, error) {
	var root map[string]any
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, nil, fmt.Errorf("parse payload: %w", err)
	}

	var (
		bidLevels []book.Level
		bidErr    error
		done      = make(chan struct{})
	)
	go func() {
		defer close(done)
		bidLevels, bidErr = decodeSide(depth, bids(root))
	}()
	askLevels, askErr := decodeSide(depth, asks(root))
	<-done

	switch {
	case bidErr != nil && askErr != nil:
		return nil, nil, fmt.Errorf("bids error: %w, asks error: %w", bidErr, askErr)
	case bidErr != nil:
		return nil, nil, fmt.Errorf("bids error: %w", bidErr)
	case askErr != nil:
		return nil, nil, fmt.Errorf("asks error: %w", askErr)
	}
	return bidLevels, askLevels, nil
}

func decodeSide(depth int, side any) ([]book.Level, error) {
	entries, ok := side.([]any)
	if !ok {
		return nil, &LengthError{Got: 0, Want: depth}
	}
	levels := make([]book.Level, 0, depth)
	for i := 0; i < depth; i++ {
		if i >= len(entries) {
			return nil, &LengthError{Got: len(entries), Want: depth}
		}
		level, err := decodeLevel(entries[i])
		if err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, nil
}

func decodeLevel(entry any) (book.Level, error) {
	pair, ok := entry.([]any)
	if !ok {
		return book.Level{}, &TypeError{Value: fmt.Sprint(entry)}
	}
	price, err := element(pair, 0, "price")
	if err != nil {
		return book.Level{}, err
	}
	amount, err := element(pair, 1, "amount")
	if err != nil {
		return book.Level{}, err
	}
	return book.Level{Price: price, Amount: amount}, nil
}

func element(pair []any, index int, field string) (float64, error) {
	if index >= len(pair) {
		return 0, &MissingFieldError{Field: field}
	}
	s, ok := pair[index].(string)
	if !ok {
		return 0, &TypeError{Value: fmt.Sprint(pair[index])}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &TypeError{Value: s}
	}
	return v, nil
}
