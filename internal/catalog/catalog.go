// Package catalog holds the list of tradable instruments and supports
// substring search over symbol and display name.
package catalog

import (
	"fmt"
	"strings"

	"foliodesk/internal/domain"
)

// Default returns the built-in instrument list used when no market data
// gateway provides one, most popular first.
func Default() []domain.Instrument {
	return []domain.Instrument{
		{Symbol: "BTC", Name: "Bitcoin"},
		{Symbol: "ETH", Name: "Ethereum"},
		{Symbol: "SOL", Name: "Solana"},
		{Symbol: "XRP", Name: "XRP"},
		{Symbol: "ADA", Name: "Cardano"},
		{Symbol: "DOGE", Name: "Dogecoin"},
		{Symbol: "AVAX", Name: "Avalanche"},
		{Symbol: "DOT", Name: "Polkadot"},
		{Symbol: "LINK", Name: "Chainlink"},
		{Symbol: "LTC", Name: "Litecoin"},
	}
}

// Catalog is an immutable set of instruments, ordered as loaded.
type Catalog struct {
	instruments []domain.Instrument
	bySymbol    map[string]domain.Instrument
}

// New creates a Catalog from the given instruments. Symbols are normalized
// to upper case; a duplicate symbol keeps the first occurrence.
func New(instruments []domain.Instrument) *Catalog {
	c := &Catalog{
		instruments: make([]domain.Instrument, 0, len(instruments)),
		bySymbol:    make(map[string]domain.Instrument, len(instruments)),
	}
	for _, inst := range instruments {
		inst.Symbol = strings.ToUpper(inst.Symbol)
		if _, dup := c.bySymbol[inst.Symbol]; dup {
			continue
		}
		c.instruments = append(c.instruments, inst)
		c.bySymbol[inst.Symbol] = inst
	}
	return c
}

// All returns every instrument in load order.
func (c *Catalog) All() []domain.Instrument {
	out := make([]domain.Instrument, len(c.instruments))
	copy(out, c.instruments)
	return out
}

// Len returns the number of instruments in the catalog.
func (c *Catalog) Len() int {
	return len(c.instruments)
}

// Lookup returns the instrument for symbol (case-insensitive), or an error
// if the symbol is unknown.
func (c *Catalog) Lookup(symbol string) (domain.Instrument, error) {
	inst, ok := c.bySymbol[strings.ToUpper(symbol)]
	if !ok {
		return domain.Instrument{}, fmt.Errorf("unknown symbol %q", symbol)
	}
	return inst, nil
}

// Search returns instruments whose symbol or name contains term,
// case-insensitive, in load order. An empty term matches nothing.
func (c *Catalog) Search(term string) []domain.Instrument {
	if term == "" {
		return nil
	}
	term = strings.ToLower(term)

	var matches []domain.Instrument
	for _, inst := range c.instruments {
		if strings.Contains(strings.ToLower(inst.Symbol), term) ||
			strings.Contains(strings.ToLower(inst.Name), term) {
			matches = append(matches, inst)
		}
	}
	return matches
}

// Popular returns the first n instruments in load order, shown when the
// search box is empty.
func (c *Catalog) Popular(n int) []domain.Instrument {
	if n > len(c.instruments) {
		n = len(c.instruments)
	}
	out := make([]domain.Instrument, n)
	copy(out, c.instruments[:n])
	return out
}
