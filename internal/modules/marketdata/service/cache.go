package service

import (
	"sync"
	"time"

	"trade_exec/internal/models"
)

// Cache holds the freshest quote per symbol for synchronous lookup. One
// writer (the stream loop) replaces a symbol's snapshot wholesale; readers
// never block and never see a partially written quote.
type Cache struct {
	quotes sync.Map // symbol -> *models.QuoteSnapshot
}

func NewCache() *Cache {
	return &Cache{}
}

// Get is non-blocking; ok is false when no update has ever arrived for the
// symbol.
func (c *Cache) Get(symbol string) (models.QuoteSnapshot, bool) {
	v, ok := c.quotes.Load(symbol)
	if !ok {
		return models.QuoteSnapshot{}, false
	}
	return *(v.(*models.QuoteSnapshot)), true
}

// Put stores a snapshot, rejecting quotes where either side is non-positive.
func (c *Cache) Put(q models.QuoteSnapshot) bool {
	if !q.Valid() {
		return false
	}
	c.quotes.Store(q.Symbol, &q)
	return true
}

// Age reports how stale the symbol's quote is; ok false when none exists.
func (c *Cache) Age(symbol string) (time.Duration, bool) {
	q, ok := c.Get(symbol)
	if !ok {
		return 0, false
	}
	return time.Since(q.ObservedAt), true
}

// Symbols lists every symbol with at least one observed quote.
func (c *Cache) Symbols() []string {
	var out []string
	c.quotes.Range(func(key, _ any) bool {
		out = append(out, key.(string))
		return true
	})
	return out
}
