package service

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_exec/internal/models"
)

func snapshot(symbol, bid, ask string) models.QuoteSnapshot {
	return models.QuoteSnapshot{
		Symbol:     symbol,
		Bid:        decimal.RequireFromString(bid),
		Ask:        decimal.RequireFromString(ask),
		ObservedAt: time.Now().UTC(),
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := NewCache()

	_, ok := c.Get("BTCUSDT")
	assert.False(t, ok)

	_, ok = c.Age("BTCUSDT")
	assert.False(t, ok)
}

func TestCache_PutGet(t *testing.T) {
	c := NewCache()

	require.True(t, c.Put(snapshot("BTCUSDT", "50000.0", "50000.5")))

	q, ok := c.Get("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", q.Symbol)
	assert.True(t, q.Bid.Equal(decimal.RequireFromString("50000.0")))
	assert.True(t, q.Ask.Equal(decimal.RequireFromString("50000.5")))

	age, ok := c.Age("BTCUSDT")
	require.True(t, ok)
	assert.Less(t, age, time.Second)
}

func TestCache_PutReplacesWholeSnapshot(t *testing.T) {
	c := NewCache()

	require.True(t, c.Put(snapshot("ETHUSDT", "3500.00", "3500.01")))
	require.True(t, c.Put(snapshot("ETHUSDT", "3501.00", "3501.01")))

	q, ok := c.Get("ETHUSDT")
	require.True(t, ok)
	assert.True(t, q.Bid.Equal(decimal.RequireFromString("3501.00")))
	assert.True(t, q.Ask.Equal(decimal.RequireFromString("3501.01")))
}

func TestCache_PutRejectsNonPositive(t *testing.T) {
	c := NewCache()

	assert.False(t, c.Put(snapshot("BTCUSDT", "0", "50000.5")))
	assert.False(t, c.Put(snapshot("BTCUSDT", "50000.0", "0")))
	assert.False(t, c.Put(snapshot("BTCUSDT", "-1", "50000.5")))

	_, ok := c.Get("BTCUSDT")
	assert.False(t, ok, "rejected quote must not be visible")
}

func TestCache_Symbols(t *testing.T) {
	c := NewCache()

	require.True(t, c.Put(snapshot("BTCUSDT", "50000.0", "50000.5")))
	require.True(t, c.Put(snapshot("ETHUSDT", "3500.00", "3500.01")))

	assert.ElementsMatch(t, []string{"BTCUSDT", "ETHUSDT"}, c.Symbols())
}

func TestCache_ConcurrentReadersSingleWriter(t *testing.T) {
	c := NewCache()
	require.True(t, c.Put(snapshot("BTCUSDT", "50000.0", "50000.5")))

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				q, ok := c.Get("BTCUSDT")
				if ok {
					// a reader must never observe a half-written quote
					assert.True(t, q.Bid.IsPositive())
					assert.True(t, q.Ask.IsPositive())
				}
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		c.Put(snapshot("BTCUSDT", "50000.0", "50000.5"))
	}
	close(done)
	wg.Wait()
}
