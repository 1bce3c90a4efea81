package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuote_CombinedEnvelope(t *testing.T) {
	msg := []byte(`{"stream":"btcusdt@bookTicker","data":{"e":"bookTicker","u":400900217,"s":"BTCUSDT","b":"50000.0","B":"31.2","a":"50000.5","A":"40.6"}}`)

	q, err := parseQuote(msg)
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", q.Symbol)
	assert.True(t, q.Bid.Equal(decimal.RequireFromString("50000.0")))
	assert.True(t, q.Ask.Equal(decimal.RequireFromString("50000.5")))
	assert.True(t, q.BidQty.Equal(decimal.RequireFromString("31.2")))
	assert.True(t, q.AskQty.Equal(decimal.RequireFromString("40.6")))
	assert.Equal(t, int64(400900217), q.UpdateID)
	assert.False(t, q.ObservedAt.IsZero())
}

func TestParseQuote_BareFrame(t *testing.T) {
	msg := []byte(`{"u":400900218,"s":"ETHUSDT","b":"3500.00","B":"12","a":"3500.01","A":"9"}`)

	q, err := parseQuote(msg)
	require.NoError(t, err)

	assert.Equal(t, "ETHUSDT", q.Symbol)
	assert.True(t, q.Bid.Equal(decimal.RequireFromString("3500.00")))
	assert.True(t, q.Ask.Equal(decimal.RequireFromString("3500.01")))
}

func TestParseQuote_Garbage(t *testing.T) {
	_, err := parseQuote([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseQuote_NoSymbol(t *testing.T) {
	_, err := parseQuote([]byte(`{"result":null,"id":1}`))
	assert.Error(t, err, "subscription acks carry no symbol and must be skipped")
}

func TestParseQuote_BadPrice(t *testing.T) {
	_, err := parseQuote([]byte(`{"s":"BTCUSDT","b":"oops","a":"50000.5"}`))
	assert.Error(t, err)
}

func TestStreamURL(t *testing.T) {
	s := NewStream(StreamConfig{
		URL:     "wss://feed.example.com/stream",
		Symbols: []string{"BTCUSDT", "ETHUSDT"},
	}, NewCache(), nopHealth{})

	assert.Equal(t,
		"wss://feed.example.com/stream?streams=btcusdt@bookTicker/ethusdt@bookTicker",
		s.streamURL())
}

type nopHealth struct{}

func (nopHealth) SetFeedConnected(bool) {}
func (nopHealth) TouchQuote(time.Time)  {}
