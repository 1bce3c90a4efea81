package service

import (
	"encoding/json"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"trade_exec/internal/models"
)

// combinedFrame is the multiplexed-stream envelope:
// {"stream":"btcusdt@bookTicker","data":{...}}.
type combinedFrame struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// bookTickerFrame is one best-bid/offer update as the feed sends it.
type bookTickerFrame struct {
	Event    string `json:"e"`
	UpdateID int64  `json:"u"`
	Symbol   string `json:"s"`
	Bid      string `json:"b"`
	BidQty   string `json:"B"`
	Ask      string `json:"a"`
	AskQty   string `json:"A"`
}

// parseQuote accepts either a combined-stream envelope or a bare bookTicker
// frame and returns the snapshot it carries.
func parseQuote(msg []byte) (models.QuoteSnapshot, error) {
	var env combinedFrame
	if err := sonic.Unmarshal(msg, &env); err == nil && env.Stream != "" && len(env.Data) > 0 {
		msg = env.Data
	}

	var f bookTickerFrame
	if err := sonic.Unmarshal(msg, &f); err != nil {
		return models.QuoteSnapshot{}, errors.Wrap(err, "decode book ticker frame")
	}
	if f.Symbol == "" {
		return models.QuoteSnapshot{}, errors.New("frame carries no symbol")
	}

	bid, err := decimal.NewFromString(f.Bid)
	if err != nil {
		return models.QuoteSnapshot{}, errors.Wrapf(err, "bad bid %q", f.Bid)
	}
	ask, err := decimal.NewFromString(f.Ask)
	if err != nil {
		return models.QuoteSnapshot{}, errors.Wrapf(err, "bad ask %q", f.Ask)
	}

	q := models.QuoteSnapshot{
		Symbol:     f.Symbol,
		Bid:        bid,
		Ask:        ask,
		UpdateID:   f.UpdateID,
		ObservedAt: time.Now().UTC(),
	}
	if f.BidQty != "" {
		q.BidQty, _ = decimal.NewFromString(f.BidQty)
	}
	if f.AskQty != "" {
		q.AskQty, _ = decimal.NewFromString(f.AskQty)
	}
	return q, nil
}
