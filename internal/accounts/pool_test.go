package accounts

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_exec/internal/chase"
	"trade_exec/internal/models"
	"trade_exec/internal/trade"
	"trade_exec/internal/venue"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// constBoard always serves the same quote.
type constBoard struct {
	q models.QuoteSnapshot
}

func (b constBoard) Get(symbol string) (models.QuoteSnapshot, bool) {
	if b.q.Symbol != symbol {
		return models.QuoteSnapshot{}, false
	}
	return b.q, true
}

func simAccount(id, qty string) models.AccountConfig {
	return models.AccountConfig{
		ID:         id,
		APIKey:     "key-" + id,
		APISecret:  "secret-" + id,
		Quantity:   d(qty),
		Simulation: true,
	}
}

func testPool() *Pool {
	board := constBoard{q: models.QuoteSnapshot{
		Symbol:     "BTCUSDT",
		Bid:        d("50000.0"),
		Ask:        d("50000.5"),
		ObservedAt: time.Now().UTC(),
	}}
	return NewPool(board, venue.Config{}, chase.Config{
		TicksDistance:   1,
		MaxRetries:      2,
		FillTimeout:     10 * time.Millisecond,
		PollInterval:    2 * time.Millisecond,
		MaxChasePercent: 0.5,
	}, trade.Config{TPPercent: 1.0, SLPercent: 0.5}, nil, 8)
}

func roster(n int) []models.AccountConfig {
	out := make([]models.AccountConfig, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, simAccount(fmt.Sprintf("acc-%d", i), "0.01"))
	}
	return out
}

func TestExecute_ResultsInInputOrder(t *testing.T) {
	p := testPool()
	cfgs := roster(4)

	results, err := Execute(context.Background(), p, cfgs, func(_ context.Context, s *Session) (string, error) {
		// make early accounts finish last so completion order differs
		switch s.ID() {
		case "acc-1":
			time.Sleep(20 * time.Millisecond)
		case "acc-2":
			time.Sleep(10 * time.Millisecond)
		}
		return "done " + s.ID(), nil
	})
	require.NoError(t, err)

	require.Len(t, results, 4)
	for i, cfg := range cfgs {
		assert.Equal(t, cfg.ID, results[i].AccountID)
		assert.Equal(t, "done "+cfg.ID, results[i].Value)
		assert.True(t, results[i].Success())
	}
}

func TestExecute_OneFailureDoesNotTouchSiblings(t *testing.T) {
	p := testPool()
	cfgs := roster(3)

	results, err := Execute(context.Background(), p, cfgs, func(_ context.Context, s *Session) (int, error) {
		if s.ID() == "acc-2" {
			return 0, errors.New("insufficient margin")
		}
		return 42, nil
	})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.True(t, results[0].Success())
	assert.False(t, results[1].Success())
	assert.ErrorContains(t, results[1].Err, "insufficient margin")
	assert.True(t, results[2].Success())
	assert.Equal(t, 42, results[0].Value)
	assert.Equal(t, 42, results[2].Value)
}

func TestExecute_PanicIsCapturedPerAccount(t *testing.T) {
	p := testPool()
	cfgs := roster(3)

	results, err := Execute(context.Background(), p, cfgs, func(_ context.Context, s *Session) (int, error) {
		if s.ID() == "acc-3" {
			panic("boom")
		}
		return 1, nil
	})
	require.NoError(t, err)

	assert.True(t, results[0].Success())
	assert.True(t, results[1].Success())
	require.Error(t, results[2].Err)
	assert.ErrorContains(t, results[2].Err, "panic")
	assert.ErrorContains(t, results[2].Err, "boom")
}

func TestExecute_RejectsDuplicateAccounts(t *testing.T) {
	p := testPool()
	cfgs := []models.AccountConfig{simAccount("acc-1", "0.01"), simAccount("acc-1", "0.02")}

	_, err := Execute(context.Background(), p, cfgs, func(_ context.Context, _ *Session) (int, error) {
		return 0, nil
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "listed twice")
}

func TestPool_SessionsAreReused(t *testing.T) {
	p := testPool()
	cfgs := roster(1)

	grab := func() *Session {
		results, err := Execute(context.Background(), p, cfgs, func(_ context.Context, s *Session) (*Session, error) {
			return s, nil
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		return results[0].Value
	}

	first := grab()
	second := grab()

	assert.Same(t, first, second, "same credentials reuse the cached session")
	st := p.Stats()
	assert.Equal(t, 1, st.Sessions)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, int64(1), st.Hits)
}

func TestPool_CredentialRotationReplacesSession(t *testing.T) {
	p := testPool()
	cfg := simAccount("acc-1", "0.01")

	grab := func(c models.AccountConfig) *Session {
		results, err := Execute(context.Background(), p, []models.AccountConfig{c}, func(_ context.Context, s *Session) (*Session, error) {
			return s, nil
		})
		require.NoError(t, err)
		return results[0].Value
	}

	first := grab(cfg)
	cfg.APISecret = "rotated"
	second := grab(cfg)

	assert.NotSame(t, first, second, "rotated credentials must not reuse the stale session")
	assert.Equal(t, 1, p.Stats().Sessions, "the stale session is evicted")
}

func TestPool_CloseEmptiesTheCache(t *testing.T) {
	p := testPool()
	_, err := Execute(context.Background(), p, roster(2), func(_ context.Context, _ *Session) (int, error) {
		return 0, nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, p.Stats().Sessions)

	require.NoError(t, p.Close())
	assert.Equal(t, 0, p.Stats().Sessions)
}

func TestPlaceOrders_BroadcastUsesAccountQuantity(t *testing.T) {
	p := testPool()
	cfgs := []models.AccountConfig{simAccount("acc-1", "0.010"), simAccount("acc-2", "0.020")}

	results, err := p.PlaceOrders(context.Background(), cfgs, []models.OrderRequest{{
		Symbol: "BTCUSDT",
		Side:   models.SideBuy,
		Type:   models.OrderTypeMarket,
	}})
	require.NoError(t, err)

	require.Len(t, results, 2)
	for i, want := range []string{"0.010", "0.020"} {
		require.NoError(t, results[i].Err)
		assert.True(t, results[i].Value.Filled())
		assert.True(t, results[i].Value.Size.Equal(d(want)), "account %d size %s", i, results[i].Value.Size)
	}
}

func TestPlaceOrders_MatchedByIndex(t *testing.T) {
	p := testPool()
	cfgs := []models.AccountConfig{simAccount("acc-1", "0.01"), simAccount("acc-2", "0.01")}

	results, err := p.PlaceOrders(context.Background(), cfgs, []models.OrderRequest{
		{Symbol: "BTCUSDT", Side: models.SideBuy, Type: models.OrderTypeLimit, Price: d("49000.0"), Quantity: d("0.01")},
		{Symbol: "BTCUSDT", Side: models.SideBuy, Type: models.OrderTypeLimit, Price: d("48000.0"), Quantity: d("0.02")},
	})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.True(t, results[0].Value.RequestedPrice.Equal(d("49000.0")))
	assert.True(t, results[1].Value.RequestedPrice.Equal(d("48000.0")))
	assert.True(t, results[1].Value.Size.Equal(d("0.02")))
}

func TestPlaceOrders_CountMismatch(t *testing.T) {
	p := testPool()
	cfgs := roster(2)

	_, err := p.PlaceOrders(context.Background(), cfgs, make([]models.OrderRequest, 3))
	require.Error(t, err)
	assert.ErrorContains(t, err, "3 orders for 2 accounts")
}

func TestPlaceOrders_BroadcastAccountSizeBeatsCommandDefault(t *testing.T) {
	p := testPool()
	cfgs := []models.AccountConfig{simAccount("acc-1", "0.010"), simAccount("acc-2", "0")}

	results, err := p.PlaceOrders(context.Background(), cfgs, []models.OrderRequest{{
		Symbol:   "BTCUSDT",
		Side:     models.SideBuy,
		Type:     models.OrderTypeMarket,
		Quantity: d("0.050"),
	}})
	require.NoError(t, err)

	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	assert.True(t, results[0].Value.Size.Equal(d("0.010")), "sized account keeps its own size, got %s", results[0].Value.Size)
	require.NoError(t, results[1].Err)
	assert.True(t, results[1].Value.Size.Equal(d("0.050")), "unsized account takes the command default, got %s", results[1].Value.Size)
}

func TestPlaceOrders_NoQuantityAnywhereFailsTheAccount(t *testing.T) {
	p := testPool()
	cfgs := []models.AccountConfig{simAccount("acc-1", "0.010"), simAccount("acc-2", "0")}

	results, err := p.PlaceOrders(context.Background(), cfgs, []models.OrderRequest{{
		Symbol: "BTCUSDT",
		Side:   models.SideBuy,
		Type:   models.OrderTypeMarket,
	}})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err, "the sized account is unaffected")
	require.Error(t, results[1].Err)
	assert.ErrorContains(t, results[1].Err, "no quantity for account acc-2")
}

func TestPlaceBBOOrders_SingleShotPerAccount(t *testing.T) {
	p := testPool()
	cfgs := []models.AccountConfig{simAccount("acc-1", "0.010"), simAccount("acc-2", "0.020")}

	results, err := p.PlaceBBOOrders(context.Background(), cfgs, chase.Request{
		Symbol: "BTCUSDT",
		Side:   models.SideBuy,
	})
	require.NoError(t, err)

	require.Len(t, results, 2)
	for i, want := range []string{"0.010", "0.020"} {
		require.NoError(t, results[i].Err)
		leg := results[i].Value
		assert.True(t, leg.RequestedPrice.Equal(d("49999.99")), "one tick under the bid, got %s", leg.RequestedPrice)
		assert.True(t, leg.Size.Equal(d(want)))
		assert.Equal(t, models.OrderTypeLimit, leg.Type)
	}
}

func TestOpenTrades_AcrossAccounts(t *testing.T) {
	p := testPool()
	cfgs := roster(3)

	results, err := p.OpenTrades(context.Background(), cfgs, trade.Request{
		Symbol: "BTCUSDT",
		Side:   models.SideBuy,
	})
	require.NoError(t, err)

	require.Len(t, results, 3)
	for i := range results {
		require.NoError(t, results[i].Err)
		tr := results[i].Value
		require.NotNil(t, tr)
		assert.Equal(t, models.TradeStatusActive, tr.Status)
		assert.True(t, tr.Entry.Filled())
	}
}

func TestClosePositions_FlattensAndCancels(t *testing.T) {
	p := testPool()
	cfgs := roster(1)

	// open something to close
	_, err := p.PlaceOrders(context.Background(), cfgs, []models.OrderRequest{{
		Symbol: "BTCUSDT",
		Side:   models.SideBuy,
		Type:   models.OrderTypeMarket,
	}})
	require.NoError(t, err)

	results, err := p.ClosePositions(context.Background(), cfgs, "BTCUSDT", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.Len(t, results[0].Value, 1, "one flatten order per open position")
	assert.Equal(t, models.SideSell, results[0].Value[0].Side)

	after, err := p.Positions(context.Background(), cfgs, "BTCUSDT")
	require.NoError(t, err)
	require.NoError(t, after[0].Err)
	assert.Empty(t, after[0].Value, "the position is gone")
}
