package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_exec/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestParseCommand_Trade(t *testing.T) {
	raw := []byte(`{
		"type": "trade",
		"symbol": "sol_usdt",
		"side": "buy",
		"tp_percent": 1.0,
		"sl_percent": 0.5,
		"ticks_distance": 2,
		"quantity": 0.25,
		"accounts": [
			{"id": "main", "api_key": "key-main-0001", "api_secret": "sec-main-0001", "quantity": 0.1},
			{"id": "shadow", "simulation": true}
		]
	}`)

	cmd, err := ParseCommand(raw)
	require.NoError(t, err)

	require.Equal(t, KindTrade, cmd.Kind)
	require.NotNil(t, cmd.Trade)
	assert.Equal(t, "SOLUSDT", cmd.Trade.Symbol, "wire spelling is normalized")
	assert.Equal(t, models.SideBuy, cmd.Trade.Side)
	assert.Equal(t, 1.0, cmd.Trade.TPPercent)
	assert.Equal(t, 0.5, cmd.Trade.SLPercent)
	assert.Equal(t, 2, cmd.Trade.TicksDistance)
	assert.True(t, cmd.Trade.Quantity.Equal(d("0.25")))

	require.Len(t, cmd.Accounts, 2)
	assert.Equal(t, "main", cmd.Accounts[0].ID)
	assert.True(t, cmd.Accounts[0].Quantity.Equal(d("0.1")))
	assert.True(t, cmd.Accounts[1].Simulation)
	assert.True(t, cmd.Accounts[1].Quantity.IsZero(), "absent quantity stays zero")
}

func TestParseCommand_TradeDefaultsStayZero(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"type":"trade","symbol":"BTCUSDT","side":"sell","sl_percent":0.5}`))
	require.NoError(t, err)

	assert.Equal(t, models.SideSell, cmd.Trade.Side)
	assert.Zero(t, cmd.Trade.TPPercent, "missing tp_percent falls to the engine default later")
	assert.Zero(t, cmd.Trade.TicksDistance)
	assert.Empty(t, cmd.Accounts, "missing accounts falls to the registry later")
}

func TestParseCommand_OrderKinds(t *testing.T) {
	t.Run("limit", func(t *testing.T) {
		cmd, err := ParseCommand([]byte(`{"type":"order","symbol":"BTCUSDT","side":"buy","order_type":"limit","price":50000.5,"quantity":0.01,"time_in_force":"gtx"}`))
		require.NoError(t, err)
		require.Equal(t, KindOrder, cmd.Kind)
		assert.Equal(t, "limit", cmd.Order.Type)
		assert.True(t, cmd.Order.Price.Equal(d("50000.5")))
		assert.Equal(t, models.TimeInForceGTX, cmd.Order.TimeInForce)
	})

	t.Run("market drops any price", func(t *testing.T) {
		cmd, err := ParseCommand([]byte(`{"type":"order","symbol":"BTCUSDT","side":"sell","order_type":"market","price":50000.5}`))
		require.NoError(t, err)
		assert.Equal(t, "market", cmd.Order.Type)
		assert.True(t, cmd.Order.Price.IsZero())
	})

	t.Run("bbo needs no price", func(t *testing.T) {
		cmd, err := ParseCommand([]byte(`{"type":"order","symbol":"eth-usdt","side":"buy","order_type":"bbo","ticks_distance":1}`))
		require.NoError(t, err)
		assert.Equal(t, "bbo", cmd.Order.Type)
		assert.Equal(t, "ETHUSDT", cmd.Order.Symbol)
		assert.True(t, cmd.Order.Price.IsZero())
	})
}

func TestParseCommand_Close(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"type":"close_position","symbol":"BTCUSDT","ticks_distance":3}`))
	require.NoError(t, err)

	require.Equal(t, KindClose, cmd.Kind)
	assert.Equal(t, "BTCUSDT", cmd.Close.Symbol)
	assert.Equal(t, 3, cmd.Close.TicksDistance)
}

func TestParseCommand_Heartbeat(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"type":"heartbeat","status":"alive","message":"emitter up"}`))
	require.NoError(t, err)

	require.Equal(t, KindHeartbeat, cmd.Kind)
	assert.Equal(t, "alive", cmd.Heartbeat.Status)
	assert.Empty(t, cmd.Symbol())
}

func TestParseCommand_FailsClosed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"malformed json", `{"type":`, "malformed"},
		{"no type", `{"symbol":"BTCUSDT","side":"buy","sl_percent":0.5}`, "no type"},
		{"unknown type", `{"type":"exit","symbol":"BTCUSDT"}`, "unknown command type"},
		{"no symbol", `{"type":"trade","side":"buy","sl_percent":0.5}`, "no symbol"},
		{"no side", `{"type":"trade","symbol":"BTCUSDT","sl_percent":0.5}`, "no side"},
		{"bad side", `{"type":"trade","symbol":"BTCUSDT","side":"long","sl_percent":0.5}`, "unknown side"},
		{"no sl_percent", `{"type":"trade","symbol":"BTCUSDT","side":"buy"}`, "no sl_percent"},
		{"zero sl_percent", `{"type":"trade","symbol":"BTCUSDT","side":"buy","sl_percent":0}`, "must be positive"},
		{"negative tp_percent", `{"type":"trade","symbol":"BTCUSDT","side":"buy","sl_percent":0.5,"tp_percent":-1}`, "must be positive"},
		{"negative ticks", `{"type":"trade","symbol":"BTCUSDT","side":"buy","sl_percent":0.5,"ticks_distance":-1}`, "negative"},
		{"zero quantity", `{"type":"trade","symbol":"BTCUSDT","side":"buy","sl_percent":0.5,"quantity":0}`, "must be positive"},
		{"no order_type", `{"type":"order","symbol":"BTCUSDT","side":"buy"}`, "no order_type"},
		{"bad order_type", `{"type":"order","symbol":"BTCUSDT","side":"buy","order_type":"stop"}`, "unsupported order_type"},
		{"limit without price", `{"type":"order","symbol":"BTCUSDT","side":"buy","order_type":"limit"}`, "no price"},
		{"bad time_in_force", `{"type":"order","symbol":"BTCUSDT","side":"buy","order_type":"market","time_in_force":"fok"}`, "time_in_force"},
		{"close without symbol", `{"type":"close_position"}`, "no symbol"},
		{"account without id", `{"type":"trade","symbol":"BTCUSDT","side":"buy","sl_percent":0.5,"accounts":[{"api_key":"k","api_secret":"s"}]}`, "account id"},
		{"real account without creds", `{"type":"trade","symbol":"BTCUSDT","side":"buy","sl_percent":0.5,"accounts":[{"id":"a1"}]}`, "credentials"},
		{"account with zero quantity", `{"type":"trade","symbol":"BTCUSDT","side":"buy","sl_percent":0.5,"accounts":[{"id":"a1","simulation":true,"quantity":0}]}`, "must be positive"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCommand([]byte(tc.raw))
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}
