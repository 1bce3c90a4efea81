package journal

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_exec/internal/models"
)

func TestJournal_DisabledIsInert(t *testing.T) {
	j := NewJournal(nil)

	assert.False(t, j.Enabled())
	require.NoError(t, j.EnsureSchema(context.Background()))

	tr := models.NewTrade("BTCUSDT", models.SideBuy, decimal.NewFromFloat(0.01), 1.0, 0.5)
	j.Record(context.Background(), "acc-1", tr) // must not panic

	entries, err := j.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestViewOf_OmitsZeroFieldsAndKeepsError(t *testing.T) {
	leg := models.OrderLeg{
		OrderID: 42,
		Status:  models.OrderStatusFilled,
	}
	leg.AvgFillPrice = decimal.RequireFromString("50000.1")
	leg.Err = errors.New("margin check failed")

	v := viewOf(leg)
	assert.Equal(t, int64(42), v.OrderID)
	assert.Equal(t, "50000.1", v.AvgFillPrice)
	assert.Equal(t, "FILLED", v.Status)
	assert.Equal(t, "margin check failed", v.Error)
	assert.Empty(t, v.Price, "zero requested price stays out of the payload")
	assert.Empty(t, v.ExecutedQty)
}
