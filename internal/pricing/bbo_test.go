package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_exec/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPrice_MakerSide(t *testing.T) {
	tests := []struct {
		name  string
		side  models.Side
		bid   string
		ask   string
		tick  string
		n     int
		want  string
	}{
		{"buy one tick under bid", models.SideBuy, "50000.0", "50000.5", "0.1", 1, "49999.9"},
		{"sell one tick over ask", models.SideSell, "50000.0", "50000.5", "0.1", 1, "50000.6"},
		{"buy three ticks", models.SideBuy, "3000.00", "3000.10", "0.01", 3, "2999.97"},
		{"sell three ticks", models.SideSell, "3000.00", "3000.10", "0.01", 3, "3000.13"},
		{"coarse tick", models.SideBuy, "69001", "69002", "1", 2, "68999"},
		{"fine tick", models.SideSell, "0.064310", "0.064320", "0.000010", 1, "0.06433"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Price(tt.side, d(tt.bid), d(tt.ask), d(tt.tick), tt.n)
			require.NoError(t, err)
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestPrice_TruncatesTowardGrid(t *testing.T) {
	// 50000.07 - 0.1 = 49999.97, which is off-grid for tick 0.1. Truncation
	// keeps 49999.9; nearest-neighbor rounding would have produced 50000.0.
	got, err := Price(models.SideBuy, d("50000.07"), d("50000.17"), d("0.1"), 1)
	require.NoError(t, err)
	assert.True(t, got.Equal(d("49999.9")), "got %s", got)

	got, err = Price(models.SideSell, d("50000.07"), d("50000.17"), d("0.1"), 1)
	require.NoError(t, err)
	assert.True(t, got.Equal(d("50000.2")), "got %s", got)
}

func TestPrice_Idempotent(t *testing.T) {
	first, err := Price(models.SideBuy, d("1234.5"), d("1234.6"), d("0.1"), 2)
	require.NoError(t, err)
	second, err := Price(models.SideBuy, d("1234.5"), d("1234.6"), d("0.1"), 2)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func TestPrice_InvalidInputs(t *testing.T) {
	tests := []struct {
		name string
		side models.Side
		bid  string
		ask  string
		tick string
		n    int
	}{
		{"zero bid", models.SideBuy, "0", "50000.5", "0.1", 1},
		{"negative bid", models.SideBuy, "-1", "50000.5", "0.1", 1},
		{"zero ask", models.SideSell, "50000.0", "0", "0.1", 1},
		{"zero tick", models.SideBuy, "50000.0", "50000.5", "0", 1},
		{"negative tick", models.SideBuy, "50000.0", "50000.5", "-0.1", 1},
		{"zero distance", models.SideBuy, "50000.0", "50000.5", "0.1", 0},
		{"bad side", models.Side("HOLD"), "50000.0", "50000.5", "0.1", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Price(tt.side, d(tt.bid), d(tt.ask), d(tt.tick), tt.n)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestPrice_BuyOffsetBelowZero(t *testing.T) {
	_, err := Price(models.SideBuy, d("0.5"), d("0.6"), d("1"), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestPrecision(t *testing.T) {
	tests := []struct {
		tick string
		want int32
	}{
		{"1", 0},
		{"10", 0},
		{"0.5", 1},
		{"0.1", 1},
		{"0.01", 2},
		{"0.25", 2},
		{"0.0001", 4},
		{"0.00001", 5},
		{"0.000001", 8},
		{"0.00000001", 8},
	}
	for _, tt := range tests {
		t.Run(tt.tick, func(t *testing.T) {
			assert.Equal(t, tt.want, Precision(d(tt.tick)))
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "49999.9", Format(d("49999.9"), d("0.1")))
	assert.Equal(t, "3535.00", Format(d("3535"), d("0.01")))
	assert.Equal(t, "69000", Format(d("69000"), d("1")))
}

func TestValidate(t *testing.T) {
	bid, ask, tick := d("50000.0"), d("50000.5"), d("0.1")

	ok, err := Validate(d("49999.9"), models.SideBuy, bid, ask, tick, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	// Off by half a tick: far outside the tick/100 tolerance.
	ok, err = Validate(d("49999.85"), models.SideBuy, bid, ask, tick, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	// Within tick/100.
	ok, err = Validate(d("49999.9005"), models.SideBuy, bid, ask, tick, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = Validate(d("49999.9"), models.SideBuy, d("0"), ask, tick, 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSnapToTick(t *testing.T) {
	assert.True(t, SnapToTick(d("3482.504"), d("0.01")).Equal(d("3482.50")))
	assert.True(t, SnapToTick(d("3482.509"), d("0.01")).Equal(d("3482.50")))
	assert.True(t, SnapToTick(d("101"), d("0.25")).Equal(d("101")))
	assert.True(t, SnapToTick(d("101.30"), d("0.25")).Equal(d("101.25")))
}
