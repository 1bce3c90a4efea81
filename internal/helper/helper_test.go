package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormSymbol(t *testing.T) {
	cases := map[string]string{
		"sol_usdt":  "SOLUSDT",
		"SOL_USDT":  "SOLUSDT",
		"eth-usdt":  "ETHUSDT",
		"btc/usdt":  "BTCUSDT",
		" BTCUSDT ": "BTCUSDT",
		"btcusdt":   "BTCUSDT",
		"":          "",
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormSymbol(raw), "raw %q", raw)
	}
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "abcd...wxyz", MaskKey("abcdefghijklmnopqrstuvwxyz"))
	assert.Equal(t, "***", MaskKey("short"))
	assert.Equal(t, "***", MaskKey(""))
	assert.Equal(t, "***", MaskKey("12345678"), "boundary length stays hidden")
}
