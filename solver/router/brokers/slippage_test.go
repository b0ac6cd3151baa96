package brokers_test

import (
	"errors"
	"testing"

	"github.com/zeebo/assert"

	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/router/brokers"
)

func TestCalculateMinOutput(t *testing.T) {
	cases := []struct {
		expected string
		bps      uint32
		want     string
	}{
		{"1000000", 100, "990000"},
		{"180", 50, "179"},
		{"180", 0, "180"},
		{"180", 10000, "0"},
		{"340282366920938463463374607431768211455", 1, "340248338684246369617028269971025034633"},
	}
	for _, c := range cases {
		got, err := brokers.CalculateMinOutput(c.expected, c.bps)
		assert.NoError(t, err)
		assert.Equal(t, got, c.want)
	}
}

func TestCalculateMinOutput_Invalid(t *testing.T) {
	_, err := brokers.CalculateMinOutput("abc", 100)
	assert.Error(t, err)

	_, err = brokers.CalculateMinOutput("100", 10001)
	assert.True(t, errors.Is(err, brokers.ErrInvalidAmount))

	_, err = brokers.CalculateMinOutput("-1", 100)
	assert.Error(t, err)
}

func TestEffectivePrice(t *testing.T) {
	price, err := brokers.EffectivePrice("100", "180", 4)
	assert.NoError(t, err)
	assert.Equal(t, price, "1.8000")

	price, err = brokers.EffectivePrice("0", "180", 2)
	assert.NoError(t, err)
	assert.Equal(t, price, "0.00")
}

func TestParseDexKind(t *testing.T) {
	kind, err := brokers.ParseDexKind("")
	assert.NoError(t, err)
	assert.Equal(t, kind, brokers.DexRaydium)

	kind, err = brokers.ParseDexKind("raydium")
	assert.NoError(t, err)
	assert.Equal(t, kind, brokers.DexRaydium)

	_, err = brokers.ParseDexKind("orca")
	assert.Error(t, err)
}
