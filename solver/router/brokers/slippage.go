package brokers

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const maxBps = 10000

// CalculateMinOutput calculates minimum output with slippage tolerance.
// slippageBps is basis points (e.g., 100 = 1%)
// minOutput = floor(expected * (10000 - slippageBps) / 10000)
func CalculateMinOutput(expectedOutput string, slippageBps uint32) (string, error) {
	if slippageBps > maxBps {
		return "", fmt.Errorf("slippage %d bps exceeds %d: %w", slippageBps, maxBps, ErrInvalidAmount)
	}

	expected, err := decimal.NewFromString(expectedOutput)
	if err != nil {
		return "", fmt.Errorf("failed to parse expected output: %w", err)
	}
	if expected.IsNegative() {
		return "", fmt.Errorf("expected output must not be negative: %s", expectedOutput)
	}

	minOutput := expected.
		Mul(decimal.NewFromInt(int64(maxBps - slippageBps))).
		Div(decimal.NewFromInt(maxBps)).
		Floor()

	return minOutput.String(), nil
}

// EffectivePrice returns amountOut / amountIn rounded to the given number of decimal
// places, or zero when amountIn is zero.
func EffectivePrice(amountIn, amountOut string, places int32) (string, error) {
	in, err := decimal.NewFromString(amountIn)
	if err != nil {
		return "", fmt.Errorf("failed to parse amount in: %w", err)
	}
	out, err := decimal.NewFromString(amountOut)
	if err != nil {
		return "", fmt.Errorf("failed to parse amount out: %w", err)
	}
	if in.IsZero() {
		return decimal.Zero.StringFixed(places), nil
	}
	return out.DivRound(in, places).StringFixed(places), nil
}
