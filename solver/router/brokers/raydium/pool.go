package raydium

import (
	"fmt"
	"math/big"

	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/router/brokers"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/svm"
)

// Pool is a snapshot of a CPMM pool's reserves. Slot A always holds the quote asset.
type Pool struct {
	Name     string   `json:"name"`
	ReserveA *big.Int `json:"a"`
	ReserveB *big.Int `json:"b"`
	FeeRate  *big.Int `json:"fee_rate"`
	DenomA   string   `json:"denom_a"`
	DenomB   string   `json:"denom_b"`

	broker *Broker
}

var _ brokers.Pool = (*Pool)(nil)

// NewPoolFromTokenAccounts orders the two vault balances so the quote mint lands in
// slot A: the accounts are swapped unless the first one holds the quote mint. The
// denoms travel with their amounts. A nil feeRate selects DefaultFeeRate.
func NewPoolFromTokenAccounts(name string, acc0, acc1 svm.TokenAccount, quoteMint svm.Pubkey, feeRate *big.Int) *Pool {
	a, b := acc0, acc1
	if acc0.Mint != quoteMint {
		a, b = acc1, acc0
	}
	fee := big.NewInt(DefaultFeeRate)
	if feeRate != nil {
		fee.Set(feeRate)
	}
	return &Pool{
		Name:     name,
		ReserveA: new(big.Int).SetUint64(a.Amount),
		ReserveB: new(big.Int).SetUint64(b.Amount),
		FeeRate:  fee,
		DenomA:   a.Mint.String(),
		DenomB:   b.Mint.String(),
	}
}

// DexName implements brokers.Pool.
func (p *Pool) DexName() string { return DexName }

// DenomPlane implements brokers.Pool.
func (p *Pool) DenomPlane() string { return DenomPlane }

// A implements brokers.Pool.
func (p *Pool) A() *big.Int { return new(big.Int).Set(p.ReserveA) }

// B implements brokers.Pool.
func (p *Pool) B() *big.Int { return new(big.Int).Set(p.ReserveB) }

// Denoms implements brokers.Pool.
func (p *Pool) Denoms() (string, string) { return p.DenomA, p.DenomB }

// SwapOutput estimates the result of swapping x with the constant product formula:
//
//	x' = x * (BPS - fee) / BPS
//	out = B * x' / (A + x')   for A to B
//	out = A * x' / (B + x')   for B to A
//
// Every division truncates toward zero.
func (p *Pool) SwapOutput(x *big.Int, aForB bool) (string, *big.Int, error) {
	if x == nil || x.Sign() < 0 {
		return "", nil, fmt.Errorf("swap input %v: %w", x, brokers.ErrInvalidAmount)
	}
	bps := big.NewInt(BPS)
	xFee := new(big.Int).Mul(x, new(big.Int).Sub(bps, p.FeeRate))
	xFee.Quo(xFee, bps)

	in, out, denom := p.ReserveA, p.ReserveB, p.DenomB
	if !aForB {
		in, out, denom = p.ReserveB, p.ReserveA, p.DenomA
	}

	den := new(big.Int).Add(in, xFee)
	if den.Sign() == 0 {
		return "", nil, fmt.Errorf("pool %s: %w", p.Name, brokers.ErrEmptyPool)
	}
	amount := new(big.Int).Mul(out, xFee)
	amount.Quo(amount, den)
	return denom, amount, nil
}

// ComposeSwapFIS implements brokers.Pool by compiling the swap against the broker the
// pool was loaded from.
func (p *Pool) ComposeSwapFIS(swap *brokers.Swap) (*brokers.FISInstruction, error) {
	if p.broker == nil {
		return nil, fmt.Errorf("pool %s was not loaded through a broker", p.Name)
	}
	return p.broker.ComposeSwapFIS(swap)
}
