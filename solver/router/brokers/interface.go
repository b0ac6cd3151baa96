// Package brokers defines the capability set shared by every DEX integration the solver
// can compose swaps for. The set of DEXes is closed and decided at build time: each one
// is a DexKind tag plus a package implementing Pool, and the router dispatches on the tag.
package brokers

import (
	"errors"
	"math/big"
)

// DexKind tags a supported DEX integration.
type DexKind string

const (
	// DexRaydium is the Raydium constant product (CPMM) program on the SVM plane.
	DexRaydium DexKind = "raydium"
)

// ParseDexKind maps a request string to a DexKind. Empty selects Raydium, the only
// integration at the moment.
func ParseDexKind(s string) (DexKind, error) {
	switch DexKind(s) {
	case "", DexRaydium:
		return DexRaydium, nil
	default:
		return "", ErrUnsupportedDex
	}
}

// Errors shared by broker implementations.
var (
	// ErrNotFound is returned for an unknown pool name or token symbol.
	ErrNotFound = errors.New("not found")
	// ErrInvalidAmount is returned for a negative amount or one that does not fit the
	// target program's integer width.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrEmptyPool is returned when a swap output cannot be computed because both the
	// reserve and the input are zero.
	ErrEmptyPool = errors.New("pool has no liquidity")
	// ErrUnsupportedDex is returned for an unknown DexKind.
	ErrUnsupportedDex = errors.New("unsupported dex")
)

// Pool is implemented by every DEX pool variant.
type Pool interface {
	// DexName returns the DEX identifier (e.g. "raydium")
	DexName() string
	// DenomPlane returns the VM plane the pool's denoms live on (e.g. "SVM")
	DenomPlane() string
	// A returns the reserve of the quote asset
	A() *big.Int
	// B returns the reserve of the other asset
	B() *big.Int
	// Denoms returns the denoms of slot A and slot B
	Denoms() (string, string)
	// SwapOutput estimates the output denom and amount for swapping x of A for B
	// (aForB) or of B for A.
	SwapOutput(x *big.Int, aForB bool) (string, *big.Int, error)
	// ComposeSwapFIS compiles a swap into the instruction handed to the host.
	ComposeSwapFIS(swap *Swap) (*FISInstruction, error)
}

// Swap is a caller's swap intent.
type Swap struct {
	// Sender is the host chain (bech32) address of the swapper
	Sender string `json:"sender"`
	// PoolName selects the pool in the broker's registry
	PoolName string `json:"pool_name"`
	// Denom is the input token symbol (or mint address)
	Denom string `json:"denom"`
	// Amount is the exact input amount
	Amount *big.Int `json:"amount"`
	// MinAmountOut is the slippage floor; nil compiles a swap without one
	MinAmountOut *big.Int `json:"min_amount_out,omitempty"`
}

// FISInput carries the accounts fetched for a pool as host account JSON, in the order
// the pool asked for them.
type FISInput struct {
	Data [][]byte `json:"data"`
}

// FISInstruction is the outer wrapper the host dispatches to one of its VM planes.
type FISInstruction struct {
	Plane   string `json:"plane"`
	Action  string `json:"action"`
	Address string `json:"address"`
	Msg     []byte `json:"msg"`
}
