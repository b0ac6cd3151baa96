// Package raydium implements the Raydium constant product AMM (CPMM) broker: the pool
// pricing model and the compiler that turns a swap intent into an SVM envelope for the
// CPMM swap_base_input instruction.
package raydium

import (
	"fmt"
	"math/big"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/router/brokers"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/svm"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "raydium-broker").Logger()
}

// SetLogger replaces the package logger.
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "raydium-broker").Logger()
}

const (
	// DexName is the identifier reported by Raydium pools.
	DexName = "raydium"
	// DenomPlane is the VM plane Raydium denoms live on.
	DenomPlane = "SVM"
	// VMInvokeAction is the host action that executes an SVM envelope.
	VMInvokeAction = "VM_INVOKE"

	// BPS is the fee rate denominator (parts per million).
	BPS = 1_000_000
	// DefaultFeeRate is the trade fee of the default CPMM config (0.1%).
	DefaultFeeRate = 1000
	// DefaultComputeBudget is the compute unit limit set on composed envelopes.
	DefaultComputeBudget = 10_000_000
)

var (
	// CPMMProgramID is the Raydium CPMM program.
	CPMMProgramID = svm.MustPubkeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")
	// DefaultQuoteMint is the mint placed in slot A of every pool (usdt).
	DefaultQuoteMint = svm.MustPubkeyFromBase58("HwkqUQaXocRwNLGX2qKmC3Sk4uTVxmzmCEAEHDwSj4KQ")
)

// PoolAccounts is the fixed account set of one CPMM pool.
type PoolAccounts struct {
	Authority     svm.Pubkey
	AmmConfig     svm.Pubkey
	PoolState     svm.Pubkey
	Token0Mint    svm.Pubkey
	Token1Mint    svm.Pubkey
	Token0Vault   svm.Pubkey
	Token1Vault   svm.Pubkey
	ObserverState svm.Pubkey
	// TokenProgram owns both mints; zero means Token-2022
	TokenProgram svm.Pubkey
	// FeeRate is the trade fee in parts per million; nil means DefaultFeeRate
	FeeRate *big.Int
}

// Vaults returns the two vault addresses in token0, token1 order. This is the order a
// FISInput for the pool must follow.
func (p PoolAccounts) Vaults() []svm.Pubkey {
	return []svm.Pubkey{p.Token0Vault, p.Token1Vault}
}

// EffectiveTokenProgram returns the token program, defaulting to Token-2022.
func (p PoolAccounts) EffectiveTokenProgram() svm.Pubkey {
	if p.TokenProgram.IsZero() {
		return svm.Token2022ProgramID
	}
	return p.TokenProgram
}

// EffectiveFeeRate returns a copy of the fee rate, defaulting to DefaultFeeRate.
func (p PoolAccounts) EffectiveFeeRate() *big.Int {
	if p.FeeRate == nil {
		return big.NewInt(DefaultFeeRate)
	}
	return new(big.Int).Set(p.FeeRate)
}

// Registry maps pool names and token symbols to on-chain addresses. It is built once at
// startup and read-only afterwards.
type Registry struct {
	pools     map[string]PoolAccounts
	symbols   map[string]svm.Pubkey
	quoteMint svm.Pubkey
}

// NewRegistry creates an empty registry using quoteMint for slot A of every pool.
func NewRegistry(quoteMint svm.Pubkey) *Registry {
	return &Registry{
		pools:     make(map[string]PoolAccounts),
		symbols:   make(map[string]svm.Pubkey),
		quoteMint: quoteMint,
	}
}

// DefaultRegistry returns the registry with the btc-usdt pool deployed on the host
// chain.
func DefaultRegistry() *Registry {
	r := NewRegistry(DefaultQuoteMint)
	r.AddSymbol("btc", svm.MustPubkeyFromBase58("9kWnPUAkspGW6qGPPah1aAdH316nkiJhow5neRs5YDej"))
	r.AddSymbol("usdt", DefaultQuoteMint)
	r.pools["btc-usdt"] = PoolAccounts{
		Authority:     svm.MustPubkeyFromBase58("GpMZbSM2GgvTKHJirzeGfMFoaZ8UR2X7F4v8vHTvxFbL"),
		AmmConfig:     svm.MustPubkeyFromBase58("D4FPEruKEHrG5TenZ2mpDGEfu1iUvTiqBxvpU8HLBvC2"),
		PoolState:     svm.MustPubkeyFromBase58("5qUshuBSTpuMu5c1C1Fxq8uJ7Emhn9AAtQwVJfEXAPmy"),
		Token0Mint:    svm.MustPubkeyFromBase58("9kWnPUAkspGW6qGPPah1aAdH316nkiJhow5neRs5YDej"),
		Token1Mint:    DefaultQuoteMint,
		Token0Vault:   svm.MustPubkeyFromBase58("9U5Lpfmc6u1rCRAfzGe883KnK5Avm76zX4te6sexvCEk"),
		Token1Vault:   svm.MustPubkeyFromBase58("UURmKznoUTh8Dt9wgyusq6u1ETuY8Zj79NFAtfQJ7HB"),
		ObserverState: svm.MustPubkeyFromBase58("FXqXrt2xDrxg7J5wdXrTbB2hCGajSzXLvwvc4x3Uw7i"),
	}
	return r
}

// AddPool registers a pool, replacing any pool with the same name.
func (r *Registry) AddPool(name string, accounts PoolAccounts) error {
	if name == "" {
		return fmt.Errorf("pool name is required")
	}
	if accounts.Token0Mint == accounts.Token1Mint {
		return fmt.Errorf("pool %s: token0 and token1 mint must differ", name)
	}
	if accounts.FeeRate != nil && (accounts.FeeRate.Sign() < 0 || accounts.FeeRate.Cmp(big.NewInt(BPS)) >= 0) {
		return fmt.Errorf("pool %s: fee rate %s out of range [0, %d)", name, accounts.FeeRate, BPS)
	}
	r.pools[name] = accounts
	return nil
}

// AddSymbol maps a token symbol to its mint.
func (r *Registry) AddSymbol(symbol string, mint svm.Pubkey) {
	r.symbols[symbol] = mint
}

// QuoteMint returns the mint kept in slot A.
func (r *Registry) QuoteMint() svm.Pubkey {
	return r.quoteMint
}

// PoolAccounts returns the account set of a named pool.
func (r *Registry) PoolAccounts(name string) (PoolAccounts, error) {
	p, ok := r.pools[name]
	if !ok {
		return PoolAccounts{}, fmt.Errorf("pool %q: %w", name, brokers.ErrNotFound)
	}
	return p, nil
}

// PoolNames returns the registered pool names, sorted.
func (r *Registry) PoolNames() []string {
	names := make([]string, 0, len(r.pools))
	for name := range r.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Denom resolves a token symbol to its mint. A string that is not a known symbol but
// parses as a base58 address is taken to be a mint already.
func (r *Registry) Denom(symbol string) (svm.Pubkey, error) {
	if mint, ok := r.symbols[symbol]; ok {
		return mint, nil
	}
	mint, err := svm.PubkeyFromBase58(symbol)
	if err != nil {
		return svm.Pubkey{}, fmt.Errorf("denom %q: %w", symbol, brokers.ErrNotFound)
	}
	return mint, nil
}

// Symbol returns the symbol registered for a mint, or the mint's base58 form.
func (r *Registry) Symbol(mint svm.Pubkey) string {
	for symbol, m := range r.symbols {
		if m == mint {
			return symbol
		}
	}
	return mint.String()
}
