package router

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/models"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/router/brokers"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/router/brokers/raydium"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/svm"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "solver").Logger()
}

// SetLogger replaces the package logger.
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "solver").Logger()
}

// DefaultSlippageBps is used when neither the request nor the config sets one.
const DefaultSlippageBps = 100

const priceDecimals = 8

// AccountReader fetches raw account data, in the order of keys.
type AccountReader interface {
	GetAccounts(ctx context.Context, keys []svm.Pubkey) ([]svm.Account, error)
}

// Solver quotes and composes swaps across the supported DEXes. It is read-only after
// construction and safe for concurrent use.
type Solver struct {
	raydium     *raydium.Broker
	accounts    AccountReader
	slippageBps uint32
	tracer      trace.Tracer
}

// NewSolver creates a solver. accounts may be nil, in which case only composing with an
// explicit min out and address derivation are available.
func NewSolver(raydiumBroker *raydium.Broker, accounts AccountReader, slippageBps uint32) *Solver {
	if raydiumBroker == nil {
		raydiumBroker = raydium.NewBroker(nil)
	}
	return &Solver{
		raydium:     raydiumBroker,
		accounts:    accounts,
		slippageBps: slippageBps,
		tracer:      otel.Tracer("spectra-svm-solver/router"),
	}
}

// LoadPool fetches the vault accounts of a pool and builds its current snapshot.
func (s *Solver) LoadPool(ctx context.Context, kind brokers.DexKind, poolName string) (brokers.Pool, error) {
	if s.accounts == nil {
		return nil, fmt.Errorf("no account reader configured")
	}

	switch kind {
	case brokers.DexRaydium:
		accounts, err := s.raydium.Registry().PoolAccounts(poolName)
		if err != nil {
			return nil, err
		}
		vaults, err := s.accounts.GetAccounts(ctx, accounts.Vaults())
		if err != nil {
			return nil, fmt.Errorf("failed to fetch vaults of %s: %w", poolName, err)
		}
		input := &brokers.FISInput{Data: make([][]byte, len(vaults))}
		for i, acc := range vaults {
			if input.Data[i], err = json.Marshal(acc); err != nil {
				return nil, fmt.Errorf("failed to encode vault of %s: %w", poolName, err)
			}
		}
		return s.raydium.LoadPool(poolName, input)
	default:
		return nil, fmt.Errorf("%s: %w", kind, brokers.ErrUnsupportedDex)
	}
}

func (s *Solver) resolveDenom(kind brokers.DexKind, symbol string) (svm.Pubkey, error) {
	switch kind {
	case brokers.DexRaydium:
		return s.raydium.Registry().Denom(symbol)
	default:
		return svm.Pubkey{}, fmt.Errorf("%s: %w", kind, brokers.ErrUnsupportedDex)
	}
}

func (s *Solver) symbol(kind brokers.DexKind, denom string) string {
	mint, err := svm.PubkeyFromBase58(denom)
	if err != nil {
		return denom
	}
	switch kind {
	case brokers.DexRaydium:
		return s.raydium.Registry().Symbol(mint)
	default:
		return denom
	}
}

// Quote estimates the output of a swap against the pool's current reserves.
func (s *Solver) Quote(ctx context.Context, req *models.QuoteRequest) (resp *models.QuoteResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "Solver.Quote", trace.WithAttributes(
		attribute.String("dex", req.Dex),
		attribute.String("pool", req.PoolName),
		attribute.String("denom", req.Denom),
	))
	defer func() { endSpan(span, err) }()

	kind, err := brokers.ParseDexKind(req.Dex)
	if err != nil {
		return nil, err
	}
	amountIn, err := parseAmount(req.AmountIn)
	if err != nil {
		return nil, fmt.Errorf("amount in: %w", err)
	}
	slippage := s.slippageBps
	if req.SlippageBps != nil {
		slippage = *req.SlippageBps
	}

	inputMint, err := s.resolveDenom(kind, req.Denom)
	if err != nil {
		return nil, err
	}
	pool, err := s.LoadPool(ctx, kind, req.PoolName)
	if err != nil {
		return nil, err
	}

	denomA, denomB := pool.Denoms()
	var aForB bool
	switch inputMint.String() {
	case denomA:
		aForB = true
	case denomB:
		aForB = false
	default:
		return nil, fmt.Errorf("denom %s is not part of pool %s: %w", req.Denom, req.PoolName, brokers.ErrNotFound)
	}

	denomOut, amountOut, err := pool.SwapOutput(amountIn, aForB)
	if err != nil {
		return nil, err
	}
	minOut, err := brokers.CalculateMinOutput(amountOut.String(), slippage)
	if err != nil {
		return nil, err
	}
	price, err := brokers.EffectivePrice(amountIn.String(), amountOut.String(), priceDecimals)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("pool", req.PoolName).
		Str("denomIn", inputMint.String()).
		Str("amountIn", amountIn.String()).
		Str("amountOut", amountOut.String()).
		Msg("Quoted swap")

	return &models.QuoteResponse{
		Dex:            pool.DexName(),
		PoolName:       req.PoolName,
		DenomIn:        inputMint.String(),
		DenomOut:       denomOut,
		SymbolOut:      s.symbol(kind, denomOut),
		AmountIn:       amountIn.String(),
		AmountOut:      amountOut.String(),
		MinAmountOut:   minOut,
		SlippageBps:    slippage,
		EffectivePrice: price,
		ReserveA:       pool.A().String(),
		ReserveB:       pool.B().String(),
	}, nil
}

// ComposeSwap compiles a swap intent into an envelope. The min out floor is taken from
// the request, or derived from a fresh quote when only a slippage is given, or left at
// zero.
func (s *Solver) ComposeSwap(ctx context.Context, req *models.ComposeSwapRequest) (resp *models.ComposeSwapResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "Solver.ComposeSwap", trace.WithAttributes(
		attribute.String("dex", req.Dex),
		attribute.String("pool", req.PoolName),
		attribute.String("denom", req.Denom),
	))
	defer func() { endSpan(span, err) }()

	kind, err := brokers.ParseDexKind(req.Dex)
	if err != nil {
		return nil, err
	}
	amountIn, err := parseAmount(req.AmountIn)
	if err != nil {
		return nil, fmt.Errorf("amount in: %w", err)
	}

	swap := &brokers.Swap{
		Sender:   req.Sender,
		PoolName: req.PoolName,
		Denom:    req.Denom,
		Amount:   amountIn,
	}

	var quote *models.QuoteResponse
	switch {
	case req.MinAmountOut != "":
		if swap.MinAmountOut, err = parseAmount(req.MinAmountOut); err != nil {
			return nil, fmt.Errorf("min amount out: %w", err)
		}
	case req.SlippageBps != nil:
		quote, err = s.Quote(ctx, &models.QuoteRequest{
			Dex:         req.Dex,
			PoolName:    req.PoolName,
			Denom:       req.Denom,
			AmountIn:    req.AmountIn,
			SlippageBps: req.SlippageBps,
		})
		if err != nil {
			return nil, err
		}
		if swap.MinAmountOut, err = parseAmount(quote.MinAmountOut); err != nil {
			return nil, fmt.Errorf("min amount out: %w", err)
		}
	}

	var msg *svm.MsgTransaction
	switch kind {
	case brokers.DexRaydium:
		msg, err = s.raydium.ComposeSwap(swap)
	default:
		err = fmt.Errorf("%s: %w", kind, brokers.ErrUnsupportedDex)
	}
	if err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("composed envelope is invalid: %w", err)
	}

	fis, err := raydium.NewFISInstruction(msg)
	if err != nil {
		return nil, err
	}

	return &models.ComposeSwapResponse{
		Instruction: fis,
		Message:     msg,
		Quote:       quote,
	}, nil
}

// DeriveAddress resolves the SVM wallet of a host address, its associated token
// accounts, and an arbitrary program derived address.
func (s *Solver) DeriveAddress(ctx context.Context, req *models.DeriveAddressRequest) (resp *models.DeriveAddressResponse, err error) {
	_, span := s.tracer.Start(ctx, "Solver.DeriveAddress")
	defer func() { endSpan(span, err) }()

	if req.Sender == "" && req.ProgramID == "" {
		return nil, fmt.Errorf("sender or program_id is required: %w", svm.ErrAddressFormat)
	}
	resp = &models.DeriveAddressResponse{}

	if req.Sender != "" {
		wallet, err := svm.WalletFromBech32(req.Sender)
		if err != nil {
			return nil, err
		}
		resp.Wallet = wallet.String()

		tokenProgram := svm.Token2022ProgramID
		if req.TokenProgram != "" {
			if tokenProgram, err = svm.PubkeyFromBase58(req.TokenProgram); err != nil {
				return nil, fmt.Errorf("token program: %w", err)
			}
		}
		for _, symbol := range req.Mints {
			mint, err := s.resolveDenom(brokers.DexRaydium, symbol)
			if err != nil {
				return nil, err
			}
			ata, bump, err := svm.FindAssociatedTokenAddress(wallet, tokenProgram, mint)
			if err != nil {
				return nil, fmt.Errorf("associated token account for %s: %w", symbol, err)
			}
			resp.TokenAccounts = append(resp.TokenAccounts, models.DerivedAccount{
				Mint:    mint.String(),
				Address: ata.String(),
				Bump:    bump,
			})
		}
	}

	if req.ProgramID != "" {
		programID, err := svm.PubkeyFromBase58(req.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("program id: %w", err)
		}
		pda, bump, err := svm.FindProgramAddress(req.Seeds, programID)
		if err != nil {
			return nil, err
		}
		resp.ProgramAddress = &models.DerivedAccount{Address: pda.String(), Bump: bump}
	}

	return resp, nil
}

// ListPools returns the pools registered for a DEX.
func (s *Solver) ListPools(req *models.ListPoolsRequest) (*models.PoolsResponse, error) {
	kind, err := brokers.ParseDexKind(req.Dex)
	if err != nil {
		return nil, err
	}

	resp := &models.PoolsResponse{Pools: []models.PoolInfo{}}
	switch kind {
	case brokers.DexRaydium:
		reg := s.raydium.Registry()
		for _, name := range reg.PoolNames() {
			accounts, err := reg.PoolAccounts(name)
			if err != nil {
				return nil, err
			}
			resp.Pools = append(resp.Pools, models.PoolInfo{
				Dex:        raydium.DexName,
				Name:       name,
				Token0Mint: accounts.Token0Mint.String(),
				Token1Mint: accounts.Token1Mint.String(),
				FeeRate:    accounts.EffectiveFeeRate().String(),
			})
		}
	}
	return resp, nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%q: %w", s, brokers.ErrInvalidAmount)
	}
	return v, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
