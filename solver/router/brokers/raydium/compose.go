package raydium

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"

	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/router/brokers"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/svm"
)

// swapBaseInputDiscriminator selects the swap_base_input instruction of the CPMM
// program.
var swapBaseInputDiscriminator = [8]byte{143, 190, 90, 218, 196, 30, 51, 222}

// Envelope account slots of a swap_base_input envelope.
const (
	slotPayer = iota
	slotAuthority
	slotAmmConfig
	slotPoolState
	slotInputTokenAccount
	slotOutputTokenAccount
	slotInputVault
	slotOutputVault
	slotTokenProgram
	slotInputMint
	slotOutputMint
	slotObserverState
	slotProgram

	swapAccountCount
)

// swapBaseInputRoles is the account schedule of swap_base_input. The token program is
// listed twice since the program takes separate input and output token program slots.
var swapBaseInputRoles = []svm.InstructionAccount{
	{IDIndex: 0, CallerIndex: 0, CalleeIndex: 0, IsSigner: true, IsWritable: true},
	{IDIndex: 1, CallerIndex: 1, CalleeIndex: 1},
	{IDIndex: 2, CallerIndex: 2, CalleeIndex: 2},
	{IDIndex: 3, CallerIndex: 3, CalleeIndex: 3, IsWritable: true},
	{IDIndex: 4, CallerIndex: 4, CalleeIndex: 4, IsWritable: true},
	{IDIndex: 5, CallerIndex: 5, CalleeIndex: 5, IsWritable: true},
	{IDIndex: 6, CallerIndex: 6, CalleeIndex: 6, IsWritable: true},
	{IDIndex: 7, CallerIndex: 7, CalleeIndex: 7, IsWritable: true},
	{IDIndex: 8, CallerIndex: 8, CalleeIndex: 8},
	{IDIndex: 8, CallerIndex: 8, CalleeIndex: 8},
	{IDIndex: 9, CallerIndex: 9, CalleeIndex: 10},
	{IDIndex: 10, CallerIndex: 10, CalleeIndex: 11},
	{IDIndex: 11, CallerIndex: 11, CalleeIndex: 12, IsWritable: true},
}

// Broker compiles swaps for the pools of a Registry.
type Broker struct {
	registry      *Registry
	computeBudget uint64
}

// Option configures a Broker.
type Option func(*Broker)

// WithComputeBudget overrides DefaultComputeBudget.
func WithComputeBudget(units uint64) Option {
	return func(b *Broker) {
		b.computeBudget = units
	}
}

// NewBroker creates a broker over registry. A nil registry selects DefaultRegistry.
func NewBroker(registry *Registry, opts ...Option) *Broker {
	if registry == nil {
		registry = DefaultRegistry()
	}
	b := &Broker{
		registry:      registry,
		computeBudget: DefaultComputeBudget,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Registry returns the registry the broker composes against.
func (b *Broker) Registry() *Registry {
	return b.registry
}

// LoadPool builds a pool snapshot from the host account JSON of a named pool's vaults,
// given in Vaults order.
func (b *Broker) LoadPool(poolName string, input *brokers.FISInput) (*Pool, error) {
	accounts, err := b.registry.PoolAccounts(poolName)
	if err != nil {
		return nil, err
	}
	if input == nil || len(input.Data) < 2 {
		return nil, fmt.Errorf("pool %s: expected 2 vault accounts: %w", poolName, svm.ErrDecode)
	}
	acc0, err := vaultTokenAccount(input.Data[0])
	if err != nil {
		return nil, fmt.Errorf("pool %s: token0 vault: %w", poolName, err)
	}
	acc1, err := vaultTokenAccount(input.Data[1])
	if err != nil {
		return nil, fmt.Errorf("pool %s: token1 vault: %w", poolName, err)
	}
	if acc0.Mint != accounts.Token0Mint || acc1.Mint != accounts.Token1Mint {
		log.Warn().
			Str("pool", poolName).
			Str("vault0Mint", acc0.Mint.String()).
			Str("vault1Mint", acc1.Mint.String()).
			Msg("Vault mints do not match registry")
	}

	p := NewPoolFromTokenAccounts(poolName, acc0, acc1, b.registry.QuoteMint(), accounts.EffectiveFeeRate())
	p.broker = b
	return p, nil
}

func vaultTokenAccount(bz []byte) (svm.TokenAccount, error) {
	acc, err := svm.AccountFromJSON(bz)
	if err != nil {
		return svm.TokenAccount{}, err
	}
	return acc.TokenAccount()
}

// ComposeSwap compiles a swap intent into a swap_base_input envelope.
func (b *Broker) ComposeSwap(swap *brokers.Swap) (*svm.MsgTransaction, error) {
	if swap == nil {
		return nil, fmt.Errorf("swap is required")
	}
	pool, err := b.registry.PoolAccounts(swap.PoolName)
	if err != nil {
		return nil, err
	}
	inputMint, err := b.registry.Denom(swap.Denom)
	if err != nil {
		return nil, err
	}

	amountIn, err := toUint64(swap.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount in: %w", err)
	}
	var minOut uint64
	if swap.MinAmountOut != nil {
		if minOut, err = toUint64(swap.MinAmountOut); err != nil {
			return nil, fmt.Errorf("min amount out: %w", err)
		}
	}
	wallet, err := svm.WalletFromBech32(swap.Sender)
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}

	inputVault, outputVault := pool.Token0Vault, pool.Token1Vault
	if inputMint == pool.Token1Mint {
		inputVault, outputVault = pool.Token1Vault, pool.Token0Vault
	}
	outputMint := pool.Token0Mint
	if inputMint == pool.Token0Mint {
		outputMint = pool.Token1Mint
	}
	if inputMint != pool.Token0Mint && inputMint != pool.Token1Mint {
		log.Warn().
			Str("pool", swap.PoolName).
			Str("inputMint", inputMint.String()).
			Msg("Input mint is not part of the pool, using default vault order")
	}

	tokenProgram := pool.EffectiveTokenProgram()
	inputATA, _, err := svm.FindAssociatedTokenAddress(wallet, tokenProgram, inputMint)
	if err != nil {
		return nil, fmt.Errorf("input token account: %w", err)
	}
	outputATA, _, err := svm.FindAssociatedTokenAddress(wallet, tokenProgram, outputMint)
	if err != nil {
		return nil, fmt.Errorf("output token account: %w", err)
	}

	keys := make([]svm.Pubkey, swapAccountCount)
	keys[slotPayer] = wallet
	keys[slotAuthority] = pool.Authority
	keys[slotAmmConfig] = pool.AmmConfig
	keys[slotPoolState] = pool.PoolState
	keys[slotInputTokenAccount] = inputATA
	keys[slotOutputTokenAccount] = outputATA
	keys[slotInputVault] = inputVault
	keys[slotOutputVault] = outputVault
	keys[slotTokenProgram] = tokenProgram
	keys[slotInputMint] = inputMint
	keys[slotOutputMint] = outputMint
	keys[slotObserverState] = pool.ObserverState
	keys[slotProgram] = CPMMProgramID

	accounts := make([]string, len(keys))
	for i, k := range keys {
		accounts[i] = k.String()
	}

	data, err := encodeSwapBaseInput(amountIn, minOut)
	if err != nil {
		return nil, err
	}

	roles := make([]svm.InstructionAccount, len(swapBaseInputRoles))
	copy(roles, swapBaseInputRoles)

	msg := &svm.MsgTransaction{
		Sender:   swap.Sender,
		Accounts: accounts,
		Instructions: []svm.Instruction{{
			ProgramIndex: []uint32{slotProgram},
			Accounts:     roles,
			Data:         data,
		}},
		ComputeBudget: b.computeBudget,
	}

	log.Debug().
		Str("pool", swap.PoolName).
		Str("inputMint", inputMint.String()).
		Str("outputMint", outputMint.String()).
		Uint64("amountIn", amountIn).
		Uint64("minOut", minOut).
		Msg("Composed swap_base_input")

	return msg, nil
}

// ComposeSwapFIS compiles a swap and wraps it for the host's SVM plane.
func (b *Broker) ComposeSwapFIS(swap *brokers.Swap) (*brokers.FISInstruction, error) {
	msg, err := b.ComposeSwap(swap)
	if err != nil {
		return nil, err
	}
	return NewFISInstruction(msg)
}

// NewFISInstruction wraps an envelope for the host's SVM plane.
func NewFISInstruction(msg *svm.MsgTransaction) (*brokers.FISInstruction, error) {
	bz, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return &brokers.FISInstruction{
		Plane:   DenomPlane,
		Action:  VMInvokeAction,
		Address: "",
		Msg:     bz,
	}, nil
}

// encodeSwapBaseInput lays out discriminator ‖ amount_in ‖ minimum_amount_out.
func encodeSwapBaseInput(amountIn, minOut uint64) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(swapBaseInputDiscriminator[:], false); err != nil {
		return nil, fmt.Errorf("failed to encode discriminator: %w", err)
	}
	if err := enc.WriteUint64(amountIn, bin.LE); err != nil {
		return nil, fmt.Errorf("failed to encode amount in: %w", err)
	}
	if err := enc.WriteUint64(minOut, bin.LE); err != nil {
		return nil, fmt.Errorf("failed to encode min amount out: %w", err)
	}
	return buf.Bytes(), nil
}

func toUint64(v *big.Int) (uint64, error) {
	if v == nil || v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("%v: %w", v, brokers.ErrInvalidAmount)
	}
	return v.Uint64(), nil
}
