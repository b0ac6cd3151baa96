package raydium_test

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/zeebo/assert"

	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/router/brokers"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/router/brokers/raydium"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/svm"
)

var (
	btcMint  = svm.MustPubkeyFromBase58("9kWnPUAkspGW6qGPPah1aAdH316nkiJhow5neRs5YDej")
	usdtMint = raydium.DefaultQuoteMint
	vault0   = svm.MustPubkeyFromBase58("9U5Lpfmc6u1rCRAfzGe883KnK5Avm76zX4te6sexvCEk")
	vault1   = svm.MustPubkeyFromBase58("UURmKznoUTh8Dt9wgyusq6u1ETuY8Zj79NFAtfQJ7HB")
)

var senderBytes = []byte{
	0x3f, 0x12, 0x9a, 0x01, 0x55, 0xc0, 0x7e, 0x42, 0x00, 0xab,
	0x19, 0x88, 0x6d, 0x2e, 0xf1, 0x04, 0x60, 0x93, 0x7c, 0xd5,
}

func sender(t *testing.T) string {
	t.Helper()
	conv, err := bech32.ConvertBits(senderBytes, 8, 5, true)
	assert.NoError(t, err)
	s, err := bech32.Encode("inj", conv)
	assert.NoError(t, err)
	return s
}

func accountJSON(t *testing.T, key svm.Pubkey, data []byte) []byte {
	t.Helper()
	bz, err := json.Marshal(svm.Account{
		Pubkey:   key.Bytes(),
		Owner:    svm.Token2022ProgramID.Bytes(),
		Lamports: 2039280,
		Data:     data,
	})
	assert.NoError(t, err)
	return bz
}

func loadPool(t *testing.T, b *raydium.Broker, amount0, amount1 uint64) *raydium.Pool {
	t.Helper()
	in := &brokers.FISInput{Data: [][]byte{
		accountJSON(t, vault0, svm.TokenAccount{Mint: btcMint, Owner: vault0, Amount: amount0}.Pack()),
		accountJSON(t, vault1, svm.TokenAccount{Mint: usdtMint, Owner: vault1, Amount: amount1}.Pack()),
	}}
	p, err := b.LoadPool("btc-usdt", in)
	assert.NoError(t, err)
	return p
}

func TestSwapOutput_ConstantProduct(t *testing.T) {
	b := raydium.NewBroker(nil)
	// usdt is token1 so it lands in slot A
	p := loadPool(t, b, 2000, 1000)
	assert.Equal(t, p.A().Int64(), int64(1000))
	assert.Equal(t, p.B().Int64(), int64(2000))
	assert.Equal(t, p.DenomA, usdtMint.String())
	assert.Equal(t, p.DenomB, btcMint.String())

	denom, out, err := p.SwapOutput(big.NewInt(100), true)
	assert.NoError(t, err)
	assert.Equal(t, denom, btcMint.String())
	assert.Equal(t, out.Int64(), int64(180))

	denom, out, err = p.SwapOutput(big.NewInt(100), false)
	assert.NoError(t, err)
	assert.Equal(t, denom, usdtMint.String())
	assert.Equal(t, out.Int64(), int64(47))
}

func TestSwapOutput_QuoteAlwaysInSlotA(t *testing.T) {
	reg := raydium.NewRegistry(usdtMint)
	assert.NoError(t, reg.AddPool("usdt-btc", raydium.PoolAccounts{
		Token0Mint:  usdtMint,
		Token1Mint:  btcMint,
		Token0Vault: vault1,
		Token1Vault: vault0,
	}))
	b := raydium.NewBroker(reg)

	p, err := b.LoadPool("usdt-btc", &brokers.FISInput{Data: [][]byte{
		accountJSON(t, vault1, svm.TokenAccount{Mint: usdtMint, Amount: 1000}.Pack()),
		accountJSON(t, vault0, svm.TokenAccount{Mint: btcMint, Amount: 2000}.Pack()),
	}})
	assert.NoError(t, err)
	assert.Equal(t, p.A().Int64(), int64(1000))
	assert.Equal(t, p.DenomA, usdtMint.String())
	assert.Equal(t, p.DenomB, btcMint.String())
}

func TestNewPoolFromTokenAccounts_SlotOrder(t *testing.T) {
	ethMint := svm.MustPubkeyFromBase58("7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs")
	btc := svm.TokenAccount{Mint: btcMint, Amount: 2000}
	eth := svm.TokenAccount{Mint: ethMint, Amount: 30}
	usdt := svm.TokenAccount{Mint: usdtMint, Amount: 1000}

	p := raydium.NewPoolFromTokenAccounts("usdt-btc", usdt, btc, usdtMint, nil)
	assert.Equal(t, p.DenomA, usdtMint.String())
	assert.Equal(t, p.DenomB, btcMint.String())

	// neither side is the quote mint: the first account moves to slot B
	p = raydium.NewPoolFromTokenAccounts("btc-eth", btc, eth, usdtMint, nil)
	assert.Equal(t, p.DenomA, ethMint.String())
	assert.Equal(t, p.DenomB, btcMint.String())
	assert.Equal(t, p.A().Int64(), int64(30))
	assert.Equal(t, p.B().Int64(), int64(2000))
}

func TestNewPoolFromTokenAccounts_FeeRate(t *testing.T) {
	btc := svm.TokenAccount{Mint: btcMint, Amount: 2000}
	usdt := svm.TokenAccount{Mint: usdtMint, Amount: 1000}

	p := raydium.NewPoolFromTokenAccounts("btc-usdt", btc, usdt, usdtMint, nil)
	assert.Equal(t, p.FeeRate.Int64(), int64(raydium.DefaultFeeRate))
	_, out, err := p.SwapOutput(big.NewInt(100), true)
	assert.NoError(t, err)
	assert.Equal(t, out.Int64(), int64(180))

	fee := big.NewInt(3000)
	p = raydium.NewPoolFromTokenAccounts("btc-usdt", btc, usdt, usdtMint, fee)
	fee.SetInt64(raydium.BPS)
	assert.Equal(t, p.FeeRate.Int64(), int64(3000))
	_, out, err = p.SwapOutput(big.NewInt(100), true)
	assert.NoError(t, err)
	assert.Equal(t, out.Int64(), int64(180))
}

func TestSwapOutput_Bounds(t *testing.T) {
	p := loadPool(t, raydium.NewBroker(nil), 2000, 1000)

	_, out, err := p.SwapOutput(big.NewInt(0), true)
	assert.NoError(t, err)
	assert.Equal(t, out.Sign(), 0)

	// output never reaches the reserve
	huge, _ := new(big.Int).SetString("1000000000000000000000000", 10)
	_, out, err = p.SwapOutput(huge, true)
	assert.NoError(t, err)
	assert.True(t, out.Cmp(p.B()) < 0)

	_, _, err = p.SwapOutput(big.NewInt(-1), true)
	assert.True(t, errors.Is(err, brokers.ErrInvalidAmount))
}

func TestSwapOutput_EmptyPool(t *testing.T) {
	p := loadPool(t, raydium.NewBroker(nil), 0, 0)
	_, _, err := p.SwapOutput(big.NewInt(0), true)
	assert.True(t, errors.Is(err, brokers.ErrEmptyPool))
}

func TestLoadPool_Errors(t *testing.T) {
	b := raydium.NewBroker(nil)

	_, err := b.LoadPool("eth-usdt", &brokers.FISInput{})
	assert.True(t, errors.Is(err, brokers.ErrNotFound))

	full := accountJSON(t, vault0, make([]byte, 72))
	_, err = b.LoadPool("btc-usdt", &brokers.FISInput{Data: [][]byte{full}})
	assert.True(t, errors.Is(err, svm.ErrDecode))

	short := accountJSON(t, vault1, make([]byte, 71))
	_, err = b.LoadPool("btc-usdt", &brokers.FISInput{Data: [][]byte{full, short}})
	assert.True(t, errors.Is(err, svm.ErrDecode))

	_, err = b.LoadPool("btc-usdt", &brokers.FISInput{Data: [][]byte{full, []byte("{")}})
	assert.True(t, errors.Is(err, svm.ErrDecode))
}

func TestComposeSwap_Envelope(t *testing.T) {
	b := raydium.NewBroker(nil)
	from := sender(t)
	wallet := svm.WalletFromAccountBytes(senderBytes)

	msg, err := b.ComposeSwap(&brokers.Swap{
		Sender:   from,
		PoolName: "btc-usdt",
		Denom:    "btc",
		Amount:   big.NewInt(100),
	})
	assert.NoError(t, err)
	assert.NoError(t, msg.Validate())

	assert.Equal(t, msg.Sender, from)
	assert.Equal(t, msg.ComputeBudget, uint64(raydium.DefaultComputeBudget))
	assert.Equal(t, len(msg.Accounts), 13)

	inATA, _, err := svm.FindAssociatedTokenAddress(wallet, svm.Token2022ProgramID, btcMint)
	assert.NoError(t, err)
	outATA, _, err := svm.FindAssociatedTokenAddress(wallet, svm.Token2022ProgramID, usdtMint)
	assert.NoError(t, err)

	assert.DeepEqual(t, msg.Accounts, []string{
		wallet.String(),
		"GpMZbSM2GgvTKHJirzeGfMFoaZ8UR2X7F4v8vHTvxFbL",
		"D4FPEruKEHrG5TenZ2mpDGEfu1iUvTiqBxvpU8HLBvC2",
		"5qUshuBSTpuMu5c1C1Fxq8uJ7Emhn9AAtQwVJfEXAPmy",
		inATA.String(),
		outATA.String(),
		vault0.String(),
		vault1.String(),
		svm.Token2022ProgramID.String(),
		btcMint.String(),
		usdtMint.String(),
		"FXqXrt2xDrxg7J5wdXrTbB2hCGajSzXLvwvc4x3Uw7i",
		"CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C",
	})

	assert.Equal(t, len(msg.Instructions), 1)
	ix := msg.Instructions[0]
	assert.DeepEqual(t, ix.ProgramIndex, []uint32{12})
	assert.Equal(t, len(ix.Accounts), 13)

	distinct := make(map[uint32]bool)
	for _, acc := range ix.Accounts {
		distinct[acc.IDIndex] = true
	}
	assert.Equal(t, len(distinct), 12)

	assert.Equal(t, ix.Accounts[0], svm.InstructionAccount{IsSigner: true, IsWritable: true})
	assert.Equal(t, ix.Accounts[8], ix.Accounts[9])
	assert.Equal(t, ix.Accounts[12], svm.InstructionAccount{IDIndex: 11, CallerIndex: 11, CalleeIndex: 12, IsWritable: true})
	for i, acc := range ix.Accounts[1:] {
		assert.False(t, acc.IsSigner)
		writable := i+1 >= 3 && i+1 <= 7 || i+1 == 12
		assert.Equal(t, acc.IsWritable, writable)
	}

	assert.Equal(t, len(ix.Data), 24)
	assert.DeepEqual(t, ix.Data[:8], []byte{143, 190, 90, 218, 196, 30, 51, 222})
	assert.Equal(t, binary.LittleEndian.Uint64(ix.Data[8:16]), uint64(100))
	assert.Equal(t, binary.LittleEndian.Uint64(ix.Data[16:24]), uint64(0))
}

func TestComposeSwap_ReverseDirection(t *testing.T) {
	b := raydium.NewBroker(nil)
	msg, err := b.ComposeSwap(&brokers.Swap{
		Sender:       sender(t),
		PoolName:     "btc-usdt",
		Denom:        "usdt",
		Amount:       big.NewInt(5_000_000),
		MinAmountOut: big.NewInt(42),
	})
	assert.NoError(t, err)

	assert.Equal(t, msg.Accounts[6], vault1.String())
	assert.Equal(t, msg.Accounts[7], vault0.String())
	assert.Equal(t, msg.Accounts[9], usdtMint.String())
	assert.Equal(t, msg.Accounts[10], btcMint.String())

	data := msg.Instructions[0].Data
	assert.Equal(t, binary.LittleEndian.Uint64(data[8:16]), uint64(5_000_000))
	assert.Equal(t, binary.LittleEndian.Uint64(data[16:24]), uint64(42))
}

func TestComposeSwap_MintOutsidePool(t *testing.T) {
	foreign := svm.MustPubkeyFromBase58("7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs")
	msg, err := raydium.NewBroker(nil).ComposeSwap(&brokers.Swap{
		Sender:   sender(t),
		PoolName: "btc-usdt",
		Denom:    foreign.String(),
		Amount:   big.NewInt(10),
	})
	assert.NoError(t, err)
	assert.NoError(t, msg.Validate())

	// default vault order, output is token0
	assert.Equal(t, msg.Accounts[6], vault0.String())
	assert.Equal(t, msg.Accounts[7], vault1.String())
	assert.Equal(t, msg.Accounts[9], foreign.String())
	assert.Equal(t, msg.Accounts[10], btcMint.String())
}

func TestComposeSwap_MintAddressAsDenom(t *testing.T) {
	b := raydium.NewBroker(nil)
	bySymbol, err := b.ComposeSwap(&brokers.Swap{Sender: sender(t), PoolName: "btc-usdt", Denom: "btc", Amount: big.NewInt(1)})
	assert.NoError(t, err)
	byMint, err := b.ComposeSwap(&brokers.Swap{Sender: sender(t), PoolName: "btc-usdt", Denom: btcMint.String(), Amount: big.NewInt(1)})
	assert.NoError(t, err)
	assert.DeepEqual(t, byMint.Accounts, bySymbol.Accounts)
}

func TestComposeSwap_Errors(t *testing.T) {
	b := raydium.NewBroker(nil)
	overflow := new(big.Int).Lsh(big.NewInt(1), 64)

	cases := []struct {
		name string
		swap *brokers.Swap
		want error
	}{
		{"unknown pool", &brokers.Swap{Sender: sender(t), PoolName: "eth-usdt", Denom: "btc", Amount: big.NewInt(1)}, brokers.ErrNotFound},
		{"unknown symbol", &brokers.Swap{Sender: sender(t), PoolName: "btc-usdt", Denom: "doge", Amount: big.NewInt(1)}, brokers.ErrNotFound},
		{"amount overflow", &brokers.Swap{Sender: sender(t), PoolName: "btc-usdt", Denom: "btc", Amount: overflow}, brokers.ErrInvalidAmount},
		{"negative amount", &brokers.Swap{Sender: sender(t), PoolName: "btc-usdt", Denom: "btc", Amount: big.NewInt(-5)}, brokers.ErrInvalidAmount},
		{"min out overflow", &brokers.Swap{Sender: sender(t), PoolName: "btc-usdt", Denom: "btc", Amount: big.NewInt(1), MinAmountOut: overflow}, brokers.ErrInvalidAmount},
		{"bad sender", &brokers.Swap{Sender: "nope", PoolName: "btc-usdt", Denom: "btc", Amount: big.NewInt(1)}, svm.ErrAddressFormat},
		{"unknown pool before sender", &brokers.Swap{Sender: "nope", PoolName: "eth-usdt", Denom: "btc", Amount: overflow}, brokers.ErrNotFound},
		{"unknown symbol before amount", &brokers.Swap{Sender: "nope", PoolName: "btc-usdt", Denom: "doge", Amount: overflow}, brokers.ErrNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			msg, err := b.ComposeSwap(c.swap)
			assert.True(t, errors.Is(err, c.want))
			assert.Nil(t, msg)

			fis, err := b.ComposeSwapFIS(c.swap)
			assert.Error(t, err)
			assert.Nil(t, fis)
		})
	}
}

func TestComposeSwapFIS(t *testing.T) {
	b := raydium.NewBroker(nil, raydium.WithComputeBudget(400_000))
	swap := &brokers.Swap{Sender: sender(t), PoolName: "btc-usdt", Denom: "btc", Amount: big.NewInt(100)}

	fis, err := b.ComposeSwapFIS(swap)
	assert.NoError(t, err)
	assert.Equal(t, fis.Plane, "SVM")
	assert.Equal(t, fis.Action, "VM_INVOKE")
	assert.Equal(t, fis.Address, "")

	var msg svm.MsgTransaction
	assert.NoError(t, json.Unmarshal(fis.Msg, &msg))
	assert.Equal(t, msg.ComputeBudget, uint64(400_000))

	direct, err := b.ComposeSwap(swap)
	assert.NoError(t, err)
	assert.DeepEqual(t, msg.Accounts, direct.Accounts)
	assert.DeepEqual(t, msg.Instructions, direct.Instructions)

	// the pool capability delegates to the same broker
	p := loadPool(t, b, 10, 10)
	viaPool, err := p.ComposeSwapFIS(swap)
	assert.NoError(t, err)
	assert.DeepEqual(t, viaPool.Msg, fis.Msg)
}

func TestRegistry(t *testing.T) {
	reg := raydium.DefaultRegistry()
	assert.DeepEqual(t, reg.PoolNames(), []string{"btc-usdt"})
	assert.Equal(t, reg.Symbol(btcMint), "btc")
	assert.Equal(t, reg.Symbol(vault0), vault0.String())

	mint, err := reg.Denom("usdt")
	assert.NoError(t, err)
	assert.Equal(t, mint, usdtMint)

	err = reg.AddPool("same", raydium.PoolAccounts{Token0Mint: btcMint, Token1Mint: btcMint})
	assert.Error(t, err)

	err = reg.AddPool("fee", raydium.PoolAccounts{Token0Mint: btcMint, Token1Mint: usdtMint, FeeRate: big.NewInt(raydium.BPS)})
	assert.Error(t, err)
}
