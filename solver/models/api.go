package models

import (
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/router/brokers"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/svm"
)

// QuoteRequest - POST body for /Quote
type QuoteRequest struct {
	Dex         string  `json:"dex,omitempty"`          // e.g., "raydium", empty selects the default
	PoolName    string  `json:"pool_name"`              // e.g., "btc-usdt"
	Denom       string  `json:"denom"`                  // input token symbol or mint, e.g., "usdt"
	AmountIn    string  `json:"amount_in"`              // e.g., "1000000"
	SlippageBps *uint32 `json:"slippage_bps,omitempty"` // overrides the configured default
}

// QuoteResponse is the expected result of a swap against the current pool reserves.
type QuoteResponse struct {
	Dex            string `json:"dex"`
	PoolName       string `json:"pool_name"`
	DenomIn        string `json:"denom_in"`   // input mint
	DenomOut       string `json:"denom_out"`  // output mint
	SymbolOut      string `json:"symbol_out"` // output symbol, the mint if unknown
	AmountIn       string `json:"amount_in"`
	AmountOut      string `json:"amount_out"`     // expected output before slippage
	MinAmountOut   string `json:"min_amount_out"` // AmountOut with slippage applied
	SlippageBps    uint32 `json:"slippage_bps"`
	EffectivePrice string `json:"effective_price"` // AmountOut / AmountIn
	ReserveA       string `json:"reserve_a"`
	ReserveB       string `json:"reserve_b"`
}

// ComposeSwapRequest - POST body for /ComposeSwap
type ComposeSwapRequest struct {
	Dex          string  `json:"dex,omitempty"`
	Sender       string  `json:"sender"` // host chain bech32 address
	PoolName     string  `json:"pool_name"`
	Denom        string  `json:"denom"`
	AmountIn     string  `json:"amount_in"`
	MinAmountOut string  `json:"min_amount_out,omitempty"` // explicit floor, wins over SlippageBps
	SlippageBps  *uint32 `json:"slippage_bps,omitempty"`   // quote first and derive the floor
}

// ComposeSwapResponse carries the composed envelope in every form the host accepts.
type ComposeSwapResponse struct {
	Instruction *brokers.FISInstruction `json:"instruction"`
	Message     *svm.MsgTransaction     `json:"message"`
	MessageWire []byte                  `json:"message_wire,omitempty"` // svm.v1.MsgTransaction encoding of Message, set by the rpc layer
	Quote       *QuoteResponse          `json:"quote,omitempty"`
}

// DeriveAddressRequest - POST body for /DeriveAddress
type DeriveAddressRequest struct {
	Sender       string   `json:"sender,omitempty"`        // bech32, resolves the SVM wallet
	Mints        []string `json:"mints,omitempty"`         // associated token accounts to derive for the wallet
	TokenProgram string   `json:"token_program,omitempty"` // defaults to Token-2022
	ProgramID    string   `json:"program_id,omitempty"`    // derive a PDA of this program from Seeds
	Seeds        [][]byte `json:"seeds,omitempty"`         // base64 in JSON
}

// DerivedAccount is a derived address and the bump that produced it.
type DerivedAccount struct {
	Mint    string `json:"mint,omitempty"`
	Address string `json:"address"`
	Bump    uint8  `json:"bump"`
}

// DeriveAddressResponse - derived SVM addresses
type DeriveAddressResponse struct {
	Wallet         string           `json:"wallet,omitempty"`
	TokenAccounts  []DerivedAccount `json:"token_accounts,omitempty"`
	ProgramAddress *DerivedAccount  `json:"program_address,omitempty"`
}

// PoolsResponse lists the pools the solver can quote and compose for.
type PoolsResponse struct {
	Pools []PoolInfo `json:"pools"`
}

// PoolInfo describes one registered pool.
type PoolInfo struct {
	Dex        string `json:"dex"`
	Name       string `json:"name"`
	Token0Mint string `json:"token0_mint"`
	Token1Mint string `json:"token1_mint"`
	FeeRate    string `json:"fee_rate"` // parts per million
}

// ListPoolsRequest - POST body for /ListPools
type ListPoolsRequest struct {
	Dex string `json:"dex,omitempty"`
}
