package svm

import (
	"encoding/binary"
	"fmt"
)

// TokenAccountMinSize is the length of the mint/owner/amount prefix shared by SPL Token
// and Token-2022 accounts.
const TokenAccountMinSize = 72

// TokenAccount is the simplified view of an SPL token account.
// Only the leading mint, owner and amount fields are decoded; everything after byte 72
// (delegate, state, extensions) is ignored so richer layouts still decode.
type TokenAccount struct {
	Mint   Pubkey
	Owner  Pubkey
	Amount uint64
}

// UnpackTokenAccount decodes the token account prefix from raw account data.
func UnpackTokenAccount(data []byte) (TokenAccount, error) {
	if len(data) < TokenAccountMinSize {
		return TokenAccount{}, fmt.Errorf("%w: token account size must be >= %d bytes, got %d",
			ErrDecode, TokenAccountMinSize, len(data))
	}

	var acc TokenAccount
	copy(acc.Mint[:], data[0:32])
	copy(acc.Owner[:], data[32:64])
	acc.Amount = binary.LittleEndian.Uint64(data[64:72])
	return acc, nil
}

// Pack encodes the account back into its 72 byte prefix form.
func (t TokenAccount) Pack() []byte {
	out := make([]byte, TokenAccountMinSize)
	copy(out[0:32], t.Mint[:])
	copy(out[32:64], t.Owner[:])
	binary.LittleEndian.PutUint64(out[64:72], t.Amount)
	return out
}
