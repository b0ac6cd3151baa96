package svm

import (
	"encoding/json"
	"fmt"
)

// Account is an SVM account as returned by the host chain's foreign account reader.
// Byte fields travel as base64, and the u64 fields as decimal strings since the
// host's JSON codec cannot carry a full u64 as a number.
type Account struct {
	Pubkey     []byte `json:"pubkey"`
	Owner      []byte `json:"owner"`
	Lamports   uint64 `json:"lamports,string"`
	Data       []byte `json:"data"`
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rent_epoch,string"`
}

// AccountFromJSON decodes an Account from its JSON form.
func AccountFromJSON(bz []byte) (Account, error) {
	var acc Account
	if err := json.Unmarshal(bz, &acc); err != nil {
		return Account{}, fmt.Errorf("%w: account json: %w", ErrDecode, err)
	}
	return acc, nil
}

// Address returns the account address.
func (a Account) Address() (Pubkey, error) {
	return PubkeyFromBytes(a.Pubkey)
}

// TokenAccount decodes the account data as an SPL token account.
func (a Account) TokenAccount() (TokenAccount, error) {
	return UnpackTokenAccount(a.Data)
}
