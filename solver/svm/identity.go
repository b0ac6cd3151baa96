package svm

import (
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// WalletFromBech32 maps a host chain bech32 account into the SVM address space.
// The bech32 payload is regrouped into raw account bytes and hashed with Keccak-256;
// the digest is the wallet address. The result is not checked against the curve.
func WalletFromBech32(address string) (Pubkey, error) {
	_, data, err := bech32.Decode(address)
	if err != nil {
		return Pubkey{}, fmt.Errorf("%w: bech32 decode %q: %w", ErrAddressFormat, address, err)
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Pubkey{}, fmt.Errorf("%w: bech32 regroup %q: %w", ErrAddressFormat, address, err)
	}
	if len(raw) == 0 {
		return Pubkey{}, fmt.Errorf("%w: empty bech32 payload", ErrAddressFormat)
	}

	return WalletFromAccountBytes(raw), nil
}

// WalletFromAccountBytes hashes raw host account bytes into an SVM wallet address.
func WalletFromAccountBytes(raw []byte) Pubkey {
	return Pubkey(Keccak256(raw))
}
