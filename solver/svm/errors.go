package svm

import "errors"

var (
	// ErrMaxSeedLengthExceeded is returned when more than MaxSeeds seeds are given or
	// any single seed is longer than MaxSeedLen.
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")

	// ErrInvalidSeeds is returned when the derived address lands on the ed25519 curve.
	ErrInvalidSeeds = errors.New("invalid seeds, address must fall off the curve")

	// ErrDerivationExhausted is returned when no bump seed in [0, 255] yields an
	// off-curve address.
	ErrDerivationExhausted = errors.New("unable to find a viable program address bump seed")

	// ErrDecode is returned for malformed account bytes.
	ErrDecode = errors.New("account decode error")

	// ErrAddressFormat is returned for malformed base-58 or bech32 input, or input of
	// the wrong byte length.
	ErrAddressFormat = errors.New("invalid address format")
)
