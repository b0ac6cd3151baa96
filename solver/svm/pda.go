package svm

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "svm").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "svm").Logger()
}

// PDA constants.
const (
	MaxSeeds     = 255
	MaxSeedLen   = 32
	PDAMarkerLen = 21 // "ProgramDerivedAddress" length
)

// PDA marker used in address derivation.
var pdaMarker = []byte("ProgramDerivedAddress")

// CreateProgramAddress derives a program address from seeds and a program ID.
// The digest is sha256(seeds... || programID || "ProgramDerivedAddress"). A digest that
// is a valid curve point yields ErrInvalidSeeds.
func CreateProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, error) {
	if len(seeds) > MaxSeeds {
		return Pubkey{}, fmt.Errorf("%w: %d seeds", ErrMaxSeedLengthExceeded, len(seeds))
	}
	for i, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return Pubkey{}, fmt.Errorf("%w: seed %d is %d bytes", ErrMaxSeedLengthExceeded, i, len(seed))
		}
	}

	h := NewHasher()
	h.Hashv(seeds...)
	h.Hashv(programID[:], pdaMarker)
	digest := h.Result()

	if IsOnCurve(digest[:]) {
		return Pubkey{}, ErrInvalidSeeds
	}

	return Pubkey(digest), nil
}

// FindProgramAddress finds a valid PDA by trying bump seeds from 255 down to 0.
// The first bump that produces an off-curve address is canonical. Any error other than
// ErrInvalidSeeds stops the search and is returned as is.
func FindProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, uint8, error) {
	// Create a new slice to avoid modifying the input
	seedsWithBump := make([][]byte, len(seeds)+1)
	copy(seedsWithBump, seeds)

	for bump := 255; bump >= 0; bump-- {
		seedsWithBump[len(seeds)] = []byte{uint8(bump)}

		address, err := CreateProgramAddress(seedsWithBump, programID)
		if err == nil {
			if bump < 255 {
				log.Trace().
					Str("program", programID.String()).
					Int("bump", bump).
					Msg("Program address found below max bump")
			}
			return address, uint8(bump), nil
		}
		if !errors.Is(err, ErrInvalidSeeds) {
			return Pubkey{}, 0, err
		}
	}

	return Pubkey{}, 0, ErrDerivationExhausted
}

// FindAssociatedTokenAddress derives the associated token account of wallet for mint
// under the given token program (legacy SPL Token or Token-2022).
func FindAssociatedTokenAddress(wallet, tokenProgram, mint Pubkey) (Pubkey, uint8, error) {
	return FindProgramAddress(
		[][]byte{wallet[:], tokenProgram[:], mint[:]},
		AssociatedTokenProgramID,
	)
}
