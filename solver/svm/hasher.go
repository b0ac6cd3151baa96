package svm

import (
	"crypto/sha256"
	"hash"

	"golang.org/x/crypto/sha3"
)

// Hasher accumulates data into a SHA-256 digest. It is the hash used for program
// address derivation. A Hasher is single use: once Result has been called any further
// call panics.
type Hasher struct {
	h    hash.Hash
	done bool
}

// NewHasher returns an empty SHA-256 hasher.
func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

// Hash appends val to the running digest.
func (h *Hasher) Hash(val []byte) {
	h.mustBeOpen()
	h.h.Write(val)
}

// Hashv appends each value in order.
func (h *Hasher) Hashv(vals ...[]byte) {
	for _, val := range vals {
		h.Hash(val)
	}
}

// Result finalizes the digest and consumes the hasher.
func (h *Hasher) Result() Hash {
	h.mustBeOpen()
	h.done = true

	var out Hash
	copy(out[:], h.h.Sum(nil))
	h.h = nil
	return out
}

func (h *Hasher) mustBeOpen() {
	if h.done {
		panic("svm: hasher used after Result")
	}
}

// Hashv returns the SHA-256 digest of vals concatenated.
func Hashv(vals ...[]byte) Hash {
	h := NewHasher()
	h.Hashv(vals...)
	return h.Result()
}

// Keccak256 returns the legacy Keccak-256 digest of data (the pre-NIST padding also used
// by Ethereum). It is only used to bind host chain identities into the SVM address
// space and must not be confused with the SHA-256 Hasher.
func Keccak256(data ...[]byte) Hash {
	k := sha3.NewLegacyKeccak256()
	for _, d := range data {
		k.Write(d)
	}

	var out Hash
	copy(out[:], k.Sum(nil))
	return out
}
