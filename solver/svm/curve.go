package svm

import "filippo.io/edwards25519"

// IsOnCurve reports whether b is the compressed encoding of a point on the ed25519
// curve. Any 32 byte value is a syntactically valid candidate, decompression alone
// decides. Non-canonical encodings of valid points are accepted, matching the runtime's
// own check. Input of any other length is reported as off curve.
func IsOnCurve(b []byte) bool {
	if len(b) != PubkeySize {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
