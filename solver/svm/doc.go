/*
Package svm holds the primitives needed to talk to the SVM plane of the host chain.

It covers three things and nothing more:

 1. Addresses. A Pubkey is an opaque 32 byte identifier, printed in base-58. Program
    derived addresses (PDAs) are produced by hashing seeds, the owning program id and the
    "ProgramDerivedAddress" marker with SHA-256, rejecting any digest that decompresses to
    a valid ed25519 point. FindProgramAddress walks the bump seed down from 255 so the
    first hit is canonical and identical to what the on-chain runtime computes.

 2. Identity. A host chain (bech32) account is mapped into the SVM address space exactly
    once, by Keccak-256 over the raw account bytes. The result is used as the wallet
    address directly and is never subject to curve rejection.

 3. Wire data. TokenAccount decodes the 72 byte prefix of an SPL token account, Account
    decodes the JSON form returned by the host's foreign account reader, and
    MsgTransaction is the envelope handed to the host's SVM module, encodable both as JSON
    and as protobuf wire bytes.

Everything in this package is a pure function of its inputs and safe for concurrent use.
*/
package svm
