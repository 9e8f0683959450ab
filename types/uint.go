// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package types

import "math/big"

// Bytes is an immutable byte sequence. Callers must not mutate a Bytes value
// obtained from the core.
type Bytes []byte

// IsEmpty reports whether b has zero length.
func (b Bytes) IsEmpty() bool { return len(b) == 0 }

var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// U128 is an unsigned 128-bit integer with checked arithmetic.
type U128 struct {
	v *big.Int
}

// ZeroU128 is the zero-valued U128.
func ZeroU128() U128 { return U128{big.NewInt(0)} }

// NewU128 builds a U128 from a uint64.
func NewU128(v uint64) U128 { return U128{new(big.Int).SetUint64(v)} }

// U128FromBig builds a U128 from a *big.Int in [0, 2^128-1].
// It returns false, without clamping, if v is out of range.
func U128FromBig(v *big.Int) (U128, bool) {
	if v.Sign() < 0 || v.Cmp(maxU128) > 0 {
		return U128{}, false
	}
	return U128{new(big.Int).Set(v)}, true
}

// Big returns the *big.Int backing form. The returned value must not be mutated.
func (u U128) Big() *big.Int {
	if u.v == nil {
		return big.NewInt(0)
	}
	return u.v
}

// Cmp compares u to other.
func (u U128) Cmp(other U128) int {
	return u.Big().Cmp(other.Big())
}

// IsZero reports whether u is zero.
func (u U128) IsZero() bool {
	return u.Big().Sign() == 0
}

// Add returns u+delta and true, or the unchanged u and false on overflow past 2^128-1.
func (u U128) Add(delta U128) (U128, bool) {
	sum := new(big.Int).Add(u.Big(), delta.Big())
	if sum.Cmp(maxU128) > 0 {
		return u, false
	}
	return U128{sum}, true
}

// Mul returns u*other and true, or the unchanged u and false on overflow
// past 2^128-1.
func (u U128) Mul(other U128) (U128, bool) {
	prod := new(big.Int).Mul(u.Big(), other.Big())
	if prod.Cmp(maxU128) > 0 {
		return u, false
	}
	return U128{prod}, true
}

// Sub returns u-delta and true, or the unchanged u and false if delta > u.
func (u U128) Sub(delta U128) (U128, bool) {
	if u.Big().Cmp(delta.Big()) < 0 {
		return u, false
	}
	return U128{new(big.Int).Sub(u.Big(), delta.Big())}, true
}

// Bytes16 returns the 16-byte big-endian encoding of u.
func (u U128) Bytes16() [16]byte {
	var out [16]byte
	b := u.Big().Bytes()
	copy(out[16-len(b):], b)
	return out
}

// U128FromBytes16 decodes a 16-byte big-endian encoding into a U128.
func U128FromBytes16(b [16]byte) U128 {
	return U128{new(big.Int).SetBytes(b[:])}
}

// String implements stringer.
func (u U128) String() string {
	return u.Big().String()
}

// U256 is an unsigned 256-bit integer, used for the 32-byte block-number
// storage keys. Link-chain indices are plain uint64, and account balance and
// nonce stay at their native 128/64-bit widths.
type U256 struct {
	v *big.Int
}

// NewU256 builds a U256 from a uint64.
func NewU256(v uint64) U256 { return U256{new(big.Int).SetUint64(v)} }

// Big returns the *big.Int backing form. The returned value must not be mutated.
func (u U256) Big() *big.Int {
	if u.v == nil {
		return big.NewInt(0)
	}
	return u.v
}

// Bytes32 returns the 32-byte big-endian encoding of u, keeping only the
// low-order 32 bytes of a wider value.
func (u U256) Bytes32() [32]byte {
	var out [32]byte
	b := u.Big().Bytes()
	if len(b) > 32 {
		b = b[len(b)-32:]
	}
	copy(out[32-len(b):], b)
	return out
}

// U256FromBytes32 decodes a 32-byte big-endian encoding into a U256.
func U256FromBytes32(b [32]byte) U256 {
	return U256{new(big.Int).SetBytes(b[:])}
}
