// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package account implements the core's account record: balance, nonce,
// optional contract code, and — for contracts — a private storage trie.
package account

import (
	"encoding/binary"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/shardchain/corestate/kv"
	"github.com/shardchain/corestate/trie"
	"github.com/shardchain/corestate/types"
)

// codeCache holds code blobs by code hash. SetCode fills it and GetCode
// falls back to it for an account that carries a code hash but no code.
// UnmarshalBinary does not consult it: a decoded account holds the code
// taken from its own serialization.
var codeCache, _ = lru.New(512)

// Account is a record with version, balance, nonce, optional contract code +
// code hash, and a contract-storage root.
type Account struct {
	Version        uint32
	Balance        types.U128
	Nonce          uint64
	Code           types.Bytes
	CodeHash       types.Hash256
	StorageRoot    types.Hash256
	CreateBlockNum uint64
	InitData       types.Bytes
	ScillaVersion  uint32

	// InitParams is derived from InitData by InitContract: parsed
	// records augmented with _creation_block and _this_address.
	InitParams []StorageCell

	// prevStorageRoot is the snapshot taken by Commit, restored by Rollback.
	prevStorageRoot types.Hash256

	// storage backs this account's contract state when it owns a private
	// trie (the per-account-trie contract-state mode). Nil for non-contract
	// accounts and for accounts backed by the shared hashmap DB instead.
	storage *trie.Trie
}

// New returns a freshly-minted, non-contract account with the given balance.
// Version starts at 1 and rides along unchanged through serialization.
func New(balance types.U128) *Account {
	return &Account{Version: 1, Balance: balance}
}

// IsContract reports whether the account carries contract code.
func (a *Account) IsContract() bool {
	return len(a.Code) > 0
}

// SetCode installs contract code, refreshing the code hash and caching the
// blob. An empty code resets the account to non-contract.
func (a *Account) SetCode(code types.Bytes) {
	a.Code = code
	if len(code) == 0 {
		a.CodeHash = types.Hash256{}
		return
	}
	a.CodeHash = types.SHA256(code)
	codeCache.Add(a.CodeHash, code)
}

// GetCode returns the contract code, falling back to the shared code cache
// for accounts that carry only a code hash.
func (a *Account) GetCode() types.Bytes {
	if len(a.Code) > 0 {
		return a.Code
	}
	if a.CodeHash.IsZero() {
		return nil
	}
	if v, ok := codeCache.Get(a.CodeHash); ok {
		return v.(types.Bytes)
	}
	return nil
}

// Copy returns a copy of the account. The code blob, init data and the
// storage trie handle are shared; balance and nonce arithmetic never mutate
// in place, so sharing the U128 backing value is safe.
func (a *Account) Copy() *Account {
	cp := *a
	return &cp
}

// checkInvariants is called by tests and by AccountStore before persisting
// a mutated account; violating it indicates a programmer error upstream.
func (a *Account) checkInvariants() error {
	if a.Code.IsEmpty() != a.CodeHash.IsZero() {
		return errors.New("account: code.is_empty() must equal code_hash == 0")
	}
	if !a.IsContract() {
		if !a.StorageRoot.IsZero() {
			return errors.New("account: non-contract account must have a zero storage root")
		}
		if len(a.InitData) != 0 {
			return errors.New("account: non-contract account must have empty init data")
		}
	}
	return nil
}

// Increase adds delta to the balance using checked arithmetic. It returns
// false and leaves the balance unchanged on overflow.
func (a *Account) Increase(delta types.U128) bool {
	sum, ok := a.Balance.Add(delta)
	if !ok {
		return false
	}
	a.Balance = sum
	return true
}

// Decrease subtracts delta from the balance using checked arithmetic. It
// returns false and leaves the balance unchanged if delta exceeds the
// balance.
func (a *Account) Decrease(delta types.U128) bool {
	diff, ok := a.Balance.Sub(delta)
	if !ok {
		return false
	}
	a.Balance = diff
	return true
}

// Change applies a signed delta: increase on delta>=0, decrease on delta<0.
// negative is the delta's sign (false=non-negative); magnitude is its size.
func (a *Account) Change(negative bool, magnitude types.U128) bool {
	if negative {
		return a.Decrease(magnitude)
	}
	return a.Increase(magnitude)
}

// IncreaseNonce adds 1 to the nonce. Nonce is monotonic; there is no
// decrement operation.
func (a *Account) IncreaseNonce() {
	a.Nonce++
}

// IncreaseNonceBy adds k to the nonce.
func (a *Account) IncreaseNonceBy(k uint64) {
	a.Nonce += k
}

// Commit snapshots the current storage root so a later Rollback can restore
// it.
func (a *Account) Commit() {
	a.prevStorageRoot = a.StorageRoot
}

// Rollback restores the storage root to the last-committed snapshot. For a
// contract account backed by a private trie, it also rewinds that trie
// (SetRoot to the snapshot, or Init if the snapshot is the zero root).
// Rollback on a non-contract account is a no-op.
func (a *Account) Rollback() {
	if !a.IsContract() {
		return
	}
	a.StorageRoot = a.prevStorageRoot
	if a.storage != nil {
		if a.prevStorageRoot.IsZero() {
			a.storage.Init()
		} else {
			a.storage.SetRoot(a.prevStorageRoot)
		}
	}
}

// AttachStorage gives the account a private contract-storage trie backed by
// backend, used in the per-account-trie contract-state mode. Called once
// when a contract account is materialized.
func (a *Account) AttachStorage(backend kv.GetPutter) {
	a.storage = trie.New(backend)
	if !a.StorageRoot.IsZero() {
		a.storage.SetRoot(a.StorageRoot)
	}
}

// CommitStorage flushes the private storage trie (if any) to the backend,
// refreshes StorageRoot from the committed root, and snapshots it for a
// later Rollback.
func (a *Account) CommitStorage() (types.Hash256, error) {
	if a.storage != nil {
		root, err := a.storage.Commit()
		if err != nil {
			return types.Hash256{}, errors.Wrap(err, "account: commit storage trie")
		}
		a.StorageRoot = root
	}
	a.Commit()
	return a.StorageRoot, nil
}

// MarshalBinary implements the account wire/trie encoding: a length-prefixed
// concatenation of fields in a fixed order. Two serializations are byte-equal
// iff the accounts are semantically equal.
func (a *Account) MarshalBinary() ([]byte, error) {
	if err := a.checkInvariants(); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 4+16+8+32+32+8+4+4+len(a.Code)+4+len(a.InitData))
	buf = appendU32(buf, a.Version)
	bal := a.Balance.Bytes16()
	buf = append(buf, bal[:]...)
	buf = appendU64(buf, a.Nonce)
	buf = append(buf, a.StorageRoot.Bytes()...)
	buf = append(buf, a.CodeHash.Bytes()...)
	buf = appendU64(buf, a.CreateBlockNum)
	buf = appendU32(buf, a.ScillaVersion)
	buf = appendU32(buf, uint32(len(a.Code)))
	buf = append(buf, a.Code...)
	buf = appendU32(buf, uint32(len(a.InitData)))
	buf = append(buf, a.InitData...)
	return buf, nil
}

// UnmarshalBinary decodes the encoding produced by MarshalBinary.
func (a *Account) UnmarshalBinary(data []byte) error {
	r := &byteReader{buf: data}
	a.Version = r.u32()
	var bal16 [16]byte
	copy(bal16[:], r.take(16))
	a.Balance = types.U128FromBytes16(bal16)
	a.Nonce = r.u64()
	a.StorageRoot = types.BytesToHash256(r.take(32))
	a.CodeHash = types.BytesToHash256(r.take(32))
	a.CreateBlockNum = r.u64()
	a.ScillaVersion = r.u32()
	codeLen := r.u32()
	a.Code = types.Bytes(r.take(int(codeLen)))
	initLen := r.u32()
	a.InitData = types.Bytes(r.take(int(initLen)))
	if r.err != nil {
		return errors.Wrap(r.err, "account: unmarshal")
	}
	return nil
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// byteReader sequentially consumes a fixed-layout buffer, latching the first
// error (short read) so callers can check it once at the end.
type byteReader struct {
	buf []byte
	err error
}

func (r *byteReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.err = errors.New("unexpected end of buffer")
		return nil
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out
}

func (r *byteReader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *byteReader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
