// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package accountstore maintains the authoritative address-to-account
// mapping behind a second-level authenticated trie, coordinates transaction
// application through a speculative overlay, and moves committed state to
// durable storage at block boundaries.
package accountstore

import (
	"bytes"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/shardchain/corestate/account"
	"github.com/shardchain/corestate/blockstorage"
	"github.com/shardchain/corestate/kv"
	"github.com/shardchain/corestate/trie"
	"github.com/shardchain/corestate/types"
)

var logger = log.New("pkg", "accountstore")

// MetadataStore persists the committed state root alongside the block
// metadata. *blockstorage.BlockStorage satisfies it.
type MetadataStore interface {
	PutMetadata(kind blockstorage.MetaType, data []byte) bool
	GetMetadata(kind blockstorage.MetaType) ([]byte, bool)
}

// Options configures contract-state backing.
type Options struct {
	// HashmapContractStateDB routes all contract storage into the shared
	// process-wide cell store instead of per-account tries. Both backings
	// produce identical state roots for identical inputs.
	HashmapContractStateDB bool
}

// AccountStore is the process-wide account coordinator. Construction
// discipline keeps it unique per process; there is no hidden singleton.
type AccountStore struct {
	mu            sync.RWMutex
	db            kv.GetPutter
	meta          MetadataStore
	state         *trie.Trie
	accounts      map[types.Address]*account.Account
	prevRoot      types.Hash256
	contractState *ContractStateDB

	// temp is the speculative overlay holding accounts touched by the
	// current block's transactions. Reads fall through to the base map;
	// nil when no block is in flight.
	temp map[types.Address]*account.Account
}

// New builds an AccountStore over db, recording committed state roots via
// meta. meta may be nil for stores that never persist across restarts.
func New(db kv.GetPutter, meta MetadataStore, opts Options) *AccountStore {
	s := &AccountStore{
		db:       db,
		meta:     meta,
		state:    trie.New(db),
		accounts: make(map[types.Address]*account.Account),
	}
	if opts.HashmapContractStateDB {
		s.contractState = NewContractStateDB(db)
	}
	return s
}

// ContractState returns the shared contract-state store, or nil when
// accounts carry private storage tries.
func (s *AccountStore) ContractState() *ContractStateDB {
	return s.contractState
}

// Init clears the in-memory working set and resets the state trie to the
// empty root. Persisted data is untouched.
func (s *AccountStore) Init() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make(map[types.Address]*account.Account)
	s.state.Init()
	s.prevRoot = types.Hash256{}
	s.temp = nil
	if s.contractState != nil {
		s.contractState.Discard()
	}
}

// AddAccount inserts acct under addr and records its serialization in the
// state trie. It fails if the address is already taken.
func (s *AccountStore) AddAccount(addr types.Address, acct *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[addr]; ok {
		return errors.Errorf("accountstore: account %v already exists", addr)
	}
	if acct.IsContract() && s.contractState == nil {
		acct.AttachStorage(s.db)
	}
	if err := s.updateStateTrie(addr, acct); err != nil {
		return err
	}
	s.accounts[addr] = acct
	return nil
}

// AddAccountFromPubKey derives the address from a serialized public key and
// inserts acct under it.
func (s *AccountStore) AddAccountFromPubKey(pubKey []byte, acct *account.Account) error {
	return s.AddAccount(types.AddressFromPubKey(pubKey), acct)
}

// GetAccount returns the account at addr, or ok=false if absent.
func (s *AccountStore) GetAccount(addr types.Address) (*account.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[addr]
	return acct, ok
}

// DoesAccountExist reports whether addr is present in the store.
func (s *AccountStore) DoesAccountExist(addr types.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[addr]
	return ok
}

// GetBalance returns the balance at addr, or zero if the account is absent.
func (s *AccountStore) GetBalance(addr types.Address) types.U128 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if acct, ok := s.accounts[addr]; ok {
		return acct.Balance
	}
	return types.ZeroU128()
}

// GetNonce returns the nonce at addr, or zero if the account is absent.
func (s *AccountStore) GetNonce(addr types.Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if acct, ok := s.accounts[addr]; ok {
		return acct.Nonce
	}
	return 0
}

// Len returns the number of accounts in the working set.
func (s *AccountStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// IncreaseBalance adds delta to the account at addr.
func (s *AccountStore) IncreaseBalance(addr types.Address, delta types.U128) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[addr]
	if !ok {
		return errors.Wrapf(types.ErrNotFound, "accountstore: increase balance of %v", addr)
	}
	if !acct.Increase(delta) {
		return errors.Wrapf(types.ErrArithmeticOverflow, "accountstore: increase balance of %v", addr)
	}
	if err := s.updateStateTrie(addr, acct); err != nil {
		acct.Decrease(delta)
		return err
	}
	return nil
}

// DecreaseBalance subtracts delta from the account at addr.
func (s *AccountStore) DecreaseBalance(addr types.Address, delta types.U128) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[addr]
	if !ok {
		return errors.Wrapf(types.ErrNotFound, "accountstore: decrease balance of %v", addr)
	}
	if !acct.Decrease(delta) {
		return errors.Wrapf(types.ErrInsufficientBalance, "accountstore: decrease balance of %v", addr)
	}
	if err := s.updateStateTrie(addr, acct); err != nil {
		acct.Increase(delta)
		return err
	}
	return nil
}

// TransferBalance moves delta from one account to the other atomically: on
// any failure neither balance nor the state trie changes.
func (s *AccountStore) TransferBalance(from, to types.Address, delta types.U128) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.accounts[from]
	if !ok {
		return errors.Wrapf(types.ErrNotFound, "accountstore: transfer source %v", from)
	}
	dst, ok := s.accounts[to]
	if !ok {
		return errors.Wrapf(types.ErrNotFound, "accountstore: transfer destination %v", to)
	}
	if src.Balance.Cmp(delta) < 0 {
		return errors.Wrapf(types.ErrInsufficientBalance,
			"accountstore: transfer %v from %v (balance %v)", delta, from, src.Balance)
	}
	src.Decrease(delta)
	if !dst.Increase(delta) {
		src.Increase(delta)
		return errors.Wrapf(types.ErrArithmeticOverflow, "accountstore: transfer credit to %v", to)
	}
	err := s.updateStateTrie(from, src)
	if err == nil {
		err = s.updateStateTrie(to, dst)
	}
	if err != nil {
		src.Increase(delta)
		dst.Decrease(delta)
		return err
	}
	return nil
}

// IncreaseNonce adds one to the nonce of the account at addr.
func (s *AccountStore) IncreaseNonce(addr types.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[addr]
	if !ok {
		return errors.Wrapf(types.ErrNotFound, "accountstore: increase nonce of %v", addr)
	}
	acct.IncreaseNonce()
	return s.updateStateTrie(addr, acct)
}

// GetStateRoot returns the state trie root. Between transactions of an
// in-flight block it reflects every transaction applied to the overlay so
// far; only MoveUpdatesToDisk makes the root durable.
func (s *AccountStore) GetStateRoot() types.Hash256 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Root()
}

// updateStateTrie re-inserts acct's serialization under addr. Callers hold
// the write lock.
func (s *AccountStore) updateStateTrie(addr types.Address, acct *account.Account) error {
	enc, err := acct.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "accountstore: serialize account")
	}
	if err := s.state.Insert(addr.Bytes(), enc); err != nil {
		return errors.Wrap(err, "accountstore: update state trie")
	}
	return nil
}

// MoveUpdatesToDisk promotes the speculative overlay into the base map,
// commits the state trie and every contract-storage trie, and records the
// new state root as metadata. A storage failure leaves the persisted root
// at its previous value.
func (s *AccountStore) MoveUpdatesToDisk() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.temp != nil {
		for addr, acct := range s.temp {
			s.accounts[addr] = acct
		}
		s.temp = nil
	}

	if s.contractState != nil {
		if err := s.contractState.Commit(); err != nil {
			return errors.Wrap(types.ErrStorageError, err.Error())
		}
	}
	for addr, acct := range s.accounts {
		if !acct.IsContract() {
			continue
		}
		if _, err := acct.CommitStorage(); err != nil {
			return errors.Wrap(types.ErrStorageError, err.Error())
		}
		if err := s.updateStateTrie(addr, acct); err != nil {
			return err
		}
	}

	root, err := s.state.Commit()
	if err != nil {
		return errors.Wrap(types.ErrStorageError, err.Error())
	}
	s.prevRoot = root
	if s.meta != nil && !s.meta.PutMetadata(blockstorage.MetaStateRoot, root.Bytes()) {
		return errors.Wrap(types.ErrStorageError, "accountstore: persist state root")
	}
	return nil
}

// DiscardUnsavedUpdates drops the speculative overlay and rolls every dirty
// trie back to its last committed root, restoring the working set from the
// trie at that root.
func (s *AccountStore) DiscardUnsavedUpdates() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.temp = nil
	s.state.SetRoot(s.prevRoot)
	if s.contractState != nil {
		s.contractState.Discard()
	}
	accounts, err := s.loadAccounts(s.prevRoot)
	if err != nil {
		return err
	}
	s.accounts = accounts
	return nil
}

// RetrieveFromDisk reconstructs the working set from the state trie at the
// persisted root.
func (s *AccountStore) RetrieveFromDisk() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.meta == nil {
		return errors.Wrap(types.ErrStorageError, "accountstore: no metadata store configured")
	}
	data, ok := s.meta.GetMetadata(blockstorage.MetaStateRoot)
	if !ok {
		return errors.Wrap(types.ErrNotFound, "accountstore: no persisted state root")
	}
	root := types.BytesToHash256(data)
	accounts, err := s.loadAccounts(root)
	if err != nil {
		return err
	}
	s.state.SetRoot(root)
	s.prevRoot = root
	s.accounts = accounts
	s.temp = nil
	return nil
}

// ValidateStateFromDisk compares the persisted state, reconstructed account
// by account, against expected. Equality is byte-equality of the canonical
// serializations.
func (s *AccountStore) ValidateStateFromDisk(expected map[types.Address]*account.Account) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.meta == nil {
		return false, errors.Wrap(types.ErrStorageError, "accountstore: no metadata store configured")
	}
	data, ok := s.meta.GetMetadata(blockstorage.MetaStateRoot)
	if !ok {
		return false, errors.Wrap(types.ErrNotFound, "accountstore: no persisted state root")
	}
	restored, err := s.loadAccounts(types.BytesToHash256(data))
	if err != nil {
		return false, err
	}
	if len(restored) != len(expected) {
		logger.Warn("state validation size mismatch", "disk", len(restored), "expected", len(expected))
		return false, nil
	}
	for addr, want := range expected {
		got, ok := restored[addr]
		if !ok {
			logger.Warn("state validation missing account", "addr", addr)
			return false, nil
		}
		wantEnc, err := want.MarshalBinary()
		if err != nil {
			return false, err
		}
		gotEnc, err := got.MarshalBinary()
		if err != nil {
			return false, err
		}
		if !bytes.Equal(wantEnc, gotEnc) {
			logger.Warn("state validation account mismatch", "addr", addr)
			return false, nil
		}
	}
	return true, nil
}

// loadAccounts rebuilds an address-to-account map from a committed trie
// root. Callers hold at least the read lock.
func (s *AccountStore) loadAccounts(root types.Hash256) (map[types.Address]*account.Account, error) {
	accounts := make(map[types.Address]*account.Account)
	if root.IsZero() {
		return accounts, nil
	}
	tr := trie.New(s.db)
	tr.SetRoot(root)
	entries, err := tr.Iterate()
	if err != nil {
		return nil, errors.Wrap(err, "accountstore: iterate state trie")
	}
	for _, e := range entries {
		acct := new(account.Account)
		if err := acct.UnmarshalBinary(e.Value); err != nil {
			return nil, errors.Wrap(err, "accountstore: decode account")
		}
		if acct.IsContract() && s.contractState == nil {
			acct.AttachStorage(s.db)
		}
		accounts[types.BytesToAddress(e.Key)] = acct
	}
	return accounts, nil
}

// AccountSummary is a read-only diagnostic view of one account.
type AccountSummary struct {
	Address    types.Address
	Balance    string
	Nonce      uint64
	IsContract bool
}

// DebugAccounts dumps the working set sorted by address, for diagnostics
// only; it is not part of the consensus-critical surface.
func (s *AccountStore) DebugAccounts() []AccountSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AccountSummary, 0, len(s.accounts))
	for addr, acct := range s.accounts {
		out = append(out, AccountSummary{
			Address:    addr,
			Balance:    acct.Balance.String(),
			Nonce:      acct.Nonce,
			IsContract: acct.IsContract(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address.Bytes(), out[j].Address.Bytes()) < 0
	})
	return out
}
