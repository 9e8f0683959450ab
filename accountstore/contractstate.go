// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package accountstore

import (
	"bytes"
	"sort"

	"github.com/pkg/errors"

	"github.com/shardchain/corestate/account"
	"github.com/shardchain/corestate/kv"
	"github.com/shardchain/corestate/trie"
	"github.com/shardchain/corestate/types"
)

// ContractStateDB is the shared contract-state backend: one process-wide
// keyspace of cells keyed by (address, key_hash), with a dirty in-memory
// layer flushed by Commit. An account's storage root is recomputed from all
// of its visible cells on every put, through the same trie construction the
// per-account backend uses, so both backings yield identical roots for
// identical inputs.
type ContractStateDB struct {
	db    kv.GetPutter
	dirty map[string][]byte
}

var _ account.ContractStateStore = (*ContractStateDB)(nil)

// NewContractStateDB builds a contract-state store over db.
func NewContractStateDB(db kv.GetPutter) *ContractStateDB {
	return &ContractStateDB{db: db, dirty: make(map[string][]byte)}
}

// orNil converts a possibly-nil receiver into a clean nil interface for
// account.InitContract's backend selection.
func (c *ContractStateDB) orNil() account.ContractStateStore {
	if c == nil {
		return nil
	}
	return c
}

func cellKey(addr types.Address, keyHash types.Hash256) []byte {
	key := make([]byte, 0, types.AddressLength+32)
	key = append(key, addr.Bytes()...)
	return append(key, keyHash.Bytes()...)
}

// PutContractState stages cell for addr in the dirty layer and returns the
// account's recomputed storage root.
func (c *ContractStateDB) PutContractState(addr types.Address, cell account.StorageCell) (types.Hash256, error) {
	c.dirty[string(cellKey(addr, cell.KeyHash()))] = cell.Encode()
	return c.StorageRoot(addr)
}

// StorageRoot recomputes addr's storage root from every cell currently
// visible for it.
func (c *ContractStateDB) StorageRoot(addr types.Address) (types.Hash256, error) {
	cells, err := c.IterateContractState(addr)
	if err != nil {
		return types.Hash256{}, err
	}
	t := trie.New(c.db)
	for _, cell := range cells {
		if err := t.Insert(cell.KeyHash().Bytes(), cell.Encode()); err != nil {
			return types.Hash256{}, errors.Wrap(err, "accountstore: rebuild storage root")
		}
	}
	return t.Root(), nil
}

// IterateContractState returns every cell stored for addr, dirty layer
// included, sorted by key hash.
func (c *ContractStateDB) IterateContractState(addr types.Address) ([]account.StorageCell, error) {
	raw := make(map[string][]byte)

	it := c.db.NewIterator(kv.Range{From: addr.Bytes(), To: prefixEnd(addr.Bytes())})
	for it.Next() {
		key := it.Key()
		if len(key) != types.AddressLength+32 {
			continue
		}
		raw[string(key)] = append([]byte(nil), it.Value()...)
	}
	err := it.Error()
	it.Release()
	if err != nil {
		return nil, errors.Wrap(err, "accountstore: scan contract state")
	}

	for key, enc := range c.dirty {
		if len(key) == types.AddressLength+32 && bytes.HasPrefix([]byte(key), addr.Bytes()) {
			raw[key] = enc
		}
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	cells := make([]account.StorageCell, 0, len(keys))
	for _, key := range keys {
		cell, err := account.DecodeStorageCell(raw[key])
		if err != nil {
			return nil, err
		}
		cells = append(cells, cell)
	}
	return cells, nil
}

// Commit flushes the dirty layer to the backend in one batch.
func (c *ContractStateDB) Commit() error {
	if len(c.dirty) == 0 {
		return nil
	}
	batch := c.db.NewBatch()
	for key, enc := range c.dirty {
		if err := batch.Put([]byte(key), enc); err != nil {
			return errors.Wrap(err, "accountstore: stage contract state")
		}
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "accountstore: write contract state")
	}
	c.dirty = make(map[string][]byte)
	return nil
}

// Discard drops the dirty layer without flushing.
func (c *ContractStateDB) Discard() {
	c.dirty = make(map[string][]byte)
}

// prefixEnd returns the smallest key greater than every key with the given
// prefix, or nil when the prefix is all 0xff.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
