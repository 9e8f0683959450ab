// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package blockstorage persists DS blocks, Tx blocks, VC blocks, fallback
// blocks, transaction bodies, and typed metadata, each in its own
// independently-locked keyspace.
package blockstorage

import (
	"sort"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/shardchain/corestate/block"
	"github.com/shardchain/corestate/kv"
	"github.com/shardchain/corestate/tx"
	"github.com/shardchain/corestate/types"
)

var logger = log.New("pkg", "blockstorage")

// MetaType enumerates the opaque metadata records BlockStorage keeps
// alongside blocks (e.g. the persisted state root).
type MetaType int

const (
	MetaStateRoot MetaType = iota
	MetaDSBlockHeight
	MetaTxBlockHeight
)

// keyspace is a thread-safe kv.GetPutter the backend's contract guarantees
// is internally synchronized; BlockStorage promises no cross-keyspace
// atomicity beyond that.
type keyspace = kv.GetPutCloser

// BlockStorage persists the directory-block family, tx bodies, and
// metadata, each in its own keyspace.
type BlockStorage struct {
	dsBlock       keyspace
	txBlock       keyspace
	vcBlock       keyspace
	fallbackBlock keyspace
	txBody        keyspace
	metadata      keyspace
}

// New builds a BlockStorage over six already-open keyspaces. Callers
// typically open six lvldb.LevelDB instances (or six logical prefixes of
// one) and hand them in, mirroring chain/persist.go's one-bucket-per-kind
// layout.
func New(dsBlock, txBlock, vcBlock, fallbackBlock, txBody, metadata keyspace) *BlockStorage {
	return &BlockStorage{dsBlock, txBlock, vcBlock, fallbackBlock, txBody, metadata}
}

// u256Key encodes a block number as its 32-byte big-endian storage key.
func u256Key(n uint64) []byte {
	key := types.NewU256(n).Bytes32()
	return key[:]
}

// PutDSBlock persists a DS block keyed by its block number.
func (bs *BlockStorage) PutDSBlock(b *block.DSBlock) bool {
	enc, err := b.MarshalBinary()
	if err != nil {
		logger.Warn("marshal ds block", "err", err)
		return false
	}
	if err := bs.dsBlock.Put(u256Key(b.Header.BlockNum), enc); err != nil {
		logger.Warn("put ds block", "err", err)
		return false
	}
	return true
}

// GetDSBlock retrieves the DS block at blockNum.
func (bs *BlockStorage) GetDSBlock(blockNum uint64) (*block.DSBlock, bool) {
	data, err := bs.dsBlock.Get(u256Key(blockNum))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var b block.DSBlock
	if err := b.UnmarshalBinary(data); err != nil {
		logger.Warn("unmarshal ds block", "err", err)
		return nil, false
	}
	return &b, true
}

// GetAllDSBlocks returns every persisted DS block, sorted by block number
// ascending.
func (bs *BlockStorage) GetAllDSBlocks() []*block.DSBlock {
	var out []*block.DSBlock
	it := bs.dsBlock.NewIterator(kv.Range{})
	defer it.Release()
	for it.Next() {
		var b block.DSBlock
		if err := b.UnmarshalBinary(it.Value()); err != nil {
			logger.Warn("unmarshal ds block during scan", "err", err)
			continue
		}
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Header.BlockNum < out[j].Header.BlockNum })
	return out
}

// PutTxBlock persists a tx block keyed by its block number.
func (bs *BlockStorage) PutTxBlock(b *block.TxBlock) bool {
	enc, err := b.MarshalBinary()
	if err != nil {
		logger.Warn("marshal tx block", "err", err)
		return false
	}
	if err := bs.txBlock.Put(u256Key(b.Header.BlockNum), enc); err != nil {
		logger.Warn("put tx block", "err", err)
		return false
	}
	return true
}

// GetTxBlock retrieves the tx block at blockNum.
func (bs *BlockStorage) GetTxBlock(blockNum uint64) (*block.TxBlock, bool) {
	data, err := bs.txBlock.Get(u256Key(blockNum))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var b block.TxBlock
	if err := b.UnmarshalBinary(data); err != nil {
		logger.Warn("unmarshal tx block", "err", err)
		return nil, false
	}
	return &b, true
}

// GetAllTxBlocks returns every persisted tx block, sorted by block number
// ascending.
func (bs *BlockStorage) GetAllTxBlocks() []*block.TxBlock {
	var out []*block.TxBlock
	it := bs.txBlock.NewIterator(kv.Range{})
	defer it.Release()
	for it.Next() {
		var b block.TxBlock
		if err := b.UnmarshalBinary(it.Value()); err != nil {
			logger.Warn("unmarshal tx block during scan", "err", err)
			continue
		}
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Header.BlockNum < out[j].Header.BlockNum })
	return out
}

// PutVCBlock persists a VC block keyed by its hash.
func (bs *BlockStorage) PutVCBlock(b *block.VCBlock) bool {
	enc, err := b.MarshalBinary()
	if err != nil {
		logger.Warn("marshal vc block", "err", err)
		return false
	}
	if err := bs.vcBlock.Put(b.Hash().Bytes(), enc); err != nil {
		logger.Warn("put vc block", "err", err)
		return false
	}
	return true
}

// GetVCBlock retrieves the VC block with the given hash.
func (bs *BlockStorage) GetVCBlock(hash types.Hash256) (*block.VCBlock, bool) {
	data, err := bs.vcBlock.Get(hash.Bytes())
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var b block.VCBlock
	if err := b.UnmarshalBinary(data); err != nil {
		logger.Warn("unmarshal vc block", "err", err)
		return nil, false
	}
	return &b, true
}

// PutFallbackBlock persists a fallback block (with its sharding structure)
// keyed by its hash.
func (bs *BlockStorage) PutFallbackBlock(b *block.FallbackBlock) bool {
	enc, err := b.MarshalBinary()
	if err != nil {
		logger.Warn("marshal fallback block", "err", err)
		return false
	}
	if err := bs.fallbackBlock.Put(b.Hash().Bytes(), enc); err != nil {
		logger.Warn("put fallback block", "err", err)
		return false
	}
	return true
}

// GetFallbackBlock retrieves the fallback block with the given hash.
func (bs *BlockStorage) GetFallbackBlock(hash types.Hash256) (*block.FallbackBlock, bool) {
	data, err := bs.fallbackBlock.Get(hash.Bytes())
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var b block.FallbackBlock
	if err := b.UnmarshalBinary(data); err != nil {
		logger.Warn("unmarshal fallback block", "err", err)
		return nil, false
	}
	return &b, true
}

// PutTxBody persists a transaction keyed by its hash.
func (bs *BlockStorage) PutTxBody(t *tx.Transaction) bool {
	if err := bs.txBody.Put(t.Hash().Bytes(), t.CoreBytes()); err != nil {
		logger.Warn("put tx body", "err", err)
		return false
	}
	return true
}

// GetTxBody retrieves the transaction with the given hash. The core stores
// only CoreBytes (no signature), since tx bodies are retrieved for replay
// and auditing, not re-broadcast.
func (bs *BlockStorage) GetTxBody(hash types.Hash256) ([]byte, bool) {
	data, err := bs.txBody.Get(hash.Bytes())
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

// PutMetadata stores an opaque metadata record under MetaType's decimal
// ASCII ordinal.
func (bs *BlockStorage) PutMetadata(kind MetaType, data []byte) bool {
	if err := bs.metadata.Put(metaKey(kind), data); err != nil {
		logger.Warn("put metadata", "err", err)
		return false
	}
	return true
}

// GetMetadata retrieves the metadata record for kind.
func (bs *BlockStorage) GetMetadata(kind MetaType) ([]byte, bool) {
	data, err := bs.metadata.Get(metaKey(kind))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

func metaKey(kind MetaType) []byte {
	return []byte(itoa(int(kind)))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Close closes every keyspace, returning the first error encountered.
func (bs *BlockStorage) Close() error {
	var first error
	for _, ks := range []keyspace{bs.dsBlock, bs.txBlock, bs.vcBlock, bs.fallbackBlock, bs.txBody, bs.metadata} {
		if err := ks.Close(); err != nil && first == nil {
			first = errors.Wrap(err, "blockstorage: close keyspace")
		}
	}
	return first
}
