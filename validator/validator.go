// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package validator checks committee co-signatures, block linkage, and
// transaction pre-conditions, carrying the rolling DS committee and the
// link chain as it walks a directory-block sequence.
package validator

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/shardchain/corestate/accountstore"
	"github.com/shardchain/corestate/block"
	"github.com/shardchain/corestate/blockstorage"
	"github.com/shardchain/corestate/committee"
	"github.com/shardchain/corestate/tx"
	"github.com/shardchain/corestate/types"
)

var logger = log.New("pkg", "validator")

// Config carries the node identity the validator checks transactions
// against.
type Config struct {
	ChainID   uint32
	ShardID   uint32
	NumShards uint32
	// IdleDS is true when the node holds no DS-committee seat and therefore
	// only processes its own shard's transactions.
	IdleDS bool
}

// Validator validates transactions and block sequences against the account
// store and persists accepted blocks through storage.
type Validator struct {
	cfg     Config
	store   *accountstore.AccountStore
	storage *blockstorage.BlockStorage
	links   *LinkChain

	epochNum uint64
	lastDS   *block.DSBlock
}

// New builds a Validator over its collaborators.
func New(cfg Config, store *accountstore.AccountStore, storage *blockstorage.BlockStorage) *Validator {
	return &Validator{
		cfg:     cfg,
		store:   store,
		storage: storage,
		links:   NewLinkChain(),
	}
}

// LinkChain exposes the validator's directory-block index.
func (v *Validator) LinkChain() *LinkChain {
	return v.links
}

// SetEpochNum records the current tx epoch, stamped into receipts.
func (v *Validator) SetEpochNum(n uint64) {
	v.epochNum = n
}

// SetLastDSBlock seeds the validator with the chain's newest DS block; it
// anchors directory-sequence numbering, the sharding hash, and the gas
// price floor.
func (v *Validator) SetLastDSBlock(b *block.DSBlock) {
	v.lastDS = b
}

// VerifyTransaction checks t's Schnorr signature over its core
// serialization.
func (v *Validator) VerifyTransaction(t *tx.Transaction) bool {
	return t.VerifySignature()
}

// CheckCreatedTransaction runs the pre-conditions on a freshly-received
// transaction and, when they hold, applies it to the store's speculative
// overlay with the receipt stamped for the current epoch.
func (v *Validator) CheckCreatedTransaction(t *tx.Transaction, receipt *tx.Receipt) bool {
	if tx.UnpackChainID(t.Version) != v.cfg.ChainID {
		logger.Warn("chain id incorrect", "got", tx.UnpackChainID(t.Version), "want", v.cfg.ChainID)
		return false
	}
	fromAddr := t.SenderAddr()
	if fromAddr.IsZero() {
		logger.Warn("invalid sender address")
		return false
	}
	if !v.store.DoesAccountExist(fromAddr) {
		logger.Warn("sender not found", "addr", fromAddr, "tx", t.Hash())
		return false
	}
	if v.store.GetBalance(fromAddr).Cmp(t.Amount) < 0 {
		logger.Warn("insufficient funds in source account",
			"addr", fromAddr, "balance", v.store.GetBalance(fromAddr), "amount", t.Amount)
		return false
	}

	receipt.EpochNum = v.epochNum

	if err := v.store.UpdateAccountsTemp(v.epochNum, v.cfg.NumShards, !v.cfg.IdleDS, t, receipt); err != nil {
		logger.Warn("apply transaction to overlay", "tx", t.Hash(), "err", err)
		return false
	}
	return true
}

// CheckCreatedTransactionFromLookup runs the full lookup-path checks:
// chain id, shard routing, gas price floor, signature, account existence
// and balance. It does not mutate the store.
func (v *Validator) CheckCreatedTransactionFromLookup(t *tx.Transaction) bool {
	if tx.UnpackChainID(t.Version) != v.cfg.ChainID {
		logger.Warn("chain id incorrect", "got", tx.UnpackChainID(t.Version), "want", v.cfg.ChainID)
		return false
	}
	fromAddr := t.SenderAddr()
	if fromAddr.IsZero() {
		logger.Warn("invalid sender address")
		return false
	}

	if v.cfg.IdleDS {
		fromShard := tx.ShardIndex(fromAddr, v.cfg.NumShards)
		if fromShard != v.cfg.ShardID {
			logger.Warn("transaction not sharded to this node",
				"addr", fromAddr, "correct", fromShard, "this", v.cfg.ShardID)
			return false
		}
		if t.IsContractCall() {
			toShard := tx.ShardIndex(t.ToAddr, v.cfg.NumShards)
			if toShard != fromShard {
				logger.Warn("contract call crosses shards", "from", fromShard, "to", toShard)
				return false
			}
		}
	}

	if v.lastDS != nil && t.GasPrice.Cmp(v.lastDS.Header.GasPrice) < 0 {
		logger.Warn("gas price below minimum",
			"got", t.GasPrice, "min", v.lastDS.Header.GasPrice)
		return false
	}

	if !v.VerifyTransaction(t) {
		logger.Warn("signature incorrect", "addr", fromAddr, "tx", t.Hash())
		return false
	}

	if !v.store.DoesAccountExist(fromAddr) {
		logger.Warn("sender not found", "addr", fromAddr, "tx", t.Hash())
		return false
	}
	if v.store.GetBalance(fromAddr).Cmp(t.Amount) < 0 {
		logger.Warn("insufficient funds in source account",
			"addr", fromAddr, "balance", v.store.GetBalance(fromAddr), "amount", t.Amount)
		return false
	}
	return true
}

// CheckBlockCosignature verifies b's committee co-signature against comm.
func (v *Validator) CheckBlockCosignature(b block.Cosigned, comm committee.Deque) bool {
	return committee.Verify(b.Cosig(), comm, b.CosigMessage())
}

// CheckDirBlocks walks dirBlocks, verifying sequence numbers and
// co-signatures while rotating the DS committee, persisting every accepted
// block and appending its link. indexNum is the total index the first
// accepted block takes. The returned committee is authoritative only when
// ok is true; on failure it reflects whatever rotations happened before the
// loop broke.
func (v *Validator) CheckDirBlocks(dirBlocks []block.DirBlock, initDSComm committee.Deque, indexNum uint64) (committee.Deque, bool) {
	mutableDSComm := append(committee.Deque{}, initDSComm...)

	var prevDSBlockNum uint64
	var prevShardingHash types.Hash256
	if v.lastDS != nil {
		prevDSBlockNum = v.lastDS.Header.BlockNum
		prevShardingHash = v.lastDS.Header.ShardingHash
	}
	totalIndex := indexNum
	ok := true

loop:
	for _, dirBlock := range dirBlocks {
		switch {
		case dirBlock.DS != nil:
			dsb := dirBlock.DS
			if dsb.Header.BlockNum != prevDSBlockNum+1 {
				logger.Warn("ds blocks not in sequence",
					"got", dsb.Header.BlockNum, "prev", prevDSBlockNum)
				ok = false
				break loop
			}
			if !v.CheckBlockCosignature(dsb, mutableDSComm) {
				logger.Warn("co-sig verification of ds block failed", "num", prevDSBlockNum+1)
				ok = false
				break loop
			}
			prevDSBlockNum++
			prevShardingHash = dsb.Header.ShardingHash
			v.links.AddLink(totalIndex, prevDSBlockNum, block.LinkDS, dsb.Hash())
			v.storage.PutDSBlock(dsb)
			mutableDSComm = committee.RotateForDS(dsb.Header.Committee)
			v.lastDS = dsb
			totalIndex++

		case dirBlock.VC != nil:
			vcb := dirBlock.VC
			if vcb.Header.ViewChangeDSEpoch != prevDSBlockNum+1 {
				logger.Warn("vc block ds epoch mismatch",
					"got", vcb.Header.ViewChangeDSEpoch, "prev", prevDSBlockNum)
				ok = false
				break loop
			}
			if !v.CheckBlockCosignature(vcb, mutableDSComm) {
				logger.Warn("co-sig verification of vc block failed", "epoch", prevDSBlockNum+1)
				ok = false
				break loop
			}
			mutableDSComm = committee.ReplaceEjected(mutableDSComm, vcb.Header.EjectedIndex, vcb.Header.Leader)
			v.links.AddLink(totalIndex, prevDSBlockNum+1, block.LinkVC, vcb.Hash())
			v.storage.PutVCBlock(vcb)
			totalIndex++

		case dirBlock.FB != nil:
			fb := dirBlock.FB
			if fb.Header.FallbackDSEpoch != prevDSBlockNum+1 {
				logger.Warn("fallback block ds epoch mismatch",
					"got", fb.Header.FallbackDSEpoch, "prev", prevDSBlockNum)
				ok = false
				break loop
			}
			if fb.Sharding.Hash() != prevShardingHash {
				logger.Warn("sharding hash does not match")
				ok = false
				break loop
			}
			shardID := fb.Header.ShardID
			if shardID < 0 || shardID >= len(fb.Sharding.Shards) {
				logger.Warn("fallback shard id out of range", "shard", shardID)
				ok = false
				break loop
			}
			if !v.CheckBlockCosignature(fb, fb.Sharding.Shards[shardID]) {
				logger.Warn("co-sig verification of fallback block failed", "epoch", prevDSBlockNum+1)
				ok = false
				break loop
			}
			mutableDSComm = committee.IntegrateShardLeader(mutableDSComm, fb.Header.LeaderIndex, fb.Header.Leader)
			v.links.AddLink(totalIndex, prevDSBlockNum+1, block.LinkFB, fb.Hash())
			v.storage.PutFallbackBlock(fb)
			totalIndex++

		default:
			logger.Warn("dir block variant unexpected")
		}
	}

	return mutableDSComm, ok
}

// TxBlockResult is the outcome of CheckTxBlocks.
type TxBlockResult int

const (
	// TxBlocksValid means the sequence checks out.
	TxBlocksValid TxBlockResult = iota
	// TxBlocksInvalid means the sequence is broken or stale.
	TxBlocksInvalid
	// TxBlocksStaleDSInfo means the caller's directory info is behind and
	// it should re-fetch before retrying.
	TxBlocksStaleDSInfo
)

// CheckTxBlocks validates a tx-block sequence against the DS committee and
// the newest link: the last block must belong to the latest DS epoch and
// carry a valid co-signature, and every earlier block must hash-link to its
// successor.
func (v *Validator) CheckTxBlocks(txBlocks []*block.TxBlock, dsComm committee.Deque, latestLink block.Link) TxBlockResult {
	latestDSIndex := latestLink.DSIndex
	if latestLink.Type != block.LinkDS {
		if latestDSIndex == 0 {
			logger.Warn("latest ds index is 0 and link type is not ds")
			return TxBlocksInvalid
		}
		latestDSIndex--
	}

	if len(txBlocks) == 0 {
		logger.Warn("empty tx block sequence")
		return TxBlocksInvalid
	}
	latestTxBlock := txBlocks[len(txBlocks)-1]

	if latestTxBlock.Header.DSBlockNum != latestDSIndex {
		if latestDSIndex > latestTxBlock.Header.DSBlockNum {
			logger.Warn("latest tx block fetched is stale",
				"dsIndex", latestDSIndex, "blockDSNum", latestTxBlock.Header.DSBlockNum)
			return TxBlocksInvalid
		}
		logger.Warn("latest ds index behind the tx block ds num, re-fetch blocks",
			"blockDSNum", latestTxBlock.Header.DSBlockNum, "dsIndex", latestDSIndex)
		return TxBlocksStaleDSInfo
	}

	if !v.CheckBlockCosignature(latestTxBlock, dsComm) {
		return TxBlocksInvalid
	}

	if len(txBlocks) < 2 {
		return TxBlocksValid
	}

	prevHash := latestTxBlock.Header.PrevHash
	for i := len(txBlocks) - 2; i >= 0; i-- {
		if prevHash != txBlocks[i].Header.MyHash {
			logger.Warn("tx block hash link broken", "num", txBlocks[i].Header.BlockNum)
			return TxBlocksInvalid
		}
		prevHash = txBlocks[i].Header.PrevHash
	}
	return TxBlocksValid
}
