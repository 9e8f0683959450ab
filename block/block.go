// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package block defines the directory-service block family (DS, VC,
// fallback) and the transaction-block type the validator walks, plus the
// append-only link-chain index spanning all of them.
package block

import (
	"github.com/shardchain/corestate/committee"
	"github.com/shardchain/corestate/types"
)

// LinkType tags one entry of the link-chain.
type LinkType int

const (
	LinkDS LinkType = iota
	LinkVC
	LinkFB
	LinkTx
)

// Link is one append-only link-chain entry, indexed by TotalIndex across
// every directory block; DSIndex counts only among DS blocks.
type Link struct {
	TotalIndex uint64
	DSIndex    uint64
	Type       LinkType
	BlockHash  types.Hash256
}

// DSBlockHeader is the consensus-relevant header of a directory-service
// block.
type DSBlockHeader struct {
	BlockNum     uint64
	GasPrice     types.U128
	ShardingHash types.Hash256
	Committee    committee.Deque
}

// DSBlock rotates the consensus committee.
type DSBlock struct {
	Header DSBlockHeader
	CS1    []byte
	B1     committee.Bitmap
	CS2    []byte
	B2     committee.Bitmap
}

// Hash is the block's identity for link-chain and storage purposes.
func (b *DSBlock) Hash() types.Hash256 {
	return types.SHA256(encodeU64(b.Header.BlockNum), b.Header.ShardingHash.Bytes())
}

// VCBlockHeader is the consensus-relevant header of a view-change block.
type VCBlockHeader struct {
	ViewChangeDSEpoch uint64
	EjectedIndex      int
	Leader            committee.Member
}

// VCBlock replaces a faulty leader within a DS epoch.
type VCBlock struct {
	Header VCBlockHeader
	CS1    []byte
	B1     committee.Bitmap
	CS2    []byte
	B2     committee.Bitmap
}

func (b *VCBlock) Hash() types.Hash256 {
	return types.SHA256(encodeU64(b.Header.ViewChangeDSEpoch), []byte(b.Header.Leader.Peer))
}

// ShardStructure is the committee-partitioning structure a fallback block
// must match against the previous sharding hash.
type ShardStructure struct {
	Shards []committee.Deque
}

// Hash is the sharding structure's content hash, checked against
// prevShardingHash during fallback-block validation.
func (s ShardStructure) Hash() types.Hash256 {
	var buf []byte
	for _, shard := range s.Shards {
		buf = append(buf, encodeU64(uint64(len(shard)))...)
		for _, m := range shard {
			buf = append(buf, []byte(m.Peer)...)
		}
	}
	return types.SHA256(buf)
}

// FallbackBlockHeader is the consensus-relevant header of a fallback block.
type FallbackBlockHeader struct {
	FallbackDSEpoch uint64
	ShardID         int
	LeaderIndex     int
	Leader          committee.Member
}

// FallbackBlock is an emergency block committed by a non-DS shard when the
// DS committee stalls, carrying the sharding structure it was produced
// against.
type FallbackBlock struct {
	Header   FallbackBlockHeader
	Sharding ShardStructure
	CS1      []byte
	B1       committee.Bitmap
	CS2      []byte
	B2       committee.Bitmap
}

func (b *FallbackBlock) Hash() types.Hash256 {
	return types.SHA256(encodeU64(b.Header.FallbackDSEpoch), encodeU64(uint64(b.Header.ShardID)))
}

// TxBlockHeader is the consensus-relevant header of a transaction block.
type TxBlockHeader struct {
	BlockNum   uint64
	DSBlockNum uint64
	PrevHash   types.Hash256
	MyHash     types.Hash256
	TxRoot     types.Hash256
	StateRoot  types.Hash256
}

// TxBlock is a block of user transactions produced within a DS epoch.
type TxBlock struct {
	Header TxBlockHeader
	CS1    []byte
	B1     committee.Bitmap
	CS2    []byte
	B2     committee.Bitmap
}

func (b *TxBlock) Hash() types.Hash256 {
	return b.Header.MyHash
}

func encodeU64(v uint64) []byte {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[7-i] = byte(v >> (8 * i))
	}
	return buf[:]
}
