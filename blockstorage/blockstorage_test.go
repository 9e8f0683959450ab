// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package blockstorage

import (
	"fmt"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardchain/corestate/block"
	"github.com/shardchain/corestate/committee"
	"github.com/shardchain/corestate/lvldb"
	"github.com/shardchain/corestate/tx"
	"github.com/shardchain/corestate/types"
)

func newTestStorage(t *testing.T) *BlockStorage {
	spaces := make([]keyspace, 6)
	for i := range spaces {
		db, err := lvldb.NewMem()
		require.NoError(t, err)
		spaces[i] = db
	}
	return New(spaces[0], spaces[1], spaces[2], spaces[3], spaces[4], spaces[5])
}

func testCommittee(t *testing.T, n int) committee.Deque {
	comm := make(committee.Deque, n)
	for i := 0; i < n; i++ {
		priv, err := secp256k1.GeneratePrivateKey()
		require.NoError(t, err)
		comm[i] = committee.Member{PubKey: priv.PubKey(), Peer: fmt.Sprintf("peer-%d", i)}
	}
	return comm
}

func makeDSBlock(t *testing.T, num uint64) *block.DSBlock {
	return &block.DSBlock{
		Header: block.DSBlockHeader{
			BlockNum:     num,
			GasPrice:     types.NewU128(100),
			ShardingHash: types.SHA256([]byte{byte(num)}),
			Committee:    testCommittee(t, 3),
		},
		CS1: []byte("cs1"),
		B1:  committee.Bitmap{true, true, false},
		CS2: []byte("cs2"),
		B2:  committee.Bitmap{true, true, false},
	}
}

func TestDSBlockRoundTrip(t *testing.T) {
	bs := newTestStorage(t)
	defer bs.Close()

	b := makeDSBlock(t, 5)
	require.True(t, bs.PutDSBlock(b))

	got, ok := bs.GetDSBlock(5)
	require.True(t, ok)
	assert.Equal(t, b.Header.BlockNum, got.Header.BlockNum)
	assert.Equal(t, b.Header.ShardingHash, got.Header.ShardingHash)
	assert.Equal(t, b.Header.GasPrice.String(), got.Header.GasPrice.String())
	assert.Equal(t, b.Hash(), got.Hash())

	_, ok = bs.GetDSBlock(6)
	assert.False(t, ok)
}

func TestGetAllDSBlocksSorted(t *testing.T) {
	bs := newTestStorage(t)
	defer bs.Close()

	for _, num := range []uint64{9, 3, 7, 1} {
		require.True(t, bs.PutDSBlock(makeDSBlock(t, num)))
	}
	all := bs.GetAllDSBlocks()
	require.Len(t, all, 4)
	for i, want := range []uint64{1, 3, 7, 9} {
		assert.Equal(t, want, all[i].Header.BlockNum)
	}
}

func TestTxBlockRoundTrip(t *testing.T) {
	bs := newTestStorage(t)
	defer bs.Close()

	b := &block.TxBlock{
		Header: block.TxBlockHeader{
			BlockNum:   12,
			DSBlockNum: 2,
			PrevHash:   types.SHA256([]byte("prev")),
			MyHash:     types.SHA256([]byte("mine")),
			TxRoot:     types.SHA256([]byte("txroot")),
			StateRoot:  types.SHA256([]byte("stateroot")),
		},
		CS1: []byte("cs1"),
		B1:  committee.Bitmap{true},
		CS2: []byte("cs2"),
		B2:  committee.Bitmap{true},
	}
	require.True(t, bs.PutTxBlock(b))

	got, ok := bs.GetTxBlock(12)
	require.True(t, ok)
	assert.Equal(t, b.Header, got.Header)

	all := bs.GetAllTxBlocks()
	require.Len(t, all, 1)
}

func TestVCBlockKeyedByHash(t *testing.T) {
	bs := newTestStorage(t)
	defer bs.Close()

	comm := testCommittee(t, 1)
	b := &block.VCBlock{
		Header: block.VCBlockHeader{
			ViewChangeDSEpoch: 4,
			EjectedIndex:      1,
			Leader:            comm[0],
		},
		CS1: []byte("cs1"),
		B1:  committee.Bitmap{true},
		CS2: []byte("cs2"),
		B2:  committee.Bitmap{true},
	}
	require.True(t, bs.PutVCBlock(b))

	got, ok := bs.GetVCBlock(b.Hash())
	require.True(t, ok)
	assert.Equal(t, b.Header.ViewChangeDSEpoch, got.Header.ViewChangeDSEpoch)
	assert.Equal(t, b.Header.EjectedIndex, got.Header.EjectedIndex)

	_, ok = bs.GetVCBlock(types.SHA256([]byte("unknown")))
	assert.False(t, ok)
}

func TestFallbackBlockCarriesSharding(t *testing.T) {
	bs := newTestStorage(t)
	defer bs.Close()

	shards := []committee.Deque{testCommittee(t, 2), testCommittee(t, 2)}
	b := &block.FallbackBlock{
		Header: block.FallbackBlockHeader{
			FallbackDSEpoch: 3,
			ShardID:         1,
			LeaderIndex:     0,
			Leader:          shards[1][0],
		},
		Sharding: block.ShardStructure{Shards: shards},
		CS1:      []byte("cs1"),
		B1:       committee.Bitmap{true, false},
		CS2:      []byte("cs2"),
		B2:       committee.Bitmap{true, false},
	}
	require.True(t, bs.PutFallbackBlock(b))

	got, ok := bs.GetFallbackBlock(b.Hash())
	require.True(t, ok)
	require.Len(t, got.Sharding.Shards, 2)
	assert.Equal(t, b.Sharding.Hash(), got.Sharding.Hash())
}

func TestTxBodyRoundTrip(t *testing.T) {
	bs := newTestStorage(t)
	defer bs.Close()

	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	txn := &tx.Transaction{
		Version:  tx.PackVersion(1, 1),
		Nonce:    7,
		ToAddr:   types.BytesToAddress([]byte{0x01}),
		Amount:   types.NewU128(10),
		GasPrice: types.NewU128(1),
		GasLimit: 21,
	}
	require.NoError(t, tx.Sign(txn, priv))

	require.True(t, bs.PutTxBody(txn))
	body, ok := bs.GetTxBody(txn.Hash())
	require.True(t, ok)
	assert.Equal(t, txn.CoreBytes(), body)
}

func TestMetadataRoundTrip(t *testing.T) {
	bs := newTestStorage(t)
	defer bs.Close()

	_, ok := bs.GetMetadata(MetaStateRoot)
	assert.False(t, ok)

	root := types.SHA256([]byte("root"))
	require.True(t, bs.PutMetadata(MetaStateRoot, root.Bytes()))

	data, ok := bs.GetMetadata(MetaStateRoot)
	require.True(t, ok)
	assert.Equal(t, root.Bytes(), data)

	// records keyed by different enum ordinals stay independent
	_, ok = bs.GetMetadata(MetaDSBlockHeight)
	assert.False(t, ok)
}
