// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/shardchain/corestate/committee"
	"github.com/shardchain/corestate/types"
)

// wireMember is committee.Member's RLP-friendly shadow: secp256k1.PublicKey
// carries unexported fields and cannot be RLP-encoded directly.
type wireMember struct {
	PubKey []byte
	Peer   string
}

func toWireDeque(d committee.Deque) []wireMember {
	out := make([]wireMember, len(d))
	for i, m := range d {
		out[i] = wireMember{PubKey: m.PubKey.SerializeCompressed(), Peer: m.Peer}
	}
	return out
}

func fromWireDeque(w []wireMember) (committee.Deque, error) {
	out := make(committee.Deque, len(w))
	for i, wm := range w {
		pub, err := secp256k1.ParsePubKey(wm.PubKey)
		if err != nil {
			return nil, errors.Wrap(err, "block: decode committee member")
		}
		out[i] = committee.Member{PubKey: pub, Peer: wm.Peer}
	}
	return out, nil
}

func toWireBitmap(b committee.Bitmap) []byte {
	out := make([]byte, len(b))
	for i, set := range b {
		if set {
			out[i] = 1
		}
	}
	return out
}

func fromWireBitmap(b []byte) committee.Bitmap {
	out := make(committee.Bitmap, len(b))
	for i, v := range b {
		out[i] = v != 0
	}
	return out
}

// wireDSBlock mirrors DSBlock with RLP-safe field types.
type wireDSBlock struct {
	BlockNum     uint64
	GasPrice     []byte
	ShardingHash []byte
	Committee    []wireMember
	CS1          []byte
	B1           []byte
	CS2          []byte
	B2           []byte
}

// MarshalBinary implements the DS block's storage encoding.
func (b *DSBlock) MarshalBinary() ([]byte, error) {
	gp := b.Header.GasPrice.Bytes16()
	return rlp.EncodeToBytes(&wireDSBlock{
		BlockNum:     b.Header.BlockNum,
		GasPrice:     gp[:],
		ShardingHash: b.Header.ShardingHash.Bytes(),
		Committee:    toWireDeque(b.Header.Committee),
		CS1:          b.CS1,
		B1:           toWireBitmap(b.B1),
		CS2:          b.CS2,
		B2:           toWireBitmap(b.B2),
	})
}

// UnmarshalBinary decodes the encoding produced by MarshalBinary.
func (b *DSBlock) UnmarshalBinary(data []byte) error {
	var w wireDSBlock
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return errors.Wrap(err, "block: decode ds block")
	}
	comm, err := fromWireDeque(w.Committee)
	if err != nil {
		return err
	}
	var gp16 [16]byte
	copy(gp16[:], w.GasPrice)
	b.Header = DSBlockHeader{
		BlockNum:     w.BlockNum,
		GasPrice:     types.U128FromBytes16(gp16),
		ShardingHash: types.BytesToHash256(w.ShardingHash),
		Committee:    comm,
	}
	b.CS1 = w.CS1
	b.B1 = fromWireBitmap(w.B1)
	b.CS2 = w.CS2
	b.B2 = fromWireBitmap(w.B2)
	return nil
}

type wireTxBlock struct {
	BlockNum   uint64
	DSBlockNum uint64
	PrevHash   []byte
	MyHash     []byte
	TxRoot     []byte
	StateRoot  []byte
	CS1        []byte
	B1         []byte
	CS2        []byte
	B2         []byte
}

// MarshalBinary implements the tx block's storage encoding.
func (b *TxBlock) MarshalBinary() ([]byte, error) {
	return rlp.EncodeToBytes(&wireTxBlock{
		BlockNum:   b.Header.BlockNum,
		DSBlockNum: b.Header.DSBlockNum,
		PrevHash:   b.Header.PrevHash.Bytes(),
		MyHash:     b.Header.MyHash.Bytes(),
		TxRoot:     b.Header.TxRoot.Bytes(),
		StateRoot:  b.Header.StateRoot.Bytes(),
		CS1:        b.CS1,
		B1:         toWireBitmap(b.B1),
		CS2:        b.CS2,
		B2:         toWireBitmap(b.B2),
	})
}

// UnmarshalBinary decodes the encoding produced by MarshalBinary.
func (b *TxBlock) UnmarshalBinary(data []byte) error {
	var w wireTxBlock
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return errors.Wrap(err, "block: decode tx block")
	}
	b.Header = TxBlockHeader{
		BlockNum:   w.BlockNum,
		DSBlockNum: w.DSBlockNum,
		PrevHash:   types.BytesToHash256(w.PrevHash),
		MyHash:     types.BytesToHash256(w.MyHash),
		TxRoot:     types.BytesToHash256(w.TxRoot),
		StateRoot:  types.BytesToHash256(w.StateRoot),
	}
	b.CS1 = w.CS1
	b.B1 = fromWireBitmap(w.B1)
	b.CS2 = w.CS2
	b.B2 = fromWireBitmap(w.B2)
	return nil
}

type wireVCBlock struct {
	ViewChangeDSEpoch uint64
	EjectedIndex      uint64
	Leader            wireMember
	CS1               []byte
	B1                []byte
	CS2               []byte
	B2                []byte
}

// MarshalBinary implements the VC block's storage encoding.
func (b *VCBlock) MarshalBinary() ([]byte, error) {
	return rlp.EncodeToBytes(&wireVCBlock{
		ViewChangeDSEpoch: b.Header.ViewChangeDSEpoch,
		EjectedIndex:      uint64(b.Header.EjectedIndex),
		Leader:            toWireDeque(committee.Deque{b.Header.Leader})[0],
		CS1:               b.CS1,
		B1:                toWireBitmap(b.B1),
		CS2:               b.CS2,
		B2:                toWireBitmap(b.B2),
	})
}

// UnmarshalBinary decodes the encoding produced by MarshalBinary.
func (b *VCBlock) UnmarshalBinary(data []byte) error {
	var w wireVCBlock
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return errors.Wrap(err, "block: decode vc block")
	}
	leaderDeque, err := fromWireDeque([]wireMember{w.Leader})
	if err != nil {
		return err
	}
	b.Header = VCBlockHeader{
		ViewChangeDSEpoch: w.ViewChangeDSEpoch,
		EjectedIndex:      int(w.EjectedIndex),
		Leader:            leaderDeque[0],
	}
	b.CS1 = w.CS1
	b.B1 = fromWireBitmap(w.B1)
	b.CS2 = w.CS2
	b.B2 = fromWireBitmap(w.B2)
	return nil
}

type wireShard struct {
	Members []wireMember
}

type wireFallbackBlock struct {
	FallbackDSEpoch uint64
	ShardID         uint64
	LeaderIndex     uint64
	Leader          wireMember
	Shards          []wireShard
	CS1             []byte
	B1              []byte
	CS2             []byte
	B2              []byte
}

// MarshalBinary implements the fallback block's storage encoding: the
// block together with the sharding structure it was produced against.
func (b *FallbackBlock) MarshalBinary() ([]byte, error) {
	shards := make([]wireShard, len(b.Sharding.Shards))
	for i, s := range b.Sharding.Shards {
		shards[i] = wireShard{Members: toWireDeque(s)}
	}
	return rlp.EncodeToBytes(&wireFallbackBlock{
		FallbackDSEpoch: b.Header.FallbackDSEpoch,
		ShardID:         uint64(b.Header.ShardID),
		LeaderIndex:     uint64(b.Header.LeaderIndex),
		Leader:          toWireDeque(committee.Deque{b.Header.Leader})[0],
		Shards:          shards,
		CS1:             b.CS1,
		B1:              toWireBitmap(b.B1),
		CS2:             b.CS2,
		B2:              toWireBitmap(b.B2),
	})
}

// UnmarshalBinary decodes the encoding produced by MarshalBinary.
func (b *FallbackBlock) UnmarshalBinary(data []byte) error {
	var w wireFallbackBlock
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return errors.Wrap(err, "block: decode fallback block")
	}
	leaderDeque, err := fromWireDeque([]wireMember{w.Leader})
	if err != nil {
		return err
	}
	shards := make([]committee.Deque, len(w.Shards))
	for i, s := range w.Shards {
		d, err := fromWireDeque(s.Members)
		if err != nil {
			return err
		}
		shards[i] = d
	}
	b.Header = FallbackBlockHeader{
		FallbackDSEpoch: w.FallbackDSEpoch,
		ShardID:         int(w.ShardID),
		LeaderIndex:     int(w.LeaderIndex),
		Leader:          leaderDeque[0],
	}
	b.Sharding = ShardStructure{Shards: shards}
	b.CS1 = w.CS1
	b.B1 = fromWireBitmap(w.B1)
	b.CS2 = w.CS2
	b.B2 = fromWireBitmap(w.B2)
	return nil
}
