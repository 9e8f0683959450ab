// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/shardchain/corestate/committee"
)

// Cosigned is any block carrying a committee co-signature: the validator
// verifies Cosig() over CosigMessage(), the serialized header followed by
// the first-round signature CS1 and its bitmap B1.
type Cosigned interface {
	CosigMessage() []byte
	Cosig() committee.Cosig
}

var (
	_ Cosigned = (*DSBlock)(nil)
	_ Cosigned = (*VCBlock)(nil)
	_ Cosigned = (*FallbackBlock)(nil)
	_ Cosigned = (*TxBlock)(nil)
)

func mustEncodeHeader(v interface{}) []byte {
	enc, err := rlp.EncodeToBytes(v)
	if err != nil {
		// headers are fixed-shape structs of encodable fields
		panic(errors.Wrap(err, "block: encode header"))
	}
	return enc
}

func cosigMessage(header, cs1 []byte, b1 committee.Bitmap) []byte {
	msg := make([]byte, 0, len(header)+len(cs1)+len(b1))
	msg = append(msg, header...)
	msg = append(msg, cs1...)
	return append(msg, toWireBitmap(b1)...)
}

type wireDSHeader struct {
	BlockNum     uint64
	GasPrice     []byte
	ShardingHash []byte
	Committee    []wireMember
}

// CosigMessage returns the bytes the committee co-signed.
func (b *DSBlock) CosigMessage() []byte {
	gp := b.Header.GasPrice.Bytes16()
	return cosigMessage(mustEncodeHeader(&wireDSHeader{
		BlockNum:     b.Header.BlockNum,
		GasPrice:     gp[:],
		ShardingHash: b.Header.ShardingHash.Bytes(),
		Committee:    toWireDeque(b.Header.Committee),
	}), b.CS1, b.B1)
}

// Cosig returns the second-round co-signature to verify.
func (b *DSBlock) Cosig() committee.Cosig {
	return committee.Cosig{B2: b.B2, CS2: b.CS2}
}

type wireVCHeader struct {
	ViewChangeDSEpoch uint64
	EjectedIndex      uint64
	Leader            wireMember
}

// CosigMessage returns the bytes the committee co-signed.
func (b *VCBlock) CosigMessage() []byte {
	return cosigMessage(mustEncodeHeader(&wireVCHeader{
		ViewChangeDSEpoch: b.Header.ViewChangeDSEpoch,
		EjectedIndex:      uint64(b.Header.EjectedIndex),
		Leader:            toWireDeque(committee.Deque{b.Header.Leader})[0],
	}), b.CS1, b.B1)
}

// Cosig returns the second-round co-signature to verify.
func (b *VCBlock) Cosig() committee.Cosig {
	return committee.Cosig{B2: b.B2, CS2: b.CS2}
}

type wireFallbackHeader struct {
	FallbackDSEpoch uint64
	ShardID         uint64
	LeaderIndex     uint64
	Leader          wireMember
}

// CosigMessage returns the bytes the shard co-signed. The sharding structure
// is not part of the signed header; it is checked separately against the
// previous sharding hash.
func (b *FallbackBlock) CosigMessage() []byte {
	return cosigMessage(mustEncodeHeader(&wireFallbackHeader{
		FallbackDSEpoch: b.Header.FallbackDSEpoch,
		ShardID:         uint64(b.Header.ShardID),
		LeaderIndex:     uint64(b.Header.LeaderIndex),
		Leader:          toWireDeque(committee.Deque{b.Header.Leader})[0],
	}), b.CS1, b.B1)
}

// Cosig returns the second-round co-signature to verify.
func (b *FallbackBlock) Cosig() committee.Cosig {
	return committee.Cosig{B2: b.B2, CS2: b.CS2}
}

type wireTxHeader struct {
	BlockNum   uint64
	DSBlockNum uint64
	PrevHash   []byte
	MyHash     []byte
	TxRoot     []byte
	StateRoot  []byte
}

// CosigMessage returns the bytes the DS committee co-signed.
func (b *TxBlock) CosigMessage() []byte {
	return cosigMessage(mustEncodeHeader(&wireTxHeader{
		BlockNum:   b.Header.BlockNum,
		DSBlockNum: b.Header.DSBlockNum,
		PrevHash:   b.Header.PrevHash.Bytes(),
		MyHash:     b.Header.MyHash.Bytes(),
		TxRoot:     b.Header.TxRoot.Bytes(),
		StateRoot:  b.Header.StateRoot.Bytes(),
	}), b.CS1, b.B1)
}

// Cosig returns the second-round co-signature to verify.
func (b *TxBlock) Cosig() committee.Cosig {
	return committee.Cosig{B2: b.B2, CS2: b.CS2}
}
