// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package committee models the rolling DS committee the validator walks a
// directory-block sequence against, and the aggregated-signature
// (co-signature) verification that gates every block in that sequence.
package committee

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"

	"github.com/shardchain/corestate/types"
)

// Member is one committee seat: a public key and the peer it's reachable
// at. Peer is opaque to the core; only the transport layer interprets it.
type Member struct {
	PubKey *secp256k1.PublicKey
	Peer   string
}

// Deque is the rolling committee the validator carries across a
// directory-block sequence, ordered front-to-back exactly as the consensus
// module presents it.
type Deque []Member

// Bitmap marks, per committee index, which members signed a consensus round.
type Bitmap []bool

// NumForConsensus is the signer-count threshold required for a valid
// co-signature: ceil(2n/3) + 1. The formula is fixed by the consensus
// protocol; keep it in sync rather than re-deriving it.
func NumForConsensus(n int) int {
	return (2*n+2)/3 + 1
}

// CountSet returns how many bits in b are set.
func (b Bitmap) CountSet() int {
	n := 0
	for _, set := range b {
		if set {
			n++
		}
	}
	return n
}

// Cosig is an aggregated multi-signature over a committee with a signer
// bitmap: B2 selects which members co-signed, CS2 is the aggregated
// signature verified against the aggregated public key of those members.
type Cosig struct {
	B2  Bitmap
	CS2 []byte
}

// Verify checks cosig against comm: the signer count must equal
// NumForConsensus(len(comm)), and the aggregated signature must verify
// against the aggregated selected public keys over msg.
func Verify(cosig Cosig, comm Deque, msg []byte) bool {
	if len(cosig.B2) != len(comm) {
		return false
	}
	var selected []*secp256k1.PublicKey
	for i, set := range cosig.B2 {
		if set {
			selected = append(selected, comm[i].PubKey)
		}
	}
	if len(selected) != NumForConsensus(len(comm)) {
		return false
	}
	agg := Aggregate(selected)
	if agg == nil {
		return false
	}
	sig, err := schnorr.ParseSignature(cosig.CS2)
	if err != nil {
		return false
	}
	digest := types.SHA256(msg)
	return sig.Verify(digest.Bytes(), agg)
}

// Aggregate combines pubkeys into a single key by EC point addition over
// secp256k1, in committee order so the result is deterministic.
func Aggregate(pubkeys []*secp256k1.PublicKey) *secp256k1.PublicKey {
	if len(pubkeys) == 0 {
		return nil
	}
	var acc secp256k1.JacobianPoint
	pubkeys[0].AsJacobian(&acc)
	for _, pk := range pubkeys[1:] {
		var p secp256k1.JacobianPoint
		pk.AsJacobian(&p)
		var sum secp256k1.JacobianPoint
		secp256k1.AddNonConst(&acc, &p, &sum)
		acc = sum
	}
	acc.ToAffine()
	return secp256k1.NewPublicKey(&acc.X, &acc.Y)
}

// RotateForDS returns the committee after a DS-block rotation: the new
// block's committee roster, taken from the DS block header, replaces comm
// wholesale — the rotation rule a DS block itself encodes.
func RotateForDS(newRoster Deque) Deque {
	return newRoster
}

// ReplaceEjected returns a copy of comm with the member at ejectedIdx
// replaced by the view-change leader, per the VC-rotation rule.
func ReplaceEjected(comm Deque, ejectedIdx int, leader Member) Deque {
	out := make(Deque, len(comm))
	copy(out, comm)
	if ejectedIdx >= 0 && ejectedIdx < len(out) {
		out[ejectedIdx] = leader
	}
	return out
}

// IntegrateShardLeader returns a copy of comm with the fallback shard's
// leader folded in at leaderIdx, per the fallback-rotation rule.
func IntegrateShardLeader(comm Deque, leaderIdx int, leader Member) Deque {
	return ReplaceEjected(comm, leaderIdx, leader)
}
