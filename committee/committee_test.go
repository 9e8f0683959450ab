// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package committee

import (
	"fmt"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardchain/corestate/types"
)

func TestNumForConsensus(t *testing.T) {
	for n, want := range map[int]int{1: 2, 3: 3, 5: 5, 6: 5, 7: 6, 9: 7, 10: 8} {
		assert.Equal(t, want, NumForConsensus(n), "n=%d", n)
	}
}

func genCommittee(t *testing.T, n int) (Deque, []*secp256k1.PrivateKey) {
	comm := make(Deque, n)
	privs := make([]*secp256k1.PrivateKey, n)
	for i := 0; i < n; i++ {
		priv, err := secp256k1.GeneratePrivateKey()
		require.NoError(t, err)
		privs[i] = priv
		comm[i] = Member{PubKey: priv.PubKey(), Peer: fmt.Sprintf("peer-%d", i)}
	}
	return comm, privs
}

// signAggregate signs msg with the sum of the selected private keys, which
// verifies against the EC-point sum of the matching public keys.
func signAggregate(t *testing.T, msg []byte, privs []*secp256k1.PrivateKey, bitmap Bitmap) []byte {
	var sum secp256k1.ModNScalar
	for i, set := range bitmap {
		if set {
			sum.Add(&privs[i].Key)
		}
	}
	aggPriv := secp256k1.NewPrivateKey(&sum)
	digest := types.SHA256(msg)
	sig, err := schnorr.Sign(aggPriv, digest.Bytes())
	require.NoError(t, err)
	return sig.Serialize()
}

func TestCosigVerify(t *testing.T) {
	comm, privs := genCommittee(t, 7)
	msg := []byte("header||cs1||b1")

	bitmap := make(Bitmap, len(comm))
	for i := 0; i < NumForConsensus(len(comm)); i++ {
		bitmap[i] = true
	}
	cs2 := signAggregate(t, msg, privs, bitmap)

	assert.True(t, Verify(Cosig{B2: bitmap, CS2: cs2}, comm, msg))
	assert.False(t, Verify(Cosig{B2: bitmap, CS2: cs2}, comm, []byte("other message")))
}

func TestCosigRejectsWrongSignerCount(t *testing.T) {
	comm, privs := genCommittee(t, 7)
	msg := []byte("m")

	// one signer short of the consensus threshold
	bitmap := make(Bitmap, len(comm))
	for i := 0; i < NumForConsensus(len(comm))-1; i++ {
		bitmap[i] = true
	}
	cs2 := signAggregate(t, msg, privs, bitmap)
	assert.False(t, Verify(Cosig{B2: bitmap, CS2: cs2}, comm, msg))
}

func TestCosigRejectsBitmapSizeMismatch(t *testing.T) {
	comm, privs := genCommittee(t, 5)
	msg := []byte("m")

	bitmap := make(Bitmap, len(comm)-1)
	for i := range bitmap {
		bitmap[i] = true
	}
	cs2 := signAggregate(t, msg, privs, bitmap)
	assert.False(t, Verify(Cosig{B2: bitmap, CS2: cs2}, comm, msg))
}

func TestCosigRejectsWrongSigners(t *testing.T) {
	comm, privs := genCommittee(t, 7)
	msg := []byte("m")

	need := NumForConsensus(len(comm))
	bitmap := make(Bitmap, len(comm))
	for i := 0; i < need; i++ {
		bitmap[i] = true
	}
	// sign with a different member set than the bitmap claims
	wrong := make(Bitmap, len(comm))
	for i := len(comm) - need; i < len(comm); i++ {
		wrong[i] = true
	}
	cs2 := signAggregate(t, msg, privs, wrong)
	assert.False(t, Verify(Cosig{B2: bitmap, CS2: cs2}, comm, msg))
}

func TestAggregateDeterministic(t *testing.T) {
	comm, _ := genCommittee(t, 4)
	keys := []*secp256k1.PublicKey{comm[0].PubKey, comm[1].PubKey, comm[2].PubKey}
	a := Aggregate(keys)
	b := Aggregate(keys)
	require.NotNil(t, a)
	assert.Equal(t, a.SerializeCompressed(), b.SerializeCompressed())
}

func TestReplaceEjected(t *testing.T) {
	comm, privs := genCommittee(t, 4)
	leader := Member{PubKey: privs[0].PubKey(), Peer: "new-leader"}

	out := ReplaceEjected(comm, 2, leader)
	assert.Equal(t, "new-leader", out[2].Peer)
	assert.Equal(t, comm[0].Peer, out[0].Peer)
	// input deque untouched
	assert.NotEqual(t, "new-leader", comm[2].Peer)

	// out-of-range index leaves the committee unchanged
	out = ReplaceEjected(comm, 99, leader)
	for i := range comm {
		assert.Equal(t, comm[i].Peer, out[i].Peer)
	}
}
