// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressFromPubKeyDeterministic(t *testing.T) {
	pk := []byte("a fake serialized public key, 33 bytes-ish")
	a1 := AddressFromPubKey(pk)
	a2 := AddressFromPubKey(pk)
	assert.Equal(t, a1, a2)
}

func TestAddressFromPubKeyCollisionSpotCheck(t *testing.T) {
	a1 := AddressFromPubKey([]byte("pubkey one"))
	a2 := AddressFromPubKey([]byte("pubkey two"))
	assert.NotEqual(t, a1, a2)
}

func TestContractAddressInjectiveInNonce(t *testing.T) {
	sender, err := ParseAddress("0x0000000000000000000000000000000000000001")
	assert.NoError(t, err)

	seen := map[Address]bool{}
	for nonce := uint64(0); nonce < 64; nonce++ {
		addr := ContractAddress(sender, nonce)
		assert.False(t, seen[addr], "collision at nonce %d", nonce)
		seen[addr] = true
	}
}

func TestU128CheckedArithmetic(t *testing.T) {
	a := NewU128(100)
	b := NewU128(30)

	sum, ok := a.Add(b)
	assert.True(t, ok)
	assert.Equal(t, "130", sum.String())

	diff, ok := a.Sub(b)
	assert.True(t, ok)
	assert.Equal(t, "70", diff.String())

	_, ok = b.Sub(a)
	assert.False(t, ok)

	max, _ := U128FromBig(maxU128)
	_, ok = max.Add(NewU128(1))
	assert.False(t, ok)
}
