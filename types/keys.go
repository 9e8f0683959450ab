// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package types

import (
	"encoding/binary"
	"fmt"
)

// AddressFromPubKey derives an Address from a public key's canonical
// serialized form: SHA2-256 over the serialized key, keeping the low-order
// 20 bytes of the digest.
func AddressFromPubKey(pubKeySerialized []byte) Address {
	digest := SHA256(pubKeySerialized)
	return addressFromDigest(digest)
}

// ContractAddress derives a contract's address from its creator and nonce:
// SHA2-256(sender || big-endian-u64(nonce)), keeping the low-order 20 bytes.
func ContractAddress(sender Address, nonce uint64) Address {
	var buf [AddressLength + 8]byte
	copy(buf[:AddressLength], sender[:])
	binary.BigEndian.PutUint64(buf[AddressLength:], nonce)
	digest := SHA256(buf[:])
	return addressFromDigest(digest)
}

// KeyHash derives the trie key for a contract storage cell from its vname.
func KeyHash(vname string) Hash256 {
	return SHA256([]byte(vname))
}

func addressFromDigest(digest Hash256) Address {
	if len(digest) != 32 {
		// SHA2-256 is defined to emit exactly 32 bytes; anything else is a
		// programmer error and fatal.
		panic(&Error{Kind: KindInvariant, Cause: fmt.Errorf("types: digest length %d != 32", len(digest))})
	}
	return BytesToAddress(digest[len(digest)-AddressLength:])
}
