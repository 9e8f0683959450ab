// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package tx implements the signed-transaction wire type the core consumes
// from its gossip-layer collaborator, and the Schnorr signer/verifier used
// to authenticate it.
package tx

import (
	"encoding/binary"

	"github.com/shardchain/corestate/types"
)

// Transaction is a signed user transaction, as handed to the core by the
// gossip layer.
type Transaction struct {
	Version      uint32
	ChainID      uint32
	Nonce        uint64
	SenderPubKey []byte
	ToAddr       types.Address
	Amount       types.U128
	GasPrice     types.U128
	GasLimit     uint64
	Data         types.Bytes
	Code         types.Bytes
	Signature    []byte
}

// SenderAddr derives the sender's address from SenderPubKey.
func (t *Transaction) SenderAddr() types.Address {
	return types.AddressFromPubKey(t.SenderPubKey)
}

// IsContractCall reports whether this transaction invokes a deployed
// contract: non-empty data and a non-null recipient.
func (t *Transaction) IsContractCall() bool {
	return len(t.Data) > 0 && !t.ToAddr.IsZero()
}

// IsContractCreation reports whether this transaction deploys a contract:
// non-empty code and a null recipient.
func (t *Transaction) IsContractCreation() bool {
	return len(t.Code) > 0 && t.ToAddr.IsZero()
}

// CoreBytes is the canonical byte serialization the signature is computed
// over: every field except Signature itself, in declaration order.
func (t *Transaction) CoreBytes() []byte {
	buf := make([]byte, 0, 128+len(t.Data)+len(t.Code))
	buf = appendU32(buf, t.Version)
	buf = appendU32(buf, t.ChainID)
	buf = appendU64(buf, t.Nonce)
	buf = appendLP(buf, t.SenderPubKey)
	buf = append(buf, t.ToAddr.Bytes()...)
	amt := t.Amount.Bytes16()
	buf = append(buf, amt[:]...)
	gp := t.GasPrice.Bytes16()
	buf = append(buf, gp[:]...)
	buf = appendU64(buf, t.GasLimit)
	buf = appendLP(buf, t.Data)
	buf = appendLP(buf, t.Code)
	return buf
}

// Hash returns the SHA2-256 digest of CoreBytes, used as the tx body
// storage key and the signing digest.
func (t *Transaction) Hash() types.Hash256 {
	return types.SHA256(t.CoreBytes())
}

// UnpackChainID extracts the chain id packed into the upper half of a
// transaction's version field.
func UnpackChainID(version uint32) uint32 {
	return version >> 16
}

// PackVersion packs a chain id and a transaction format version into the
// wire version field.
func PackVersion(chainID, version uint32) uint32 {
	return chainID<<16 | version&0xffff
}

// ShardIndex maps an address to the shard that processes its transactions:
// the low-order four bytes of the address, big-endian, modulo numShards.
func ShardIndex(addr types.Address, numShards uint32) uint32 {
	if numShards == 0 {
		return 0
	}
	x := binary.BigEndian.Uint32(addr[types.AddressLength-4:])
	return x % numShards
}

// Receipt is the execution outcome attached to an applied transaction.
type Receipt struct {
	TxHash   types.Hash256
	Success  bool
	EpochNum uint64
	CumGas   uint64
	Error    string
}
