// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trie

import (
	"bytes"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/shardchain/corestate/types"
)

// hasher collapses a node tree into its canonical RLP form and SHA2-256
// hashes it, optionally staging the encoding for a later commit.
type hasher struct {
	tmp bytes.Buffer
	// stage, when non-nil, receives every newly-hashed interior node's
	// encoding keyed by its hash. Root() passes a nil stage so hashing
	// never mutates the overlay; Commit() passes a fresh staging map and
	// then copies its entries into the overlay and the write batch.
	stage map[types.Hash256][]byte
}

func newHasher(stage map[types.Hash256][]byte) *hasher {
	return &hasher{stage: stage}
}

// hash returns the collapsed (hash-replaced-children) form of n.
func (h *hasher) hash(n node) (node, error) {
	switch nn := n.(type) {
	case *shortNode:
		collapsed := nn.copy()
		collapsed.Key = hexToCompact(nn.Key)
		if _, ok := nn.Val.(valueNode); !ok {
			childHash, err := h.hash(nn.Val)
			if err != nil {
				return nil, err
			}
			collapsed.Val = childHash
		}
		return h.store(collapsed)

	case *fullNode:
		collapsed := nn.copy()
		for i := 0; i < 16; i++ {
			if nn.Children[i] != nil {
				childHash, err := h.hash(nn.Children[i])
				if err != nil {
					return nil, err
				}
				collapsed.Children[i] = childHash
			}
		}
		return h.store(collapsed)

	default:
		// hashNode and valueNode are already in their final form.
		return n, nil
	}
}

func (h *hasher) store(n node) (node, error) {
	h.tmp.Reset()
	if err := rlp.Encode(&h.tmp, n); err != nil {
		return nil, err
	}
	encoded := append([]byte(nil), h.tmp.Bytes()...)
	sum := types.SHA256(encoded)
	if h.stage != nil {
		h.stage[sum] = encoded
	}
	return hashNode(sum.Bytes()), nil
}
