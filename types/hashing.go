// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package types

import (
	"crypto/sha256"
	"hash"
	"io"
	"sync"
)

// NewSHA256 returns a new SHA2-256 hash.Hash.
func NewSHA256() hash.Hash {
	return sha256.New()
}

// SHA256 computes the SHA2-256 digest over the concatenation of data.
func SHA256(data ...[]byte) Hash256 {
	if len(data) == 1 {
		return sha256.Sum256(data[0])
	}
	return SHA256Fn(func(w io.Writer) {
		for _, b := range data {
			_, _ = w.Write(b)
		}
	})
}

// SHA256Fn computes the SHA2-256 digest over bytes written by fn.
func SHA256Fn(fn func(w io.Writer)) (h Hash256) {
	s := sha256StatePool.Get().(*sha256State)
	fn(s)
	s.Sum(s.b32[:0])
	h = s.b32
	s.Reset()
	sha256StatePool.Put(s)
	return
}

type sha256State struct {
	hash.Hash
	b32 Hash256
}

var sha256StatePool = sync.Pool{
	New: func() any {
		return &sha256State{Hash: NewSHA256()}
	},
}
