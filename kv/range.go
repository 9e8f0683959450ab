// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Range is a key range. From is included, To is excluded.
// A nil To means no upper bound.
type Range struct {
	From []byte
	To   []byte
}
