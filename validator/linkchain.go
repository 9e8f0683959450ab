// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validator

import (
	"github.com/shardchain/corestate/block"
	"github.com/shardchain/corestate/types"
)

// LinkChain is the append-only index of directory blocks, ordered by total
// index across every block type.
type LinkChain struct {
	links []block.Link
}

// NewLinkChain returns an empty link chain.
func NewLinkChain() *LinkChain {
	return &LinkChain{}
}

// AddLink appends one entry.
func (lc *LinkChain) AddLink(totalIndex, dsIndex uint64, typ block.LinkType, hash types.Hash256) {
	lc.links = append(lc.links, block.Link{
		TotalIndex: totalIndex,
		DSIndex:    dsIndex,
		Type:       typ,
		BlockHash:  hash,
	})
}

// Latest returns the newest link, or ok=false when the chain is empty.
func (lc *LinkChain) Latest() (block.Link, bool) {
	if len(lc.links) == 0 {
		return block.Link{}, false
	}
	return lc.links[len(lc.links)-1], true
}

// Len returns the number of links.
func (lc *LinkChain) Len() int {
	return len(lc.links)
}

// At returns the link at position i.
func (lc *LinkChain) At(i int) block.Link {
	return lc.links[i]
}
