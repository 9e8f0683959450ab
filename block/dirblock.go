// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block

// DirBlock is the tagged sum type the validator dispatches on while walking
// a directory-block sequence: exactly one of DS, VC, or FB is non-nil.
type DirBlock struct {
	DS *DSBlock
	VC *VCBlock
	FB *FallbackBlock
}

// Unknown reports whether none of the tagged variants is populated —
// the validator warns and skips such entries rather than aborting.
func (d DirBlock) Unknown() bool {
	return d.DS == nil && d.VC == nil && d.FB == nil
}
