// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trie

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"
)

// node is the in-memory representation of one trie node. Interior nodes
// (fullNode, shortNode) may hold either resolved children or hashNode
// placeholders pointing at a child persisted in the backend.
type node interface {
	fstring(string) string
	cache() (hashNode, bool)
}

type (
	fullNode struct {
		Children [17]node // 16 nibble slots plus a value slot at index 16
		flags    nodeFlag
	}
	shortNode struct {
		Key   []byte // hex-nibble encoded, possibly terminated
		Val   node
		flags nodeFlag
	}
	hashNode  []byte
	valueNode []byte
)

// nilValueNode is substituted for Go-nil children before RLP encoding, since
// the rlp package cannot encode a nil interface value directly.
var nilValueNode = valueNode(nil)

func (n *fullNode) EncodeRLP(w io.Writer) error {
	var nodes [17]node
	for i, child := range &n.Children {
		if child != nil {
			nodes[i] = child
		} else {
			nodes[i] = nilValueNode
		}
	}
	return rlp.Encode(w, nodes)
}

func (n *shortNode) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, []interface{}{n.Key, n.Val})
}

func (n hashNode) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, []byte(n))
}

func (n valueNode) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, []byte(n))
}

func (n *fullNode) copy() *fullNode   { cp := *n; return &cp }
func (n *shortNode) copy() *shortNode { cp := *n; return &cp }

// nodeFlag holds caching metadata about an interior node. Only decoding
// fills it: nodes built by Insert carry zero flags, and copies keep the
// flags of the node they were copied from.
type nodeFlag struct {
	hash  hashNode // hash the node was decoded under, nil for nodes built in memory
	dirty bool     // never set to true by this package
}

func (n *fullNode) cache() (hashNode, bool)  { return n.flags.hash, n.flags.dirty }
func (n *shortNode) cache() (hashNode, bool) { return n.flags.hash, n.flags.dirty }
func (n hashNode) cache() (hashNode, bool)   { return nil, true }
func (n valueNode) cache() (hashNode, bool)  { return nil, true }

func (n *fullNode) String() string  { return n.fstring("") }
func (n *shortNode) String() string { return n.fstring("") }
func (n hashNode) String() string   { return n.fstring("") }
func (n valueNode) String() string  { return n.fstring("") }

var indices = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "a", "b", "c", "d", "e", "f", "[17]"}

func (n *fullNode) fstring(ind string) string {
	resp := fmt.Sprintf("[\n%s  ", ind)
	for i, node := range n.Children {
		if node == nil {
			resp += fmt.Sprintf("%s: <nil> ", indices[i])
		} else {
			resp += fmt.Sprintf("%s: %v", indices[i], node.fstring(ind+"  "))
		}
	}
	return resp + fmt.Sprintf("\n%s] ", ind)
}
func (n *shortNode) fstring(ind string) string {
	return fmt.Sprintf("{%x: %v} ", n.Key, n.Val.fstring(ind+"  "))
}
func (n hashNode) fstring(string) string  { return fmt.Sprintf("<%x> ", []byte(n)) }
func (n valueNode) fstring(string) string { return fmt.Sprintf("%x ", []byte(n)) }

// mustDecodeNode decodes a persisted node's RLP body. buf must have been
// produced by (*hasher).store for the same hash.
func mustDecodeNode(hash, buf []byte) node {
	n, err := decodeNode(hash, buf)
	if err != nil {
		panic(fmt.Sprintf("trie: bad node %x: %v", hash, err))
	}
	return n
}

func decodeNode(hash, buf []byte) (node, error) {
	if len(buf) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	elems, _, err := rlp.SplitList(buf)
	if err != nil {
		return nil, fmt.Errorf("decode error: %v", err)
	}
	switch c, _ := rlp.CountValues(elems); c {
	case 2:
		n, err := decodeShort(hash, elems)
		return n, wrapError(err, "short")
	case 17:
		n, err := decodeFull(hash, elems)
		return n, wrapError(err, "full")
	default:
		return nil, fmt.Errorf("invalid number of list elements: %v", c)
	}
}

func decodeShort(hash, elems []byte) (node, error) {
	kbuf, rest, err := rlp.SplitString(elems)
	if err != nil {
		return nil, err
	}
	flag := nodeFlag{hash: hashNode(hash), dirty: false}
	key := compactToHex(kbuf)
	if hasTerm(key) {
		val, _, err := rlp.SplitString(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid value node: %v", err)
		}
		return &shortNode{Key: key, Val: valueNode(val), flags: flag}, nil
	}
	r, _, err := decodeRef(rest)
	if err != nil {
		return nil, err
	}
	return &shortNode{Key: key, Val: r, flags: flag}, nil
}

func decodeFull(hash, elems []byte) (*fullNode, error) {
	n := &fullNode{flags: nodeFlag{hash: hashNode(hash)}}
	for i := 0; i < 16; i++ {
		cld, rest, err := decodeRef(elems)
		if err != nil {
			return n, wrapError(err, fmt.Sprintf("[%d]", i))
		}
		n.Children[i] = cld
		elems = rest
	}
	val, _, err := rlp.SplitString(elems)
	if err != nil {
		return n, err
	}
	if len(val) > 0 {
		n.Children[16] = valueNode(val)
	}
	return n, nil
}

func decodeRef(buf []byte) (node, []byte, error) {
	kind, val, rest, err := rlp.Split(buf)
	if err != nil {
		return nil, buf, err
	}
	switch {
	case kind == rlp.List:
		n, err := decodeNode(nil, buf[:len(buf)-len(rest)])
		return n, rest, err
	case kind == rlp.String && len(val) == 0:
		return nil, rest, nil
	case kind == rlp.String && len(val) == 32:
		return hashNode(val), rest, nil
	default:
		return nil, nil, fmt.Errorf("invalid RLP string size %d (want 0 or 32)", len(val))
	}
}

func wrapError(err error, ctx string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", ctx, err)
}
