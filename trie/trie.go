// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package trie implements the hashed authenticated trie that backs the
// account state and contract storage: an in-memory overlay of pending writes
// on top of a pluggable key-value backend, committed in batches.
package trie

import (
	"github.com/pkg/errors"

	"github.com/shardchain/corestate/kv"
	"github.com/shardchain/corestate/types"
)

// emptyRoot is the root of an empty trie. The zero hash denotes "absent"
// throughout the core.
var emptyRoot = types.Hash256{}

// Trie is a hashed Merkle-Patricia trie over a kv.GetPutter backend.
// Uncommitted writes live in the in-memory node tree under root; overlay
// holds the node encodings staged by Commit, which resolveHash consults
// before the backend.
type Trie struct {
	backend kv.Getter
	putter  kv.Putter
	root    node
	overlay map[types.Hash256][]byte
}

// New creates an empty trie over backend. backend must implement both
// kv.Getter (for resolving nodes on read) and kv.Putter (for Commit); pass
// the same handle for both, as AccountStore and Account do.
func New(backend interface {
	kv.Getter
	kv.Putter
}) *Trie {
	return &Trie{
		backend: backend,
		putter:  backend,
		overlay: make(map[types.Hash256][]byte),
	}
}

// Init resets the trie to the empty root, discarding any uncommitted writes.
func (t *Trie) Init() {
	t.root = nil
	t.overlay = make(map[types.Hash256][]byte)
}

// SetRoot points the trie at an existing root. Subsequent reads traverse
// that trie, resolving nodes lazily from the backend. The in-memory node
// tree and the overlay are dropped, so any uncommitted writes accumulated
// against the previous root are lost.
func (t *Trie) SetRoot(h types.Hash256) {
	t.overlay = make(map[types.Hash256][]byte)
	if h == emptyRoot {
		t.root = nil
		return
	}
	t.root = hashNode(h.Bytes())
}

// Root returns the current root hash without writing to the backend.
func (t *Trie) Root() types.Hash256 {
	if t.root == nil {
		return emptyRoot
	}
	h, err := newHasher(nil).hash(t.root)
	if err != nil {
		// hashing never touches the backend when stage is nil, so this
		// can only happen on a malformed in-memory node.
		panic(errors.Wrap(err, "trie: hash root"))
	}
	return types.BytesToHash256(h.(hashNode))
}

// Insert associates key with value. The write stays in the in-memory node
// tree until Commit.
func (t *Trie) Insert(key, value []byte) error {
	k := keybytesToHex(key)
	newRoot, err := t.insert(t.root, k, valueNode(value))
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

func (t *Trie) insert(n node, key []byte, value node) (node, error) {
	if len(key) == 0 {
		return value, nil
	}
	switch n := n.(type) {
	case nil:
		return &shortNode{Key: key, Val: value}, nil

	case *shortNode:
		match := prefixLen(key, n.Key)
		if match == len(n.Key) {
			newVal, err := t.insert(n.Val, key[match:], value)
			if err != nil {
				return nil, err
			}
			return &shortNode{Key: n.Key, Val: newVal}, nil
		}
		branch := &fullNode{}
		var err error
		branch.Children[n.Key[match]], err = t.insert(nil, n.Key[match+1:], n.Val)
		if err != nil {
			return nil, err
		}
		branch.Children[key[match]], err = t.insert(nil, key[match+1:], value)
		if err != nil {
			return nil, err
		}
		if match == 0 {
			return branch, nil
		}
		return &shortNode{Key: key[:match], Val: branch}, nil

	case *fullNode:
		cp := n.copy()
		child, err := t.resolveHash(n.Children[key[0]])
		if err != nil {
			return nil, err
		}
		cp.Children[key[0]], err = t.insert(child, key[1:], value)
		if err != nil {
			return nil, err
		}
		return cp, nil

	case hashNode:
		resolved, err := t.resolveHash(n)
		if err != nil {
			return nil, err
		}
		return t.insert(resolved, key, value)

	default:
		return nil, errors.Errorf("trie: insert against unexpected node type %T", n)
	}
}

// At returns the value stored for key, or ok=false if absent.
func (t *Trie) At(key []byte) (value []byte, ok bool, err error) {
	k := keybytesToHex(key)
	v, _, err := t.get(t.root, k)
	if err != nil {
		return nil, false, err
	}
	if v == nil {
		return nil, false, nil
	}
	return []byte(v.(valueNode)), true, nil
}

func (t *Trie) get(n node, key []byte) (node, node, error) {
	switch n := n.(type) {
	case nil:
		return nil, nil, nil
	case valueNode:
		return n, n, nil
	case *shortNode:
		if len(key) < len(n.Key) || !bytesEqual(n.Key, key[:len(n.Key)]) {
			return nil, n, nil
		}
		v, newVal, err := t.get(n.Val, key[len(n.Key):])
		if err != nil {
			return nil, n, err
		}
		return v, &shortNode{Key: n.Key, Val: newVal}, nil
	case *fullNode:
		child, err := t.resolveHash(n.Children[key[0]])
		if err != nil {
			return nil, n, err
		}
		v, newChild, err := t.get(child, key[1:])
		if err != nil {
			return nil, n, err
		}
		cp := n.copy()
		cp.Children[key[0]] = newChild
		return v, cp, nil
	case hashNode:
		resolved, err := t.resolveHash(n)
		if err != nil {
			return nil, n, err
		}
		return t.get(resolved, key)
	default:
		return nil, nil, errors.Errorf("trie: get against unexpected node type %T", n)
	}
}

// resolveHash loads the node a hashNode points to, checking the overlay
// before falling through to the backend. Non-hash nodes pass through
// unchanged.
func (t *Trie) resolveHash(n node) (node, error) {
	hn, ok := n.(hashNode)
	if !ok {
		return n, nil
	}
	hash := types.BytesToHash256(hn)
	if enc, ok := t.overlay[hash]; ok {
		return mustDecodeNode(hn, enc), nil
	}
	enc, err := t.backend.Get(hn)
	if err != nil {
		if t.backend.IsNotFound(err) {
			return nil, errors.Wrapf(types.ErrStorageError, "trie: missing node %x", hn)
		}
		return nil, errors.Wrap(err, "trie: resolve node")
	}
	return mustDecodeNode(hn, enc), nil
}

// Commit flushes every node written since the last Commit to the backend in
// a single batch and returns the new root.
func (t *Trie) Commit() (types.Hash256, error) {
	if t.root == nil {
		t.overlay = make(map[types.Hash256][]byte)
		return emptyRoot, nil
	}
	stage := make(map[types.Hash256][]byte)
	h, err := newHasher(stage).hash(t.root)
	if err != nil {
		return emptyRoot, errors.Wrap(err, "trie: hash for commit")
	}
	// Stage into the overlay first so a failed batch write leaves the trie
	// readable at its current root.
	for hash, enc := range stage {
		t.overlay[hash] = enc
	}
	batch := t.putter.NewBatch()
	for hash, enc := range stage {
		if err := batch.Put(hash.Bytes(), enc); err != nil {
			return emptyRoot, errors.Wrap(err, "trie: stage commit batch")
		}
	}
	if err := batch.Write(); err != nil {
		return emptyRoot, errors.Wrap(err, "trie: write commit batch")
	}
	root := types.BytesToHash256(h.(hashNode))
	t.overlay = make(map[types.Hash256][]byte)
	t.root = hashNode(root.Bytes())
	return root, nil
}

// Discard drops the overlay of staged node encodings without flushing.
// It does not rewind Insert calls on the live node tree; callers that need
// a full rollback call SetRoot with the previous root afterward.
func (t *Trie) Discard() {
	t.overlay = make(map[types.Hash256][]byte)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
