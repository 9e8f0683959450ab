// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trie

// Entry is one (key, value) pair yielded by Trie.Iterate.
type Entry struct {
	Key   []byte
	Value []byte
}

// Iterate performs an ordered traversal of the trie, yielding entries sorted
// by key ascending — the canonical trie order.
func (t *Trie) Iterate() ([]Entry, error) {
	var out []Entry
	if err := t.walk(t.root, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Trie) walk(n node, path []byte, out *[]Entry) error {
	switch n := n.(type) {
	case nil:
		return nil
	case valueNode:
		// path already carries the terminator nibble consumed by the parent
		// shortNode's Key; hexToKeybytes strips it.
		*out = append(*out, Entry{Key: hexToKeybytes(path), Value: []byte(n)})
		return nil
	case *shortNode:
		return t.walk(n.Val, append(path, n.Key...), out)
	case *fullNode:
		if n.Children[16] != nil {
			*out = append(*out, Entry{Key: hexToKeybytes(append(append([]byte{}, path...), 16)), Value: []byte(n.Children[16].(valueNode))})
		}
		for i := 0; i < 16; i++ {
			if n.Children[i] == nil {
				continue
			}
			if err := t.walk(n.Children[i], append(append([]byte{}, path...), byte(i)), out); err != nil {
				return err
			}
		}
		return nil
	case hashNode:
		resolved, err := t.resolveHash(n)
		if err != nil {
			return err
		}
		return t.walk(resolved, path, out)
	default:
		return nil
	}
}
