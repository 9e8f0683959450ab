// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trie

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardchain/corestate/lvldb"
	"github.com/shardchain/corestate/types"
)

func TestTrieEmpty(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	tr := New(db)

	assert.True(t, tr.Root().IsZero())

	_, ok, err := tr.At([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, ok, "read of an absent key is not an error")
}

func TestTrieInsertAndGet(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	tr := New(db)

	require.NoError(t, tr.Insert([]byte("doe"), []byte("reindeer")))
	require.NoError(t, tr.Insert([]byte("dog"), []byte("puppy")))
	require.NoError(t, tr.Insert([]byte("dogglesworth"), []byte("cat")))

	v, ok, err := tr.At([]byte("dog"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("puppy"), v)

	_, ok, err = tr.At([]byte("do"))
	require.NoError(t, err)
	assert.False(t, ok)

	root1 := tr.Root()
	assert.False(t, root1.IsZero())

	require.NoError(t, tr.Insert([]byte("dog"), []byte("hound")))
	assert.NotEqual(t, root1, tr.Root(), "overwriting a value must change the root")
}

func TestTrieCommitAndReopen(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	tr := New(db)

	kvs := map[string]string{
		"doe":          "reindeer",
		"dog":          "puppy",
		"dogglesworth": "cat",
		"horse":        "stallion",
	}
	for k, v := range kvs {
		require.NoError(t, tr.Insert([]byte(k), []byte(v)))
	}
	root, err := tr.Commit()
	require.NoError(t, err)
	assert.Equal(t, root, tr.Root())

	// a fresh instance pointed at the committed root reproduces the contents
	tr2 := New(db)
	tr2.SetRoot(root)
	for k, v := range kvs {
		got, ok, err := tr2.At([]byte(k))
		require.NoError(t, err)
		require.True(t, ok, "key %q missing after reopen", k)
		assert.Equal(t, []byte(v), got)
	}
	assert.Equal(t, root, tr2.Root())
}

func TestTrieSetRootRewindsWrites(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	tr := New(db)

	require.NoError(t, tr.Insert([]byte("a"), []byte("1")))
	root, err := tr.Commit()
	require.NoError(t, err)

	require.NoError(t, tr.Insert([]byte("b"), []byte("2")))
	assert.NotEqual(t, root, tr.Root())

	tr.SetRoot(root)
	assert.Equal(t, root, tr.Root())
	_, ok, err := tr.At([]byte("b"))
	require.NoError(t, err)
	assert.False(t, ok, "uncommitted write must be gone after SetRoot")
}

func TestTrieIterateOrder(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	tr := New(db)

	// insert in scrambled order; iteration must come back prefix-sorted
	for _, i := range []int{7, 2, 9, 0, 5, 3, 8, 1, 6, 4} {
		key := types.SHA256([]byte{byte(i)})
		require.NoError(t, tr.Insert(key.Bytes(), []byte(fmt.Sprintf("v%d", i))))
	}
	entries, err := tr.Iterate()
	require.NoError(t, err)
	require.Len(t, entries, 10)
	for i := 1; i < len(entries); i++ {
		assert.True(t, string(entries[i-1].Key) < string(entries[i].Key),
			"iteration out of order at %d", i)
	}
}

func TestTrieIterateSurvivesCommit(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	tr := New(db)

	require.NoError(t, tr.Insert([]byte("alpha"), []byte("1")))
	require.NoError(t, tr.Insert([]byte("beta"), []byte("2")))
	root, err := tr.Commit()
	require.NoError(t, err)

	tr2 := New(db)
	tr2.SetRoot(root)
	entries, err := tr2.Iterate()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []byte("alpha"), entries[0].Key)
	assert.Equal(t, []byte("beta"), entries[1].Key)
}

func TestTrieDeterministicRoot(t *testing.T) {
	build := func(order []string) types.Hash256 {
		db, err := lvldb.NewMem()
		require.NoError(t, err)
		tr := New(db)
		for _, k := range order {
			require.NoError(t, tr.Insert([]byte(k), []byte("v-"+k)))
		}
		return tr.Root()
	}
	r1 := build([]string{"x", "y", "z", "w"})
	r2 := build([]string{"w", "z", "y", "x"})
	assert.Equal(t, r1, r2, "root must not depend on insertion order")
}
