// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardchain/corestate/lvldb"
	"github.com/shardchain/corestate/types"
)

func TestAccountRoundTrip(t *testing.T) {
	a := New(types.NewU128(100))
	a.Nonce = 3
	a.Code = types.Bytes("contract bytecode")
	a.CodeHash = types.SHA256(a.Code)
	a.StorageRoot = types.SHA256([]byte("storage"))
	a.CreateBlockNum = 42
	a.ScillaVersion = 2
	a.InitData = types.Bytes(`[{"vname":"_scilla_version","type":"Uint32","value":"2"}]`)

	enc, err := a.MarshalBinary()
	require.NoError(t, err)

	var b Account
	require.NoError(t, b.UnmarshalBinary(enc))

	assert.Equal(t, a.Version, b.Version)
	assert.Equal(t, a.Balance.String(), b.Balance.String())
	assert.Equal(t, a.Nonce, b.Nonce)
	assert.Equal(t, []byte(a.Code), []byte(b.Code))
	assert.Equal(t, a.CodeHash, b.CodeHash)
	assert.Equal(t, a.StorageRoot, b.StorageRoot)
	assert.Equal(t, a.CreateBlockNum, b.CreateBlockNum)
	assert.Equal(t, a.ScillaVersion, b.ScillaVersion)
	assert.Equal(t, []byte(a.InitData), []byte(b.InitData))

	enc2, err := b.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, enc, enc2)
}

func TestAccountCodeHashInvariant(t *testing.T) {
	a := New(types.ZeroU128())
	a.Code = types.Bytes("x")
	a.CodeHash = types.Hash256{}
	_, err := a.MarshalBinary()
	assert.Error(t, err)
}

func TestAccountBalanceCheckedArithmetic(t *testing.T) {
	a := New(types.NewU128(100))
	assert.True(t, a.Increase(types.NewU128(50)))
	assert.Equal(t, "150", a.Balance.String())

	assert.False(t, a.Decrease(types.NewU128(1000)))
	assert.Equal(t, "150", a.Balance.String(), "failed decrease must leave balance unchanged")

	assert.True(t, a.Decrease(types.NewU128(150)))
	assert.Equal(t, "0", a.Balance.String())
}

func TestAccountInitContract(t *testing.T) {
	addr, err := types.ParseAddress("0x0000000000000000000000000000000000000001")
	require.NoError(t, err)

	a := New(types.ZeroU128())
	a.Code = types.Bytes("fake scilla bytecode")
	a.CodeHash = types.SHA256(a.Code)
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	a.AttachStorage(db)

	initData := types.Bytes(`[{"vname":"_scilla_version","type":"Uint32","value":"0"}]`)
	require.NoError(t, a.InitContract(initData, addr, 7, nil))

	var sawVersion, sawBlock, sawAddr bool
	for _, p := range a.InitParams {
		switch p.VName {
		case "_scilla_version":
			sawVersion = true
			assert.Equal(t, "0", string(p.ValueBlob))
		case "_creation_block":
			sawBlock = true
			assert.Equal(t, "7", string(p.ValueBlob))
		case "_this_address":
			sawAddr = true
			assert.Equal(t, addr.String(), string(p.ValueBlob))
		}
	}
	assert.True(t, sawVersion)
	assert.True(t, sawBlock)
	assert.True(t, sawAddr)
	assert.Equal(t, uint32(0), a.ScillaVersion)

	entries, err := a.GetStorageJSON(nil, addr)
	require.NoError(t, err)
	require.Len(t, entries, 1, "init params are all immutable, so only the synthetic _balance entry is emitted")
	assert.Equal(t, "_balance", entries[0]["vname"])
}

func TestAccountInitContractMalformed(t *testing.T) {
	addr, _ := types.ParseAddress("0x0000000000000000000000000000000000000001")
	a := New(types.ZeroU128())
	a.Code = types.Bytes("x")
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	a.AttachStorage(db)

	err = a.InitContract(types.Bytes(`[{"vname":"foo","type":"Uint32","value":"1"}]`), addr, 1, nil)
	assert.ErrorIs(t, err, types.ErrMalformedInput, "missing _scilla_version record must fail")
}

func TestAccountRollback(t *testing.T) {
	addr, _ := types.ParseAddress("0x0000000000000000000000000000000000000002")
	a := New(types.ZeroU128())
	a.Code = types.Bytes("x")
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	a.AttachStorage(db)

	require.NoError(t, a.InitContract(types.Bytes(`[{"vname":"_scilla_version","type":"Uint32","value":"0"}]`), addr, 1, nil))
	a.Commit()
	prevRoot := a.StorageRoot

	require.NoError(t, a.storage.Insert([]byte("extra"), []byte("blob")))
	a.StorageRoot = a.storage.Root()
	assert.NotEqual(t, prevRoot, a.StorageRoot)

	a.Rollback()
	assert.Equal(t, prevRoot, a.StorageRoot)
}
