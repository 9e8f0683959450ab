// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package account

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/shardchain/corestate/trie"
	"github.com/shardchain/corestate/types"
)

// ContractStateStore is the shared contract-state backend. An Account
// configured with a non-nil store delegates all contract storage
// reads/writes to it instead of maintaining a private trie.
type ContractStateStore interface {
	// PutContractState writes cell for addr and returns the account's
	// recomputed storage root.
	PutContractState(addr types.Address, cell StorageCell) (types.Hash256, error)
	// IterateContractState returns every cell stored for addr.
	IterateContractState(addr types.Address) ([]StorageCell, error)
}

// StorageCell is a single contract storage cell: a length-prefixed 4-tuple
// (vname, mutable, type, value_blob).
type StorageCell struct {
	VName     string
	Mutable   bool
	Type      string
	ValueBlob []byte
}

// KeyHash returns the trie key this cell is stored under.
func (c StorageCell) KeyHash() types.Hash256 {
	return types.KeyHash(c.VName)
}

// Encode produces the 4-field length-prefixed tuple encoding. The mutable
// flag is encoded as ASCII "True"/"False" for wire compatibility.
func (c StorageCell) Encode() []byte {
	flag := "False"
	if c.Mutable {
		flag = "True"
	}
	buf := make([]byte, 0, 4*4+len(c.VName)+len(flag)+len(c.Type)+len(c.ValueBlob))
	buf = appendLP(buf, []byte(c.VName))
	buf = appendLP(buf, []byte(flag))
	buf = appendLP(buf, []byte(c.Type))
	buf = appendLP(buf, c.ValueBlob)
	return buf
}

// DecodeStorageCell decodes the encoding produced by StorageCell.Encode.
func DecodeStorageCell(data []byte) (StorageCell, error) {
	r := &byteReader{buf: data}
	vname := r.lp()
	flag := r.lp()
	typ := r.lp()
	blob := r.lp()
	if r.err != nil {
		return StorageCell{}, errors.Wrap(r.err, "account: decode storage cell")
	}
	mutable, err := parseMutableFlag(string(flag))
	if err != nil {
		return StorageCell{}, err
	}
	return StorageCell{VName: string(vname), Mutable: mutable, Type: string(typ), ValueBlob: blob}, nil
}

func parseMutableFlag(s string) (bool, error) {
	switch s {
	case "True":
		return true, nil
	case "False":
		return false, nil
	default:
		return false, errors.Errorf("account: invalid mutable flag %q", s)
	}
}

func appendLP(buf, field []byte) []byte {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(field)))
	buf = append(buf, l[:]...)
	return append(buf, field...)
}

func (r *byteReader) lp() []byte {
	n := r.u32()
	return r.take(int(n))
}

// initRecord is one {vname,type,value} record of a parsed structured init
// document.
type initRecord struct {
	VName string          `json:"vname"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

const scillaVersionVName = "_scilla_version"

// InitContract runs the contract initialization protocol: parse initData as
// a list of {vname,type,value} records, append synthesized _creation_block
// and _this_address records, and persist every record as an immutable
// storage cell. store, if non-nil, selects the shared contract-state
// backend; a nil store uses the account's own private trie.
func (a *Account) InitContract(initData types.Bytes, addr types.Address, createBlockNum uint64, store ContractStateStore) error {
	var records []initRecord
	if err := json.Unmarshal(initData, &records); err != nil {
		return errors.Wrap(types.ErrMalformedInput, "account: init data is not a record list: "+err.Error())
	}

	var scillaVersion uint32
	var sawScillaVersion bool
	for _, rec := range records {
		if rec.VName == "" || rec.Type == "" || rec.Value == nil {
			return errors.Wrap(types.ErrMalformedInput, "account: init record missing a field")
		}
		if rec.VName == scillaVersionVName {
			if rec.Type != "Uint32" {
				return errors.Wrap(types.ErrMalformedInput, "account: _scilla_version must be Uint32")
			}
			v, err := scalarUint(rec.Value)
			if err != nil {
				return errors.Wrap(types.ErrMalformedInput, "account: _scilla_version is not numeric")
			}
			scillaVersion = uint32(v)
			sawScillaVersion = true
		}
	}
	if !sawScillaVersion {
		return errors.Wrap(types.ErrMalformedInput, "account: init data has no _scilla_version record")
	}

	records = append(records,
		initRecord{VName: "_creation_block", Type: "BNum", Value: quoteJSON(fmt.Sprintf("%d", createBlockNum))},
		initRecord{VName: "_this_address", Type: "ByStr20", Value: quoteJSON(addr.String())},
	)

	params := make([]StorageCell, 0, len(records))
	for _, rec := range records {
		cell := StorageCell{
			VName:     rec.VName,
			Mutable:   false,
			Type:      rec.Type,
			ValueBlob: canonicalSerialize(rec.Value),
		}
		params = append(params, cell)
		if err := a.putCell(addr, cell, store); err != nil {
			return err
		}
	}

	a.InitParams = params
	a.ScillaVersion = scillaVersion
	a.InitData = initData
	a.CreateBlockNum = createBlockNum
	return nil
}

func (a *Account) putCell(addr types.Address, cell StorageCell, store ContractStateStore) error {
	if store != nil {
		root, err := store.PutContractState(addr, cell)
		if err != nil {
			return errors.Wrap(err, "account: put contract state")
		}
		a.StorageRoot = root
		return nil
	}
	if a.storage == nil {
		return errors.New("account: no private storage trie attached")
	}
	if err := a.storage.Insert(cell.KeyHash().Bytes(), cell.Encode()); err != nil {
		return errors.Wrap(err, "account: insert storage cell")
	}
	a.StorageRoot = a.storage.Root()
	return nil
}

// GetStorageJSON emits the account's mutable storage entries as structured
// records plus a synthetic _balance entry. Non-contract accounts yield an
// empty slice.
func (a *Account) GetStorageJSON(store ContractStateStore, addr types.Address) ([]map[string]any, error) {
	if !a.IsContract() {
		return []map[string]any{}, nil
	}
	var cells []StorageCell
	var err error
	if store != nil {
		cells, err = store.IterateContractState(addr)
	} else if a.storage != nil {
		cells, err = iterateOwnStorage(a.storage)
	}
	if err != nil {
		return nil, errors.Wrap(err, "account: iterate contract state")
	}

	out := make([]map[string]any, 0, len(cells)+1)
	for _, c := range cells {
		if !c.Mutable {
			continue
		}
		out = append(out, map[string]any{
			"vname": c.VName,
			"type":  c.Type,
			"value": decodeValueBlob(c.ValueBlob),
		})
	}
	out = append(out, map[string]any{
		"vname": "_balance",
		"type":  "Uint128",
		"value": a.Balance.String(),
	})
	return out, nil
}

func decodeValueBlob(blob []byte) any {
	if len(blob) > 0 && (blob[0] == '[' || blob[0] == '{') {
		var v any
		if err := json.Unmarshal(blob, &v); err == nil {
			return v
		}
	}
	return string(blob)
}

func canonicalSerialize(raw json.RawMessage) []byte {
	trimmed := trimJSONSpace(raw)
	if len(trimmed) >= 2 && trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return []byte(s)
		}
	}
	return trimmed
}

func trimJSONSpace(raw json.RawMessage) []byte {
	start, end := 0, len(raw)
	for start < end && isJSONSpace(raw[start]) {
		start++
	}
	for end > start && isJSONSpace(raw[end-1]) {
		end--
	}
	return raw[start:end]
}

func isJSONSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func scalarUint(raw json.RawMessage) (uint64, error) {
	trimmed := trimJSONSpace(raw)
	if len(trimmed) >= 2 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, err
		}
		var v uint64
		if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
			return 0, err
		}
		return v, nil
	}
	var v uint64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func quoteJSON(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return json.RawMessage(b)
}

// iterateOwnStorage decodes every cell from the account's private trie.
func iterateOwnStorage(t *trie.Trie) ([]StorageCell, error) {
	entries, err := t.Iterate()
	if err != nil {
		return nil, err
	}
	cells := make([]StorageCell, 0, len(entries))
	for _, e := range entries {
		cell, err := DecodeStorageCell(e.Value)
		if err != nil {
			return nil, err
		}
		cells = append(cells, cell)
	}
	return cells, nil
}
