// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package types

import (
	"encoding/hex"
	"encoding/json"
	"errors"
)

// Hash256 is a 32-byte digest. The zero value denotes "absent".
type Hash256 [32]byte

var (
	_ json.Marshaler   = (*Hash256)(nil)
	_ json.Unmarshaler = (*Hash256)(nil)
)

// String implements stringer.
func (h Hash256) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Bytes returns the byte slice form of Hash256.
func (h Hash256) Bytes() []byte {
	return h[:]
}

// IsZero returns whether h has all zero bytes.
func (h Hash256) IsZero() bool {
	return h == Hash256{}
}

// BytesToHash256 converts a byte slice into a Hash256.
// If b is larger than 32 bytes, b is cropped from the left.
// If b is smaller, b is extended from the left.
func BytesToHash256(b []byte) Hash256 {
	var h Hash256
	if len(b) > len(h) {
		b = b[len(b)-len(h):]
	}
	copy(h[len(h)-len(b):], b)
	return h
}

// ParseHash256 parses a hex string (with or without 0x prefix) into a Hash256.
func ParseHash256(s string) (Hash256, error) {
	if len(s) >= 2 && s[:2] == "0x" {
		s = s[2:]
	}
	if len(s) != 64 {
		return Hash256{}, errors.New("invalid length")
	}
	var h Hash256
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return Hash256{}, err
	}
	return h, nil
}

// MarshalJSON implements json.Marshaler.
func (h Hash256) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *Hash256) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseHash256(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
