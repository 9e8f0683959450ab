// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package types

import (
	"encoding/hex"
	"errors"
	"strings"
)

// AddressLength is the length of an Address in bytes.
const AddressLength = 20

// Address identifies an account.
type Address [AddressLength]byte

// String implements stringer.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Bytes returns the byte slice form of Address.
func (a Address) Bytes() []byte {
	return a[:]
}

// IsZero returns whether a has all zero bytes.
func (a Address) IsZero() bool {
	return a == Address{}
}

// BytesToAddress converts a byte slice into an Address.
// If b is larger than address length, b is cropped from the left.
// If b is smaller, b is extended from the left.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > len(a) {
		b = b[len(b)-len(a):]
	}
	copy(a[len(a)-len(b):], b)
	return a
}

// ParseAddress converts a hex-presented string into an Address.
func ParseAddress(s string) (Address, error) {
	if len(s) == AddressLength*2 {
	} else if len(s) == AddressLength*2+2 {
		if strings.ToLower(s[:2]) != "0x" {
			return Address{}, errors.New("invalid prefix")
		}
		s = s[2:]
	} else {
		return Address{}, errors.New("invalid length")
	}

	var addr Address
	if _, err := hex.Decode(addr[:], []byte(s)); err != nil {
		return Address{}, err
	}
	return addr, nil
}
