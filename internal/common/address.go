package common

import (
	"encoding/hex"
	"errors"
	"strings"
)

// AddressLen is the fixed width of an opaque account identifier.
const AddressLen = 20

// Address identifies a user account. It is trusted and opaque to the core;
// nothing here authenticates it.
type Address [AddressLen]byte

var ErrInvalidAddress = errors.New("invalid address")

// ParseAddress decodes a hex string, with or without a leading "0x", into an
// Address. Returns ErrInvalidAddress if the decoded length isn't AddressLen.
func ParseAddress(s string) (Address, error) {
	var addr Address
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return addr, ErrInvalidAddress
	}
	if len(raw) != AddressLen {
		return addr, ErrInvalidAddress
	}
	copy(addr[:], raw)
	return addr, nil
}

// String renders the address as a "0x"-prefixed hex string.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Less gives the lexicographic ordering used by the canonical encoding for
// deterministic map serialization.
func (a Address) Less(b Address) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
