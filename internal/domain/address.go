package domain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// AddressLen is the byte length of an account address.
const AddressLen = 20

// Address is a fixed-length account identity. The zero value is reserved
// and never a valid organizer, owner, or transfer target.
type Address [AddressLen]byte

// ZeroAddress is the reserved all-zero identity.
var ZeroAddress Address

// ParseAddress parses a 0x-prefixed hex address.
func ParseAddress(s string) (Address, error) {
	var a Address

	raw := strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(raw) != AddressLen*2 {
		return a, fmt.Errorf("invalid address length: %q", s)
	}

	b, err := hex.DecodeString(raw)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}

	copy(a[:], b)
	return a, nil
}

// MustParseAddress is ParseAddress that panics on malformed input.
// Intended for tests and static configuration.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}

	*a = parsed
	return nil
}
