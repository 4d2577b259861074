package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address is a 20-byte EVM account identifier. It compares and hashes
// bytewise and renders as lowercase 0x-prefixed hex on the wire.
type Address [20]byte

// ParseAddress accepts a 0x-prefixed (or bare) 40-hex-digit address and
// normalizes it. Owner addresses are case-insensitive: comparisons and map
// keys always use the lowercase form.
func ParseAddress(s string) (Address, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(trimmed) != 40 {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

// MustParseAddress panics on an invalid address; used for compile-time
// constant sentinels only.
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

func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func (a *Address) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
