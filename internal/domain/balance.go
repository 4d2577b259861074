package domain

import (
	"math/big"
)

// Balance is an unsigned 256-bit quantity rendered as a decimal string on
// the wire, since token amounts routinely exceed what a JSON number holds.
type Balance struct {
	v *big.Int
}

// NewBalance wraps a big.Int. A nil input is treated as zero.
func NewBalance(v *big.Int) Balance {
	if v == nil {
		return Balance{v: new(big.Int)}
	}
	return Balance{v: new(big.Int).Set(v)}
}

func BalanceFromInt64(v int64) Balance {
	return NewBalance(big.NewInt(v))
}

// ParseBalance parses a decimal string, as produced by the wire format.
func ParseBalance(s string) (Balance, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Balance{}, false
	}
	return Balance{v: v}, true
}

func (b Balance) Int() *big.Int {
	if b.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.v)
}

func (b Balance) Equal(other Balance) bool {
	return b.Int().Cmp(other.Int()) == 0
}

func (b Balance) String() string {
	return b.Int().String()
}

func (b Balance) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

func (b *Balance) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, ok := ParseBalance(s)
	if !ok {
		return ErrInvalidBalance
	}
	*b = parsed
	return nil
}
