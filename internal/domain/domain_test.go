package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddressNormalizesCase(t *testing.T) {
	a, err := ParseAddress("0x00AbC1230000000000000000000000000000000A")
	require.NoError(t, err)
	b, err := ParseAddress("0x00abc1230000000000000000000000000000000a")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "0x00abc1230000000000000000000000000000000a", a.String())
}

func TestParseAddressRejectsBadLength(t *testing.T) {
	_, err := ParseAddress("0x1234")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestNetworkFromChainID(t *testing.T) {
	n, err := NetworkFromChainID(1)
	require.NoError(t, err)
	assert.Equal(t, Ethereum, n)
	assert.Equal(t, "ethereum", n.String())

	_, err = NetworkFromChainID(999)
	assert.ErrorIs(t, err, ErrUnsupportedNetwork)
}

func TestParseNetworkFromPathSegment(t *testing.T) {
	n, err := ParseNetwork("42161")
	require.NoError(t, err)
	assert.Equal(t, Arbitrum, n)

	_, err = ParseNetwork("not-a-number")
	assert.ErrorIs(t, err, ErrInvalidNetworkID)
}

func TestBalanceRoundTripsThroughJSON(t *testing.T) {
	b := BalanceFromInt64(123456789)
	data, err := b.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"123456789"`, string(data))

	var decoded Balance
	require.NoError(t, decoded.UnmarshalJSON(data))
	assert.True(t, decoded.Equal(b))
}

func TestBalanceEquality(t *testing.T) {
	a := BalanceFromInt64(10)
	b := BalanceFromInt64(10)
	c := BalanceFromInt64(11)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
