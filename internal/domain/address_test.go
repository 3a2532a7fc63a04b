package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixledger/tixledger/internal/domain"
)

func TestParseAddress(t *testing.T) {
	a, err := domain.ParseAddress("0x00000000000000000000000000000000000000ff")
	require.NoError(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000ff", a.String())
	assert.False(t, a.IsZero())

	// Mixed case and missing prefix are accepted.
	b, err := domain.ParseAddress("0x00000000000000000000000000000000000000FF")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := domain.ParseAddress("00000000000000000000000000000000000000ff")
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestParseAddress_Invalid(t *testing.T) {
	for _, s := range []string{
		"",
		"0x",
		"0x1234",
		"0x000000000000000000000000000000000000zzzz",
		"0x00000000000000000000000000000000000000ff00",
	} {
		_, err := domain.ParseAddress(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestAddress_Zero(t *testing.T) {
	z, err := domain.ParseAddress("0x0000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.True(t, z.IsZero())
	assert.Equal(t, domain.ZeroAddress, z)
}

func TestAddress_JSONRoundTrip(t *testing.T) {
	a := domain.MustParseAddress("0x0102030405060708090a0b0c0d0e0f1011121314")

	b, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `"0x0102030405060708090a0b0c0d0e0f1011121314"`, string(b))

	var back domain.Address
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, a, back)

	assert.Error(t, json.Unmarshal([]byte(`"0x12"`), &back))
}

func TestTxHash_DistinctPerNonce(t *testing.T) {
	from := domain.MustParseAddress("0x0102030405060708090a0b0c0d0e0f1011121314")
	at := time.Unix(1700000000, 0)
	tx1 := domain.TxHash(domain.TxDeposit, from, 100, nil, at, "nonce-1")
	tx2 := domain.TxHash(domain.TxDeposit, from, 100, nil, at, "nonce-2")

	assert.NotEqual(t, tx1, tx2)
	assert.Regexp(t, `^0x[0-9a-f]{64}$`, tx1)
}
