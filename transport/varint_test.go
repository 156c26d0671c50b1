package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVarintRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 63, 64, 16383, 16384, 1073741823, 1073741824, maxVarint62}
	for _, v := range cases {
		b := make([]byte, 8)
		n := putVarint(b, v)
		assert.NotZero(t, n)
		var got uint64
		m := getVarint(b[:n], &got)
		assert.Equal(t, n, m)
		assert.Equal(t, v, got)
	}
}

func TestVarintTooLarge(t *testing.T) {
	b := make([]byte, 8)
	n := putVarint(b, maxVarint62+1)
	assert.Zero(t, n)
}

func TestVarintShortBuffer(t *testing.T) {
	b := make([]byte, 1)
	n := putVarint(b, 16384)
	assert.Zero(t, n)
	n = getVarint(nil, new(uint64))
	assert.Zero(t, n)
}

func TestVarintLen(t *testing.T) {
	assert.Equal(t, 1, varintLen(63))
	assert.Equal(t, 2, varintLen(64))
	assert.Equal(t, 4, varintLen(16384))
	assert.Equal(t, 8, varintLen(1073741824))
}
