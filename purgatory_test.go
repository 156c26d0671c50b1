package quic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPurgatoryAddContains(t *testing.T) {
	p := newPurgatory(time.Minute)
	cid := []byte{1, 2, 3, 4}
	token := make([]byte, 16)
	for i := range token {
		token[i] = byte(i)
	}
	p.add(cid, token, time.Now())

	got, ok := p.contains(cid)
	assert.True(t, ok)
	assert.Equal(t, token, got[:])
}

func TestPurgatoryMintsTokenWhenMissing(t *testing.T) {
	p := newPurgatory(time.Minute)
	cid := []byte{9, 9}
	p.add(cid, nil, time.Now())

	got, ok := p.contains(cid)
	assert.True(t, ok)
	assert.NotEqual(t, [16]byte{}, got)
}

func TestPurgatoryContainsMissingCID(t *testing.T) {
	p := newPurgatory(time.Minute)
	_, ok := p.contains([]byte{1})
	assert.False(t, ok)
}

func TestPurgatorySweepExpires(t *testing.T) {
	p := newPurgatory(time.Minute)
	cid := []byte{5, 6}
	now := time.Now()
	p.add(cid, nil, now.Add(-2*time.Minute))

	p.sweep(now)
	_, ok := p.contains(cid)
	assert.False(t, ok)
}

func TestPurgatorySweepKeepsFresh(t *testing.T) {
	p := newPurgatory(time.Minute)
	cid := []byte{7, 8}
	now := time.Now()
	p.add(cid, nil, now)

	p.sweep(now)
	_, ok := p.contains(cid)
	assert.True(t, ok)
}
