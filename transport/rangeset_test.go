package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeSetPushContiguous(t *testing.T) {
	var s rangeSet
	for _, n := range []uint64{5, 6, 7} {
		s.push(n)
	}
	assert.True(t, s.contains(5))
	assert.True(t, s.contains(7))
	assert.False(t, s.contains(8))
	assert.Equal(t, uint64(7), s.largest())
}

func TestRangeSetPushFillsGap(t *testing.T) {
	var s rangeSet
	s.push(1)
	s.push(3)
	wasMissing := s.push(2)
	assert.True(t, wasMissing)
	assert.True(t, s.contains(1))
	assert.True(t, s.contains(2))
	assert.True(t, s.contains(3))
}

func TestRangeSetPushDuplicate(t *testing.T) {
	var s rangeSet
	s.push(1)
	wasMissing := s.push(1)
	assert.False(t, wasMissing)
}

func TestRangeSetRemoveUntil(t *testing.T) {
	var s rangeSet
	for _, n := range []uint64{1, 2, 3, 4, 5} {
		s.push(n)
	}
	s.removeUntil(3)
	assert.False(t, s.contains(2))
	assert.False(t, s.contains(3))
	assert.True(t, s.contains(4))
	assert.True(t, s.contains(5))
}

func TestRangeSetEmptyAndReset(t *testing.T) {
	var s rangeSet
	assert.True(t, s.empty())
	s.push(1)
	assert.False(t, s.empty())
	s.reset()
	assert.True(t, s.empty())
}

func TestRangeSetClone(t *testing.T) {
	var s rangeSet
	s.push(1)
	s.push(2)
	clone := s.clone()
	clone.push(100)
	assert.False(t, s.contains(100))
	assert.True(t, clone.contains(1))
}
