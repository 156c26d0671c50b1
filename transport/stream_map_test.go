package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamMapCreatePeerInitiatedOpensLowerStreams(t *testing.T) {
	var m streamMap
	m.init(3, 0) // bidi limit 3: indices 0,1,2 allowed

	st, err := m.create(8, false, true) // index 2
	assert.NoError(t, err)
	assert.Equal(t, uint64(8), st.id)
	assert.NotNil(t, m.get(0))
	assert.NotNil(t, m.get(4))
	assert.NotNil(t, m.get(8))
}

func TestStreamMapCreatePeerInitiatedOverLimit(t *testing.T) {
	var m streamMap
	m.init(1, 0) // only index 0 allowed

	_, err := m.create(4, false, true) // index 1
	assert.Error(t, err)
}

func TestStreamMapCreateLocalOverPeerLimit(t *testing.T) {
	var m streamMap
	m.init(0, 0)
	m.setPeerMaxStreamsBidi(1) // only index 0 allowed locally

	_, err := m.create(4, true, true) // index 1
	assert.Error(t, err)
}

func TestStreamMapClosedIDNeverReopens(t *testing.T) {
	var m streamMap
	m.init(10, 0)

	_, err := m.create(0, false, true)
	assert.NoError(t, err)
	m.close(0)

	_, err = m.create(0, false, true)
	assert.Error(t, err)
}
