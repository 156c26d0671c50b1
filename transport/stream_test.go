package transport

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamReadWriteRoundTrip(t *testing.T) {
	st := newStream(4)
	st.flow.init(0, 100)
	n, err := st.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)

	// Simulate the peer's data arriving back at this stream.
	assert.NoError(t, st.pushRecv([]byte("world"), 0, false))
	buf := make([]byte, 16)
	n, err = st.Read(buf)
	assert.NoError(t, err)
	assert.Equal(t, "world", string(buf[:n]))
}

func TestStreamReadEOFOnFin(t *testing.T) {
	st := newStream(0)
	assert.NoError(t, st.pushRecv(nil, 0, true))
	buf := make([]byte, 16)
	n, err := st.Read(buf)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestStreamWriteBlockedByFlowControl(t *testing.T) {
	st := newStream(4)
	st.flow.init(0, 3)
	n, err := st.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, st.sendBlocked)
}

func TestStreamClose(t *testing.T) {
	st := newStream(4)
	assert.NoError(t, st.Close())
	_, _, fin := st.send.popSend(0)
	assert.True(t, fin)
}

func TestStreamID(t *testing.T) {
	st := newStream(12)
	assert.Equal(t, uint64(12), st.ID())
}
