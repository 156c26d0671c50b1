package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlowControlRecvWindow(t *testing.T) {
	var f flowControl
	f.init(100, 0)
	assert.Equal(t, uint64(100), f.canRecv())
	f.addRecv(60)
	assert.Equal(t, uint64(40), f.canRecv())
}

func TestFlowControlShouldUpdateMaxRecv(t *testing.T) {
	var f flowControl
	f.init(100, 0)
	assert.False(t, f.shouldUpdateMaxRecv())
	f.addRecv(51)
	assert.True(t, f.shouldUpdateMaxRecv())
	f.commitMaxRecv()
	assert.Equal(t, uint64(151), f.maxRecv)
}

func TestFlowControlSendWindow(t *testing.T) {
	var f flowControl
	f.init(0, 100)
	assert.Equal(t, uint64(100), f.canSend())
	f.addSend(40)
	assert.Equal(t, uint64(60), f.canSend())
	assert.False(t, f.blocked)
}

func TestFlowControlSetMaxSendMonotonic(t *testing.T) {
	var f flowControl
	f.init(0, 10)
	f.setMaxSend(5) // lower than current, ignored
	assert.Equal(t, uint64(10), f.maxSend)
	f.setMaxSend(20)
	assert.Equal(t, uint64(20), f.maxSend)
}

func TestFlowControlBlockedClearsOnCredit(t *testing.T) {
	var f flowControl
	f.init(0, 10)
	f.addSend(10)
	f.blocked = true
	f.setMaxSend(20)
	assert.False(t, f.blocked)
}
