package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAlarmSetNextEarliest(t *testing.T) {
	var s alarmSet
	now := time.Now()
	s.set(alarmIdle, now.Add(time.Minute))
	s.set(alarmDraining, now.Add(time.Second))

	next, ok := s.next()
	assert.True(t, ok)
	assert.True(t, next.Equal(now.Add(time.Second)))
}

func TestAlarmSetNextNoneArmed(t *testing.T) {
	var s alarmSet
	_, ok := s.next()
	assert.False(t, ok)
}

func TestAlarmSetUnset(t *testing.T) {
	var s alarmSet
	now := time.Now()
	s.set(alarmIdle, now)
	s.unset(alarmIdle)
	assert.True(t, s.get(alarmIdle).IsZero())
}

func TestAlarmSetExpiredFiresAndDisarms(t *testing.T) {
	var s alarmSet
	now := time.Now()
	s.set(alarmIdle, now.Add(-time.Second))
	s.set(alarmDraining, now.Add(time.Hour))

	var fired []alarmID
	s.expired(now, func(id alarmID) { fired = append(fired, id) })

	assert.Equal(t, []alarmID{alarmIdle}, fired)
	assert.True(t, s.get(alarmIdle).IsZero())
	assert.False(t, s.get(alarmDraining).IsZero())
}
