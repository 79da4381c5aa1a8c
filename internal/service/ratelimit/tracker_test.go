package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCheckRateLimit_EleventhRejectedTwelfthAcceptedAfterReset(t *testing.T) {
	clock := newClock()
	tr := NewTrackerWithClock(clock.Now)

	for i := 1; i <= MaxCommands; i++ {
		ok, _ := tr.CheckRateLimit(1)
		assert.True(t, ok, "command %d", i)
		clock.Advance(time.Second)
	}

	ok, wait := tr.CheckRateLimit(1)
	assert.False(t, ok, "11th command must be rejected")
	assert.Equal(t, 59*time.Second, wait)

	clock.Advance(61 * time.Second)
	ok, _ = tr.CheckRateLimit(1)
	assert.True(t, ok, "12th command after the window reset must be accepted")
}

func TestCheckRateLimit_PerUser(t *testing.T) {
	clock := newClock()
	tr := NewTrackerWithClock(clock.Now)

	for i := 0; i < MaxCommands; i++ {
		tr.CheckRateLimit(1)
	}
	ok, _ := tr.CheckRateLimit(1)
	assert.False(t, ok)

	ok, _ = tr.CheckRateLimit(2)
	assert.True(t, ok)
}

func TestRedeemCooldown(t *testing.T) {
	clock := newClock()
	tr := NewTrackerWithClock(clock.Now)

	ok, _ := tr.CheckRedeemCooldown(1)
	assert.True(t, ok, "a user who never redeemed has no cooldown")

	tr.MarkRedeemed(1)
	clock.Advance(100 * time.Second)

	ok, wait := tr.CheckRedeemCooldown(1)
	assert.False(t, ok)
	assert.Equal(t, 200*time.Second, wait)

	clock.Advance(200 * time.Second)
	ok, _ = tr.CheckRedeemCooldown(1)
	assert.True(t, ok)
}

func TestCheckRedeemCooldown_DoesNotStartCooldown(t *testing.T) {
	tr := NewTracker()
	tr.CheckRedeemCooldown(5)
	ok, _ := tr.CheckRedeemCooldown(5)
	assert.True(t, ok)
}
