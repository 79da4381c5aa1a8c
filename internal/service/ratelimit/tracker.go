package ratelimit

import (
	"sync"
	"time"
)

const (
	// CommandWindow is the sliding window for command counting.
	CommandWindow = 60 * time.Second
	// MaxCommands is the number of commands accepted per window.
	MaxCommands = 10
	// RedeemCooldown is the minimum gap between two successful redemptions.
	RedeemCooldown = 300 * time.Second
)

type state struct {
	commandCount int
	windowStart  time.Time
	lastRedeem   time.Time
}

// Tracker holds per-user command and redemption timing for the process lifetime.
type Tracker struct {
	mu    sync.Mutex
	users map[int64]*state
	now   func() time.Time
}

// NewTracker returns an empty tracker using the wall clock.
func NewTracker() *Tracker {
	return NewTrackerWithClock(time.Now)
}

// NewTrackerWithClock returns an empty tracker reading time from now.
func NewTrackerWithClock(now func() time.Time) *Tracker {
	return &Tracker{
		users: make(map[int64]*state),
		now:   now,
	}
}

func (t *Tracker) get(userID int64) *state {
	st, ok := t.users[userID]
	if !ok {
		st = &state{}
		t.users[userID] = st
	}
	return st
}

// CheckRateLimit counts one command for userID. It returns false and the time
// until the window resets once more than MaxCommands arrive inside the window.
func (t *Tracker) CheckRateLimit(userID int64) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	st := t.get(userID)

	if now.Sub(st.windowStart) > CommandWindow {
		st.commandCount = 0
		st.windowStart = now
	}

	st.commandCount++
	if st.commandCount > MaxCommands {
		wait := CommandWindow - now.Sub(st.windowStart)
		if wait < 0 {
			wait = 0
		}
		return false, wait
	}

	st.windowStart = now
	return true, 0
}

// CheckRedeemCooldown reports whether userID may redeem now, and otherwise
// how long is left on the cooldown.
func (t *Tracker) CheckRedeemCooldown(userID int64) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.get(userID)
	if st.lastRedeem.IsZero() {
		return true, 0
	}

	elapsed := t.now().Sub(st.lastRedeem)
	if elapsed < RedeemCooldown {
		return false, RedeemCooldown - elapsed
	}
	return true, 0
}

// MarkRedeemed starts the redeem cooldown for userID.
func (t *Tracker) MarkRedeemed(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.get(userID).lastRedeem = t.now()
}
