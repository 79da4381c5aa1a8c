package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Kind distinguishes the timers armed for one giveaway.
type Kind string

const (
	KindEnd      Kind = "end"
	KindProgress Kind = "progress"
)

// Deadline is an armed, not yet fired timer.
type Deadline struct {
	Key  string
	Kind Kind
	At   time.Time
}

type slot struct {
	key  string
	kind Kind
}

type entry struct {
	timer *time.Timer
	at    time.Time
	// seq tells a replaced timer's late callback apart from its successor.
	seq uint64
}

// Scheduler arms one-shot callbacks and keeps a table of what is pending.
type Scheduler struct {
	mu      sync.Mutex
	entries map[slot]entry
	seq     uint64
	stopped bool
	now     func() time.Time
	logger  zerolog.Logger
}

// New returns an empty scheduler.
func New(logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		entries: make(map[slot]entry),
		now:     time.Now,
		logger:  logger.With().Str("component", "scheduler").Logger(),
	}
}

// After runs fn once delay has passed. Arming the same key and kind again
// replaces the previous timer.
func (s *Scheduler) After(key string, kind Kind, delay time.Duration, fn func()) {
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.logger.Warn().Str("key", key).Str("kind", string(kind)).Msg("Scheduler stopped, timer not armed")
		return
	}

	k := slot{key: key, kind: kind}
	if old, ok := s.entries[k]; ok {
		old.timer.Stop()
	}

	s.seq++
	seq := s.seq
	at := s.now().Add(delay)
	timer := time.AfterFunc(delay, func() {
		s.mu.Lock()
		current, ok := s.entries[k]
		if !ok || current.seq != seq {
			s.mu.Unlock()
			return
		}
		delete(s.entries, k)
		s.mu.Unlock()

		s.logger.Debug().Str("key", key).Str("kind", string(kind)).Msg("Timer fired")
		fn()
	})
	s.entries[k] = entry{timer: timer, at: at, seq: seq}

	s.logger.Debug().
		Str("key", key).
		Str("kind", string(kind)).
		Dur("delay", delay).
		Msg("Timer armed")
}

// Pending lists armed deadlines ordered by time, then key.
func (s *Scheduler) Pending() []Deadline {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Deadline, 0, len(s.entries))
	for k, e := range s.entries {
		out = append(out, Deadline{Key: k.key, Kind: k.kind, At: e.at})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Disarm cancels every timer registered under key.
func (s *Scheduler) Disarm(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, e := range s.entries {
		if k.key == key {
			e.timer.Stop()
			delete(s.entries, k)
		}
	}
}

// DisarmAll cancels every armed timer and keeps the scheduler usable.
func (s *Scheduler) DisarmAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	for k, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, k)
	}
	return n
}

// Stop cancels all timers and refuses new ones.
func (s *Scheduler) Stop() {
	s.DisarmAll()

	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}
