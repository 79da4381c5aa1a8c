package giveaway

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/open-builders/reward-rush-bot/internal/domain/user"
)

// Winner pairs a drawn participant with the pool entry they received.
type Winner struct {
	User    user.Ref `json:"user"`
	Payload string   `json:"payload"`
}

// Giveaway is a timed draw over a reward pool.
type Giveaway struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	RewardPool   []string   `json:"reward_pool"`
	Participants []user.Ref `json:"participants"`
	IsActive     bool       `json:"is_active"`
	StartTime    time.Time  `json:"start_time"`
	// Duration is stored in seconds.
	Duration int64    `json:"duration"`
	Winners  []Winner `json:"winners,omitempty"`
}

// Length returns the configured duration.
func (g *Giveaway) Length() time.Duration {
	return time.Duration(g.Duration) * time.Second
}

// EndsAt returns the moment the giveaway is due to end.
func (g *Giveaway) EndsAt() time.Time {
	return g.StartTime.Add(g.Length())
}

// Remaining returns the time left until EndsAt, never negative.
func (g *Giveaway) Remaining(now time.Time) time.Duration {
	left := g.EndsAt().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// HasParticipant reports whether id already joined.
func (g *Giveaway) HasParticipant(id int64) bool {
	return user.ContainsID(g.Participants, id)
}

// IsWinner returns the winner entry for id, if any.
func (g *Giveaway) IsWinner(id int64) (Winner, bool) {
	for _, w := range g.Winners {
		if w.User.ID == id {
			return w, true
		}
	}
	return Winner{}, false
}

// DisplayName turns a stored name like "netflix_premium" into "Netflix Premium".
func DisplayName(name string) string {
	// Casers carry state and must not be shared across goroutines.
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

// FormatRemaining renders d as "X min Y sec", or "Y sec" under a minute.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	minutes, seconds := total/60, total%60
	if minutes > 0 {
		return fmt.Sprintf("%d min %d sec", minutes, seconds)
	}
	return fmt.Sprintf("%d sec", seconds)
}
