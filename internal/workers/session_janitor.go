package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper drops expired state and reports how much it dropped.
type Sweeper interface {
	Sweep() int
	Len() int
}

// SessionJanitor periodically sweeps expired bot sessions.
type SessionJanitor struct {
	sessions Sweeper
	interval time.Duration
	logger   zerolog.Logger
}

func NewSessionJanitor(sessions Sweeper, interval time.Duration, logger zerolog.Logger) *SessionJanitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SessionJanitor{
		sessions: sessions,
		interval: interval,
		logger:   logger.With().Str("component", "session_janitor").Logger(),
	}
}

// Run blocks until ctx is done.
func (j *SessionJanitor) Run(ctx context.Context) error {
	j.logger.Info().Dur("interval", j.interval).Msg("Starting session janitor")
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.sessions.Sweep(); n > 0 {
				j.logger.Info().Int("dropped", n).Int("remaining", j.sessions.Len()).Msg("Expired sessions swept")
			}
		case <-ctx.Done():
			j.logger.Info().Msg("Stopping session janitor")
			return nil
		}
	}
}
