package giveaway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/open-builders/reward-rush-bot/internal/common/validation"
	dg "github.com/open-builders/reward-rush-bot/internal/domain/giveaway"
	"github.com/open-builders/reward-rush-bot/internal/domain/user"
	"github.com/open-builders/reward-rush-bot/internal/platform/jsonstore"
	"github.com/open-builders/reward-rush-bot/internal/service/scheduler"
	"github.com/open-builders/reward-rush-bot/internal/utils/random"
)

const (
	// ProgressLead is how long before the end participants get a reminder.
	ProgressLead = 60 * time.Second
	// Retention is how long an ended giveaway is kept before purge.
	Retention = 24 * time.Hour
)

// JoinResult tells whether a join changed the participant set.
type JoinResult int

const (
	Joined JoinResult = iota
	AlreadyJoined
)

// Timer arms one-shot callbacks keyed by giveaway id.
type Timer interface {
	After(key string, kind scheduler.Kind, delay time.Duration, fn func())
}

// Notifier delivers lifecycle notifications.
type Notifier interface {
	GiveawayProgress(ctx context.Context, g *dg.Giveaway)
	GiveawayEnded(ctx context.Context, g *dg.Giveaway, admins []int64)
}

// Recipients lists who receives admin notifications.
type Recipients interface {
	Recipients() []int64
}

// Manager drives giveaways through Active, Ended and Purged.
type Manager struct {
	store      *jsonstore.Store
	timer      Timer
	notifier   Notifier
	recipients Recipients
	now        func() time.Time
	logger     zerolog.Logger
}

func NewManager(store *jsonstore.Store, timer Timer, notifier Notifier, recipients Recipients, logger zerolog.Logger) *Manager {
	return &Manager{
		store:      store,
		timer:      timer,
		notifier:   notifier,
		recipients: recipients,
		now:        time.Now,
		logger:     logger.With().Str("component", "giveaway").Logger(),
	}
}

// Create opens a giveaway with an empty pool. Its timers are armed by the
// first Populate, or by Arm if the pool step is abandoned.
func (m *Manager) Create(name string, duration time.Duration) (*dg.Giveaway, error) {
	name, err := validation.NormalizeGiveawayName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	if duration < time.Second || duration > MaxDuration {
		return nil, ErrInvalidDuration
	}

	g := dg.Giveaway{
		ID:           uuid.NewString(),
		Name:         name,
		RewardPool:   []string{},
		Participants: []user.Ref{},
		IsActive:     true,
		StartTime:    m.now().UTC(),
		Duration:     int64(duration / time.Second),
	}

	err = m.store.Update(func(doc *jsonstore.Document) error {
		if findActiveByName(doc, name) != nil {
			return ErrNameTaken
		}
		doc.Giveaways = append(doc.Giveaways, g)
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info().Str("id", g.ID).Str("name", name).Dur("duration", duration).Msg("Giveaway created")
	return &g, nil
}

// Populate appends rewards to the pool. The first populate restarts the
// clock and arms the end and progress timers.
func (m *Manager) Populate(id string, pool []string) (*dg.Giveaway, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	var (
		snapshot dg.Giveaway
		first    bool
	)
	err := m.store.Update(func(doc *jsonstore.Document) error {
		g := findActiveByID(doc, id)
		if g == nil {
			return ErrNotFound
		}
		first = len(g.RewardPool) == 0
		if first {
			g.StartTime = m.now().UTC()
		}
		g.RewardPool = append(g.RewardPool, pool...)
		snapshot = *g
		return nil
	})
	if err != nil {
		return nil, err
	}

	if first {
		m.arm(snapshot.ID, snapshot.Length())
	}
	m.logger.Info().Str("id", id).Int("added", len(pool)).Bool("armed", first).Msg("Giveaway pool populated")
	return &snapshot, nil
}

// Arm schedules an active giveaway from its remaining time.
func (m *Manager) Arm(id string) error {
	doc, err := m.store.Load()
	if err != nil {
		return err
	}
	g := findActiveByID(doc, id)
	if g == nil {
		return ErrNotFound
	}
	m.arm(g.ID, g.Remaining(m.now()))
	return nil
}

func (m *Manager) arm(id string, remaining time.Duration) {
	m.timer.After(id, scheduler.KindEnd, remaining, func() {
		if _, err := m.End(context.Background(), id); err != nil {
			m.logger.Error().Err(err).Str("id", id).Msg("Failed to end giveaway")
		}
	})
	if remaining > ProgressLead {
		m.timer.After(id, scheduler.KindProgress, remaining-ProgressLead, func() {
			if err := m.Progress(context.Background(), id); err != nil {
				m.logger.Error().Err(err).Str("id", id).Msg("Failed to send giveaway progress")
			}
		})
	}
}

// Join adds participant to the active giveaway called name.
func (m *Manager) Join(name string, participant user.Ref) (JoinResult, *dg.Giveaway, error) {
	name, err := validation.NormalizeGiveawayName(name)
	if err != nil {
		return 0, nil, ErrNotFound
	}

	result := Joined
	var snapshot dg.Giveaway
	err = m.store.Update(func(doc *jsonstore.Document) error {
		g := findActiveByName(doc, name)
		if g == nil {
			return ErrNotFound
		}
		if g.HasParticipant(participant.ID) {
			result = AlreadyJoined
			snapshot = *g
			return jsonstore.ErrSkipSave
		}
		g.Participants = append(g.Participants, participant)
		snapshot = *g
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return result, &snapshot, nil
}

// Active lists giveaways still accepting participants.
func (m *Manager) Active() ([]dg.Giveaway, error) {
	doc, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	out := make([]dg.Giveaway, 0, len(doc.Giveaways))
	for _, g := range doc.Giveaways {
		if g.IsActive {
			out = append(out, g)
		}
	}
	return out, nil
}

// Progress reminds participants of a giveaway that is about to end.
func (m *Manager) Progress(ctx context.Context, id string) error {
	doc, err := m.store.Load()
	if err != nil {
		return err
	}
	g := findActiveByID(doc, id)
	if g == nil {
		return nil
	}
	m.notifier.GiveawayProgress(ctx, g)
	return nil
}

// End closes the giveaway, draws winners and notifies everyone. Ending an
// already closed giveaway does nothing beyond purging. It returns the ended
// giveaway, or nil when this call did not close it.
func (m *Manager) End(ctx context.Context, id string) (*dg.Giveaway, error) {
	var ended *dg.Giveaway
	now := m.now()

	err := m.store.Update(func(doc *jsonstore.Document) error {
		changed := false
		if g := findActiveByID(doc, id); g != nil {
			g.IsActive = false
			winners, err := drawWinners(g.Participants, g.RewardPool)
			if err != nil {
				return err
			}
			g.Winners = winners
			snapshot := *g
			ended = &snapshot
			changed = true
		}
		if Purge(doc, now) > 0 {
			changed = true
		}
		if !changed {
			return jsonstore.ErrSkipSave
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ended == nil {
		return nil, nil
	}

	m.logger.Info().
		Str("id", ended.ID).
		Str("name", ended.Name).
		Int("participants", len(ended.Participants)).
		Int("winners", len(ended.Winners)).
		Msg("Giveaway ended")

	if len(ended.Winners) > 0 {
		m.notifier.GiveawayEnded(ctx, ended, m.recipients.Recipients())
	}
	return ended, nil
}

// Recover re-arms every active giveaway after a restart. Overdue ones end
// right away.
func (m *Manager) Recover() (int, error) {
	doc, err := m.store.Load()
	if err != nil {
		return 0, err
	}

	now := m.now()
	armed := 0
	for _, g := range doc.Giveaways {
		if !g.IsActive {
			continue
		}
		remaining := g.Length() - now.Sub(g.StartTime)
		if remaining < 0 {
			remaining = 0
		}
		m.arm(g.ID, remaining)
		armed++
	}

	m.logger.Info().Int("armed", armed).Msg("Giveaway timers recovered")
	return armed, nil
}

// Purge drops inactive giveaways that started more than Retention ago and
// returns how many were removed. Active giveaways are always kept.
func Purge(doc *jsonstore.Document, now time.Time) int {
	kept := doc.Giveaways[:0]
	removed := 0
	for _, g := range doc.Giveaways {
		if !g.IsActive && now.Sub(g.StartTime) > Retention {
			removed++
			continue
		}
		kept = append(kept, g)
	}
	doc.Giveaways = kept
	return removed
}

func drawWinners(participants []user.Ref, pool []string) ([]dg.Winner, error) {
	if len(participants) == 0 || len(pool) == 0 {
		return nil, nil
	}
	drawn, err := random.Sample(participants, min(len(participants), len(pool)))
	if err != nil {
		return nil, err
	}
	winners := make([]dg.Winner, len(drawn))
	for i, p := range drawn {
		winners[i] = dg.Winner{User: p, Payload: pool[i]}
	}
	return winners, nil
}

func findActiveByID(doc *jsonstore.Document, id string) *dg.Giveaway {
	for i := range doc.Giveaways {
		if doc.Giveaways[i].ID == id && doc.Giveaways[i].IsActive {
			return &doc.Giveaways[i]
		}
	}
	return nil
}

func findActiveByName(doc *jsonstore.Document, name string) *dg.Giveaway {
	for i := range doc.Giveaways {
		if doc.Giveaways[i].Name == name && doc.Giveaways[i].IsActive {
			return &doc.Giveaways[i]
		}
	}
	return nil
}

// IsUserError reports whether err should be shown to the admin or user verbatim.
func IsUserError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNameTaken) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrEmptyPool)
}
