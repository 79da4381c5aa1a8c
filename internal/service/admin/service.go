package admin

import (
	"encoding/json"
	"errors"
	"slices"

	"github.com/rs/zerolog"

	"github.com/open-builders/reward-rush-bot/internal/domain/giveaway"
	"github.com/open-builders/reward-rush-bot/internal/domain/reward"
	"github.com/open-builders/reward-rush-bot/internal/domain/user"
	"github.com/open-builders/reward-rush-bot/internal/platform/jsonstore"
)

var (
	ErrAlreadyAdmin  = errors.New("user is already an admin")
	ErrAlreadyBanned = errors.New("user is already banned")
	ErrNotBanned     = errors.New("user is not in the ban list")
)

// Disarmer cancels every pending giveaway timer.
type Disarmer interface {
	DisarmAll() int
}

// FileRemover deletes stored reward files.
type FileRemover interface {
	RemoveAll(paths []string) error
}

// Stats is a point-in-time summary of the document.
type Stats struct {
	Users             int `json:"users"`
	Admins            int `json:"admins"`
	Banned            int `json:"banned"`
	Rewards           int `json:"rewards"`
	RewardsAvailable  int `json:"rewards_available"`
	Giveaways         int `json:"giveaways"`
	GiveawaysActive   int `json:"giveaways_active"`
	GiveawayEntrants  int `json:"giveaway_entrants"`
	PendingDeliveries int `json:"pending_file_rewards"`
}

// ClearResult reports what a clear removed.
type ClearResult struct {
	Backup         []byte
	Rewards        int
	Giveaways      int
	TimersDisarmed int
	FilesRemoved   int
}

// Service manages roles, bans and the user registry.
type Service struct {
	store  *jsonstore.Store
	owners []int64
	timers Disarmer
	files  FileRemover
	logger zerolog.Logger
}

func NewService(store *jsonstore.Store, owners []int64, timers Disarmer, files FileRemover, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		owners: owners,
		timers: timers,
		files:  files,
		logger: logger.With().Str("component", "admin").Logger(),
	}
}

// IsOwner reports whether id is a statically configured owner.
func (s *Service) IsOwner(id int64) bool {
	return slices.Contains(s.owners, id)
}

// IsAdmin reports whether id is an owner or a promoted admin.
func (s *Service) IsAdmin(id int64) bool {
	if s.IsOwner(id) {
		return true
	}
	doc, err := s.store.Load()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load document for admin check")
		return false
	}
	return slices.Contains(doc.Admins, id)
}

// IsBanned reports whether id is on the ban list.
func (s *Service) IsBanned(id int64) bool {
	doc, err := s.store.Load()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load document for ban check")
		return false
	}
	return slices.Contains(doc.Banned, id)
}

// AddAdmin promotes id. Owners count as admins already.
func (s *Service) AddAdmin(id int64) error {
	if s.IsOwner(id) {
		return ErrAlreadyAdmin
	}
	err := s.store.Update(func(doc *jsonstore.Document) error {
		if slices.Contains(doc.Admins, id) {
			return ErrAlreadyAdmin
		}
		doc.Admins = append(doc.Admins, id)
		return nil
	})
	if err == nil {
		s.logger.Info().Int64("user_id", id).Msg("Admin added")
	}
	return err
}

// Ban adds id to the ban list.
func (s *Service) Ban(id int64) error {
	err := s.store.Update(func(doc *jsonstore.Document) error {
		if slices.Contains(doc.Banned, id) {
			return ErrAlreadyBanned
		}
		doc.Banned = append(doc.Banned, id)
		return nil
	})
	if err == nil {
		s.logger.Info().Int64("user_id", id).Msg("User banned")
	}
	return err
}

// Unban removes id from the ban list.
func (s *Service) Unban(id int64) error {
	err := s.store.Update(func(doc *jsonstore.Document) error {
		idx := slices.Index(doc.Banned, id)
		if idx < 0 {
			return ErrNotBanned
		}
		doc.Banned = slices.Delete(doc.Banned, idx, idx+1)
		return nil
	})
	if err == nil {
		s.logger.Info().Int64("user_id", id).Msg("User unbanned")
	}
	return err
}

// RegisterUser records first contact. It reports whether ref was new.
func (s *Service) RegisterUser(ref user.Ref) (bool, error) {
	added := false
	err := s.store.Update(func(doc *jsonstore.Document) error {
		if user.ContainsID(doc.Users, ref.ID) {
			return jsonstore.ErrSkipSave
		}
		doc.Users = append(doc.Users, ref)
		added = true
		return nil
	})
	return added, err
}

// Users returns registered users in first-contact order.
func (s *Service) Users() ([]user.Ref, error) {
	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	return doc.Users, nil
}

// TotalUsers returns the number of registered users.
func (s *Service) TotalUsers() (int, error) {
	users, err := s.Users()
	return len(users), err
}

// Recipients returns owners followed by admins, without duplicates.
func (s *Service) Recipients() []int64 {
	out := slices.Clone(s.owners)
	doc, err := s.store.Load()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load admins, notifying owners only")
		return out
	}
	for _, id := range doc.Admins {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// Backup returns the raw document bytes.
func (s *Service) Backup() ([]byte, error) {
	return s.store.Snapshot()
}

// Stats summarizes the document.
func (s *Service) Stats() (Stats, error) {
	doc, err := s.store.Load()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		Users:     len(doc.Users),
		Admins:    len(doc.Admins),
		Banned:    len(doc.Banned),
		Rewards:   len(doc.Accounts),
		Giveaways: len(doc.Giveaways),
	}
	for _, item := range doc.Accounts {
		if item.Available() {
			st.RewardsAvailable++
			if item.Type == reward.TypeDeliveredFile {
				st.PendingDeliveries++
			}
		}
	}
	for _, g := range doc.Giveaways {
		if g.IsActive {
			st.GiveawaysActive++
			st.GiveawayEntrants += len(g.Participants)
		}
	}
	return st, nil
}

// Clear wipes rewards and giveaways but keeps users, admins and bans. The
// returned backup is the document as it was before the wipe.
func (s *Service) Clear() (*ClearResult, error) {
	res := &ClearResult{}
	var files []string

	err := s.store.Update(func(doc *jsonstore.Document) error {
		backup, err := json.MarshalIndent(doc, "", "    ")
		if err != nil {
			return err
		}
		res.Backup = backup
		res.Rewards = len(doc.Accounts)
		res.Giveaways = len(doc.Giveaways)

		for _, item := range doc.Accounts {
			// Undelivered redeemed files are still on disk too.
			if item.Type == reward.TypeDeliveredFile {
				files = append(files, item.Payload)
			}
		}
		doc.Accounts = []reward.Item{}
		doc.Giveaways = []giveaway.Giveaway{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.timers != nil {
		res.TimersDisarmed = s.timers.DisarmAll()
	}
	if s.files != nil && len(files) > 0 {
		if err := s.files.RemoveAll(files); err != nil {
			s.logger.Warn().Err(err).Msg("Some reward files could not be removed")
		}
		res.FilesRemoved = len(files)
	}

	s.logger.Info().
		Int("rewards", res.Rewards).
		Int("giveaways", res.Giveaways).
		Int("timers", res.TimersDisarmed).
		Int("files", res.FilesRemoved).
		Msg("Data cleared")
	return res, nil
}
