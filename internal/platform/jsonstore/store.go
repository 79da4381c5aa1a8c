package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/open-builders/reward-rush-bot/internal/common/errors"
	"github.com/open-builders/reward-rush-bot/internal/domain/giveaway"
	"github.com/open-builders/reward-rush-bot/internal/domain/reward"
	"github.com/open-builders/reward-rush-bot/internal/domain/user"
)

// ErrSkipSave returned from an Update callback ends the cycle without writing.
var ErrSkipSave = errors.New("jsonstore: skip save")

// Document is the whole persisted bot state.
type Document struct {
	Accounts  []reward.Item       `json:"accounts"`
	Users     []user.Ref          `json:"users"`
	Giveaways []giveaway.Giveaway `json:"giveaways"`
	Admins    []int64             `json:"admins"`
	Banned    []int64             `json:"banned"`
}

// Store keeps the Document in a single JSON file guarded by one mutex.
type Store struct {
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
}

// Open returns a store backed by path. A missing file is created with an
// empty document; an unreadable or corrupt one is an error.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		logger: logger.With().Str("component", "jsonstore").Logger(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, assigned, err := s.decode()
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info().Str("path", path).Msg("Data file not found, initializing empty document")
		if err := s.write(newDocument()); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if assigned {
		// Persist ids filled in for documents written before giveaways had one.
		if err := s.write(doc); err != nil {
			return nil, err
		}
	}

	s.logger.Info().
		Str("path", path).
		Int("accounts", len(doc.Accounts)).
		Int("giveaways", len(doc.Giveaways)).
		Int("users", len(doc.Users)).
		Msg("Data file loaded")
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns a copy of the current document.
func (s *Store) Load() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Update runs fn over the freshly loaded document and saves the result.
// The lock is held for the whole load, fn, save cycle.
func (s *Store) Update(fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		if errors.Is(err, ErrSkipSave) {
			return nil
		}
		return err
	}
	return s.write(doc)
}

// Snapshot returns the raw bytes of the document file.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperrors.NewStorageError("snapshot", err)
	}
	return data, nil
}

func (s *Store) read() (*Document, error) {
	doc, _, err := s.decode()
	return doc, err
}

func (s *Store) decode() (*Document, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, false, apperrors.NewStorageError("read", err)
	}

	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, false, apperrors.NewStorageError("decode", fmt.Errorf("%s: %w", s.path, err))
	}
	assigned := normalize(doc)
	return doc, assigned, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (s *Store) write(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperrors.NewStorageError("encode", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return apperrors.NewStorageError("create temp", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.NewStorageError("write", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperrors.NewStorageError("sync", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorageError("close", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return apperrors.NewStorageError("rename", err)
	}
	return nil
}

func newDocument() *Document {
	doc := &Document{}
	normalize(doc)
	return doc
}

// normalize replaces nil sequences and reports whether any giveaway id was assigned.
func normalize(doc *Document) bool {
	assigned := false
	if doc.Accounts == nil {
		doc.Accounts = []reward.Item{}
	}
	if doc.Users == nil {
		doc.Users = []user.Ref{}
	}
	if doc.Giveaways == nil {
		doc.Giveaways = []giveaway.Giveaway{}
	}
	if doc.Admins == nil {
		doc.Admins = []int64{}
	}
	if doc.Banned == nil {
		doc.Banned = []int64{}
	}
	for i := range doc.Giveaways {
		g := &doc.Giveaways[i]
		if g.ID == "" {
			g.ID = uuid.NewString()
			assigned = true
		}
		if g.RewardPool == nil {
			g.RewardPool = []string{}
		}
		if g.Participants == nil {
			g.Participants = []user.Ref{}
		}
	}
	return assigned
}
