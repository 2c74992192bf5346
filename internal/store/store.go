// Package store owns the process-wide election state: subjects, the
// append-only ballot collection and the current announcement. Every mutation
// is written through to a Backend before it becomes visible in memory.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aathi-11/university-voting-portal/internal/models"
)

var (
	ErrDuplicateSubject = errors.New("identifier already registered")
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrAlreadyVoted     = errors.New("subject has already voted")
)

type Store struct {
	backend Backend
	log     *slog.Logger

	mu           sync.RWMutex
	subjects     map[string]models.Subject
	order        []string
	ballots      []models.Ballot
	announcement *models.Announcement
	failed       error
}

// Open loads the backend's state. A subject that owns a ballot but is not
// flagged as having voted is repaired and re-persisted.
func Open(backend Backend, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	snap, err := backend.Load()
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	s := &Store{
		backend:      backend,
		log:          logger,
		subjects:     make(map[string]models.Subject, len(snap.Subjects)),
		ballots:      snap.Ballots,
		announcement: snap.Announcement,
	}

	voted := make(map[string]bool, len(snap.Ballots))
	for _, b := range snap.Ballots {
		voted[b.VoterRoll] = true
	}
	for _, sub := range snap.Subjects {
		if voted[sub.Roll] && !sub.HasVoted {
			sub.HasVoted = true
			if err := backend.PutSubject(sub); err != nil {
				return nil, fmt.Errorf("repair has-voted for %s: %w", sub.Roll, err)
			}
			logger.Warn("repaired has-voted flag from ballot collection", "roll", sub.Roll)
		}
		if _, dup := s.subjects[sub.Roll]; !dup {
			s.order = append(s.order, sub.Roll)
		}
		s.subjects[sub.Roll] = sub
	}

	logger.Info("state loaded",
		"subjects", len(s.subjects),
		"ballots", len(s.ballots),
		"announced", s.announcement != nil,
	)
	return s, nil
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// AddSubject registers a new subject.
func (s *Store) AddSubject(sub models.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(sub)
}

// AddSubjectIfNone adds sub unless some existing subject satisfies match, in
// which case that subject is returned with created=false.
func (s *Store) AddSubjectIfNone(sub models.Subject, match func(models.Subject) bool) (models.Subject, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, roll := range s.order {
		if existing := s.subjects[roll]; match(existing) {
			return existing, false, nil
		}
	}
	if err := s.addLocked(sub); err != nil {
		return models.Subject{}, false, err
	}
	return sub, true, nil
}

func (s *Store) addLocked(sub models.Subject) error {
	if s.failed != nil {
		return s.failed
	}
	if _, ok := s.subjects[sub.Roll]; ok {
		return ErrDuplicateSubject
	}
	if err := s.backend.PutSubject(sub); err != nil {
		return fmt.Errorf("persist subject: %w", err)
	}
	s.subjects[sub.Roll] = sub
	s.order = append(s.order, sub.Roll)
	return nil
}

// Subject looks up roll.
func (s *Store) Subject(roll string) (models.Subject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subjects[roll]
	return sub, ok
}

// Subjects returns all subjects in registration order.
func (s *Store) Subjects() []models.Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Subject, 0, len(s.order))
	for _, roll := range s.order {
		out = append(out, s.subjects[roll])
	}
	return out
}

// RecordBallot is the single critical section for casting: it checks that
// roll exists and has not voted, asks build for the ballot, then persists
// the ballot and the has-voted flag together. build runs under the lock.
func (s *Store) RecordBallot(roll string, build func(models.Subject) (models.Ballot, error)) (models.Ballot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failed != nil {
		return models.Ballot{}, s.failed
	}
	sub, ok := s.subjects[roll]
	if !ok {
		return models.Ballot{}, ErrSubjectNotFound
	}
	if sub.HasVoted {
		return models.Ballot{}, ErrAlreadyVoted
	}

	b, err := build(sub)
	if err != nil {
		return models.Ballot{}, err
	}

	sub.HasVoted = true
	if err := s.backend.AppendBallot(b, sub); err != nil {
		if errors.Is(err, ErrStorageCorrupt) {
			s.failed = err
			s.log.Error("storage corrupted, refusing further writes", "error", err)
		}
		return models.Ballot{}, fmt.Errorf("persist ballot: %w", err)
	}

	s.subjects[roll] = sub
	s.ballots = append(s.ballots, b)
	return b, nil
}

// Ballots returns a copy of the ballot collection.
func (s *Store) Ballots() []models.Ballot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Ballot(nil), s.ballots...)
}

// ReplaceAnnouncement computes and stores a new announcement from the
// current ballots while no ballot can be appended.
func (s *Store) ReplaceAnnouncement(build func([]models.Ballot) (models.Announcement, error)) (models.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failed != nil {
		return models.Announcement{}, s.failed
	}
	a, err := build(append([]models.Ballot(nil), s.ballots...))
	if err != nil {
		return models.Announcement{}, err
	}
	if err := s.backend.PutAnnouncement(a); err != nil {
		return models.Announcement{}, fmt.Errorf("persist announcement: %w", err)
	}
	s.announcement = &a
	return a, nil
}

// Announcement returns the current announcement, if any.
func (s *Store) Announcement() (models.Announcement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.announcement == nil {
		return models.Announcement{}, false
	}
	return *s.announcement, true
}

// Snapshot returns a consistent copy of the whole state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Subjects: make([]models.Subject, 0, len(s.order)),
		Ballots:  append([]models.Ballot(nil), s.ballots...),
	}
	for _, roll := range s.order {
		snap.Subjects = append(snap.Subjects, s.subjects[roll])
	}
	if s.announcement != nil {
		a := *s.announcement
		snap.Announcement = &a
	}
	return snap
}
