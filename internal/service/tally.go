package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/moznion/go-optional"

	"github.com/aathi-11/university-voting-portal/internal/models"
	"github.com/aathi-11/university-voting-portal/internal/store"
	"github.com/aathi-11/university-voting-portal/internal/util"
)

// AnnouncedAtLayout is the UTC millisecond timestamp format of announcements.
const AnnouncedAtLayout = "2006-01-02T15:04:05.000Z"

// Aggregate counts ballots per plaintext candidate. Payloads are not decrypted.
func Aggregate(ballots []models.Ballot) map[string]int {
	counts := make(map[string]int)
	for _, b := range ballots {
		counts[b.Candidate]++
	}
	return counts
}

// Tally computes, publishes and verifies the signed result announcement.
type Tally struct {
	store   *store.Store
	signKey []byte
	log     *slog.Logger
	now     func() time.Time
}

func NewTally(st *store.Store, signKey []byte, logger *slog.Logger) *Tally {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tally{store: st, signKey: signKey, log: logger, now: time.Now}
}

func (t *Tally) WithClock(now func() time.Time) *Tally {
	t.now = now
	return t
}

// Current returns the live tally of recorded ballots.
func (t *Tally) Current() map[string]int {
	return Aggregate(t.store.Ballots())
}

// Announce signs {results, announcedAt} over the recorded ballots and
// replaces any previous announcement.
func (t *Tally) Announce() (models.Announcement, error) {
	a, err := t.store.ReplaceAnnouncement(func(ballots []models.Ballot) (models.Announcement, error) {
		a := models.Announcement{
			Results:     Aggregate(ballots),
			AnnouncedAt: t.now().UTC().Format(AnnouncedAtLayout),
		}
		sig, err := util.Sign(a.SignedPart(), t.signKey)
		if err != nil {
			return models.Announcement{}, fmt.Errorf("sign announcement: %w", err)
		}
		a.Signature = sig
		return a, nil
	})
	if err != nil {
		return models.Announcement{}, err
	}
	t.log.Info("results announced", "candidates", len(a.Results), "at", a.AnnouncedAt)
	return a, nil
}

// Published returns the current announcement, if one was made.
func (t *Tally) Published() (models.Announcement, bool) {
	return t.store.Announcement()
}

// Verify recomputes a's signature and compares it in constant time.
func (t *Tally) Verify(a models.Announcement) bool {
	return util.Verify(a.SignedPart(), a.Signature, t.signKey)
}

// VerifyPublished checks the current announcement. None means nothing has
// been announced yet; Some(false) means the signature does not match.
func (t *Tally) VerifyPublished() (models.Announcement, optional.Option[bool]) {
	a, ok := t.store.Announcement()
	if !ok {
		return models.Announcement{}, optional.None[bool]()
	}
	valid := t.Verify(a)
	if !valid {
		t.log.Warn("announcement signature mismatch", "announcedAt", a.AnnouncedAt)
	}
	return a, optional.Some(valid)
}
