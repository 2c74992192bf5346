package store

import (
	"errors"

	"github.com/aathi-11/university-voting-portal/internal/models"
)

// ErrStorageCorrupt means a multi-step write failed half way and could not be
// rolled back. The store refuses further mutations once it has seen it.
var ErrStorageCorrupt = errors.New("storage left in an inconsistent state")

// Snapshot is the full durable state.
type Snapshot struct {
	Subjects     []models.Subject     `json:"subjects"`
	Ballots      []models.Ballot      `json:"ballots"`
	Announcement *models.Announcement `json:"announcement,omitempty"`
}

// Backend persists the three collections. Every call is a synchronous
// write-through; a reader of the medium sees either the old or the new state.
type Backend interface {
	Load() (*Snapshot, error)
	PutSubject(sub models.Subject) error
	// AppendBallot stores b and voter (with HasVoted set) as one unit.
	AppendBallot(b models.Ballot, voter models.Subject) error
	PutAnnouncement(a models.Announcement) error
	Close() error
}
