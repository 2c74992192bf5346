package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aathi-11/university-voting-portal/internal/models"
)

const (
	usersFile        = "users.json"
	votesFile        = "votes.json"
	announcementFile = "announcement.json"
)

// JSONBackend keeps users.json, votes.json and announcement.json in one directory.
type JSONBackend struct {
	dir string

	mu       sync.Mutex
	subjects []models.Subject
	ballots  []models.Ballot
}

func NewJSONBackend(dir string) (*JSONBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &JSONBackend{dir: dir}, nil
}

func (j *JSONBackend) path(name string) string {
	return filepath.Join(j.dir, name)
}

func (j *JSONBackend) Load() (*Snapshot, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	snap := &Snapshot{}
	if err := readJSON(j.path(usersFile), &snap.Subjects); err != nil {
		return nil, err
	}
	if err := readJSON(j.path(votesFile), &snap.Ballots); err != nil {
		return nil, err
	}
	if err := readJSON(j.path(announcementFile), &snap.Announcement); err != nil {
		return nil, err
	}

	j.subjects = append([]models.Subject(nil), snap.Subjects...)
	j.ballots = append([]models.Ballot(nil), snap.Ballots...)
	return snap, nil
}

func (j *JSONBackend) PutSubject(sub models.Subject) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	next := upsertSubject(j.subjects, sub)
	if err := writeJSONAtomic(j.path(usersFile), next); err != nil {
		return err
	}
	j.subjects = next
	return nil
}

// AppendBallot writes votes.json before users.json, so a crash in between
// leaves a ballot whose voter is not yet flagged; Open repairs that case.
func (j *JSONBackend) AppendBallot(b models.Ballot, voter models.Subject) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	ballots := append(append([]models.Ballot(nil), j.ballots...), b)
	if err := writeJSONAtomic(j.path(votesFile), ballots); err != nil {
		return err
	}

	subjects := upsertSubject(j.subjects, voter)
	if err := writeJSONAtomic(j.path(usersFile), subjects); err != nil {
		if rbErr := writeJSONAtomic(j.path(votesFile), j.ballots); rbErr != nil {
			return fmt.Errorf("%w: %v (rollback: %v)", ErrStorageCorrupt, err, rbErr)
		}
		return err
	}

	j.ballots = ballots
	j.subjects = subjects
	return nil
}

func (j *JSONBackend) PutAnnouncement(a models.Announcement) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return writeJSONAtomic(j.path(announcementFile), a)
}

func (j *JSONBackend) Close() error { return nil }

func upsertSubject(list []models.Subject, sub models.Subject) []models.Subject {
	out := make([]models.Subject, 0, len(list)+1)
	replaced := false
	for _, s := range list {
		if s.Roll == sub.Roll {
			s = sub
			replaced = true
		}
		out = append(out, s)
	}
	if !replaced {
		out = append(out, sub)
	}
	return out
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSONAtomic writes to a temp file in the same directory, syncs it and
// renames it over path.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
