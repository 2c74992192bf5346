// Package backup writes encrypted snapshots of the election state.
//
// A backup file holds the JSON snapshot encrypted with the vote key in the
// same blob format ballots use. There is no restore path; ballots are
// append-only and a restore would rewrite them.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/aathi-11/university-voting-portal/internal/store"
	"github.com/aathi-11/university-voting-portal/internal/util"
)

const (
	filePrefix  = "backup-"
	fileSuffix  = ".bin"
	stampLayout = "20060102150405"
)

var ErrInvalidName = errors.New("not a backup file name")

// Source is anything that can hand out a consistent state snapshot.
type Source interface {
	Snapshot() store.Snapshot
}

// Info describes one backup file.
type Info struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	HumanSize string    `json:"humanSize"`
	CreatedAt time.Time `json:"createdAt"`
}

type payload struct {
	Created  time.Time      `json:"created"`
	Snapshot store.Snapshot `json:"snapshot"`
}

type Manager struct {
	src Source
	key []byte
	dir string
	log *slog.Logger
	now func() time.Time
}

func NewManager(src Source, key []byte, dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{src: src, key: key, dir: dir, log: logger, now: time.Now}
}

func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Create encrypts the current snapshot into a new file and returns its info.
func (m *Manager) Create() (Info, error) {
	created := m.now().UTC()
	raw, err := json.Marshal(payload{Created: created, Snapshot: m.src.Snapshot()})
	if err != nil {
		return Info{}, fmt.Errorf("marshal snapshot: %w", err)
	}

	blob, err := util.Encrypt(raw, m.key)
	if err != nil {
		return Info{}, fmt.Errorf("encrypt snapshot: %w", err)
	}

	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return Info{}, fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("%s%s-%s%s", filePrefix, created.Format(stampLayout), uuid.NewString(), fileSuffix)
	path := filepath.Join(m.dir, name)
	if err := os.WriteFile(path, []byte(blob), 0o600); err != nil {
		return Info{}, fmt.Errorf("write backup: %w", err)
	}

	info := Info{
		Name:      name,
		Size:      int64(len(blob)),
		HumanSize: humanize.Bytes(uint64(len(blob))),
		CreatedAt: created,
	}
	m.log.Info("backup written", "file", name, "size", info.HumanSize)
	return info, nil
}

// List returns existing backups, newest first. A missing directory is empty.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var list []Info
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		created, ok := parseName(e.Name())
		if !ok {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		list = append(list, Info{
			Name:      e.Name(),
			Size:      fi.Size(),
			HumanSize: humanize.Bytes(uint64(fi.Size())),
			CreatedAt: created,
		})
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].Name > list[j].Name
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// Read decrypts a backup for inspection.
func (m *Manager) Read(name string) (store.Snapshot, time.Time, error) {
	if _, ok := parseName(name); !ok || filepath.Base(name) != name {
		return store.Snapshot{}, time.Time{}, ErrInvalidName
	}
	blob, err := os.ReadFile(filepath.Join(m.dir, name))
	if err != nil {
		return store.Snapshot{}, time.Time{}, fmt.Errorf("read backup: %w", err)
	}
	raw, err := util.Decrypt(string(blob), m.key)
	if err != nil {
		return store.Snapshot{}, time.Time{}, err
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return store.Snapshot{}, time.Time{}, fmt.Errorf("%w: %v", util.ErrFormat, err)
	}
	return p.Snapshot, p.Created, nil
}

// parseName extracts the creation stamp from backup-<stamp>-<uuid>.bin.
func parseName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	stamp, id, ok := strings.Cut(rest, "-")
	if !ok {
		return time.Time{}, false
	}
	if _, err := uuid.Parse(id); err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(stampLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
