// Package backup creates, verifies and restores immutable configuration
// snapshots. A snapshot is taken before every state-mutating setup step so a
// rollback target always exists that strictly precedes the failed step.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/guras256/warp-dns-manager/internal/config"
	"github.com/guras256/warp-dns-manager/internal/failure"
	"github.com/guras256/warp-dns-manager/internal/service"
)

// FormatVersion is written into every snapshot so older backups stay
// restorable after the layout evolves.
const FormatVersion = 1

// DefaultKeep is the retention applied after every Create.
const DefaultKeep = 10

// Snapshot is one immutable configuration backup. The payload is the exact
// YAML encoding of the config at capture time; the checksum covers those
// bytes, so a restore reproduces the config byte-for-byte or fails loudly.
type Snapshot struct {
	ID            string          `yaml:"id"`
	CreatedAt     time.Time       `yaml:"created_at"`
	FormatVersion int             `yaml:"format_version"`
	Description   string          `yaml:"description,omitempty"`
	Platform      string          `yaml:"platform"`
	Checksum      string          `yaml:"checksum"`
	Payload       string          `yaml:"payload"`
	Services      []service.State `yaml:"services,omitempty"`
}

// Config decodes the captured configuration after checksum verification.
func (s *Snapshot) Config() (*config.Config, error) {
	if sum := checksum([]byte(s.Payload)); sum != s.Checksum {
		return nil, fmt.Errorf("%w: backup %s checksum mismatch (have %s, want %s)",
			failure.ErrInvalidConfig, s.ID, sum, s.Checksum)
	}
	var cfg config.Config
	if err := yaml.Unmarshal([]byte(s.Payload), &cfg); err != nil {
		return nil, fmt.Errorf("%w: backup %s payload: %v", failure.ErrInvalidConfig, s.ID, err)
	}
	return &cfg, nil
}

// Manager owns the backup directory. Retention is FIFO by creation order and
// never removes the single most recent snapshot.
type Manager struct {
	dir  string
	keep int
}

// NewManager creates a manager over the given directory, keeping at most
// keep snapshots after each Create (non-positive selects the default).
func NewManager(dir string, keep int) *Manager {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Manager{dir: dir, keep: keep}
}

// Create captures cfg and the current service states into a new snapshot.
// A failed write must abort whatever operation requested the backup: a
// mutating step with no verified backup must not proceed.
func (m *Manager) Create(cfg *config.Config, states []service.State, description string) (*Snapshot, error) {
	payload, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}

	seq, err := m.nextSeq()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	snap := &Snapshot{
		ID:            fmt.Sprintf("%04d-%s", seq, now.Format("20060102T150405")),
		CreatedAt:     now,
		FormatVersion: FormatVersion,
		Description:   description,
		Platform:      runtime.GOOS,
		Checksum:      checksum(payload),
		Payload:       string(payload),
		Services:      states,
	}

	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	if err := os.WriteFile(m.path(snap.ID), data, 0o600); err != nil {
		return nil, fmt.Errorf("write backup %s: %w", snap.ID, err)
	}

	if _, err := m.Prune(m.keep); err != nil {
		return snap, fmt.Errorf("prune backups: %w", err)
	}
	return snap, nil
}

// List returns all snapshots, oldest first.
func (m *Manager) List() ([]*Snapshot, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var snaps []*Snapshot
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		snap, err := m.read(strings.TrimSuffix(e.Name(), ".yaml"))
		if err != nil {
			// A single unreadable file must not hide the rest.
			continue
		}
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })
	return snaps, nil
}

// Latest returns the most recent snapshot, or nil when none exist.
func (m *Manager) Latest() (*Snapshot, error) {
	snaps, err := m.List()
	if err != nil || len(snaps) == 0 {
		return nil, err
	}
	return snaps[len(snaps)-1], nil
}

// Get loads one snapshot by id.
func (m *Manager) Get(id string) (*Snapshot, error) {
	snap, err := m.read(id)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("backup %s not found", id)
		}
		return nil, err
	}
	return snap, nil
}

// Verify checks a snapshot's integrity without restoring it.
func (m *Manager) Verify(id string) error {
	snap, err := m.Get(id)
	if err != nil {
		return err
	}
	_, err = snap.Config()
	return err
}

// Restore returns the configuration captured in the given snapshot. A
// checksum mismatch is a ConfigurationInvalid failure; a corrupted backup is
// never silently applied. Writing the config back and re-configuring the
// services is the caller's job — restoring never implicitly restarts anything.
func (m *Manager) Restore(id string) (*config.Config, error) {
	snap, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	return snap.Config()
}

// Prune removes the oldest snapshots beyond keep. The single most recent
// snapshot survives even keep=0. Returns how many files were removed.
func (m *Manager) Prune(keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}
	snaps, err := m.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for len(snaps)-removed > keep {
		if err := os.Remove(m.path(snaps[removed].ID)); err != nil {
			return removed, fmt.Errorf("remove backup %s: %w", snaps[removed].ID, err)
		}
		removed++
	}
	return removed, nil
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.dir, id+".yaml")
}

func (m *Manager) read(id string) (*Snapshot, error) {
	data, err := os.ReadFile(m.path(id))
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse backup %s: %w", id, err)
	}
	return &snap, nil
}

// nextSeq scans existing snapshot ids for the highest sequence number, so
// ids stay monotonic without a separate counter file.
func (m *Manager) nextSeq() (int, error) {
	snaps, err := m.List()
	if err != nil {
		return 0, err
	}
	max := 0
	for _, s := range snaps {
		numStr, _, ok := strings.Cut(s.ID, "-")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(numStr); err == nil && n > max {
			max = n
		}
	}
	return max + 1, nil
}

func checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
