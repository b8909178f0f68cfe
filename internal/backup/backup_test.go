package backup_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/guras256/warp-dns-manager/internal/backup"
	"github.com/guras256/warp-dns-manager/internal/config"
	"github.com/guras256/warp-dns-manager/internal/failure"
	"github.com/guras256/warp-dns-manager/internal/service"
)

func tempManager(t *testing.T, keep int) (*backup.Manager, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "backups")
	return backup.NewManager(dir, keep), dir
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Tunnel.License = "lic-1"
	cfg.Resolver.ProfileID = "profile-x"
	return &cfg
}

func TestCreateAndRestoreRoundTrip(t *testing.T) {
	m, _ := tempManager(t, 0)

	states := []service.State{{Name: "tunnel", Status: service.StatusRunning}}
	snap, err := m.Create(testConfig(), states, "pre-setup")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Checksum == "" || snap.Payload == "" {
		t.Fatalf("incomplete snapshot: %+v", snap)
	}

	got, err := m.Restore(snap.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tunnel.License != "lic-1" || got.Resolver.ProfileID != "profile-x" {
		t.Fatalf("restore lost fields: %+v", got)
	}
}

func TestRestoreCorruptedFails(t *testing.T) {
	m, dir := tempManager(t, 0)

	snap, err := m.Create(testConfig(), nil, "x")
	if err != nil {
		t.Fatal(err)
	}

	// Tamper with the payload but keep the checksum.
	path := filepath.Join(dir, snap.ID+".yaml")
	data, _ := os.ReadFile(path)
	tampered := strings.Replace(string(data), "profile-x", "profile-y", 1)
	os.WriteFile(path, []byte(tampered), 0o600)

	_, err = m.Restore(snap.ID)
	if err == nil {
		t.Fatal("expected error for corrupted backup")
	}
	if !errors.Is(err, failure.ErrInvalidConfig) {
		t.Fatalf("expected invalid-config error, got %v", err)
	}
	if failure.Classify("backup", err).Kind != failure.ConfigInvalid {
		t.Fatalf("corruption did not classify as configuration-invalid: %v", err)
	}
}

func TestVerify(t *testing.T) {
	m, _ := tempManager(t, 0)
	snap, _ := m.Create(testConfig(), nil, "x")

	if err := m.Verify(snap.ID); err != nil {
		t.Fatal(err)
	}
	if err := m.Verify("0099-nonexistent"); err == nil {
		t.Fatal("expected error for missing backup")
	}
}

func TestIDsMonotonic(t *testing.T) {
	m, _ := tempManager(t, 0)

	a, _ := m.Create(testConfig(), nil, "first")
	b, _ := m.Create(testConfig(), nil, "second")

	if !strings.HasPrefix(a.ID, "0001-") || !strings.HasPrefix(b.ID, "0002-") {
		t.Fatalf("ids not sequential: %s, %s", a.ID, b.ID)
	}
	if b.ID <= a.ID {
		t.Fatalf("ids not ordered: %s before %s", a.ID, b.ID)
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	m, _ := tempManager(t, 0)

	var last string
	for i := 0; i < 5; i++ {
		snap, err := m.Create(testConfig(), nil, "n")
		if err != nil {
			t.Fatal(err)
		}
		last = snap.ID
	}

	removed, err := m.Prune(2)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 3 {
		t.Fatalf("removed %d, want 3", removed)
	}

	snaps, _ := m.List()
	if len(snaps) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(snaps))
	}
	if snaps[len(snaps)-1].ID != last {
		t.Fatalf("newest backup %s missing after prune", last)
	}
}

func TestPruneZeroKeepsOne(t *testing.T) {
	m, _ := tempManager(t, 0)

	for i := 0; i < 3; i++ {
		if _, err := m.Create(testConfig(), nil, "n"); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := m.Prune(0); err != nil {
		t.Fatal(err)
	}
	snaps, _ := m.List()
	if len(snaps) != 1 {
		t.Fatalf("expected the newest backup to survive, got %d", len(snaps))
	}
}

func TestCreateAppliesRetention(t *testing.T) {
	m, _ := tempManager(t, 2)

	for i := 0; i < 4; i++ {
		if _, err := m.Create(testConfig(), nil, "n"); err != nil {
			t.Fatal(err)
		}
	}
	snaps, _ := m.List()
	if len(snaps) != 2 {
		t.Fatalf("retention not applied on create: %d backups", len(snaps))
	}
}

func TestLatestEmpty(t *testing.T) {
	m, _ := tempManager(t, 0)

	snap, err := m.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if snap != nil {
		t.Fatalf("expected nil for empty dir, got %+v", snap)
	}
}
