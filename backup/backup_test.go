package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenscope/greenscope/store"
)

func testManager(t *testing.T, keep int) (*Manager, *store.Store, string) {
	t.Helper()
	root := t.TempDir()
	dbPath := filepath.Join(root, "greenscope.db")
	evidenceDir := filepath.Join(root, "evidence")

	s, err := store.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, os.MkdirAll(filepath.Join(evidenceDir, "task-1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(evidenceDir, "task-1", "bill.pdf"), []byte("%PDF-1.4"), 0o644))

	return NewManager(filepath.Join(root, "backups"), dbPath, evidenceDir, keep, s, zap.NewNop()), s, evidenceDir
}

func seedCompany(t *testing.T, s *store.Store, name string) *store.Company {
	t.Helper()
	company := &store.Company{
		Name:           name,
		MainLocation:   "Dubai",
		BusinessSector: store.SectorHospitality,
	}
	require.NoError(t, s.CreateCompany(context.Background(), company))
	return company
}

func TestCreateAndList(t *testing.T) {
	m, s, _ := testManager(t, 10)
	seedCompany(t, s, "Desert Palm Hotel")

	info, err := m.Create(context.Background())
	require.NoError(t, err)
	assert.Contains(t, info.Name, namePrefix)
	assert.Greater(t, info.SizeBytes, int64(0))

	backups, err := m.List()
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, info.Name, backups[0].Name)
}

func TestRestoreRoundTrip(t *testing.T) {
	m, s, evidenceDir := testManager(t, 10)
	ctx := context.Background()
	kept := seedCompany(t, s, "Desert Palm Hotel")

	info, err := m.Create(ctx)
	require.NoError(t, err)

	// Mutate state after the backup.
	late := seedCompany(t, s, "Oasis Mall")
	require.NoError(t, os.RemoveAll(evidenceDir))

	require.NoError(t, m.Restore(ctx, info.Name))

	// The restore must be visible through the already-open store: the
	// pre-backup row is back, the post-backup row is gone.
	got, err := s.GetCompany(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, "Desert Palm Hotel", got.Name)

	_, err = s.GetCompany(ctx, late.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	bill, err := os.ReadFile(filepath.Join(evidenceDir, "task-1", "bill.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(bill))
}

func TestRestoreValidation(t *testing.T) {
	m, s, _ := testManager(t, 10)
	ctx := context.Background()
	seedCompany(t, s, "Desert Palm Hotel")

	t.Run("no backups", func(t *testing.T) {
		err := m.Restore(ctx, "")
		assert.ErrorIs(t, err, ErrNoBackups)
	})

	t.Run("path traversal rejected", func(t *testing.T) {
		_, err := m.Create(ctx)
		require.NoError(t, err)
		assert.Error(t, m.Restore(ctx, "../../etc/passwd"))
	})

	t.Run("empty name restores newest", func(t *testing.T) {
		assert.NoError(t, m.Restore(ctx, ""))
	})
}

func TestPrune(t *testing.T) {
	m, s, _ := testManager(t, 2)
	seedCompany(t, s, "Desert Palm Hotel")

	// Archive names carry a second-resolution timestamp, so space the
	// fake clock out to keep them distinct.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		m.now = func() time.Time { return base.Add(time.Duration(i) * time.Second) }
		_, err := m.Create(context.Background())
		require.NoError(t, err)
	}

	backups, err := m.List()
	require.NoError(t, err)
	assert.Len(t, backups, 2)
}

func TestHealth(t *testing.T) {
	m, _, _ := testManager(t, 10)

	t.Run("unhealthy without backups", func(t *testing.T) {
		status := m.Health()
		assert.False(t, status.Healthy)
		assert.Zero(t, status.BackupCount)
	})

	t.Run("healthy after a fresh backup", func(t *testing.T) {
		_, err := m.Create(context.Background())
		require.NoError(t, err)

		status := m.Health()
		assert.True(t, status.Healthy)
		assert.Equal(t, 1, status.BackupCount)
	})
}
