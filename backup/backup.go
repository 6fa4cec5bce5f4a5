// Package backup archives the platform database and evidence files into
// timestamped zip archives with retention and restore support.
package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/greenscope/greenscope/api"
)

// ErrNoBackups is returned when a restore is requested and no archive
// exists.
var ErrNoBackups = errors.New("backup: no backups available")

const (
	manifestName = "manifest.json"
	archiveExt   = ".zip"
	namePrefix   = "greenscope-backup-"
)

// Manifest describes the contents of one archive.
type Manifest struct {
	CreatedAt    time.Time `json:"created_at"`
	DatabaseFile string    `json:"database_file"`
	EvidenceDirs int       `json:"evidence_dirs"`
	FileCount    int       `json:"file_count"`
	Version      string    `json:"version"`
}

// Database is the live database surface the manager drives: a WAL
// checkpoint before archiving the file, and a replay after extracting a
// restored copy. Copying or overwriting the database file while a
// WAL-mode connection pool holds it open would miss or clobber data.
type Database interface {
	Checkpoint(ctx context.Context) error
	RestoreFrom(ctx context.Context, srcPath string) error
}

// Manager creates, lists, prunes, and restores backups.
type Manager struct {
	backupDir   string
	dbPath      string
	evidenceDir string
	keep        int
	db          Database
	logger      *zap.Logger
	now         func() time.Time
}

// NewManager wires a backup manager. keep bounds how many archives are
// retained; zero or negative keeps 10.
func NewManager(backupDir, dbPath, evidenceDir string, keep int, db Database, logger *zap.Logger) *Manager {
	if keep <= 0 {
		keep = 10
	}
	return &Manager{
		backupDir:   backupDir,
		dbPath:      dbPath,
		evidenceDir: evidenceDir,
		keep:        keep,
		db:          db,
		logger:      logger,
		now:         time.Now,
	}
}

// Create writes a new archive and prunes old ones past the retention
// limit. It returns the archive's info.
func (m *Manager) Create(ctx context.Context) (*api.BackupInfo, error) {
	if err := os.MkdirAll(m.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup dir: %w", err)
	}
	if err := m.db.Checkpoint(ctx); err != nil {
		return nil, err
	}

	createdAt := m.now().UTC()
	name := namePrefix + createdAt.Format("20060102-150405") + archiveExt
	path := filepath.Join(m.backupDir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	manifest := Manifest{CreatedAt: createdAt, Version: "1"}

	if err := m.addFile(zw, m.dbPath, "db/"+filepath.Base(m.dbPath)); err != nil {
		zw.Close()
		os.Remove(path)
		return nil, err
	}
	manifest.DatabaseFile = "db/" + filepath.Base(m.dbPath)
	manifest.FileCount++

	dirs, files, err := m.addEvidence(zw)
	if err != nil {
		zw.Close()
		os.Remove(path)
		return nil, err
	}
	manifest.EvidenceDirs = dirs
	manifest.FileCount += files

	if err := writeManifest(zw, manifest); err != nil {
		zw.Close()
		os.Remove(path)
		return nil, err
	}
	if err := zw.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to finalize backup archive: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup archive: %w", err)
	}

	if err := m.prune(); err != nil {
		m.logger.Warn("backup retention prune failed", zap.Error(err))
	}

	m.logger.Info("backup created",
		zap.String("archive", name),
		zap.Int("files", manifest.FileCount),
		zap.Int64("size_bytes", info.Size()),
	)
	return &api.BackupInfo{Name: name, SizeBytes: info.Size(), CreatedAt: createdAt}, nil
}

func (m *Manager) addFile(zw *zip.Writer, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s for backup: %w", src, err)
	}
	defer in.Close()

	out, err := zw.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to add %s to backup: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s into backup: %w", src, err)
	}
	return nil
}

func (m *Manager) addEvidence(zw *zip.Writer) (dirs, files int, err error) {
	seen := map[string]bool{}
	err = filepath.WalkDir(m.evidenceDir, func(path string, d os.DirEntry, err error) error {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(m.evidenceDir, path)
		if err != nil {
			return err
		}
		if dir := filepath.Dir(rel); dir != "." && !seen[dir] {
			seen[dir] = true
			dirs++
		}
		if err := m.addFile(zw, path, "evidence/"+filepath.ToSlash(rel)); err != nil {
			return err
		}
		files++
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, 0, fmt.Errorf("failed to archive evidence files: %w", err)
	}
	return dirs, files, nil
}

func writeManifest(zw *zip.Writer, m Manifest) error {
	out, err := zw.Create(manifestName)
	if err != nil {
		return fmt.Errorf("failed to add manifest to backup: %w", err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to write backup manifest: %w", err)
	}
	return nil
}

// List returns available archives, newest first.
func (m *Manager) List() ([]api.BackupInfo, error) {
	entries, err := os.ReadDir(m.backupDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	var backups []api.BackupInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), namePrefix) || !strings.HasSuffix(e.Name(), archiveExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, api.BackupInfo{
			Name:      e.Name(),
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime().UTC(),
		})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].CreatedAt.After(backups[j].CreatedAt) })
	return backups, nil
}

func (m *Manager) prune() error {
	backups, err := m.List()
	if err != nil {
		return err
	}
	for _, old := range backups[min(m.keep, len(backups)):] {
		if err := os.Remove(filepath.Join(m.backupDir, old.Name)); err != nil {
			return err
		}
		m.logger.Info("backup pruned", zap.String("archive", old.Name))
	}
	return nil
}

// Restore loads the named archive (or the newest when name is empty) into
// the live database and over the evidence tree. The database entry is
// extracted to a scratch file and replayed through the open store, so no
// caller coordination is needed. Evidence files are written only after
// the database replay commits.
func (m *Manager) Restore(ctx context.Context, name string) error {
	if name == "" {
		backups, err := m.List()
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			return ErrNoBackups
		}
		name = backups[0].Name
	}
	if name != filepath.Base(name) {
		return fmt.Errorf("backup: invalid archive name %q", name)
	}

	zr, err := zip.OpenReader(filepath.Join(m.backupDir, name))
	if err != nil {
		return fmt.Errorf("failed to open backup archive: %w", err)
	}
	defer zr.Close()

	if err := m.restoreDatabase(ctx, &zr.Reader); err != nil {
		return err
	}

	for _, f := range zr.File {
		switch {
		case f.Name == manifestName || strings.HasPrefix(f.Name, "db/"):
			continue
		case strings.HasPrefix(f.Name, "evidence/"):
			rel := strings.TrimPrefix(f.Name, "evidence/")
			dst := filepath.Join(m.evidenceDir, filepath.FromSlash(rel))
			if !strings.HasPrefix(dst, filepath.Clean(m.evidenceDir)+string(os.PathSeparator)) {
				return fmt.Errorf("backup: archive entry %q escapes evidence dir", f.Name)
			}
			if err := extract(f, dst); err != nil {
				return err
			}
		}
	}

	m.logger.Info("backup restored", zap.String("archive", name))
	return nil
}

// restoreDatabase extracts the archive's database entry to a scratch file
// and replays it into the live store.
func (m *Manager) restoreDatabase(ctx context.Context, zr *zip.Reader) error {
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "db/") {
			continue
		}
		tmp, err := os.CreateTemp(filepath.Dir(m.dbPath), "restore-*.db")
		if err != nil {
			return fmt.Errorf("failed to create restore scratch file: %w", err)
		}
		tmp.Close()
		defer os.Remove(tmp.Name())

		if err := extract(f, tmp.Name()); err != nil {
			return err
		}
		return m.db.RestoreFrom(ctx, tmp.Name())
	}
	return errors.New("backup: archive has no database entry")
}

func extract(f *zip.File, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create restore dir: %w", err)
	}
	in, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to read archive entry %s: %w", f.Name, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create restored file %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to restore %s: %w", dst, err)
	}
	return nil
}

// Health reports whether backups exist and how fresh the latest is.
func (m *Manager) Health() api.HealthStatus {
	backups, err := m.List()
	if err != nil {
		return api.HealthStatus{Healthy: false, Detail: err.Error()}
	}
	status := api.HealthStatus{BackupCount: len(backups)}
	if len(backups) == 0 {
		status.Detail = "no backups created yet"
		return status
	}
	latest := backups[0].CreatedAt
	status.LastBackup = &latest
	status.Healthy = m.now().Sub(latest) < 48*time.Hour
	if !status.Healthy {
		status.Detail = "latest backup is older than 48 hours"
	}
	return status
}
