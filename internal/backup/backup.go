package backup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"bbrctl/internal/confedit"
	terr "bbrctl/internal/errors"
)

// Manager keeps one pristine copy of every managed file.
type Manager struct {
	logger *slog.Logger
}

// NewManager creates a Manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{logger: logger}
}

// Exists reports whether the file's backup is present.
func (m *Manager) Exists(file confedit.ManagedFile) bool {
	_, err := os.Stat(file.BackupPath)
	return err == nil
}

// EnsureBackup copies Path to BackupPath unless a backup already exists. An existing
// backup is never overwritten, so it always reflects the state before the first edit.
// It reports whether a copy was made.
func (m *Manager) EnsureBackup(file confedit.ManagedFile) (bool, error) {
	if file.BackupPath == "" {
		return false, fmt.Errorf("no backup path configured for %s", file.Path)
	}
	if m.Exists(file) {
		return false, nil
	}

	if err := copyFile(file.Path, file.BackupPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, terr.New(
				terr.CategoryCritical,
				fmt.Errorf("%w: %s", terr.ErrManagedFileMissing, file.Path),
				terr.ErrorContext{Operation: "ensure_backup", Path: file.Path},
			)
		}
		return false, terr.FileWriteError(err, file.BackupPath, "ensure_backup")
	}

	if m.logger != nil {
		m.logger.Info("backup created",
			slog.String("path", file.Path),
			slog.String("backup", file.BackupPath))
	}
	return true, nil
}

// Restore copies the backup over Path. Without a backup it returns
// terr.ErrNothingToRestore and leaves Path untouched. The backup stays in place.
func (m *Manager) Restore(file confedit.ManagedFile) error {
	if !m.Exists(file) {
		return terr.ErrNothingToRestore
	}

	if err := copyFile(file.BackupPath, file.Path); err != nil {
		return terr.FileWriteError(err, file.Path, "restore_backup")
	}

	if m.logger != nil {
		m.logger.Info("file restored from backup",
			slog.String("path", file.Path),
			slog.String("backup", file.BackupPath))
	}
	return nil
}

// copyFile copies src to dst byte for byte, keeping the mode of src. The copy is written
// to a temporary file in dst's directory, fsynced and renamed, so a failed copy never
// leaves a partial dst behind.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", dst, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	defer tmp.Close()

	if _, err := io.Copy(tmp, in); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod %s: %w", dst, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("rename %s: %w", dst, err)
	}
	return nil
}
