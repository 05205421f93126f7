package confedit

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	terr "bbrctl/internal/errors"
)

// WriteUnit replaces path with lines. Files handled this way are owned by the tool as a
// whole and are never line-edited.
func WriteUnit(path string, lines ...string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return terr.FileWriteError(err, path, "write_unit")
	}
	content := strings.Join(lines, "\n") + "\n"
	if err := writeFileWithSync(path, []byte(content), defaultFilePerm); err != nil {
		return terr.FileWriteError(err, path, "write_unit")
	}
	return nil
}

// RemoveUnit deletes path and reports whether it existed.
func RemoveUnit(path string) (bool, error) {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, terr.FileWriteError(err, path, "remove_unit")
	}
	return true, nil
}

// UnitExists reports whether path is present.
func UnitExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
