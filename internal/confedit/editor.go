package confedit

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	terr "bbrctl/internal/errors"
)

const defaultFilePerm = 0o644

// ManagedFile is a configuration file this tool edits together with the location of
// its one-time backup.
type ManagedFile struct {
	Path       string
	BackupPath string
}

// Block is a tool-owned region appended to a managed file.
// Comment is written as the block's first line; Patterns select every line a previous
// run of the same logical operation may have left behind.
type Block struct {
	Comment  string
	Patterns []Pattern
	Body     []string
}

// Lines returns the block exactly as AppendBlock writes it, separator included.
func (b Block) Lines() []string {
	lines := make([]string, 0, len(b.Body)+2)
	lines = append(lines, "", b.Comment)
	lines = append(lines, b.Body...)
	return lines
}

// Contains reports whether any body line contains s.
func (b Block) Contains(s string) bool {
	for _, line := range b.Body {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}

// RemoveManagedLines drops every line of file.Path selected by at least one pattern,
// together with the blank line directly above each removed block comment, trims
// trailing blank lines, and writes the result back in place. Retained lines keep
// their order. A missing file is an error; it is never created here.
func RemoveManagedLines(file ManagedFile, patterns []Pattern) (int, error) {
	lines, trailingNewline, err := readLines(file.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, terr.New(
				terr.CategoryCritical,
				fmt.Errorf("%w: %s", terr.ErrManagedFileMissing, file.Path),
				terr.ErrorContext{Operation: "remove_managed_lines", Path: file.Path},
			)
		}
		return 0, terr.FileWriteError(err, file.Path, "remove_managed_lines")
	}

	kept := make([]string, 0, len(lines))
	removed := 0
	for _, line := range lines {
		p, ok := firstMatch(line, patterns)
		if !ok {
			kept = append(kept, line)
			continue
		}
		removed++
		// The separator AppendBlock wrote above a block comment goes with the block.
		if p.kind == patternMarker && len(kept) > 0 && strings.TrimSpace(kept[len(kept)-1]) == "" {
			kept = kept[:len(kept)-1]
		}
	}

	trimmed := trimTrailingBlank(kept)
	if removed == 0 && len(trimmed) == len(lines) {
		return 0, nil
	}

	if err := writeLines(file.Path, trimmed, trailingNewline || removed > 0); err != nil {
		return removed, terr.FileWriteError(err, file.Path, "remove_managed_lines")
	}
	return removed, nil
}

// AppendBlock appends a blank separator, the block comment and the body lines verbatim.
// The file is created when absent. No deduplication happens here; callers remove the
// block's previous output first.
func AppendBlock(file ManagedFile, block Block) error {
	lines, _, err := readLines(file.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return terr.FileWriteError(err, file.Path, "append_block")
	}

	lines = append(lines, block.Lines()...)
	if err := writeLines(file.Path, lines, true); err != nil {
		return terr.FileWriteError(err, file.Path, "append_block")
	}
	return nil
}

// ReplaceBlock removes the block's previous output and appends it again.
// Repeating it leaves the file unchanged after the first call.
func ReplaceBlock(file ManagedFile, block Block) error {
	if _, err := RemoveManagedLines(file, block.Patterns); err != nil {
		return err
	}
	return AppendBlock(file, block)
}

// ManagedLines returns the lines of file.Path selected by patterns without modifying it.
// A missing file yields no lines.
func ManagedLines(path string, patterns []Pattern) ([]string, error) {
	lines, _, err := readLines(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var matched []string
	for _, line := range lines {
		if MatchAny(line, patterns) {
			matched = append(matched, line)
		}
	}
	return matched, nil
}

func readLines(path string) ([]string, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		return nil, false, fmt.Errorf("stat %s: %w", path, err)
	}
	trailingNewline := info.Size() == 0 || endsWithNewline(file, info.Size())

	return lines, trailingNewline, nil
}

func endsWithNewline(file *os.File, size int64) bool {
	buf := make([]byte, 1)
	if _, err := file.ReadAt(buf, size-1); err != nil {
		return true
	}
	return buf[0] == '\n'
}

func trimTrailingBlank(lines []string) []string {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[:end]
}

func writeLines(path string, lines []string, trailingNewline bool) error {
	content := strings.Join(lines, "\n")
	if trailingNewline && len(lines) > 0 {
		content += "\n"
	}
	return writeFileWithSync(path, []byte(content), filePerm(path))
}

// filePerm keeps the mode of an existing file and falls back to 0644 for new ones.
func filePerm(path string) os.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return defaultFilePerm
}

// writeFileWithSync truncates the target file, writes the payload, and fsyncs it.
func writeFileWithSync(path string, data []byte, perm os.FileMode) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}

	return nil
}
