package confedit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	terr "bbrctl/internal/errors"
)

const pristineSysctl = `# /etc/sysctl.conf - Configuration file for setting system variables
kernel.printk = 3 4 1 3
#net.ipv4.tcp_congestion_control = reno
vm.swappiness=10
`

var bbrBlock = Block{
	Comment: "# BBR",
	Patterns: []Pattern{
		Marker("# BBR"),
		Key("net.core.default_qdisc"),
		Key("net.ipv4.tcp_congestion_control"),
	},
	Body: []string{
		"net.core.default_qdisc=fq",
		"net.ipv4.tcp_congestion_control=bbr",
	},
}

func writeTemp(t *testing.T, name, content string) ManagedFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return ManagedFile{Path: path, BackupPath: path + ".bak"}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestReplaceBlockIsIdempotent(t *testing.T) {
	file := writeTemp(t, "sysctl.conf", pristineSysctl)

	require.NoError(t, ReplaceBlock(file, bbrBlock))
	once := readFile(t, file.Path)

	require.NoError(t, ReplaceBlock(file, bbrBlock))
	require.NoError(t, ReplaceBlock(file, bbrBlock))
	assert.Equal(t, once, readFile(t, file.Path))

	want := pristineSysctl + "\n# BBR\nnet.core.default_qdisc=fq\nnet.ipv4.tcp_congestion_control=bbr\n"
	assert.Equal(t, want, once)
}

func TestReplaceBlockWithoutTrailingNewline(t *testing.T) {
	file := writeTemp(t, "sysctl.conf", "vm.swappiness=10")

	require.NoError(t, ReplaceBlock(file, bbrBlock))
	once := readFile(t, file.Path)
	require.NoError(t, ReplaceBlock(file, bbrBlock))

	assert.Equal(t, once, readFile(t, file.Path))
	assert.True(t, strings.HasPrefix(once, "vm.swappiness=10\n\n# BBR\n"))
}

func TestRemoveManagedLinesPreservesUnrelatedContent(t *testing.T) {
	content := "a.b = 1\n# BBR Optimized\nnet.ipv4.tcp_congestion_control = bbr\nc.d = 2\n" +
		"#net.core.default_qdisc=fq\n  net.core.default_qdisc   =   fq  \n\n\n"
	file := writeTemp(t, "sysctl.conf", content)

	removed, err := RemoveManagedLines(file, bbrBlock.Patterns)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Equal(t, "a.b = 1\nc.d = 2\n#net.core.default_qdisc=fq\n", readFile(t, file.Path))
}

func TestRemoveManagedLinesNoMatchLeavesFileUntouched(t *testing.T) {
	file := writeTemp(t, "sysctl.conf", pristineSysctl)
	before, err := os.Stat(file.Path)
	require.NoError(t, err)

	removed, err := RemoveManagedLines(file, bbrBlock.Patterns)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Equal(t, pristineSysctl, readFile(t, file.Path))

	after, err := os.Stat(file.Path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestRemoveManagedLinesTrimsTrailingBlankLines(t *testing.T) {
	file := writeTemp(t, "sysctl.conf", "a=1\n\n\n")

	removed, err := RemoveManagedLines(file, bbrBlock.Patterns)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Equal(t, "a=1\n", readFile(t, file.Path))
}

func TestRemoveManagedLinesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.conf")

	_, err := RemoveManagedLines(ManagedFile{Path: path}, bbrBlock.Patterns)
	require.Error(t, err)
	assert.ErrorIs(t, err, terr.ErrManagedFileMissing)
	assert.NoFileExists(t, path)
}

func TestAppendBlockCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bbr.conf")

	require.NoError(t, AppendBlock(ManagedFile{Path: path}, bbrBlock))
	assert.Equal(t, "\n# BBR\nnet.core.default_qdisc=fq\nnet.ipv4.tcp_congestion_control=bbr\n", readFile(t, path))
}

func TestAppendBlockDoesNotDeduplicate(t *testing.T) {
	file := writeTemp(t, "sysctl.conf", "")

	require.NoError(t, AppendBlock(file, bbrBlock))
	require.NoError(t, AppendBlock(file, bbrBlock))

	lines, err := ManagedLines(file.Path, []Pattern{Marker("# BBR")})
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestAppendBlockKeepsFileMode(t *testing.T) {
	file := writeTemp(t, "limits.conf", "# limits\n")
	require.NoError(t, os.Chmod(file.Path, 0o600))

	require.NoError(t, AppendBlock(file, bbrBlock))

	info, err := os.Stat(file.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestManagedLinesMissingFile(t *testing.T) {
	lines, err := ManagedLines(filepath.Join(t.TempDir(), "none"), bbrBlock.Patterns)
	assert.NoError(t, err)
	assert.Empty(t, lines)
}

func TestBlockHelpers(t *testing.T) {
	assert.Equal(t, []string{"", "# BBR", "net.core.default_qdisc=fq", "net.ipv4.tcp_congestion_control=bbr"}, bbrBlock.Lines())
	assert.True(t, bbrBlock.Contains("tcp_congestion_control"))
	assert.False(t, bbrBlock.Contains("tcp_ecn"))
}

func TestAlternatingBlocksKeepFileStable(t *testing.T) {
	systemBlock := Block{
		Comment:  "# System Optimization",
		Patterns: []Pattern{Marker("# System Optimization"), Key("net.core.somaxconn")},
		Body:     []string{"net.core.somaxconn=65535"},
	}
	file := writeTemp(t, "sysctl.conf", pristineSysctl)

	require.NoError(t, ReplaceBlock(file, bbrBlock))
	require.NoError(t, ReplaceBlock(file, systemBlock))
	once := readFile(t, file.Path)

	for i := 0; i < 3; i++ {
		require.NoError(t, ReplaceBlock(file, bbrBlock))
		require.NoError(t, ReplaceBlock(file, systemBlock))
		assert.Equal(t, once, readFile(t, file.Path), "cycle %d", i)
	}
	assert.NotContains(t, once, "\n\n\n")
}

func TestRemoveManagedLinesDropsSeparatorOfInnerBlock(t *testing.T) {
	content := pristineSysctl + "\n# BBR\nnet.core.default_qdisc=fq\n\n# System Optimization\nnet.core.somaxconn=65535\n"
	file := writeTemp(t, "sysctl.conf", content)

	removed, err := RemoveManagedLines(file, bbrBlock.Patterns)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, pristineSysctl+"\n# System Optimization\nnet.core.somaxconn=65535\n", readFile(t, file.Path))
}

func TestRemoveManagedLinesKeepsBlankAboveKeyLines(t *testing.T) {
	file := writeTemp(t, "sysctl.conf", "a=1\n\nnet.core.default_qdisc=fq\nb=2\n")

	_, err := RemoveManagedLines(file, bbrBlock.Patterns)
	require.NoError(t, err)
	assert.Equal(t, "a=1\n\nb=2\n", readFile(t, file.Path))
}
