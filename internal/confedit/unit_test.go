package confedit

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bbr.conf")
	assert.False(t, UnitExists(path))

	require.NoError(t, WriteUnit(path, "tcp_bbr"))
	assert.Equal(t, "tcp_bbr\n", readFile(t, path))

	require.NoError(t, WriteUnit(path, "tcp_bbr"))
	assert.Equal(t, "tcp_bbr\n", readFile(t, path))

	existed, err := RemoveUnit(path)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = RemoveUnit(path)
	require.NoError(t, err)
	assert.False(t, existed)
}
