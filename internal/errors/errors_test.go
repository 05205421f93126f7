package errors

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWriteErrorMatchesSentinels(t *testing.T) {
	err := FileWriteError(fs.ErrPermission, "/etc/sysctl.conf", "append_block")
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrFileWrite)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.Equal(t, CategoryCritical, CategoryOf(err, CategoryOptional))
	assert.Contains(t, err.Error(), "/etc/sysctl.conf")

	assert.NoError(t, FileWriteError(nil, "/x", "noop"))
}

func TestMergeDoesNotAliasExtra(t *testing.T) {
	base := ErrorContext{Operation: "reload", Extra: map[string]any{"a": 1}}
	merged := base.Merge(ErrorContext{Path: "/etc/sysctl.conf", Extra: map[string]any{"b": 2}})

	assert.Equal(t, "reload", merged.Operation)
	assert.Equal(t, "/etc/sysctl.conf", merged.Path)
	assert.Len(t, merged.Extra, 2)
	assert.Len(t, base.Extra, 1)
}

func TestMultiError(t *testing.T) {
	var errs MultiError
	assert.NoError(t, errs.ErrorOrNil())

	errs.Add(nil)
	errs.Add(ErrNothingToRestore)
	errs.Add(errors.New("second"))

	err := errs.ErrorOrNil()
	require.Error(t, err)
	assert.Equal(t, 2, errs.Len())
	assert.ErrorIs(t, err, ErrNothingToRestore)
	assert.Equal(t, "2 errors: "+ErrNothingToRestore.Error()+"; second", err.Error())

	var single MultiError
	single.Add(FileWriteError(errors.New("disk full"), "/etc/sysctl.conf", "append_block"))
	assert.ErrorIs(t, single.ErrorOrNil(), ErrFileWrite)
	var typed *Error
	require.ErrorAs(t, single.ErrorOrNil(), &typed)
	assert.Equal(t, CategoryCritical, typed.Category)
	assert.Equal(t, typed.Error(), single.Error())
}

func TestCategoryOfFallback(t *testing.T) {
	assert.Equal(t, CategoryRecoverable, CategoryOf(errors.New("plain"), CategoryRecoverable))
	wrapped := WrapRecoverable(errors.New("x"), "op", ErrorContext{Module: "tcp_bbr"})
	assert.Equal(t, CategoryRecoverable, CategoryOf(wrapped, CategoryCritical))
	assert.Equal(t, "tcp_bbr", wrapped.Context.Module)
}
