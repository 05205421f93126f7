package syslimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEntriesAreValid(t *testing.T) {
	entries := DefaultEntries()
	require.NotEmpty(t, entries)

	seen := make(map[string]bool)
	for _, e := range entries {
		assert.NoError(t, e.Validate(), e.Line())
		assert.True(t, e.Pattern().Match(e.Line()))

		key := e.Pattern().String()
		assert.False(t, seen[key], "duplicate entry %s", key)
		seen[key] = true
	}
}

func TestEntryPatternIgnoresValue(t *testing.T) {
	e := Entry{Domain: "*", Type: "soft", Item: "nofile", Value: "1048576"}
	assert.True(t, e.Pattern().Match("*  soft  nofile  4096"))
	assert.False(t, e.Pattern().Match("*  hard  nofile  4096"))
	assert.Equal(t, "* soft nofile 1048576", e.Line())
}

func TestEntryValidate(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		ok    bool
	}{
		{name: "unlimited", entry: Entry{Domain: "@admin", Type: "-", Item: "memlock", Value: "unlimited"}, ok: true},
		{name: "bad type", entry: Entry{Domain: "*", Type: "both", Item: "nofile", Value: "1"}},
		{name: "bad item", entry: Entry{Domain: "*", Type: "soft", Item: "files", Value: "1"}},
		{name: "bad value", entry: Entry{Domain: "*", Type: "soft", Item: "nofile", Value: "lots"}},
		{name: "empty domain", entry: Entry{Type: "soft", Item: "nofile", Value: "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRlimitValueRoundTrip(t *testing.T) {
	v, err := parseRlimitValue("unlimited")
	require.NoError(t, err)
	assert.Equal(t, "unlimited", formatRlimitValue(v))

	v, err = parseRlimitValue(" 65535 ")
	require.NoError(t, err)
	assert.Equal(t, "65535", formatRlimitValue(v))
}

func TestReadProcessLimits(t *testing.T) {
	limits, err := ReadProcessLimits("nofile", "nproc")
	require.NoError(t, err)
	require.Len(t, limits, 2)
	assert.Equal(t, "nofile", limits[0].Name)
	assert.NotEmpty(t, limits[0].Soft)
	assert.NotEmpty(t, limits[0].Hard)

	_, err = ReadProcessLimits("bogus")
	assert.Error(t, err)
}
