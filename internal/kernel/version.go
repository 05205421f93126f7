package kernel

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Version is the running kernel's release reduced to the parts tier detection uses.
type Version struct {
	Major int
	Minor int
	Full  string
}

func (v Version) String() string {
	if v.Full != "" {
		return v.Full
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast compares (major, minor) lexicographically.
func (v Version) AtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// ReleaseFunc returns the raw kernel release string, e.g. "5.15.0-91-generic".
type ReleaseFunc func() string

// UnameRelease reads the release field of uname(2). It returns "" when the call fails.
func UnameRelease() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return unix.ByteSliceToString(uts.Release[:])
}

// Probe reads the release through fn and parses it. A nil fn uses UnameRelease.
func Probe(fn ReleaseFunc) Version {
	if fn == nil {
		fn = UnameRelease
	}
	return ParseRelease(fn())
}

// ParseRelease drops everything from the first hyphen and splits the rest on dots.
// Missing or non-numeric components read as 0.
func ParseRelease(release string) Version {
	release = strings.TrimSpace(release)
	v := Version{Full: release}

	dotted := release
	if idx := strings.IndexByte(dotted, '-'); idx >= 0 {
		dotted = dotted[:idx]
	}

	parts := strings.Split(dotted, ".")
	v.Major = leadingInt(parts[0])
	if len(parts) > 1 {
		v.Minor = leadingInt(parts[1])
	}
	return v
}

// leadingInt parses the leading decimal digits of s ("15+" -> 15).
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
