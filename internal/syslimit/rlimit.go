package syslimit

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ProcessLimit is the soft and hard value of one resource limit of the current process.
type ProcessLimit struct {
	Name string
	Soft string
	Hard string
}

const unlimited = ^uint64(0) // RLIM_INFINITY

// resourceNameToRlimit maps limits.conf item names to their unix constants.
var resourceNameToRlimit = map[string]int{
	"nofile":     unix.RLIMIT_NOFILE,
	"nproc":      unix.RLIMIT_NPROC,
	"core":       unix.RLIMIT_CORE,
	"stack":      unix.RLIMIT_STACK,
	"cpu":        unix.RLIMIT_CPU,
	"memlock":    unix.RLIMIT_MEMLOCK,
	"as":         unix.RLIMIT_AS,
	"data":       unix.RLIMIT_DATA,
	"fsize":      unix.RLIMIT_FSIZE,
	"msgqueue":   unix.RLIMIT_MSGQUEUE,
	"sigpending": unix.RLIMIT_SIGPENDING,
	"locks":      unix.RLIMIT_LOCKS,
}

// parseRlimitValue converts a string value to uint64, supporting "unlimited" and "infinity".
func parseRlimitValue(value string) (uint64, error) {
	value = strings.TrimSpace(value)
	if value == "unlimited" || value == "infinity" {
		return unlimited, nil
	}

	val, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rlimit value %q: %w", value, err)
	}
	return val, nil
}

func formatRlimitValue(value uint64) string {
	if value == unlimited {
		return "unlimited"
	}
	return strconv.FormatUint(value, 10)
}

// ReadProcessLimits reports the current process limits for the named items.
// Limits in limits.conf apply to new sessions only, so these show what this session got.
func ReadProcessLimits(items ...string) ([]ProcessLimit, error) {
	limits := make([]ProcessLimit, 0, len(items))
	for _, item := range items {
		resource, ok := resourceNameToRlimit[item]
		if !ok {
			return nil, fmt.Errorf("unknown rlimit %q", item)
		}

		var current unix.Rlimit
		if err := unix.Getrlimit(resource, &current); err != nil {
			return nil, fmt.Errorf("getrlimit %s: %w", item, err)
		}

		limits = append(limits, ProcessLimit{
			Name: item,
			Soft: formatRlimitValue(current.Cur),
			Hard: formatRlimitValue(current.Max),
		})
	}
	return limits, nil
}
