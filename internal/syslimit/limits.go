package syslimit

import (
	"fmt"
	"strings"

	"bbrctl/internal/confedit"
)

// Entry is one limits.conf record: <domain> <type> <item> <value>.
type Entry struct {
	Domain string
	Type   string
	Item   string
	Value  string
}

// Line renders the entry in limits.conf column order.
func (e Entry) Line() string {
	return fmt.Sprintf("%s %s %s %s", e.Domain, e.Type, e.Item, e.Value)
}

// Pattern selects any record for the same domain, type and item regardless of value.
func (e Entry) Pattern() confedit.Pattern {
	return confedit.Record(e.Domain, e.Type, e.Item)
}

// Validate checks the entry against the limits.conf grammar this tool writes.
func (e Entry) Validate() error {
	if e.Domain == "" || strings.ContainsAny(e.Domain, " \t") {
		return fmt.Errorf("invalid limits domain %q", e.Domain)
	}
	switch e.Type {
	case "soft", "hard", "-":
	default:
		return fmt.Errorf("invalid limits type %q for %s", e.Type, e.Item)
	}
	if _, ok := resourceNameToRlimit[e.Item]; !ok {
		return fmt.Errorf("unknown limits item %q", e.Item)
	}
	if _, err := parseRlimitValue(e.Value); err != nil {
		return fmt.Errorf("limits entry %s: %w", e.Item, err)
	}
	return nil
}

// DefaultEntries is the fixed file-descriptor and process bundle written by the system optimization.
func DefaultEntries() []Entry {
	return []Entry{
		{Domain: "*", Type: "soft", Item: "nofile", Value: "1048576"},
		{Domain: "*", Type: "hard", Item: "nofile", Value: "1048576"},
		{Domain: "*", Type: "soft", Item: "nproc", Value: "65535"},
		{Domain: "*", Type: "hard", Item: "nproc", Value: "65535"},
		{Domain: "root", Type: "soft", Item: "nofile", Value: "1048576"},
		{Domain: "root", Type: "hard", Item: "nofile", Value: "1048576"},
	}
}
