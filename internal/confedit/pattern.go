package confedit

import "strings"

type patternKind int

const (
	patternMarker patternKind = iota
	patternKey
	patternRecord
)

// Pattern selects lines written by this tool.
type Pattern struct {
	kind   patternKind
	value  string
	fields []string
}

// Marker matches comment lines that start with prefix once surrounding whitespace is trimmed.
func Marker(prefix string) Pattern {
	return Pattern{kind: patternMarker, value: strings.TrimSpace(prefix)}
}

// Key matches "key = value" and "key=value" records whose key is name.
// Commented-out records never match.
func Key(name string) Pattern {
	return Pattern{kind: patternKey, value: strings.TrimSpace(name)}
}

// Record matches whitespace-separated records whose leading fields equal fields,
// e.g. Record("*", "soft", "nofile") for a limits.conf entry.
func Record(fields ...string) Pattern {
	return Pattern{kind: patternRecord, fields: fields, value: strings.Join(fields, " ")}
}

func (p Pattern) String() string {
	return p.value
}

// Match reports whether line is selected by the pattern.
func (p Pattern) Match(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	switch p.kind {
	case patternMarker:
		return p.value != "" && strings.HasPrefix(trimmed, p.value)
	case patternKey:
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
			return false
		}
		return p.value != "" && extractKey(trimmed) == p.value
	case patternRecord:
		if len(p.fields) == 0 || strings.HasPrefix(trimmed, "#") {
			return false
		}
		fields := strings.Fields(trimmed)
		if len(fields) < len(p.fields) {
			return false
		}
		for i, f := range p.fields {
			if fields[i] != f {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// MatchAny reports whether at least one pattern selects line.
func MatchAny(line string, patterns []Pattern) bool {
	_, ok := firstMatch(line, patterns)
	return ok
}

func firstMatch(line string, patterns []Pattern) (Pattern, bool) {
	for _, p := range patterns {
		if p.Match(line) {
			return p, true
		}
	}
	return Pattern{}, false
}

// extractKey extracts the parameter key from a sysctl.conf line.
func extractKey(line string) string {
	if idx := strings.Index(line, "#"); idx > 0 {
		line = strings.TrimSpace(line[:idx])
	}

	// sysctl.conf allows a leading "-" to ignore failures for that key.
	line = strings.TrimPrefix(line, "-")

	if idx := strings.Index(line, "="); idx > 0 {
		return strings.TrimSpace(line[:idx])
	}

	fields := strings.Fields(line)
	if len(fields) >= 2 {
		return fields[0]
	}

	return ""
}
