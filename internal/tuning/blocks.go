package tuning

import (
	"fmt"
	"strings"

	"bbrctl/internal/confedit"
	"bbrctl/internal/kernel"
	"bbrctl/internal/syslimit"
)

// Mode selects which congestion control block an enable operation writes.
type Mode string

const (
	ModePlain     Mode = "plain"
	ModeOptimized Mode = "optimized"
	ModeAdvanced  Mode = "advanced"
)

// ParseMode accepts the mode names and their first letters.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "p", string(ModePlain):
		return ModePlain, nil
	case "o", "opt", string(ModeOptimized):
		return ModeOptimized, nil
	case "a", "adv", string(ModeAdvanced):
		return ModeAdvanced, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want plain, optimized or advanced)", s)
	}
}

const (
	congestionMarker = "# BBR"
	systemMarker     = "# System Optimization"

	keyDefaultQdisc       = "net.core.default_qdisc"
	keyCongestionControl  = "net.ipv4.tcp_congestion_control"
	keyNotsentLowat       = "net.ipv4.tcp_notsent_lowat"
	keySlowStartAfterIdle = "net.ipv4.tcp_slow_start_after_idle"
	keyMTUProbing         = "net.ipv4.tcp_mtu_probing"
	keyFastOpen           = "net.ipv4.tcp_fastopen"
	keyECN                = "net.ipv4.tcp_ecn"
)

// congestionKeys covers every key any enable variant writes.
var congestionKeys = []string{
	keyDefaultQdisc,
	keyCongestionControl,
	keyNotsentLowat,
	keySlowStartAfterIdle,
	keyMTUProbing,
	keyFastOpen,
	keyECN,
}

// systemParams is the fixed network and file-descriptor tuning bundle.
var systemParams = [][2]string{
	{"net.core.rmem_max", "67108864"},
	{"net.core.wmem_max", "67108864"},
	{"net.core.rmem_default", "262144"},
	{"net.core.wmem_default", "262144"},
	{"net.ipv4.tcp_rmem", "4096 87380 67108864"},
	{"net.ipv4.tcp_wmem", "4096 65536 67108864"},
	{"net.core.somaxconn", "65535"},
	{"net.core.netdev_max_backlog", "16384"},
	{"net.ipv4.tcp_max_syn_backlog", "8192"},
	{"net.ipv4.ip_local_port_range", "1024 65535"},
	{"net.ipv4.tcp_fin_timeout", "15"},
	{"net.ipv4.tcp_tw_reuse", "1"},
	{"net.ipv4.tcp_keepalive_time", "600"},
	{"net.ipv4.tcp_keepalive_intvl", "30"},
	{"net.ipv4.tcp_keepalive_probes", "5"},
	{"net.ipv4.tcp_max_tw_buckets", "2000000"},
	{"fs.file-max", "2097152"},
	{"fs.nr_open", "2097152"},
}

// Names carries the algorithm and qdisc identifiers written into the blocks.
type Names struct {
	Algorithm string
	Qdisc     string
}

func param(key, value string) string {
	return key + "=" + value
}

// CongestionPatterns selects the output of every enable variant, so switching
// between modes or disabling leaves no stale lines behind.
func CongestionPatterns() []confedit.Pattern {
	patterns := []confedit.Pattern{confedit.Marker(congestionMarker)}
	for _, key := range congestionKeys {
		patterns = append(patterns, confedit.Key(key))
	}
	return patterns
}

func baseBody(n Names) []string {
	return []string{
		param(keyDefaultQdisc, n.Qdisc),
		param(keyCongestionControl, n.Algorithm),
	}
}

// PlainBlock sets only the qdisc and the algorithm.
func PlainBlock(n Names) confedit.Block {
	return confedit.Block{
		Comment:  congestionMarker,
		Patterns: CongestionPatterns(),
		Body:     baseBody(n),
	}
}

// OptimizedBlock adds latency-oriented TCP settings to the plain block.
func OptimizedBlock(n Names) confedit.Block {
	body := append(baseBody(n),
		param(keyNotsentLowat, "16384"),
		param(keySlowStartAfterIdle, "0"),
		param(keyMTUProbing, "1"),
		param(keyFastOpen, "3"),
	)
	return confedit.Block{
		Comment:  congestionMarker + " Optimized",
		Patterns: CongestionPatterns(),
		Body:     body,
	}
}

// AdvancedBlock picks the richest block the tier allows. The algorithm value is the same
// for every tier; the tier label in the comment is informational.
func AdvancedBlock(n Names, tier kernel.FeatureTier) (confedit.Block, bool) {
	if !tier.Supported() {
		return confedit.Block{}, false
	}

	label := congestionMarker
	body := append(baseBody(n),
		param(keyFastOpen, "3"),
		param(keyMTUProbing, "1"),
	)

	if tier >= kernel.TierV2 {
		label = congestionMarker + "v2"
		body = append(body,
			param(keyNotsentLowat, "16384"),
			param(keySlowStartAfterIdle, "0"),
		)
	}
	if tier >= kernel.TierV3 {
		label = congestionMarker + "v3"
		body = append(body, param(keyECN, "1"))
	}

	return confedit.Block{
		Comment:  label + " Advanced",
		Patterns: CongestionPatterns(),
		Body:     body,
	}, true
}

// EnableBlock returns the block an enable operation in mode writes on a kernel of tier.
func EnableBlock(mode Mode, n Names, tier kernel.FeatureTier) (confedit.Block, error) {
	switch mode {
	case ModePlain:
		return PlainBlock(n), nil
	case ModeOptimized:
		return OptimizedBlock(n), nil
	case ModeAdvanced:
		block, ok := AdvancedBlock(n, tier)
		if !ok {
			return confedit.Block{}, fmt.Errorf("no advanced block for tier %s", tier)
		}
		return block, nil
	default:
		return confedit.Block{}, fmt.Errorf("unknown mode %q", mode)
	}
}

// SystemBlock is the network-file half of the system optimization.
func SystemBlock() confedit.Block {
	patterns := []confedit.Pattern{confedit.Marker(systemMarker)}
	body := make([]string, 0, len(systemParams))
	for _, kv := range systemParams {
		patterns = append(patterns, confedit.Key(kv[0]))
		body = append(body, param(kv[0], kv[1]))
	}
	return confedit.Block{
		Comment:  systemMarker,
		Patterns: patterns,
		Body:     body,
	}
}

// LimitsBlock is the limits-file half of the system optimization. Every entry is
// validated before the block is handed out for writing.
func LimitsBlock() (confedit.Block, error) {
	return limitsBlock(syslimit.DefaultEntries())
}

// LimitsPatterns selects every line LimitsBlock writes.
func LimitsPatterns() []confedit.Pattern {
	return limitsPatterns(syslimit.DefaultEntries())
}

func limitsBlock(entries []syslimit.Entry) (confedit.Block, error) {
	body := make([]string, 0, len(entries))
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return confedit.Block{}, err
		}
		body = append(body, e.Line())
	}
	return confedit.Block{
		Comment:  systemMarker,
		Patterns: limitsPatterns(entries),
		Body:     body,
	}, nil
}

func limitsPatterns(entries []syslimit.Entry) []confedit.Pattern {
	patterns := []confedit.Pattern{confedit.Marker(systemMarker)}
	for _, e := range entries {
		patterns = append(patterns, e.Pattern())
	}
	return patterns
}
