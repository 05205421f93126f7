package kernel

import "fmt"

// FeatureTier is the congestion control support level implied by the kernel version.
// Tiers are ordered: a higher tier meets every lower tier's threshold.
type FeatureTier int

const (
	TierUnsupported FeatureTier = iota
	TierV1
	TierV2
	TierV3
)

type threshold struct {
	tier  FeatureTier
	major int
	minor int
}

// thresholds is ordered from the richest tier down.
var thresholds = []threshold{
	{tier: TierV3, major: 6, minor: 1},
	{tier: TierV2, major: 5, minor: 13},
	{tier: TierV1, major: 4, minor: 9},
}

func (t FeatureTier) String() string {
	switch t {
	case TierUnsupported:
		return "unsupported"
	case TierV1:
		return "v1"
	case TierV2:
		return "v2"
	case TierV3:
		return "v3"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Supported reports whether the tier meets the V1 floor.
func (t FeatureTier) Supported() bool {
	return t >= TierV1
}

// DetectTier maps a version onto the highest tier whose threshold it meets.
func DetectTier(v Version) FeatureTier {
	for _, th := range thresholds {
		if v.AtLeast(th.major, th.minor) {
			return th.tier
		}
	}
	return TierUnsupported
}

// MinimumVersion returns the lowest kernel version for the tier.
func MinimumVersion(t FeatureTier) (Version, bool) {
	for _, th := range thresholds {
		if th.tier == t {
			return Version{Major: th.major, Minor: th.minor}, true
		}
	}
	return Version{}, false
}
