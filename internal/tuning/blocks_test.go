package tuning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bbrctl/internal/confedit"
	"bbrctl/internal/kernel"
	"bbrctl/internal/syslimit"
)

var names = Names{Algorithm: "bbr", Qdisc: "fq"}

func TestParseMode(t *testing.T) {
	for input, want := range map[string]Mode{
		"":          ModePlain,
		"plain":     ModePlain,
		"O":         ModeOptimized,
		"optimized": ModeOptimized,
		" adv ":     ModeAdvanced,
	} {
		got, err := ParseMode(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseMode("turbo")
	assert.Error(t, err)
}

func TestAdvancedBlockByTier(t *testing.T) {
	tests := []struct {
		tier    kernel.FeatureTier
		comment string
		ecn     bool
		lowat   bool
	}{
		{tier: kernel.TierV1, comment: "# BBR Advanced"},
		{tier: kernel.TierV2, comment: "# BBRv2 Advanced", lowat: true},
		{tier: kernel.TierV3, comment: "# BBRv3 Advanced", lowat: true, ecn: true},
	}

	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			block, ok := AdvancedBlock(names, tt.tier)
			require.True(t, ok)
			assert.Equal(t, tt.comment, block.Comment)
			assert.Equal(t, tt.ecn, block.Contains("net.ipv4.tcp_ecn=1"))
			assert.Equal(t, tt.lowat, block.Contains("tcp_notsent_lowat"))
			assert.True(t, block.Contains("net.ipv4.tcp_congestion_control=bbr"))
		})
	}

	_, ok := AdvancedBlock(names, kernel.TierUnsupported)
	assert.False(t, ok)
}

func TestV1AdvancedBlockHasNoECN(t *testing.T) {
	block, ok := AdvancedBlock(names, kernel.TierV1)
	require.True(t, ok)
	assert.False(t, block.Contains("tcp_ecn"))
}

func TestEnableBlocksAreRemovedByCongestionPatterns(t *testing.T) {
	blocks := []confedit.Block{PlainBlock(names), OptimizedBlock(names)}
	for _, tier := range []kernel.FeatureTier{kernel.TierV1, kernel.TierV2, kernel.TierV3} {
		block, ok := AdvancedBlock(names, tier)
		require.True(t, ok)
		blocks = append(blocks, block)
	}

	patterns := CongestionPatterns()
	for _, block := range blocks {
		for _, line := range block.Lines()[1:] {
			assert.True(t, confedit.MatchAny(line, patterns), "%q survives disable", line)
		}
	}
}

func TestSystemBlocksDoNotOverlapCongestionBlock(t *testing.T) {
	congestion := CongestionPatterns()
	for _, line := range SystemBlock().Body {
		assert.False(t, confedit.MatchAny(line, congestion), line)
	}
	for _, line := range OptimizedBlock(names).Body {
		assert.False(t, confedit.MatchAny(line, SystemBlock().Patterns), line)
	}
}

func TestSystemAndLimitsBlocksSelectOwnLines(t *testing.T) {
	limits, err := LimitsBlock()
	require.NoError(t, err)

	for _, block := range []confedit.Block{SystemBlock(), limits} {
		for _, line := range block.Lines()[1:] {
			assert.True(t, confedit.MatchAny(line, block.Patterns), line)
		}
	}
	assert.Contains(t, limits.Body, "* soft nofile 1048576")
	assert.Equal(t, limits.Patterns, LimitsPatterns())
}

func TestLimitsBlockRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry syslimit.Entry
	}{
		{name: "bad type", entry: syslimit.Entry{Domain: "*", Type: "medium", Item: "nofile", Value: "1024"}},
		{name: "unknown item", entry: syslimit.Entry{Domain: "*", Type: "soft", Item: "sockets", Value: "1024"}},
		{name: "bad value", entry: syslimit.Entry{Domain: "*", Type: "hard", Item: "nproc", Value: "lots"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := append(syslimit.DefaultEntries(), tt.entry)
			_, err := limitsBlock(entries)
			assert.Error(t, err)
		})
	}
}

func TestEnableBlock(t *testing.T) {
	block, err := EnableBlock(ModeOptimized, names, kernel.TierV1)
	require.NoError(t, err)
	assert.Equal(t, "# BBR Optimized", block.Comment)

	_, err = EnableBlock(ModeAdvanced, names, kernel.TierUnsupported)
	assert.Error(t, err)

	_, err = EnableBlock(Mode("bogus"), names, kernel.TierV3)
	assert.Error(t, err)
}
