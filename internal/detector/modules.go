package detector

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"bbrctl/internal/kernel"
)

// Evidence names the source that proved the congestion control module usable.
type Evidence int

const (
	EvidenceNone Evidence = iota
	EvidenceAvailableList
	EvidenceModuleLoaded
	EvidenceModuleFile
)

func (e Evidence) String() string {
	switch e {
	case EvidenceAvailableList:
		return "listed in tcp_available_congestion_control"
	case EvidenceModuleLoaded:
		return "loaded with modprobe"
	case EvidenceModuleFile:
		return "module file present"
	default:
		return "not found"
	}
}

// ModuleGateway is the part of the live parameter gateway the detector consults.
type ModuleGateway interface {
	AvailableCongestionControl() ([]string, error)
	LoadCongestionModule(ctx context.Context) bool
}

// ModuleOptions names what to look for.
type ModuleOptions struct {
	Algorithm  string
	Module     string
	ModulesDir string
}

// ModuleDetector decides whether the congestion control algorithm can be used.
type ModuleDetector struct {
	logger     *slog.Logger
	gateway    ModuleGateway
	algorithm  string
	module     string
	modulesDir string
}

// NewModuleDetector constructs a ModuleDetector.
func NewModuleDetector(logger *slog.Logger, gateway ModuleGateway, opts ModuleOptions) *ModuleDetector {
	if opts.ModulesDir == "" {
		opts.ModulesDir = "/lib/modules"
	}
	return &ModuleDetector{
		logger:     logger,
		gateway:    gateway,
		algorithm:  opts.Algorithm,
		module:     opts.Module,
		modulesDir: opts.ModulesDir,
	}
}

// IsCongestionModuleAvailable reports whether any evidence source shows the algorithm usable.
func (d *ModuleDetector) IsCongestionModuleAvailable(ctx context.Context, v kernel.Version) bool {
	return d.Evidence(ctx, v) != EvidenceNone
}

// FullySupported combines the version floor with module evidence.
func FullySupported(tier kernel.FeatureTier, e Evidence) bool {
	return tier.Supported() && e != EvidenceNone
}

// IsFullySupported requires both the V1 version floor and module availability.
// The module is not probed on kernels below the floor.
func (d *ModuleDetector) IsFullySupported(ctx context.Context, v kernel.Version) bool {
	tier := kernel.DetectTier(v)
	if !tier.Supported() {
		return false
	}
	return FullySupported(tier, d.Evidence(ctx, v))
}

// PassiveEvidence checks the available algorithm list and the module tree but never
// runs modprobe, so it leaves the kernel untouched.
func (d *ModuleDetector) PassiveEvidence(v kernel.Version) Evidence {
	if d.listedAsAvailable() {
		return d.found(EvidenceAvailableList)
	}
	if d.moduleFileExists(v) {
		return d.found(EvidenceModuleFile)
	}
	return EvidenceNone
}

// Evidence checks, in order, the kernel's available algorithm list, a modprobe attempt,
// and the running kernel's module tree. It stops at the first source that succeeds, so
// modprobe only runs when the algorithm is not already available.
func (d *ModuleDetector) Evidence(ctx context.Context, v kernel.Version) Evidence {
	if d.listedAsAvailable() {
		return d.found(EvidenceAvailableList)
	}
	if d.gateway != nil && d.gateway.LoadCongestionModule(ctx) {
		return d.found(EvidenceModuleLoaded)
	}
	if d.moduleFileExists(v) {
		return d.found(EvidenceModuleFile)
	}

	if d.logger != nil {
		d.logger.Debug("congestion control module not available",
			slog.String("algorithm", d.algorithm),
			slog.String("module", d.module),
			slog.String("kernel", v.String()))
	}
	return EvidenceNone
}

func (d *ModuleDetector) found(e Evidence) Evidence {
	if d.logger != nil {
		d.logger.Debug("congestion control module available",
			slog.String("algorithm", d.algorithm),
			slog.String("evidence", e.String()))
	}
	return e
}

func (d *ModuleDetector) listedAsAvailable() bool {
	if d.gateway == nil || d.algorithm == "" {
		return false
	}
	algos, err := d.gateway.AvailableCongestionControl()
	if err != nil {
		if d.logger != nil {
			d.logger.Debug("available congestion control query failed", slog.String("error", err.Error()))
		}
		return false
	}
	return slices.Contains(algos, d.algorithm)
}

// moduleFileExists walks <modulesDir>/<release> for <module>.ko, compressed or not.
func (d *ModuleDetector) moduleFileExists(v kernel.Version) bool {
	if d.module == "" || v.Full == "" {
		return false
	}

	root := filepath.Join(d.modulesDir, v.Full)
	if _, err := os.Stat(root); err != nil {
		return false
	}

	want := d.module + ".ko"
	found := false
	err := filepath.WalkDir(root, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		name := entry.Name()
		if name == want || strings.HasPrefix(name, want+".") {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.SkipAll) && d.logger != nil {
		d.logger.Debug("module tree walk failed", slog.String("root", root), slog.String("error", err.Error()))
	}
	return found
}
