package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"bbrctl/internal/backup"
	"bbrctl/internal/confedit"
	"bbrctl/internal/config"
	"bbrctl/internal/detector"
	terr "bbrctl/internal/errors"
	"bbrctl/internal/kernel"
	"bbrctl/internal/sysctl"
	"bbrctl/internal/tuning"
)

// ParameterGateway reads and writes live kernel parameters.
type ParameterGateway interface {
	ReadParameter(name string) (string, bool, error)
	SetParameter(name, value string) error
	AvailableCongestionControl() ([]string, error)
	ApplyFromFile(ctx context.Context, path string) error
	LoadCongestionModule(ctx context.Context) bool
}

// ModuleDetector decides whether the congestion control algorithm can be used.
// IsFullySupported may load the module; PassiveEvidence never does.
type ModuleDetector interface {
	IsFullySupported(ctx context.Context, v kernel.Version) bool
	PassiveEvidence(v kernel.Version) detector.Evidence
}

// QdiscReporter reports the qdisc attached to the default-route interface.
type QdiscReporter interface {
	RootQdisc() (sysctl.QdiscInfo, error)
}

// Dependencies groups the collaborators of the Orchestrator.
type Dependencies struct {
	Config   config.Config
	Gateway  ParameterGateway
	Detector ModuleDetector
	Qdisc    QdiscReporter
	Backups  *backup.Manager
	Release  kernel.ReleaseFunc
	Logger   *slog.Logger
}

// Orchestrator runs the user-facing operations. Each call re-probes the kernel.
type Orchestrator struct {
	gateway  ParameterGateway
	detector ModuleDetector
	qdisc    QdiscReporter
	backups  *backup.Manager
	release  kernel.ReleaseFunc
	logger   *slog.Logger

	network    confedit.ManagedFile
	limits     confedit.ManagedFile
	autoload   string
	names      tuning.Names
	module     string
	fallbackCC string
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(deps Dependencies) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if deps.Backups == nil {
		deps.Backups = backup.NewManager(deps.Logger)
	}
	cfg := deps.Config
	return &Orchestrator{
		gateway:    deps.Gateway,
		detector:   deps.Detector,
		qdisc:      deps.Qdisc,
		backups:    deps.Backups,
		release:    deps.Release,
		logger:     deps.Logger,
		network:    cfg.NetworkFile(),
		limits:     cfg.LimitsFile(),
		autoload:   cfg.Files.ModulesLoad,
		names:      tuning.Names{Algorithm: cfg.Congestion.Algorithm, Qdisc: cfg.Congestion.Qdisc},
		module:     cfg.Congestion.Module,
		fallbackCC: cfg.Congestion.FallbackAlgorithm,
	}
}

// EnablePlain writes the plain congestion control block.
func (o *Orchestrator) EnablePlain(ctx context.Context) (Result, error) {
	return o.Enable(ctx, tuning.ModePlain)
}

// EnableOptimized writes the optimized congestion control block.
func (o *Orchestrator) EnableOptimized(ctx context.Context) (Result, error) {
	return o.Enable(ctx, tuning.ModeOptimized)
}

// EnableAdvanced writes the richest block the kernel tier supports.
func (o *Orchestrator) EnableAdvanced(ctx context.Context) (Result, error) {
	return o.Enable(ctx, tuning.ModeAdvanced)
}

// Enable checks support, replaces the congestion control block in the network file,
// reloads it and verifies the live algorithm. Unsupported kernels are rejected before
// any file is touched.
func (o *Orchestrator) Enable(ctx context.Context, mode tuning.Mode) (Result, error) {
	result := Result{Operation: "enable_" + string(mode)}
	if err := ctx.Err(); err != nil {
		return o.fail(result, err)
	}

	v := kernel.Probe(o.release)
	tier := kernel.DetectTier(v)
	result.Kernel, result.Tier = v, tier

	if !tier.Supported() {
		floor, _ := kernel.MinimumVersion(kernel.TierV1)
		result.Outcome = OutcomeUnsupportedKernel
		result.Detail = fmt.Sprintf("kernel %s is older than %d.%d", v, floor.Major, floor.Minor)
		o.logOutcome(result)
		return result, nil
	}
	if o.detector != nil && !o.detector.IsFullySupported(ctx, v) {
		result.Outcome = OutcomeUnsupportedKernel
		result.Detail = fmt.Sprintf("%s is not available on kernel %s", o.names.Algorithm, v)
		o.logOutcome(result)
		return result, nil
	}

	block, err := tuning.EnableBlock(mode, o.names, tier)
	if err != nil {
		return o.fail(result, err)
	}
	result.Block = block.Comment

	if err := o.ensureBackup(o.network); err != nil {
		return o.fail(result, err)
	}
	if _, err := confedit.RemoveManagedLines(o.network, tuning.CongestionPatterns()); err != nil {
		return o.fail(result, err)
	}

	if o.gateway.LoadCongestionModule(ctx) {
		if err := confedit.WriteUnit(o.autoload, o.module); err != nil {
			terr.Log(o.logger, "module autoload registration failed",
				terr.WrapRecoverable(err, "register_autoload", terr.ErrorContext{Module: o.module}),
				terr.CategoryRecoverable)
		}
	}

	if err := confedit.AppendBlock(o.network, block); err != nil {
		return o.fail(result, err)
	}

	o.reload(ctx)

	actual, _, err := o.gateway.ReadParameter(sysctl.CongestionControlParam)
	if err != nil {
		terr.Log(o.logger, "reading live congestion control failed", err, terr.CategoryRecoverable)
	}
	if actual != o.names.Algorithm {
		result.Outcome = OutcomeActivationVerificationFailed
		result.Detail = fmt.Sprintf("expected %s=%s, kernel reports %q",
			sysctl.CongestionControlParam, o.names.Algorithm, actual)
		o.logOutcome(result)
		return result, nil
	}

	result.Outcome = OutcomeSuccess
	result.Detail = fmt.Sprintf("%s active with %s block", o.names.Algorithm, block.Comment)
	o.logOutcome(result)
	return result, nil
}

// Disable removes every congestion control line this tool may have written, reloads,
// falls back to the kernel default algorithm and drops the module autoload registration.
// Running it when nothing is configured, or when the network file does not exist, is a
// no-op that still succeeds.
func (o *Orchestrator) Disable(ctx context.Context) (Result, error) {
	result := Result{Operation: "disable"}
	if err := ctx.Err(); err != nil {
		return o.fail(result, err)
	}

	removed := 0
	if _, err := os.Stat(o.network.Path); errors.Is(err, fs.ErrNotExist) {
		o.logger.Info("network file absent, nothing to remove", slog.String("path", o.network.Path))
	} else {
		if err := o.ensureBackup(o.network); err != nil {
			return o.fail(result, err)
		}
		n, err := confedit.RemoveManagedLines(o.network, tuning.CongestionPatterns())
		if err != nil {
			return o.fail(result, err)
		}
		removed = n
		o.reload(ctx)
	}

	if current, ok, _ := o.gateway.ReadParameter(sysctl.CongestionControlParam); ok && current == o.names.Algorithm {
		if err := o.gateway.SetParameter(sysctl.CongestionControlParam, o.fallbackCC); err != nil {
			terr.Log(o.logger, "fallback congestion control not applied", err, terr.CategoryRecoverable)
		}
	}

	if _, err := confedit.RemoveUnit(o.autoload); err != nil {
		terr.Log(o.logger, "module autoload registration not removed", err, terr.CategoryRecoverable)
	}

	result.Outcome = OutcomeSuccess
	result.Detail = fmt.Sprintf("removed %d managed lines", removed)
	o.logOutcome(result)
	return result, nil
}

// OptimizeSystem replaces the fixed tuning block in the network file and the fixed
// resource limits block in the limits file. Limits only reach new sessions.
func (o *Orchestrator) OptimizeSystem(ctx context.Context) (Result, error) {
	result := Result{Operation: "optimize_system"}
	if err := ctx.Err(); err != nil {
		return o.fail(result, err)
	}

	limits, err := tuning.LimitsBlock()
	if err != nil {
		return o.fail(result, err)
	}

	for _, file := range []confedit.ManagedFile{o.network, o.limits} {
		if err := o.ensureBackup(file); err != nil {
			return o.fail(result, err)
		}
	}

	system := tuning.SystemBlock()
	if err := confedit.ReplaceBlock(o.network, system); err != nil {
		return o.fail(result, err)
	}
	o.reload(ctx)

	if err := confedit.ReplaceBlock(o.limits, limits); err != nil {
		return o.fail(result, err)
	}

	result.Outcome = OutcomeSuccess
	result.Block = system.Comment
	result.Detail = "limits apply to new login sessions"
	o.logOutcome(result)
	return result, nil
}

// Restore copies each backup over its managed file, drops the module autoload
// registration and reloads the network file. A missing backup is reported per file.
func (o *Orchestrator) Restore(ctx context.Context) (RestoreResult, error) {
	if err := ctx.Err(); err != nil {
		return RestoreResult{}, err
	}

	var result RestoreResult
	var errs terr.MultiError
	for _, file := range []confedit.ManagedFile{o.network, o.limits} {
		entry := FileRestore{Path: file.Path, Backup: file.BackupPath, Outcome: OutcomeSuccess}
		if err := o.backups.Restore(file); err != nil {
			entry.Outcome = OutcomeNothingToRestore
			if !errors.Is(err, terr.ErrNothingToRestore) {
				entry.Outcome = OutcomeFailed
				errs.Add(err)
			}
		}
		result.Files = append(result.Files, entry)
	}

	if _, err := confedit.RemoveUnit(o.autoload); err != nil {
		terr.Log(o.logger, "module autoload registration not removed", err, terr.CategoryRecoverable)
	}

	o.reload(ctx)

	if o.logger != nil {
		for _, f := range result.Files {
			o.logger.Info("restore finished", slog.String("path", f.Path), slog.String("outcome", f.Outcome.String()))
		}
	}
	return result, errs.ErrorOrNil()
}

// QuickSetup enables the optimized block and, only if that succeeded, optimizes the system.
func (o *Orchestrator) QuickSetup(ctx context.Context) ([]Result, error) {
	first, err := o.EnableOptimized(ctx)
	if err != nil || !first.OK() {
		return []Result{first}, err
	}

	second, err := o.OptimizeSystem(ctx)
	return []Result{first, second}, err
}

// fail marks result as failed and logs err with its category.
func (o *Orchestrator) fail(result Result, err error) (Result, error) {
	result.Outcome = OutcomeFailed
	result.Detail = err.Error()
	terr.Log(o.logger, result.Operation+" failed", err, terr.CategoryCritical)
	return result, err
}

func (o *Orchestrator) ensureBackup(file confedit.ManagedFile) error {
	_, err := o.backups.EnsureBackup(file)
	return err
}

// reload applies the network file. Failure is logged; callers verify live state themselves.
func (o *Orchestrator) reload(ctx context.Context) {
	if err := o.gateway.ApplyFromFile(ctx, o.network.Path); err != nil {
		terr.Log(o.logger, "kernel parameter reload failed", err, terr.CategoryRecoverable)
	}
}

func (o *Orchestrator) logOutcome(r Result) {
	if o.logger == nil {
		return
	}
	attrs := []any{
		slog.String("operation", r.Operation),
		slog.String("outcome", r.Outcome.String()),
	}
	if r.Kernel.Full != "" {
		attrs = append(attrs, slog.String("kernel", r.Kernel.Full), slog.String("tier", r.Tier.String()))
	}
	if r.Detail != "" {
		attrs = append(attrs, slog.String("detail", r.Detail))
	}
	if r.OK() {
		o.logger.Info("operation finished", attrs...)
	} else {
		o.logger.Warn("operation finished", attrs...)
	}
}
