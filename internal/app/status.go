package app

import (
	"context"
	"slices"

	"bbrctl/internal/confedit"
	"bbrctl/internal/detector"
	"bbrctl/internal/kernel"
	"bbrctl/internal/sysctl"
	"bbrctl/internal/syslimit"
	"bbrctl/internal/tuning"
)

// Parameter is a live kernel parameter; Set is false when the kernel does not expose it.
type Parameter struct {
	Name  string
	Value string
	Set   bool
}

// Status is a read-only snapshot of congestion control support and state.
type Status struct {
	Kernel            kernel.Version
	Tier              kernel.FeatureTier
	Evidence          detector.Evidence
	FullySupported    bool
	Algorithm         string
	CongestionControl Parameter
	DefaultQdisc      Parameter
	Available         []string
	InterfaceQdisc    sysctl.QdiscInfo
	InterfaceQdiscErr string
	Configured        bool
	Active            bool
	ProcessLimits     []syslimit.ProcessLimit
}

// Status gathers kernel, detector and live parameter state without modifying anything:
// module evidence comes from PassiveEvidence, so no module is loaded. It never fails;
// anything that cannot be read is reported as not configured.
func (o *Orchestrator) Status(_ context.Context) Status {
	v := kernel.Probe(o.release)
	st := Status{
		Kernel:    v,
		Tier:      kernel.DetectTier(v),
		Algorithm: o.names.Algorithm,
	}

	if o.detector != nil {
		st.Evidence = o.detector.PassiveEvidence(v)
	}
	st.FullySupported = detector.FullySupported(st.Tier, st.Evidence)

	st.CongestionControl = o.readParameter(sysctl.CongestionControlParam)
	st.DefaultQdisc = o.readParameter(sysctl.DefaultQdiscParam)
	st.Active = st.CongestionControl.Set && st.CongestionControl.Value == o.names.Algorithm

	if algos, err := o.gateway.AvailableCongestionControl(); err == nil {
		st.Available = algos
		slices.Sort(st.Available)
	}

	if o.qdisc != nil {
		info, err := o.qdisc.RootQdisc()
		st.InterfaceQdisc = info
		if err != nil {
			st.InterfaceQdiscErr = err.Error()
		}
	}

	if lines, err := confedit.ManagedLines(o.network.Path, tuning.CongestionPatterns()); err == nil {
		st.Configured = len(lines) > 0
	}

	if limits, err := syslimit.ReadProcessLimits("nofile", "nproc"); err == nil {
		st.ProcessLimits = limits
	}

	return st
}

func (o *Orchestrator) readParameter(name string) Parameter {
	value, ok, err := o.gateway.ReadParameter(name)
	if err != nil && o.logger != nil {
		o.logger.Debug("parameter read failed", "parameter", name, "error", err.Error())
	}
	return Parameter{Name: name, Value: value, Set: ok && err == nil}
}

// FileView lists the tool-managed lines of one file.
type FileView struct {
	Path         string
	BackupPath   string
	BackupExists bool
	Lines        []string
	Err          string
}

// ConfigView is a read-only listing of everything this tool manages on disk.
type ConfigView struct {
	Network         FileView
	Limits          FileView
	AutoloadPath    string
	AutoloadPresent bool
}

// ViewConfig reads the managed files without modifying them.
func (o *Orchestrator) ViewConfig() ConfigView {
	networkPatterns := append(tuning.CongestionPatterns(), tuning.SystemBlock().Patterns...)
	return ConfigView{
		Network:         o.fileView(o.network, networkPatterns),
		Limits:          o.fileView(o.limits, tuning.LimitsPatterns()),
		AutoloadPath:    o.autoload,
		AutoloadPresent: confedit.UnitExists(o.autoload),
	}
}

func (o *Orchestrator) fileView(file confedit.ManagedFile, patterns []confedit.Pattern) FileView {
	view := FileView{
		Path:         file.Path,
		BackupPath:   file.BackupPath,
		BackupExists: o.backups.Exists(file),
	}
	lines, err := confedit.ManagedLines(file.Path, patterns)
	if err != nil {
		view.Err = err.Error()
		return view
	}
	view.Lines = lines
	return view
}
