package app

import (
	"fmt"

	terr "bbrctl/internal/errors"
	"bbrctl/internal/kernel"
)

// Outcome is the result vocabulary of every mutating operation.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeUnsupportedKernel
	OutcomeActivationVerificationFailed
	OutcomeNothingToRestore
	// OutcomeFailed accompanies a returned error, e.g. a managed file that could not be written.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeUnsupportedKernel:
		return "unsupported kernel"
	case OutcomeActivationVerificationFailed:
		return "activation verification failed"
	case OutcomeNothingToRestore:
		return "nothing to restore"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

// Err returns the sentinel error for a non-success outcome and nil for success.
func (o Outcome) Err() error {
	switch o {
	case OutcomeSuccess:
		return nil
	case OutcomeUnsupportedKernel:
		return terr.ErrUnsupportedKernel
	case OutcomeActivationVerificationFailed:
		return terr.ErrActivationVerificationFailed
	case OutcomeNothingToRestore:
		return terr.ErrNothingToRestore
	case OutcomeFailed:
		return terr.ErrOperationFailed
	default:
		return fmt.Errorf("unknown outcome %d", int(o))
	}
}

// Result describes one finished operation.
type Result struct {
	Operation string
	Outcome   Outcome
	Detail    string
	Block     string
	Kernel    kernel.Version
	Tier      kernel.FeatureTier
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// FileRestore is the restore outcome for one managed file.
type FileRestore struct {
	Path    string
	Backup  string
	Outcome Outcome
}

// RestoreResult lists the per-file restore outcomes.
type RestoreResult struct {
	Files []FileRestore
}

// Restored reports whether at least one file came back from a backup.
func (r RestoreResult) Restored() bool {
	for _, f := range r.Files {
		if f.Outcome == OutcomeSuccess {
			return true
		}
	}
	return false
}
