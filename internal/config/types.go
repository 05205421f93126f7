package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"bbrctl/internal/confedit"
)

var identPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Duration is a time.Duration decoded from strings such as "5s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the bbrctl configuration.
type Config struct {
	Files      FilesConfig      `toml:"files"`
	Kernel     KernelConfig     `toml:"kernel"`
	Congestion CongestionConfig `toml:"congestion"`
}

// FilesConfig locates the managed files.
type FilesConfig struct {
	SysctlConf   string `toml:"sysctl_conf" validate:"required,startswith=/"`
	LimitsConf   string `toml:"limits_conf" validate:"required,startswith=/"`
	ModulesLoad  string `toml:"modules_load" validate:"required,startswith=/"`
	BackupSuffix string `toml:"backup_suffix" validate:"required,excludes=/"`
}

// KernelConfig locates kernel interfaces.
type KernelConfig struct {
	ProcSys        string   `toml:"proc_sys" validate:"required,startswith=/"`
	ModulesDir     string   `toml:"modules_dir" validate:"required,startswith=/"`
	CommandTimeout Duration `toml:"command_timeout" validate:"gt=0"`
}

// CongestionConfig names the algorithm, its module and the paired qdisc.
type CongestionConfig struct {
	Algorithm         string `toml:"algorithm" validate:"required,kident"`
	Module            string `toml:"module" validate:"required,kident"`
	Qdisc             string `toml:"qdisc" validate:"required,kident"`
	FallbackAlgorithm string `toml:"fallback_algorithm" validate:"required,kident,nefield=Algorithm"`
}

// Default returns Config populated with the stock Linux locations.
func Default() Config {
	return Config{
		Files: FilesConfig{
			SysctlConf:   defaultSysctlConf,
			LimitsConf:   defaultLimitsConf,
			ModulesLoad:  defaultModulesLoad,
			BackupSuffix: defaultBackupSuffix,
		},
		Kernel: KernelConfig{
			ProcSys:        defaultProcSys,
			ModulesDir:     defaultModulesDir,
			CommandTimeout: Duration(defaultCommandTimeout),
		},
		Congestion: CongestionConfig{
			Algorithm:         defaultAlgorithm,
			Module:            defaultModule,
			Qdisc:             defaultQdisc,
			FallbackAlgorithm: defaultFallbackAlgorithm,
		},
	}
}

// ApplyDefaults normalises missing or zero values.
func (c *Config) ApplyDefaults() {
	if c == nil {
		return
	}
	d := Default()

	setIfEmpty(&c.Files.SysctlConf, d.Files.SysctlConf)
	setIfEmpty(&c.Files.LimitsConf, d.Files.LimitsConf)
	setIfEmpty(&c.Files.ModulesLoad, d.Files.ModulesLoad)
	setIfEmpty(&c.Files.BackupSuffix, d.Files.BackupSuffix)

	setIfEmpty(&c.Kernel.ProcSys, d.Kernel.ProcSys)
	setIfEmpty(&c.Kernel.ModulesDir, d.Kernel.ModulesDir)
	if c.Kernel.CommandTimeout <= 0 {
		c.Kernel.CommandTimeout = d.Kernel.CommandTimeout
	}

	setIfEmpty(&c.Congestion.Algorithm, d.Congestion.Algorithm)
	setIfEmpty(&c.Congestion.Module, d.Congestion.Module)
	setIfEmpty(&c.Congestion.Qdisc, d.Congestion.Qdisc)
	setIfEmpty(&c.Congestion.FallbackAlgorithm, d.Congestion.FallbackAlgorithm)
}

func setIfEmpty(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

// Validate checks struct tags first, then cross-field constraints.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("kident", func(fl validator.FieldLevel) bool {
		return identPattern.MatchString(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("register validation: %w", err)
	}

	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config field %s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}

	paths := map[string]string{
		"files.sysctl_conf":  c.Files.SysctlConf,
		"files.limits_conf":  c.Files.LimitsConf,
		"files.modules_load": c.Files.ModulesLoad,
	}
	seen := make(map[string]string, len(paths))
	for name, path := range paths {
		if other, dup := seen[path]; dup {
			return fmt.Errorf("%s and %s both point to %s", name, other, path)
		}
		seen[path] = name
	}
	return nil
}

// CommandTimeout returns the external command timeout.
func (c Config) CommandTimeout() time.Duration {
	return time.Duration(c.Kernel.CommandTimeout)
}

// NetworkFile is the managed kernel parameter file.
func (c Config) NetworkFile() confedit.ManagedFile {
	return confedit.ManagedFile{Path: c.Files.SysctlConf, BackupPath: c.Files.SysctlConf + c.Files.BackupSuffix}
}

// LimitsFile is the managed resource limits file.
func (c Config) LimitsFile() confedit.ManagedFile {
	return confedit.ManagedFile{Path: c.Files.LimitsConf, BackupPath: c.Files.LimitsConf + c.Files.BackupSuffix}
}
