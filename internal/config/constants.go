package config

import "time"

const (
	// DefaultConfigPath is read when neither --config nor BBRCTL_CONFIG is set.
	DefaultConfigPath = "/etc/bbrctl/bbrctl.toml"
	// ConfigEnvVar overrides the configuration file location.
	ConfigEnvVar = "BBRCTL_CONFIG"

	defaultSysctlConf   = "/etc/sysctl.conf"
	defaultLimitsConf   = "/etc/security/limits.conf"
	defaultModulesLoad  = "/etc/modules-load.d/bbr.conf"
	defaultBackupSuffix = ".bak"

	defaultProcSys        = "/proc/sys"
	defaultModulesDir     = "/lib/modules"
	defaultCommandTimeout = 5 * time.Second

	defaultAlgorithm         = "bbr"
	defaultModule            = "tcp_bbr"
	defaultQdisc             = "fq"
	defaultFallbackAlgorithm = "cubic"
)
