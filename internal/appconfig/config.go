package appconfig

import (
	"os"
	"path/filepath"

	"github.com/wascc/wcc/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	Lattice       LatticeConfig `mapstructure:"lattice" yaml:"lattice"`
	Console       ConsoleConfig `mapstructure:"console" yaml:"console"`
	SSH           SSHConfig     `mapstructure:"ssh" yaml:"ssh"`
	Drain         DrainConfig   `mapstructure:"drain" yaml:"drain"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// LatticeConfig locates the lattice control plane.
type LatticeConfig struct {
	Host      string `mapstructure:"host" yaml:"host"`
	Port      int    `mapstructure:"port" yaml:"port"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
	TimeoutMS int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

// ConsoleConfig controls the interactive console started by `wash up`.
type ConsoleConfig struct {
	PollIntervalMS     int               `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
	LogLevel           string            `mapstructure:"log_level" yaml:"log_level"`
	LogBufferRecords   int               `mapstructure:"log_buffer_records" yaml:"log_buffer_records"`
	OutputMaxLines     int               `mapstructure:"output_max_lines" yaml:"output_max_lines"`
	LogFile            string            `mapstructure:"log_file" yaml:"log_file"`
	LogFileMaxMB       int               `mapstructure:"log_file_max_mb" yaml:"log_file_max_mb"`
	LogFileMaxBackups  int               `mapstructure:"log_file_max_backups" yaml:"log_file_max_backups"`
	Hostless           bool              `mapstructure:"hostless" yaml:"hostless"`
	HostLabels         map[string]string `mapstructure:"host_labels" yaml:"host_labels"`
	HeartbeatSeconds   int               `mapstructure:"heartbeat_seconds" yaml:"heartbeat_seconds"`
	StopTimeoutSeconds int               `mapstructure:"stop_timeout_seconds" yaml:"stop_timeout_seconds"`
}

// SSHConfig configures the optional remote console.
type SSHConfig struct {
	Addr               string `mapstructure:"addr" yaml:"addr"`
	HostKeyPath        string `mapstructure:"host_key_path" yaml:"host_key_path"`
	AuthorizedKeysPath string `mapstructure:"authorized_keys_path" yaml:"authorized_keys_path"`
}

// DrainConfig locates the local caches removed by `wash drain`.
type DrainConfig struct {
	CacheRoot string `mapstructure:"cache_root" yaml:"cache_root"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Lattice: LatticeConfig{
			Host:      schema.DefaultLatticeHost,
			Port:      schema.DefaultLatticePort,
			Namespace: schema.DefaultNamespace,
			TimeoutMS: int(schema.DefaultTimeout.Milliseconds()),
		},
		Console: ConsoleConfig{
			PollIntervalMS:     50,
			LogLevel:           "debug",
			LogBufferRecords:   5000,
			OutputMaxLines:     10000,
			LogFile:            "",
			LogFileMaxMB:       10,
			LogFileMaxBackups:  3,
			Hostless:           false,
			HostLabels:         map[string]string{schema.ReplModeLabel: "true"},
			HeartbeatSeconds:   30,
			StopTimeoutSeconds: 5,
		},
		SSH: SSHConfig{
			Addr:               "",
			HostKeyPath:        filepath.Join(home, ".wash", "ssh_host_key"),
			AuthorizedKeysPath: filepath.Join(home, ".ssh", "authorized_keys"),
		},
		Drain: DrainConfig{
			CacheRoot: "$TMPDIR",
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".wash", "config.yaml"), nil
}
