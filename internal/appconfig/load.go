package appconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/wascc/wcc/internal/logsink"
	"github.com/wascc/wcc/schema"
)

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"lattice.host":      "WASH_RPC_HOST",
	"lattice.port":      "WASH_RPC_PORT",
	"lattice.namespace": "WASH_NAMESPACE",
	"console.log_level": "WASH_LOG_LEVEL",
}

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("lattice.host", cfg.Lattice.Host)
	v.SetDefault("lattice.port", cfg.Lattice.Port)
	v.SetDefault("lattice.namespace", cfg.Lattice.Namespace)
	v.SetDefault("lattice.timeout_ms", cfg.Lattice.TimeoutMS)
	v.SetDefault("console.poll_interval_ms", cfg.Console.PollIntervalMS)
	v.SetDefault("console.log_level", cfg.Console.LogLevel)
	v.SetDefault("console.log_buffer_records", cfg.Console.LogBufferRecords)
	v.SetDefault("console.output_max_lines", cfg.Console.OutputMaxLines)
	v.SetDefault("console.log_file", cfg.Console.LogFile)
	v.SetDefault("console.log_file_max_mb", cfg.Console.LogFileMaxMB)
	v.SetDefault("console.log_file_max_backups", cfg.Console.LogFileMaxBackups)
	v.SetDefault("console.hostless", cfg.Console.Hostless)
	v.SetDefault("console.host_labels", cfg.Console.HostLabels)
	v.SetDefault("console.heartbeat_seconds", cfg.Console.HeartbeatSeconds)
	v.SetDefault("console.stop_timeout_seconds", cfg.Console.StopTimeoutSeconds)
	v.SetDefault("ssh.addr", cfg.SSH.Addr)
	v.SetDefault("ssh.host_key_path", cfg.SSH.HostKeyPath)
	v.SetDefault("ssh.authorized_keys_path", cfg.SSH.AuthorizedKeysPath)
	v.SetDefault("drain.cache_root", cfg.Drain.CacheRoot)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, err
		}
	}

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if _, err := schema.NormalizeEndpoint(cfg.Endpoint()); err != nil {
		return fmt.Errorf("lattice: %w", err)
	}
	if cfg.Lattice.TimeoutMS < 0 {
		return fmt.Errorf("lattice.timeout_ms must not be negative")
	}
	if _, ok := logsink.ParseLevel(cfg.Console.LogLevel); !ok {
		return fmt.Errorf("unsupported console.log_level %q", cfg.Console.LogLevel)
	}
	if cfg.Console.PollIntervalMS <= 0 {
		return fmt.Errorf("console.poll_interval_ms must be positive")
	}
	return nil
}

// Endpoint returns the lattice endpoint described by the config.
func (c Config) Endpoint() schema.Endpoint {
	return schema.Endpoint{
		Host:      c.Lattice.Host,
		Port:      c.Lattice.Port,
		Namespace: c.Lattice.Namespace,
		Timeout:   time.Duration(c.Lattice.TimeoutMS) * time.Millisecond,
	}
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Console.LogFile = expandEnv(cfg.Console.LogFile)
	cfg.SSH.HostKeyPath = expandEnv(cfg.SSH.HostKeyPath)
	cfg.SSH.AuthorizedKeysPath = expandEnv(cfg.SSH.AuthorizedKeysPath)
	cfg.Drain.CacheRoot = expandEnv(cfg.Drain.CacheRoot)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	if strings.HasPrefix(value, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			value = filepath.Join(home, value[2:])
		}
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	case "TMPDIR":
		return os.TempDir(), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
