// Package config implements the ~/.anidb/config.yaml file read by the
// CLI and the library's default credential reader: server endpoint,
// protocol timeouts, default algorithm set, and the auth section.
//
// Grounded on vjache-cie's cmd/cie/config.go Config struct and its
// DefaultConfig/LoadConfig/Save shape, generalized from CIE's project
// config to AniDB's connection/auth config.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/anidbclient/internal/errs"
)

const (
	defaultConfigDir  = ".anidb"
	defaultConfigFile = "config.yaml"
)

// Config is the persisted ~/.anidb/config.yaml document.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Hashing   HashingConfig   `yaml:"hashing"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Auth      AuthConfig      `yaml:"auth,omitempty"`
}

// ServerConfig carries the connection parameters of pkg/proto.Config.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	ConnectTimeout int    `yaml:"connect_timeout_seconds"`
	RequestTimeout int    `yaml:"request_timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
	RetryDelayMs   int    `yaml:"retry_delay_ms"`
	MTU            int    `yaml:"mtu"`
}

// HashingConfig carries the default algorithm set for `anidb hash`.
type HashingConfig struct {
	DefaultAlgorithms []string `yaml:"default_algorithms"`
}

// DiscoveryConfig carries the exclude-glob patterns for pkg/discover,
// mirroring vjache-cie's IndexingConfig.Exclude field.
type DiscoveryConfig struct {
	Exclude []string `yaml:"exclude"`
}

// AuthConfig is the config-file-backed stand-in credential store. It is
// a plaintext fallback, never the recommended storage for a real
// deployment — see internal/credentials for the documented caveat.
type AuthConfig struct {
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// Default returns a Config populated with the library's documented
// defaults (spec §4.8's timeouts, a conservative algorithm
// set, and the common VCS/build-output exclude globs).
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "api.anidb.net",
			Port:           9000,
			ConnectTimeout: 10,
			RequestTimeout: 20,
			MaxRetries:     3,
			RetryDelayMs:   3000,
			MTU:            1400,
		},
		Hashing: HashingConfig{
			DefaultAlgorithms: []string{"ed2k", "crc32"},
		},
		Discovery: DiscoveryConfig{
			Exclude: []string{
				".git/**",
				"*.part",
				"*.tmp",
			},
		},
	}
}

// DefaultPath returns ~/.anidb/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errs.Wrap(errs.IoPermission, "resolve home directory", err)
	}
	return filepath.Join(home, defaultConfigDir, defaultConfigFile), nil
}

// Init writes a fresh Default() config to path, failing if a file
// already exists there.
func Init(path string) (*Config, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, errs.Newf(errs.ValidationInvalidConfiguration, "config already exists at %s", path)
	}
	cfg := Default()
	if err := Save(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses the config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Newf(errs.IoFileNotFound, "no config file at %s", path)
		}
		return nil, errs.Wrap(errs.IoPermission, "read config file", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.Wrap(errs.IoCorrupt, "parse config file", err)
	}
	return &cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errs.Wrap(errs.IoPermission, "create config directory", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errs.Wrap(errs.InternalAssertion, "marshal config", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errs.Wrap(errs.IoPermission, "write config file", err)
	}
	return nil
}

// Get looks up a dotted key (e.g. "server.host") in cfg and returns its
// string representation.
func Get(cfg *Config, key string) (string, error) {
	switch key {
	case "server.host":
		return cfg.Server.Host, nil
	case "server.port":
		return fmt.Sprintf("%d", cfg.Server.Port), nil
	case "server.max_retries":
		return fmt.Sprintf("%d", cfg.Server.MaxRetries), nil
	case "hashing.default_algorithms":
		return fmt.Sprintf("%v", cfg.Hashing.DefaultAlgorithms), nil
	case "auth.username":
		return cfg.Auth.Username, nil
	default:
		return "", errs.Newf(errs.ValidationInvalidConfiguration, "unknown config key %q", key)
	}
}

// Set assigns a dotted key to value, mutating cfg in place. Unknown
// keys and malformed values for typed fields return an error.
func Set(cfg *Config, key, value string) error {
	switch key {
	case "server.host":
		cfg.Server.Host = value
	case "server.port":
		n, err := parseIntField(key, value)
		if err != nil {
			return err
		}
		cfg.Server.Port = n
	case "server.max_retries":
		n, err := parseIntField(key, value)
		if err != nil {
			return err
		}
		cfg.Server.MaxRetries = n
	case "auth.username":
		cfg.Auth.Username = value
	case "auth.password":
		cfg.Auth.Password = value
	default:
		return errs.Newf(errs.ValidationInvalidConfiguration, "unknown config key %q", key)
	}
	return nil
}

func parseIntField(key, value string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return 0, errs.Newf(errs.ValidationInvalidConfiguration, "%s expects an integer, got %q", key, value)
	}
	return n, nil
}

// List renders every known key/value pair, in a stable order, for the
// `config list` CLI subcommand.
func List(cfg *Config) []string {
	keys := []string{
		"server.host", "server.port", "server.max_retries",
		"hashing.default_algorithms", "auth.username",
	}
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		v, _ := Get(cfg, k)
		lines = append(lines, fmt.Sprintf("%s=%s", k, v))
	}
	return lines
}
