package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	projectConfigName = "toolgate.yaml"
	homeConfigName    = "config.yaml"
)

// ConfigFile is the optional declarative configuration. Environment
// variables override file values; each gateway command resolves its own
// section into a validated backend config before anything starts.
type ConfigFile struct {
	SQLite   SQLiteSection   `yaml:"sqlite"`
	Monitor  MonitorSection  `yaml:"monitor"`
	Vault    VaultSection    `yaml:"vault"`
	PkgIndex PkgIndexSection `yaml:"pkgindex"`
	Mailbox  MailboxSection  `yaml:"mailbox"`
	OTLP     OTLPSection     `yaml:"otlp"`
}

// SQLiteSection configures the relational database gateway.
type SQLiteSection struct {
	Path string `yaml:"path"`
}

// MonitorSection configures the monitoring platform gateway.
type MonitorSection struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	AppKey  string `yaml:"app_key"`
}

// VaultSection configures the secrets vault gateway.
type VaultSection struct {
	Address string `yaml:"address"`
	Token   string `yaml:"token"`
	Mount   string `yaml:"mount"`
}

// PkgIndexSection configures the package registry gateway.
type PkgIndexSection struct {
	BaseURL string `yaml:"base_url"`
}

// MailboxSection configures the email store gateway.
type MailboxSection struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

// OTLPSection configures optional telemetry export.
type OTLPSection struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// LoadConfigFile resolves and parses the optional config file with
// first-match semantics: explicit path, ./toolgate.yaml, then
// ~/.toolgate/config.yaml. A missing implicit file yields a zero config.
func LoadConfigFile(explicitPath string) (ConfigFile, error) {
	path, found, err := discoverConfigPath(explicitPath)
	if err != nil {
		return ConfigFile{}, err
	}
	if !found {
		return ConfigFile{}, nil
	}

	// #nosec G304 -- path resolved from explicit local config discovery.
	data, err := os.ReadFile(path)
	if err != nil {
		return ConfigFile{}, fmt.Errorf("reading config %q: %w", path, err)
	}

	var cfg ConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ConfigFile{}, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}

func discoverConfigPath(explicitPath string) (string, bool, error) {
	candidates := make([]string, 0, 3)
	explicit := strings.TrimSpace(explicitPath)
	if explicit != "" {
		candidates = append(candidates, filepath.Clean(explicit))
	} else {
		if cwd, err := os.Getwd(); err == nil {
			candidates = append(candidates, filepath.Join(cwd, projectConfigName))
		}
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(home, ".toolgate", homeConfigName))
		}
	}

	for i, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			// An explicit path that does not exist is an error.
			if i == 0 && explicit != "" {
				return "", false, fmt.Errorf("config file %q not found", candidate)
			}
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("checking config path %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

// envOr returns the named environment variable, or fallback when unset.
func envOr(name, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}

// firstOf returns the first non-blank value. Flags beat environment
// variables beat config file entries.
func firstOf(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
