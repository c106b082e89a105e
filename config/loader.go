package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/agentplane/agentplane/faults"
	"github.com/agentplane/agentplane/yamlutil"
)

// ResolvePath returns the configuration file location: the explicit
// argument, then the environment override, then the default path under
// the user's home directory.
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		return expandHome(explicit)
	}
	if fromEnv := os.Getenv(ConfigFileEnvVar); fromEnv != "" {
		return expandHome(fromEnv)
	}
	return expandHome(DefaultConfigPath)
}

// Load reads, strictly decodes, defaults, and validates a
// configuration file.
func Load(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, faults.NotFound(fmt.Sprintf("configuration file %s does not exist", path))
		}
		return Config{}, faults.Internal(fmt.Sprintf("failed to read the configuration file %s", path), err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(content, &cfg); err != nil {
		return Config{}, faults.Validation(fmt.Sprintf("the configuration file %s is not valid YAML", path), err)
	}

	cfg = withDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the configuration, creating parent directories and
// filling the schema version and instance ID when absent.
func Save(path string, cfg Config) error {
	cfg = withDefaults(cfg)
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	if err := Validate(cfg); err != nil {
		return err
	}

	content, err := yamlutil.MarshalWithIndent(cfg, 2)
	if err != nil {
		return faults.Internal("failed to encode the configuration", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return faults.Internal(fmt.Sprintf("failed to create the configuration directory for %s", path), err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return faults.Internal(fmt.Sprintf("failed to write the configuration file %s", path), err)
	}
	return nil
}

// Validate checks schema compatibility and field consistency.
func Validate(cfg Config) error {
	fileVersion, err := semver.NewVersion(cfg.SchemaVersion)
	if err != nil {
		return faults.Validation(fmt.Sprintf("the schema version %q is not a valid semantic version", cfg.SchemaVersion), err)
	}
	supported := semver.MustParse(SchemaVersion)
	if fileVersion.Major() != supported.Major() {
		return faults.Validation(fmt.Sprintf(
			"the configuration schema version %s is not compatible with the supported version %s", cfg.SchemaVersion, SchemaVersion), nil)
	}

	// The instance ID scopes every object identifier. Minting one on
	// load would silently change those identifiers on each restart,
	// so an instance-less file is rejected instead.
	if cfg.InstanceID == "" {
		return faults.Validation("the configuration has no instance id; save it once to mint one", nil)
	}

	switch cfg.Storage.Backend {
	case StorageBackendFilesystem, StorageBackendGit:
		if cfg.Storage.BaseDir == "" {
			return faults.Validation(fmt.Sprintf("the %s storage backend requires a base directory", cfg.Storage.Backend), nil)
		}
	case StorageBackendMemory:
	case "":
		return faults.Validation("a storage backend must be configured", nil)
	default:
		return faults.Validation(fmt.Sprintf("the storage backend %q is not supported", cfg.Storage.Backend), nil)
	}

	if cfg.Authorization.Endpoint != "" && cfg.Authorization.RulesFile != "" {
		return faults.Validation("the authorization endpoint and rules file are mutually exclusive", nil)
	}
	if cfg.Events.CycleSeconds < 0 {
		return faults.Validation("the event cycle must not be negative", nil)
	}
	if cfg.Telemetry != nil && cfg.Telemetry.Endpoint == "" {
		return faults.Validation("telemetry requires an exporter endpoint", nil)
	}
	return nil
}

func withDefaults(cfg Config) Config {
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SchemaVersion
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultListenAddress
	}
	if cfg.Events.CycleSeconds == 0 {
		cfg.Events.CycleSeconds = DefaultEventCycleSeconds
	}
	return cfg
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", faults.Internal("failed to resolve the user home directory", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
