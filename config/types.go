// Package config defines the control plane's configuration file
// format and its loader.
package config

const (
	ConfigFileEnvVar  = "AGENTPLANE_CONFIG_FILE"
	DefaultConfigPath = "~/.agentplane/config.yaml"

	// SchemaVersion is the configuration schema this build writes and
	// fully understands. Files with the same major version load; a
	// different major version is rejected.
	SchemaVersion = "1.0.0"

	StorageBackendFilesystem = "filesystem"
	StorageBackendGit        = "git"
	StorageBackendMemory     = "memory"

	DefaultListenAddress     = ":8080"
	DefaultEventCycleSeconds = 10
)

type Config struct {
	SchemaVersion string `yaml:"schema-version"`

	// InstanceID scopes every object identifier this deployment
	// issues. Generated on first save when left empty.
	InstanceID string `yaml:"instance-id,omitempty"`

	Server        Server         `yaml:"server,omitempty"`
	Storage       Storage        `yaml:"storage"`
	Authorization Authorization  `yaml:"authorization,omitempty"`
	Events        Events         `yaml:"events,omitempty"`
	Telemetry     *Telemetry     `yaml:"telemetry,omitempty"`
	Providers     []string       `yaml:"providers,omitempty"`
}

type Server struct {
	Listen string `yaml:"listen,omitempty"`
}

type Storage struct {
	Backend string `yaml:"backend"`
	BaseDir string `yaml:"base-dir,omitempty"`
}

// Authorization selects the policy decision point. When an endpoint is
// set the gate calls the remote service; otherwise the rules file
// backs a local static policy. With neither, every request is denied.
type Authorization struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	APIKey    string `yaml:"api-key,omitempty"`
	RulesFile string `yaml:"rules-file,omitempty"`

	// RequestsPerSecond caps calls to a remote endpoint. Zero means
	// no limit.
	RequestsPerSecond float64 `yaml:"requests-per-second,omitempty"`
}

type Events struct {
	CycleSeconds int `yaml:"cycle-seconds,omitempty"`
}

type Telemetry struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service-name,omitempty"`
	Insecure    bool   `yaml:"insecure,omitempty"`
}
