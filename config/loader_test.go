package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentplane/agentplane/faults"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("loads_and_defaults_minimal_config", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "instance-id: 8b9c2f3a-0000-0000-0000-000000000001\nstorage:\n  backend: memory\n")
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.SchemaVersion != SchemaVersion {
			t.Errorf("expected the schema version to default, got %q", cfg.SchemaVersion)
		}
		if cfg.InstanceID != "8b9c2f3a-0000-0000-0000-000000000001" {
			t.Errorf("expected the instance ID to be preserved, got %q", cfg.InstanceID)
		}
		if cfg.Server.Listen != DefaultListenAddress {
			t.Errorf("expected the default listen address, got %q", cfg.Server.Listen)
		}
		if cfg.Events.CycleSeconds != DefaultEventCycleSeconds {
			t.Errorf("expected the default event cycle, got %d", cfg.Events.CycleSeconds)
		}
	})

	t.Run("rejects_unknown_fields", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "storage:\n  backend: memory\nunknown-key: true\n")
		if _, err := Load(path); !faults.IsCategory(err, faults.ValidationError) {
			t.Errorf("expected a validation error, got %v", err)
		}
	})

	// Minting a fresh instance ID on load would change every object
	// identifier across restarts, so an instance-less file is refused.
	t.Run("rejects_missing_instance_id", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "storage:\n  backend: memory\n")
		if _, err := Load(path); !faults.IsCategory(err, faults.ValidationError) {
			t.Errorf("expected a validation error, got %v", err)
		}
	})

	t.Run("missing_file_is_not_found", func(t *testing.T) {
		t.Parallel()

		if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); !faults.IsCategory(err, faults.NotFoundError) {
			t.Errorf("expected a not-found error, got %v", err)
		}
	})

	t.Run("rejects_incompatible_schema_major", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "schema-version: 2.0.0\nstorage:\n  backend: memory\n")
		if _, err := Load(path); !faults.IsCategory(err, faults.ValidationError) {
			t.Errorf("expected a validation error, got %v", err)
		}
	})

	t.Run("accepts_newer_minor_within_major", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "schema-version: 1.9.0\ninstance-id: 8b9c2f3a-0000-0000-0000-000000000002\nstorage:\n  backend: memory\n")
		if _, err := Load(path); err != nil {
			t.Errorf("expected the config to load, got %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("filesystem_backend_requires_base_dir", func(t *testing.T) {
		t.Parallel()

		cfg := Config{SchemaVersion: SchemaVersion, InstanceID: "instance-1", Storage: Storage{Backend: StorageBackendFilesystem}}
		if err := Validate(cfg); !faults.IsCategory(err, faults.ValidationError) {
			t.Errorf("expected a validation error, got %v", err)
		}
	})

	t.Run("rejects_unknown_backend", func(t *testing.T) {
		t.Parallel()

		cfg := Config{SchemaVersion: SchemaVersion, InstanceID: "instance-1", Storage: Storage{Backend: "s3"}}
		if err := Validate(cfg); !faults.IsCategory(err, faults.ValidationError) {
			t.Errorf("expected a validation error, got %v", err)
		}
	})

	t.Run("endpoint_and_rules_file_are_exclusive", func(t *testing.T) {
		t.Parallel()

		cfg := Config{
			SchemaVersion: SchemaVersion,
			InstanceID:    "instance-1",
			Storage:       Storage{Backend: StorageBackendMemory},
			Authorization: Authorization{Endpoint: "https://authz.internal", RulesFile: "/etc/agentplane/rules.yaml"},
		}
		if err := Validate(cfg); !faults.IsCategory(err, faults.ValidationError) {
			t.Errorf("expected a validation error, got %v", err)
		}
	})
}

func TestSave(t *testing.T) {
	t.Parallel()

	t.Run("save_then_load_round_trips", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "config.yaml")
		saved := Config{
			Storage: Storage{Backend: StorageBackendGit, BaseDir: "/var/lib/agentplane"},
			Events:  Events{CycleSeconds: 5},
		}
		if err := Save(path, saved); err != nil {
			t.Fatalf("save config: %v", err)
		}

		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if loaded.Storage.Backend != StorageBackendGit || loaded.Storage.BaseDir != "/var/lib/agentplane" {
			t.Errorf("expected storage settings to round trip, got %+v", loaded.Storage)
		}
		if loaded.Events.CycleSeconds != 5 {
			t.Errorf("expected the event cycle to round trip, got %d", loaded.Events.CycleSeconds)
		}
		if loaded.InstanceID == "" {
			t.Error("expected the saved config to carry a generated instance ID")
		}
		again, err := Load(path)
		if err != nil {
			t.Fatalf("load config again: %v", err)
		}
		if again.InstanceID != loaded.InstanceID {
			t.Errorf("expected a stable instance ID across loads, got %q then %q", loaded.InstanceID, again.InstanceID)
		}
	})
}
