package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/agentplane/agentplane/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		GroupID: groupUserFacing,
		Short:   "Validate and bootstrap configuration files",
	}

	cmd.AddCommand(newConfigCheckCommand())
	cmd.AddCommand(newConfigSetupCommand())

	return cmd
}

func newConfigCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load and validate the configuration, then print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "configuration file: %s\n", path)
			fmt.Fprintf(out, "schema version:     %s\n", cfg.SchemaVersion)
			fmt.Fprintf(out, "instance:           %s\n", cfg.InstanceID)
			fmt.Fprintf(out, "listen address:     %s\n", cfg.Server.Listen)
			fmt.Fprintf(out, "storage backend:    %s\n", cfg.Storage.Backend)
			fmt.Fprintf(out, "authorization:      %s\n", authorizationSummary(cfg.Authorization))
			fmt.Fprintf(out, "event cycle:        %ds\n", cfg.Events.CycleSeconds)
			return nil
		},
	}
}

func authorizationSummary(cfg config.Authorization) string {
	switch {
	case cfg.Endpoint != "":
		return "remote endpoint " + cfg.Endpoint
	case cfg.RulesFile != "":
		return "static rules from " + cfg.RulesFile
	default:
		return "none (all requests denied)"
	}
}

func newConfigSetupCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactively create a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			explicit, _ := cmd.Flags().GetString("config")
			path, err := config.ResolvePath(explicit)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return usageError(cmd, fmt.Sprintf("configuration file %s already exists (use --force to overwrite)", path))
			}

			cfg, err := runInteractiveSetup(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")
	return cmd
}

func runInteractiveSetup(cmd *cobra.Command) (config.Config, error) {
	var (
		backend     string
		baseDir     string
		listen      = config.DefaultListenAddress
		authzMode   string
		endpoint    string
		apiKey      string
		rulesFile   string
		cycleString = strconv.Itoa(config.DefaultEventCycleSeconds)
	)

	storageGroup := huh.NewGroup(
		huh.NewSelect[string]().
			Title("Storage backend").
			Description("Where resource objects and reference indexes are stored.").
			Options(
				huh.NewOption("Filesystem", config.StorageBackendFilesystem),
				huh.NewOption("Git (commit per write)", config.StorageBackendGit),
				huh.NewOption("In-memory (non-durable)", config.StorageBackendMemory),
			).
			Value(&backend),
		huh.NewInput().
			Title("Base directory").
			Description("Required for the filesystem and git backends.").
			Value(&baseDir),
		huh.NewInput().
			Title("Listen address").
			Value(&listen),
	)

	authzGroup := huh.NewGroup(
		huh.NewSelect[string]().
			Title("Authorization source").
			Options(
				huh.NewOption("Remote policy endpoint", "endpoint"),
				huh.NewOption("Static rules file", "rules"),
				huh.NewOption("None (deny everything)", "none"),
			).
			Value(&authzMode),
		huh.NewInput().
			Title("Policy endpoint URL").
			Value(&endpoint),
		huh.NewInput().
			Title("Policy endpoint API key").
			EchoMode(huh.EchoModePassword).
			Value(&apiKey),
		huh.NewInput().
			Title("Rules file path").
			Value(&rulesFile),
	)

	eventsGroup := huh.NewGroup(
		huh.NewInput().
			Title("Event polling cycle (seconds)").
			Value(&cycleString).
			Validate(func(input string) error {
				value, err := strconv.Atoi(strings.TrimSpace(input))
				if err != nil || value <= 0 {
					return fmt.Errorf("enter a positive number of seconds")
				}
				return nil
			}),
	)

	form := huh.NewForm(storageGroup, authzGroup, eventsGroup).
		WithShowHelp(false).
		WithInput(cmd.InOrStdin()).
		WithOutput(cmd.OutOrStdout())
	if err := form.Run(); err != nil {
		return config.Config{}, handledError{msg: "setup cancelled"}
	}

	cfg := config.Config{
		Server:  config.Server{Listen: strings.TrimSpace(listen)},
		Storage: config.Storage{Backend: backend, BaseDir: strings.TrimSpace(baseDir)},
	}
	switch authzMode {
	case "endpoint":
		cfg.Authorization.Endpoint = strings.TrimSpace(endpoint)
		cfg.Authorization.APIKey = strings.TrimSpace(apiKey)
	case "rules":
		cfg.Authorization.RulesFile = strings.TrimSpace(rulesFile)
	}
	if cycle, err := strconv.Atoi(strings.TrimSpace(cycleString)); err == nil {
		cfg.Events.CycleSeconds = cycle
	}
	return cfg, nil
}
