// Package cmd implements the agentplane command line interface.
package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	groupUtility    = "utility"
	groupUserFacing = "user"
)

var rootCmd = newRootCommand()

func Execute() error {
	return rootCmd.Execute()
}

func NewRootCommand() *cobra.Command {
	return newRootCommand()
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agentplane",
		Short: "Run and operate the AgentPlane resource control plane",
		Long: `AgentPlane manages LLM platform resources (prompts, agents, vectorization
profiles) behind a uniform path-addressed management API.

Use the CLI to:
  - run the management server over a configured storage backend
  - read, create, update, and delete resources on a running server
  - validate and bootstrap configuration files`,
		Example: `  # Start the management server
  agentplane serve --config /etc/agentplane/config.yaml

  # List prompts on a running server, filtered with a jq expression
  agentplane resource list --provider AgentPlane.Prompt --type prompts --filter '.[] | select(.type == "multipart")'

  # Validate the configuration without starting anything
  agentplane config check`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetHelpCommandGroupID(groupUtility)
	cmd.SetCompletionCommandGroupID(groupUtility)

	cmd.PersistentFlags().String("config", "", "Path to the configuration file (defaults to $AGENTPLANE_CONFIG_FILE, then ~/.agentplane/config.yaml)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ToLower(name))
	})

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		if err == nil {
			return nil
		}
		return usageError(cmd, err.Error())
	})

	cmd.AddGroup(&cobra.Group{ID: groupUserFacing, Title: "Commands:"})
	cmd.AddGroup(&cobra.Group{ID: groupUtility, Title: "Utility Commands:"})

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newResourceCommand())
	cmd.AddCommand(newConfigCommand())

	return cmd
}
