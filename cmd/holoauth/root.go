package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/holoauth/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the holoauth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holoauth",
		Short: "holoauth - email and password authentication service",
		Long: `holoauth registers users, checks their credentials, issues
cookie sessions and runs the password reset flow over HTTP.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewHashCmd())

	return cmd
}

// resolveConfigFile returns --config when given, otherwise the XDG default
// config file if one exists.
func resolveConfigFile(getenv func(string) string) (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return xdg.FindConfigFile(getenv) //nolint:wrapcheck // xdg errors carry codes
}
