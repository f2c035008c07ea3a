// Package main is the entry point for the rdap-server binary.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "config.yaml"

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command for rdap-server
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rdap-server",
		Short: "Privacy-aware RDAP server",
		Long: `An RDAP (RFC 9082/9083) server that withholds record fields according to
per-field privacy policies and the identity of the requester.

Example:
  rdap-server serve -c config.yaml
  rdap-server policy check --override-dir /etc/rdap/policy`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file (YAML)")

	rootCmd.AddCommand(
		newServeCmd(),
		newPolicyCmd(),
		newTokenCmd(),
		newPasswdCmd(),
	)
	return rootCmd
}

// configPath returns the --config flag, falling back to config.yaml when it
// exists in the working directory.
func configPath(cmd *cobra.Command) (string, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return "", fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		return path, nil
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath, nil
	}
	return "", nil
}
