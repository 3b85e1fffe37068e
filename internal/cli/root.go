package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/charliek/respawn/internal/config"
	"github.com/charliek/respawn/internal/domain"
)

// Version is set during build
var Version = "dev"

// Global flags
var (
	configPath string
	verbose    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "respawn",
	Short: "Keep one process running forever",
	Long: `respawn starts a program, waits for it to exit, records why it exited
and starts it again after a fixed delay. It never gives up.

  - Exit classification (clean, interrupt, terminated, killed, unexpected)
  - Append-only supervision log
  - Signal forwarding so the child is never orphaned
  - Optional read-only status API with Prometheus metrics
  - Background mode with status and stop commands`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "respawn version %s\n", Version)
	},
}

func init() {
	// Persistent flags available to all subcommands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: respawn.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.SetVersionTemplate("respawn version {{.Version}}\n")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the config file named by path. An empty path searches the
// working directory, and finding nothing there yields the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		found, err := config.FindConfigFile()
		if err != nil {
			if errors.Is(err, domain.ErrConfigNotFound) {
				return config.Default(), nil
			}
			return nil, err
		}
		path = found
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// workDir returns the directory whose .respawn state the commands use
func workDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return dir, nil
}
