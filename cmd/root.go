package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by --version
func SetVersion(v string) {
	version = v
}

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	envFiles   []string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "cicloteca",
		Short: "Asset service of the Cicloteca community library",
		Long: `cicloteca resolves library file references (storage paths, storage
handles, share links) into download URLs and delivers the files.

It can run as:
  - The library API server (serve)
  - The CORS relay for file hosts that refuse cross-origin reads (relay)
  - A CLI that resolves or downloads a single reference (resolve, download)`,
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate(`{{printf "cicloteca version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to the YAML config file (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().StringSliceVar(&flags.envFiles, "env-file", []string{".env"}, "Files to load environment variables from")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override the log level (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCmd(flags))
	rootCmd.AddCommand(newRelayCmd(flags))
	rootCmd.AddCommand(newResolveCmd(flags))
	rootCmd.AddCommand(newDownloadCmd(flags))
	return rootCmd
}

// Execute is the main entry point for the CLI application
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
