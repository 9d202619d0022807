// Wifiapp runs the Wi-Fi application manager.
//
// It brings up the soft-AP and station interfaces, serves the configuration
// portal, reconnects with saved credentials and retries failed connections
// up to a configured bound.
//
// Usage:
//
//	wifiapp run [flags]
//	wifiapp config init|show
//	wifiapp creds show|set|clear
//
// See 'wifiapp --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiapp/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "wifiapp",
	Short: "Wi-Fi Application Manager",
	Long: `Manages a device's Wi-Fi station and soft-AP.

The manager serves a configuration portal on the access point, connects the
station with saved or submitted credentials, and retries failed connections
up to a configured bound.

On a host without radio hardware the station is simulated; the networks it
can see are listed under sim.networks in the configuration file.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default: platform config dir)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(credsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Banner("wifiapp"))
	},
}
