// Wifiapp-cfg talks to a running Wi-Fi manager through its portal.
//
// It finds portals with mDNS, shows the manager status, submits station
// credentials, asks for a disconnect or reconnect, and opens a live
// dashboard.
//
// Usage:
//
//	wifiapp-cfg [command] [flags]
//
// See 'wifiapp-cfg --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiapp/internal/logging"
	"github.com/muurk/wifiapp/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wifiapp-cfg",
	Short: "Wi-Fi Manager Configuration Utility",
	Long: `A client for the Wi-Fi manager's configuration portal.

Join the device's access point (ESP32_AP by default), then use 'scan' to find
the portal or pass its address with --portal.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitializeFromEnv()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Banner("wifiapp-cfg"))
	},
}
