package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/wifiapp/internal/credentials"
	"github.com/muurk/wifiapp/internal/discovery"
	"github.com/muurk/wifiapp/internal/monitor"
	"github.com/muurk/wifiapp/internal/portal"
	"github.com/muurk/wifiapp/internal/wifiapp"
)

// Common flags
var (
	portalAddr   string
	scanTimeout  time.Duration
	outputFormat string
	retries      int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&portalAddr, "portal", "", "Portal address, e.g. 192.168.0.1 (skips discovery)")
	rootCmd.PersistentFlags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "mDNS discovery timeout")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "Output format (text, json)")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", portal.DefaultMaxRetries, "Retries when the manager is busy or unreachable")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(reconnectCmd)
	rootCmd.AddCommand(monitorCmd)
}

// scanCmd discovers portals on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for portals on the network",
	Long: `Scan for Wi-Fi manager portals using mDNS/DNS-SD discovery.

Portals advertise themselves as ` + discovery.ServiceType + ` with their instance id,
version and access point name in the TXT record.`,
	Example: `  wifiapp-cfg scan
  wifiapp-cfg scan --timeout 10s`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	scanner := discovery.NewScanner()
	scanner.Timeout = scanTimeout

	if outputFormat != "json" {
		fmt.Printf("Scanning for portals (timeout: %s)...\n\n", scanTimeout)
	}
	portals, err := scanner.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if outputFormat == "json" {
		return printJSON(portals)
	}

	if len(portals) == 0 {
		fmt.Println("No portals found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Check that you are joined to the device's access point")
		fmt.Println("  - Check that the manager runs with mDNS advertising enabled")
		fmt.Println("  - Try increasing --timeout")
		fmt.Println("  - Use --portal to give the address directly")
		return nil
	}

	fmt.Printf("Found %d portal(s):\n\n", len(portals))
	for i, p := range portals {
		fmt.Printf("%d. %s\n", i+1, p.Instance)
		fmt.Printf("   URL:     %s\n", p.BaseURL())
		if ap := p.GetMetadata(discovery.TXTKeyAPSSID); ap != "" {
			fmt.Printf("   AP:      %s\n", ap)
		}
		if v := p.Version(); v != "" {
			fmt.Printf("   Version: %s\n", v)
		}
		if p.ID != "" {
			fmt.Printf("   ID:      %s\n", p.ID)
		}
		fmt.Println()
	}
	fmt.Println("Use 'wifiapp-cfg status --portal <address>' to query a portal")
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the manager status",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		status, err := client.Status(cmd.Context())
		if err != nil {
			return withHint(err)
		}
		if outputFormat == "json" {
			return printJSON(status)
		}
		printStatus(status)
		return nil
	},
}

// Connect command flags
var (
	connectPassword string
	connectWait     bool
	connectTimeout  time.Duration
)

var connectCmd = &cobra.Command{
	Use:   "connect <ssid>",
	Short: "Connect the station to a network",
	Long: `Submit station credentials to the manager.

The password is read from the terminal when --password is not given. Leave
it empty for an open network. With --wait the command follows the status feed
until the station gets an address or the manager gives up.

Credentials are saved on the device only after a successful connection.`,
	Example: `  wifiapp-cfg connect HomeNet1
  wifiapp-cfg connect HomeNet1 --password secret12 --wait
  wifiapp-cfg connect Cafe --password "" --portal 192.168.0.1`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().StringVar(&connectPassword, "password", "", "Network password (prompted when omitted)")
	connectCmd.Flags().BoolVar(&connectWait, "wait", false, "Wait for the connection result")
	connectCmd.Flags().DurationVar(&connectTimeout, "wait-timeout", 2*time.Minute, "How long --wait waits")
}

func runConnect(cmd *cobra.Command, args []string) error {
	password := connectPassword
	if !cmd.Flags().Changed("password") {
		p, err := readPassword(fmt.Sprintf("Password for %s: ", args[0]))
		if err != nil {
			return err
		}
		password = p
	}
	creds := credentials.Credentials{SSID: args[0], Password: password}

	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	// Subscribe first so the result cannot be missed.
	var sub *portal.Subscription
	if connectWait {
		sub, err = client.Subscribe(cmd.Context())
		if err != nil {
			return withHint(err)
		}
		defer func() { _ = sub.Close() }()
	}

	resp, err := client.Connect(cmd.Context(), creds)
	if err != nil {
		return withHint(err)
	}
	fmt.Println(resp.Message)

	if sub == nil {
		fmt.Println("Use 'wifiapp-cfg status' or 'wifiapp-cfg monitor' to follow progress.")
		return nil
	}
	return waitForResult(cmd.Context(), sub, creds.SSID)
}

// waitForResult follows the feed until ssid connects or a failure is reported.
func waitForResult(ctx context.Context, sub *portal.Subscription, ssid string) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	fmt.Printf("Waiting for %s...\n", ssid)
	for {
		ev, err := sub.Next()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("no result within %s", connectTimeout)
			}
			return fmt.Errorf("status feed closed: %w", err)
		}

		switch ev.Type {
		case portal.EventConnected:
			if ev.Status.SSID == ssid {
				fmt.Printf("Connected to %s with address %s\n", ssid, ev.Status.IP)
				return nil
			}
		case portal.EventFailed:
			return fmt.Errorf("connection to %s failed: %s", ssid, ev.Reason)
		case portal.EventStatus:
			if ev.Status.State == wifiapp.StateConnecting && ev.Status.SSID == ssid {
				fmt.Printf("  %s (attempt %d/%d)\n", ev.Status.State, ev.Status.Retries+1, ev.Status.MaxRetries+1)
			}
		}
	}
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Disconnect the station",
	Long: `Ask the manager to drop the station link. Depending on the manager's
configuration the saved credentials are forgotten as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd.Context(), (*portal.Client).Disconnect)
	},
}

var reconnectCmd = &cobra.Command{
	Use:   "reconnect",
	Short: "Reconnect with the saved credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd.Context(), (*portal.Client).Reconnect)
	},
}

func runCommand(ctx context.Context, fn func(*portal.Client, context.Context) (portal.AcceptedResponse, error)) error {
	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	resp, err := fn(client, ctx)
	if err != nil {
		return withHint(err)
	}
	fmt.Println(resp.Message)
	return nil
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Open a live status dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		if err := monitor.Run(cmd.Context(), client); err != nil {
			return withHint(err)
		}
		return nil
	},
}

// newClient uses --portal or discovers the first portal on the network.
func newClient(ctx context.Context) (*portal.Client, error) {
	addr := portalAddr
	if addr == "" {
		scanner := discovery.NewScanner()
		scanner.Timeout = scanTimeout
		fmt.Fprintf(os.Stderr, "Discovering portal (use --portal to skip)...\n")

		portals, err := scanner.Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("discovery failed: %w", err)
		}
		if len(portals) == 0 {
			return nil, errors.New("no portal found; join the device's access point or pass --portal")
		}
		if len(portals) > 1 {
			fmt.Fprintf(os.Stderr, "Found %d portals, using %s\n", len(portals), portals[0])
		}
		addr = portals[0].BaseURL()
	}

	client := portal.NewClient(addr)
	client.MaxRetries = retries
	return client, nil
}

func withHint(err error) error {
	var apiErr *portal.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	if len(apiErr.Details) > 0 {
		return fmt.Errorf("%w\n  - %s\n\n%s", err, strings.Join(apiErr.Details, "\n  - "), portal.GetTroubleshootingHint(err))
	}
	return fmt.Errorf("%w\n\n%s", err, portal.GetTroubleshootingHint(err))
}

func printStatus(s wifiapp.Status) {
	fmt.Printf("State:    %s\n", s.State)
	if s.SSID != "" {
		fmt.Printf("Network:  %s (%s)\n", s.SSID, s.Source)
	}
	if s.IP != "" {
		fmt.Printf("Address:  %s\n", s.IP)
	}
	fmt.Printf("Retries:  %d/%d\n", s.Retries, s.MaxRetries)
	fmt.Printf("Session:  %d\n", s.Session)
	if s.Reason != "" {
		fmt.Printf("Reason:   %s\n", s.Reason)
	}
	if !s.UpdatedAt.IsZero() {
		fmt.Printf("Updated:  %s\n", s.UpdatedAt.Format(time.RFC3339))
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// readPassword prompts without echo on a terminal and reads a plain line
// otherwise.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
