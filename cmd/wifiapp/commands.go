package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/wifiapp/internal/config"
	"github.com/muurk/wifiapp/internal/credentials"
	"github.com/muurk/wifiapp/internal/logging"
	"github.com/muurk/wifiapp/internal/metrics"
	"github.com/muurk/wifiapp/internal/netif/sim"
	"github.com/muurk/wifiapp/internal/portal"
	"github.com/muurk/wifiapp/internal/version"
	"github.com/muurk/wifiapp/internal/wifiapp"
)

// Run command flags
var (
	logLevel    string
	listenAddr  string
	noAdvertise bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the manager",
	Long: `Start the access point and station, serve the configuration portal and
connect with saved credentials. Runs until interrupted.`,
	Example: `  # Run with the default configuration
  wifiapp run

  # Serve the portal on localhost for testing against the simulated radio
  wifiapp run --listen 127.0.0.1:8080 --log-level debug

  # Override a setting from the environment
  WIFIAPP_MANAGER_MAX_RETRIES=3 wifiapp run`,
	RunE: runManager,
}

func init() {
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides logging.level")
	runCmd.Flags().StringVar(&listenAddr, "listen", "", "Portal listen address; overrides portal.listen")
	runCmd.Flags().BoolVar(&noAdvertise, "no-mdns", false, "Do not advertise the portal over mDNS")
}

func runManager(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if listenAddr != "" {
		cfg.Portal.Listen = listenAddr
	}
	if noAdvertise {
		cfg.Portal.Advertise = false
	}

	if err := logging.Initialize(cfg.Logging.Level); err != nil {
		return err
	}
	defer logging.Sync()

	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n%s", formatErrors(errs))
	}

	// Validate guarantees these conversions succeed.
	apCfg, _ := cfg.NetifAccessPoint()
	staCfg, _ := cfg.NetifStation()
	latency, _ := cfg.SimLatency()
	pool, _ := cfg.SimPool()

	credPath, err := cfg.CredentialsPath()
	if err != nil {
		return fmt.Errorf("failed to locate credentials: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	ch := wifiapp.NewChannel(cfg.Manager.QueueCapacity, wifiapp.WithSendHook(func(msg wifiapp.Message, err error) {
		if err != nil {
			collector.SendRejected(msg.Kind().String())
		}
	}))

	portalSrv, err := portal.New(portal.Config{
		Listen:       cfg.Portal.Listen,
		Advertise:    cfg.Portal.Advertise,
		Instance:     cfg.Portal.Instance,
		APSSID:       apCfg.SSID,
		ConnectRate:  cfg.Portal.ConnectRate,
		ConnectBurst: cfg.Portal.ConnectBurst,
		Metrics:      cfg.Portal.Metrics,
		Gatherer:     registry,
	}, ch)
	if err != nil {
		return err
	}

	driver := sim.New(sim.Config{
		Networks:    cfg.SimNetworks(),
		Latency:     latency,
		AddressPool: pool,
	})

	app, err := wifiapp.New(wifiapp.Config{
		Station:            staCfg,
		AccessPoint:        apCfg,
		MaxRetries:         cfg.Manager.MaxRetries,
		ForgetOnDisconnect: cfg.Manager.ForgetOnDisconnect,
	}, ch, wifiapp.Deps{
		Driver:    driver,
		Store:     credentials.NewFileStore(credPath),
		HTTP:      portalSrv,
		Observers: []wifiapp.StatusObserver{portalSrv},
		Metrics:   collector,
	})
	if err != nil {
		return err
	}

	fmt.Println(version.Banner("wifiapp"))
	fmt.Printf("Access point %q on %s, portal on %s\n", apCfg.SSID, apCfg.IP, cfg.Portal.Listen)
	logging.Info("Starting manager",
		zap.String("config", cfg.File),
		zap.String("credentials", credPath),
		zap.String("radio", driver.String()),
		zap.Int("max_retries", cfg.Manager.MaxRetries),
		zap.Int("queue_capacity", ch.Cap()),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := app.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := portalSrv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Portal shutdown incomplete", zap.Error(err))
	}

	if runErr != nil {
		return fmt.Errorf("manager stopped: %w", runErr)
	}
	fmt.Println("Stopped.")
	return nil
}

// Config commands

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Example: `  wifiapp config init
  wifiapp config init --config ./wifiapp.yaml --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.WriteDefault(configPath, configForce)
		if errors.Is(err, config.ErrConfigExists) {
			return fmt.Errorf("%w (use --force to overwrite)", err)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after applying the file, WIFIAPP_* environment
variables and defaults, and report any validation errors.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		if cfg.File != "" {
			fmt.Printf("# loaded from %s\n", cfg.File)
		}
		fmt.Print(string(data))

		if errs := cfg.Validate(); len(errs) > 0 {
			return fmt.Errorf("invalid configuration:\n%s", formatErrors(errs))
		}
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

// Credential commands

var credsPassword string

var credsCmd = &cobra.Command{
	Use:   "creds",
	Short: "Manage saved station credentials",
}

var credsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved network",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		creds, ok, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("No saved credentials (%s)\n", store.Path())
			return nil
		}
		fmt.Printf("Saved network: %s\n", creds)
		fmt.Printf("Stored in:     %s\n", store.Path())
		return nil
	},
}

var credsSetCmd = &cobra.Command{
	Use:   "set <ssid>",
	Short: "Save station credentials",
	Long: `Save the network the manager connects to at startup.

The password is read from the terminal when --password is not given.
Leave it empty for an open network.`,
	Example: `  wifiapp creds set HomeNet1
  wifiapp creds set Cafe --password ""`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := credsPassword
		if !cmd.Flags().Changed("password") {
			p, err := readPassword(fmt.Sprintf("Password for %s: ", args[0]))
			if err != nil {
				return err
			}
			password = p
		}

		creds := credentials.Credentials{SSID: args[0], Password: password}
		if errs := credentials.ValidateErrors(creds); len(errs) > 0 {
			return fmt.Errorf("invalid credentials:\n%s", credentials.FormatValidationErrors(errs))
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Save(cmd.Context(), creds); err != nil {
			return err
		}
		fmt.Printf("Saved %s to %s\n", creds, store.Path())
		return nil
	},
}

var credsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the saved network",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Saved credentials cleared.")
		return nil
	},
}

func init() {
	credsSetCmd.Flags().StringVar(&credsPassword, "password", "", "Network password (prompted when omitted)")
	credsCmd.AddCommand(credsShowCmd)
	credsCmd.AddCommand(credsSetCmd)
	credsCmd.AddCommand(credsClearCmd)
}

func openStore() (*credentials.FileStore, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	path, err := cfg.CredentialsPath()
	if err != nil {
		return nil, fmt.Errorf("failed to locate credentials: %w", err)
	}
	return credentials.NewFileStore(path), nil
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

func formatErrors(errs []error) string {
	lines := make([]string, 0, len(errs))
	for _, err := range errs {
		lines = append(lines, "  - "+err.Error())
	}
	return strings.Join(lines, "\n")
}
