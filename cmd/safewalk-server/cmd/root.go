package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/safe-walk/internal/config"
	"github.com/oshokin/safe-walk/internal/repository/journal"
	"github.com/oshokin/safe-walk/internal/service/server"
	"github.com/oshokin/safe-walk/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// serialPort overrides the accelerometer device from the config.
	serialPort string
	// alertLimit caps the number of listed alerts.
	alertLimit int

	// rootCmd represents the base command for running the session server.
	rootCmd = &cobra.Command{
		Use:   "safewalk-server [listen-address]",
		Short: "Run the Safe-Walk session engine and its gRPC API.",
		Long: `Starts the Safe-Walk session engine and the gRPC API used by the safewalk client.

While a walk is running the server reads the accelerometer, detects falls and
counts down before raising an automatic alert. Alerts are logged and, when
configured, written to the SQLite and JSON journals and published over MQTT.

Only the port from ServerAddress config is used for listening (e.g., :7070).
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:7070).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				SerialPort:    serialPort,
			}

			return server.Run(ctx, options)
		},
	}

	alertsCmd = &cobra.Command{
		Use:   "alerts",
		Short: "List journaled alerts, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			options := &server.HistoryOptions{
				ConfigPath: configPath,
				Limit:      alertLimit,
			}

			return server.Alerts(cmd.Context(), options, cmd.OutOrStdout())
		},
	}

	trailCmd = &cobra.Command{
		Use:   "trail SESSION_ID",
		Short: "Print the positions recorded during a session.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options := &server.HistoryOptions{ConfigPath: configPath}

			return server.Trail(cmd.Context(), options, args[0], cmd.OutOrStdout())
		},
	}
)

// Execute runs the safewalk-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().
		StringVarP(&serialPort, "serial-port", "p", "", "accelerometer serial device, overrides config")

	alertsCmd.Flags().IntVarP(&alertLimit, "limit", "n", journal.DefaultListLimit, "maximum number of alerts")

	rootCmd.AddCommand(alertsCmd, trailCmd)
}
