package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/safe-walk/internal/config"
	"github.com/oshokin/safe-walk/internal/domain/walk"
	client "github.com/oshokin/safe-walk/internal/service/client"
	"github.com/oshokin/safe-walk/internal/version"
)

var (
	// configPath stores the configuration file path.
	configPath string
	// serverAddress overrides the server address from config.
	serverAddress string

	// rootCmd represents the base command of the Safe-Walk client.
	rootCmd = &cobra.Command{
		Use:   "safewalk",
		Short: "Control a Safe-Walk session.",
		Long: `Controls the Safe-Walk server running on this device or on the network.

Start a walk before heading out and stop it once you arrive. When the server
suspects a fall it counts down and then raises an automatic alert unless you
answer with "safewalk ok". "safewalk sos" raises an alert immediately.`,
		SilenceUsage: true,
	}

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start a walk.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runWithSignals(client.Start)
		},
	}

	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop the walk.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runWithSignals(client.Stop)
		},
	}

	okCmd = &cobra.Command{
		Use:   "ok",
		Short: "Confirm you are fine and cancel the fall countdown.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runWithSignals(client.Acknowledge)
		},
	}

	sosCmd = &cobra.Command{
		Use:   "sos [address]",
		Short: "Raise an SOS alert now.",
		Long: `Raises a manual SOS alert with the last known position.

An optional address describes where you are. If a fall countdown is running
it is canceled and only the manual alert is sent.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var address string
			if len(args) > 0 {
				address = args[0]
			}

			return runWithSignals(func(ctx context.Context, opts *client.Options) error {
				return client.SOS(ctx, opts, address)
			})
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print the session state.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runWithSignals(client.Status)
		},
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Follow the session and the fall countdown until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runWithSignals(client.Watch)
		},
	}

	positionCmd = &cobra.Command{
		Use:   "position LATITUDE LONGITUDE [ACCURACY]",
		Short: "Report the current position.",
		Args:  cobra.RangeArgs(2, 3), //nolint:mnd // Latitude, longitude and optional accuracy.
		RunE: func(_ *cobra.Command, args []string) error {
			p, err := parsePosition(args)
			if err != nil {
				return err
			}

			return runWithSignals(func(ctx context.Context, opts *client.Options) error {
				return client.Position(ctx, opts, p)
			})
		},
	}

	replayCmd = &cobra.Command{
		Use:   "replay FILE",
		Short: "Stream recorded accelerometer samples into the session.",
		Long: `Streams a recording of accelerometer samples to the server.

Each line holds "x,y,z" or "unix_ms,x,y,z" in m/s². Blank lines and lines
starting with # are ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runWithSignals(func(ctx context.Context, opts *client.Options) error {
				return client.Replay(ctx, opts, args[0])
			})
		},
	}
)

// runWithSignals runs fn with a context canceled on SIGINT or SIGTERM.
func runWithSignals(fn func(context.Context, *client.Options) error) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return fn(ctx, &client.Options{
		ConfigPath:    configPath,
		ServerAddress: serverAddress,
	})
}

func parsePosition(args []string) (walk.PositionSample, error) {
	var (
		p   walk.PositionSample
		err error
	)

	if p.Latitude, err = strconv.ParseFloat(args[0], 64); err != nil {
		return p, fmt.Errorf("parse latitude %q: %w", args[0], err)
	}

	if p.Longitude, err = strconv.ParseFloat(args[1], 64); err != nil {
		return p, fmt.Errorf("parse longitude %q: %w", args[1], err)
	}

	if len(args) > 2 { //nolint:mnd // Optional accuracy argument.
		if p.Accuracy, err = strconv.ParseFloat(args[2], 64); err != nil {
			return p, fmt.Errorf("parse accuracy %q: %w", args[2], err)
		}
	}

	return p, p.Validate()
}

// Execute runs the safewalk CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup persistent flags shared by every subcommand.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&serverAddress, "server", "s", "", "server address, overrides config")

	rootCmd.AddCommand(startCmd, stopCmd, okCmd, sosCmd, statusCmd, watchCmd, positionCmd, replayCmd)
}
