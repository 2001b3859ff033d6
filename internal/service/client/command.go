package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oshokin/safe-walk/internal/config"
	"github.com/oshokin/safe-walk/internal/domain/walk"
	"github.com/oshokin/safe-walk/internal/logger"
	"github.com/oshokin/safe-walk/internal/sensor"
	"github.com/oshokin/safe-walk/internal/service/common"
)

// Options configures how the client reaches the session server.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// RetryInterval is the delay before a dropped watch stream is reopened.
	RetryInterval time.Duration
}

// DefaultRetryInterval defines the delay between watch reconnects.
const DefaultRetryInterval = 5 * time.Second

// errSOSNotDelivered is returned when the server raised the alert but could
// not deliver it.
var errSOSNotDelivered = errors.New("SOS raised but not delivered")

// connect loads settings and dials the server.
func connect(ctx context.Context, opts *Options) (*common.Client, error) {
	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	// Connect to session server with timeout from config.
	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("dial server: %w", err)
	}

	logger.DebugKV(ctx, "Connected to session server", "server_address", serverAddress)

	return client, nil
}

// withClient runs fn with a connected client and closes it afterwards.
func withClient(ctx context.Context, opts *Options, fn func(*common.Client) error) error {
	client, err := connect(ctx, opts)
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	return fn(client)
}

// Start begins a walk.
func Start(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "safewalk-start")

	return withClient(ctx, opts, func(client *common.Client) error {
		snapshot, err := client.StartSession(ctx)
		if err != nil {
			return err
		}

		logger.Infof(ctx, "Walk started: %s", FormatSnapshot(snapshot))

		return nil
	})
}

// Stop ends the walk.
func Stop(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "safewalk-stop")

	return withClient(ctx, opts, func(client *common.Client) error {
		snapshot, err := client.StopSession(ctx)
		if err != nil {
			return err
		}

		logger.Infof(ctx, "Walk stopped: %s", FormatSnapshot(snapshot))

		return nil
	})
}

// Acknowledge answers a suspected fall with "I'm okay".
func Acknowledge(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "safewalk-ok")

	return withClient(ctx, opts, func(client *common.Client) error {
		snapshot, err := client.AcknowledgeSafe(ctx)
		if err != nil {
			return err
		}

		logger.Infof(ctx, "Acknowledged: %s", FormatSnapshot(snapshot))

		return nil
	})
}

// SOS raises a manual alert.
func SOS(ctx context.Context, opts *Options, address string) error {
	ctx = logger.WithName(ctx, "safewalk-sos")

	return withClient(ctx, opts, func(client *common.Client) error {
		result, err := client.TriggerSOS(ctx, address)
		if err != nil {
			return err
		}

		if result.DispatchError != "" {
			logger.ErrorKV(ctx, "SOS not delivered",
				"alert", FormatAlert(result.Alert),
				"error", result.DispatchError,
			)

			return errSOSNotDelivered
		}

		logger.Infof(ctx, "SOS sent: %s", FormatAlert(result.Alert))

		return nil
	})
}

// Status prints the current session state once.
func Status(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "safewalk-status")

	return withClient(ctx, opts, func(client *common.Client) error {
		snapshot, err := client.Snapshot(ctx)
		if err != nil {
			return err
		}

		logger.Info(ctx, FormatSnapshot(snapshot))

		return nil
	})
}

// Position reports one location fix.
func Position(ctx context.Context, opts *Options, p walk.PositionSample) error {
	ctx = logger.WithName(ctx, "safewalk-position")

	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now()
	}

	return withClient(ctx, opts, func(client *common.Client) error {
		if err := client.ReportPosition(ctx, p); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Position reported", "latitude", p.Latitude, "longitude", p.Longitude)

		return nil
	})
}

// Replay streams a recorded motion file into the session.
func Replay(ctx context.Context, opts *Options, path string) error {
	ctx = logger.WithName(ctx, "safewalk-replay")

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	source := sensor.NewReaderSource(file)

	return withClient(ctx, opts, func(client *common.Client) error {
		accepted, err := client.StreamMotion(ctx, source)
		if err != nil {
			return err
		}

		logger.InfoKV(ctx, "Recording replayed",
			"file", path,
			"accepted", accepted,
			"skipped", source.Skipped(),
		)

		return nil
	})
}

// Watch follows the session until ctx is canceled, reconnecting when the
// stream drops.
func Watch(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "safewalk-watch")

	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}

	client, err := connect(ctx, opts)
	if err != nil {
		return err
	}

	// Ensure connection cleanup on function exit.
	defer func() {
		_ = client.Close()
	}()

	printer := new(watchPrinter)

	for {
		err := client.WatchSnapshots(ctx, func(snapshot *walk.Snapshot) error {
			printer.print(ctx, snapshot)

			return nil
		})

		if ctx.Err() != nil {
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		}

		logger.WarnKV(ctx, "Snapshot stream lost, reconnecting",
			"error", err,
			"retry_in", opts.RetryInterval.String(),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(opts.RetryInterval):
		}
	}
}

// watchPrinter logs state changes, countdown seconds and alert outcomes
// without repeating itself on every elapsed tick.
type watchPrinter struct {
	state     walk.State
	remaining time.Duration
	alert     string
	started   bool
}

func (p *watchPrinter) print(ctx context.Context, snapshot *walk.Snapshot) {
	if !p.started || snapshot.State != p.state {
		p.started = true
		p.state = snapshot.State
		p.remaining = 0

		logger.Info(ctx, FormatSnapshot(snapshot))
	}

	if snapshot.Countdown != nil && snapshot.Countdown.Remaining != p.remaining {
		p.remaining = snapshot.Countdown.Remaining

		logger.Warnf(ctx, "Fall suspected! Run `safewalk ok` within %s or an alert is sent", p.remaining)
	}

	if outcome := snapshot.LastAlert; outcome != nil && outcome.Record != nil {
		key := fmt.Sprintf("%s/%t/%s", outcome.Record.ID, outcome.Pending, outcome.Err)
		if key == p.alert {
			return
		}

		p.alert = key

		switch {
		case outcome.Pending:
			logger.Infof(ctx, "Alert pending: %s", FormatAlert(outcome.Record))
		case outcome.Err != "":
			logger.Errorf(ctx, "Alert failed: %s: %s", FormatAlert(outcome.Record), outcome.Err)
		default:
			logger.Infof(ctx, "Alert delivered: %s", FormatAlert(outcome.Record))
		}
	}
}

// FormatSnapshot converts a snapshot to a readable log message.
func FormatSnapshot(snapshot *walk.Snapshot) string {
	if snapshot == nil {
		return "<nil snapshot>"
	}

	parts := []string{
		"state=" + snapshot.State.String(),
		"elapsed=" + snapshot.Elapsed.Truncate(time.Second).String(),
	}

	if snapshot.SessionID != "" {
		parts = append(parts, "session="+snapshot.SessionID)
	}

	// Format location with fallback for missing data.
	location := "<unknown>"
	if p := snapshot.Location; p != nil {
		location = fmt.Sprintf("%.5f,%.5f", p.Latitude, p.Longitude)
	}

	parts = append(parts, "location="+location)

	if snapshot.Countdown != nil {
		parts = append(parts, "countdown="+snapshot.Countdown.Remaining.String())
	}

	if !snapshot.FallDetectionAvailable {
		parts = append(parts, "fall_detection=unavailable")
	}

	return strings.Join(parts, " ")
}

// FormatAlert converts an alert to a readable log message.
func FormatAlert(alert *walk.AlertRecord) string {
	if alert == nil {
		return "<nil alert>"
	}

	location := "0,0 (no fix)"
	if alert.LocationKnown {
		location = fmt.Sprintf("%.5f,%.5f", alert.Latitude, alert.Longitude)
	}

	return fmt.Sprintf("%s %s %q at %s by %s (%s)",
		alert.Kind(),
		alert.ID,
		alert.Address,
		location,
		alert.Reporter.String(),
		alert.CreatedAt.Format(time.RFC3339),
	)
}
