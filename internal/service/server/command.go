package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"

	api "github.com/oshokin/safe-walk/internal/api/grpc/walk"
	"github.com/oshokin/safe-walk/internal/config"
	"github.com/oshokin/safe-walk/internal/identity"
	"github.com/oshokin/safe-walk/internal/logger"
	pb "github.com/oshokin/safe-walk/internal/pb/v1"
	"github.com/oshokin/safe-walk/internal/session"
	"github.com/oshokin/safe-walk/internal/version"
)

// Options controls the safewalk-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// SerialPort overrides the accelerometer device from the config.
	SerialPort string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the session controller and the gRPC server and blocks until the
// context is canceled or the server stops.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "safewalk-server")

	// Load configuration first to get server settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	if opts.SerialPort != "" {
		settings.Sensor.SerialPort = opts.SerialPort
	}

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	// The local account reports every alert raised on this device.
	user, err := identity.DetectLocalUser()
	if err != nil {
		return fmt.Errorf("detect user: %w", err)
	}

	// Open journals, broker connection and the motion source.
	stack, err := buildStack(ctx, settings)
	if err != nil {
		return fmt.Errorf("initialise alert stack: %w", err)
	}

	defer func() {
		if err := stack.Close(); err != nil {
			logger.ErrorKV(ctx, "Failed to close alert stack", "error", err)
		}
	}()

	controller := session.New(sessionConfig(settings), stack.sink, user, stack.options...)

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	// Create and configure gRPC server with the walk service.
	grpcServer := grpc.NewServer()
	pb.RegisterWalkServiceServer(grpcServer, api.NewServer(controller))

	// The controller stops with ctx and closes snapshot streams, which lets
	// GracefulStop finish.
	controllerDone := make(chan error, 1)

	go func() {
		controllerDone <- controller.Run(ctx)
	}()

	logger.InfoKV(ctx, "Safe-Walk server listening",
		append([]any{
			"listen_address", listenAddress,
			"sinks", stack.names,
			"serial_port", settings.Sensor.SerialPort,
		}, version.Fields()...)...,
	)

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done

	if err := <-controllerDone; err != nil {
		return fmt.Errorf("session controller: %w", err)
	}

	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// sessionConfig maps the YAML settings onto the controller configuration.
func sessionConfig(settings *config.Config) session.Config {
	cfg := session.DefaultConfig()

	cfg.GracePeriod = settings.Session.GracePeriod
	cfg.Countdown = settings.Session.Countdown
	cfg.ElapsedInterval = settings.Session.ElapsedInterval
	cfg.DispatchTimeout = settings.Session.DispatchTimeout
	cfg.Detector.FallThreshold = settings.Detector.FallThreshold
	cfg.Detector.ImpactThreshold = settings.Detector.ImpactThreshold
	cfg.Detector.Smoothing = settings.Detector.Smoothing
	cfg.Detector.FreeFallThreshold = settings.Detector.FreeFallThreshold

	return cfg
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	// Extract port from config address (e.g., "server.example.com:8080" -> ":8080").
	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	// Parse the address to extract port.
	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}
