//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/safe-walk/internal/config"
	"github.com/oshokin/safe-walk/internal/domain/walk"
	pb "github.com/oshokin/safe-walk/internal/pb/v1"
	"github.com/oshokin/safe-walk/internal/sensor"
)

// Client wraps the gRPC WalkService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the session server.
	conn *grpc.ClientConn
	// api is the WalkService client interface.
	api pb.WalkServiceClient

	// callTimeout is the default timeout for individual unary calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// SOSResult is the outcome of a manual SOS.
type SOSResult struct {
	// Alert is the record raised by the server.
	Alert *walk.AlertRecord
	// DispatchError is set when the alert could not be delivered.
	DispatchError string
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errSourceRequired is returned when no motion source is provided.
	errSourceRequired = errors.New("motion source must be provided")
)

// Dial establishes a gRPC connection to the session server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial session server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         pb.NewWalkServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// StartSession begins a walk.
func (c *Client) StartSession(ctx context.Context) (*walk.Snapshot, error) {
	return c.snapshotCall(ctx, "start session", c.api.StartSession)
}

// StopSession ends the walk.
func (c *Client) StopSession(ctx context.Context) (*walk.Snapshot, error) {
	return c.snapshotCall(ctx, "stop session", c.api.StopSession)
}

// AcknowledgeSafe answers a suspected fall with "I'm okay".
func (c *Client) AcknowledgeSafe(ctx context.Context) (*walk.Snapshot, error) {
	return c.snapshotCall(ctx, "acknowledge", c.api.AcknowledgeSafe)
}

// Snapshot retrieves the current session state.
func (c *Client) Snapshot(ctx context.Context) (*walk.Snapshot, error) {
	return c.snapshotCall(ctx, "get snapshot", c.api.GetSnapshot)
}

// TriggerSOS raises a manual alert. An empty address uses the server default.
func (c *Client) TriggerSOS(ctx context.Context, address string) (*SOSResult, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.TriggerSOS(callCtx, pb.SOSRequest(address))
	if err != nil {
		return nil, fmt.Errorf("trigger SOS: %w", err)
	}

	alert, err := pb.AlertFromStruct(response)
	if err != nil {
		return nil, fmt.Errorf("decode alert: %w", err)
	}

	return &SOSResult{
		Alert:         alert,
		DispatchError: response.GetFields()[pb.FieldDispatchError].GetStringValue(),
	}, nil
}

// ReportPosition sends one location fix.
func (c *Client) ReportPosition(ctx context.Context, p walk.PositionSample) error {
	request, err := pb.PositionToStruct(p)
	if err != nil {
		return err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.ReportPosition(callCtx, request); err != nil {
		return fmt.Errorf("report position: %w", err)
	}

	return nil
}

// WatchSnapshots calls fn for every snapshot until ctx ends, the server
// closes the stream, or fn returns an error. The stream has no call timeout.
func (c *Client) WatchSnapshots(ctx context.Context, fn func(*walk.Snapshot) error) error {
	stream, err := c.api.WatchSnapshots(ctx, new(emptypb.Empty))
	if err != nil {
		return fmt.Errorf("watch snapshots: %w", err)
	}

	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("receive snapshot: %w", err)
		}

		snapshot, err := pb.SnapshotFromStruct(msg)
		if err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}

		if err := fn(snapshot); err != nil {
			return err
		}
	}
}

// StreamMotion forwards every sample of src to the server and returns how
// many the server accepted.
func (c *Client) StreamMotion(ctx context.Context, src sensor.Source) (int, error) {
	if src == nil {
		return 0, errSourceRequired
	}

	stream, err := c.api.StreamMotion(ctx)
	if err != nil {
		return 0, fmt.Errorf("open motion stream: %w", err)
	}

	var sendErr error

	err = src.Stream(ctx, func(sample walk.MotionSample) {
		if sendErr == nil {
			sendErr = stream.Send(pb.MotionToStruct(sample))
		}
	})
	if err != nil {
		return 0, fmt.Errorf("read motion source: %w", err)
	}

	// A failed Send is reported by CloseAndRecv with the real status.
	reply, err := stream.CloseAndRecv()
	if err != nil {
		return 0, fmt.Errorf("close motion stream: %w", err)
	}

	if sendErr != nil && !errors.Is(sendErr, io.EOF) {
		return pb.Accepted(reply), fmt.Errorf("send sample: %w", sendErr)
	}

	return pb.Accepted(reply), nil
}

type snapshotRPC func(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)

func (c *Client) snapshotCall(ctx context.Context, op string, rpc snapshotRPC) (*walk.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := rpc(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	snapshot, err := pb.SnapshotFromStruct(response)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return snapshot, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
