package walk

import (
	"context"
	"errors"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/safe-walk/internal/domain/walk"
	"github.com/oshokin/safe-walk/internal/logger"
	pb "github.com/oshokin/safe-walk/internal/pb/v1"
	"github.com/oshokin/safe-walk/internal/session"
)

// Service abstracts the session operations the transport layer depends on.
type Service interface {
	Start(ctx context.Context) (*domain.Snapshot, error)
	Stop(ctx context.Context) (*domain.Snapshot, error)
	AcknowledgeSafe(ctx context.Context) (*domain.Snapshot, error)
	TriggerManualSOS(ctx context.Context, address string) (domain.AlertRecord, error)
	Snapshot() *domain.Snapshot
	Subscribe() (<-chan *domain.Snapshot, func())
	FeedMotion(sample domain.MotionSample) error
	UpdatePosition(p domain.PositionSample) error
}

// Server implements the WalkService gRPC API.
type Server struct {
	pb.UnimplementedWalkServiceServer

	// service runs the session state machine.
	service Service
	// now stamps samples that arrive without a timestamp.
	now func() time.Time
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
		now:     time.Now,
	}
}

// StartSession begins a session and returns its first snapshot.
func (s *Server) StartSession(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snapshot, err := s.service.Start(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	return encodeSnapshot(snapshot)
}

// StopSession ends the session.
func (s *Server) StopSession(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snapshot, err := s.service.Stop(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	return encodeSnapshot(snapshot)
}

// AcknowledgeSafe cancels a pending escalation.
func (s *Server) AcknowledgeSafe(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snapshot, err := s.service.AcknowledgeSafe(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	return encodeSnapshot(snapshot)
}

// TriggerSOS raises a manual alert. A failed delivery is reported in the
// response, not as an RPC error.
func (s *Server) TriggerSOS(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	alert, err := s.service.TriggerManualSOS(ctx, pb.SOSAddress(req))

	var dispatchErr string

	switch {
	case err == nil:
	case errors.Is(err, session.ErrDispatchFailed):
		dispatchErr = err.Error()

		logger.WarnKV(ctx, "Manual SOS not delivered", "alert_id", alert.ID, "error", err)
	default:
		return nil, toStatus(err)
	}

	response, err := pb.SOSResponse(&alert, dispatchErr)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode alert")
	}

	return response, nil
}

// GetSnapshot returns the latest session snapshot.
func (s *Server) GetSnapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return encodeSnapshot(s.service.Snapshot())
}

// WatchSnapshots streams every snapshot until the client goes away.
func (s *Server) WatchSnapshots(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	updates, cancel := s.service.Subscribe()
	defer cancel()

	ctx := stream.Context()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snapshot, ok := <-updates:
			if !ok {
				return status.Error(codes.Unavailable, "session controller stopped")
			}

			msg, err := encodeSnapshot(snapshot)
			if err != nil {
				return err
			}

			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

// StreamMotion feeds client samples into the session and reports how many
// were accepted once the client closes the stream.
func (s *Server) StreamMotion(stream grpc.ClientStreamingServer[structpb.Struct, structpb.Struct]) error {
	var accepted int

	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return stream.SendAndClose(pb.AcceptedResponse(accepted))
		}

		if err != nil {
			return err
		}

		sample, err := pb.MotionFromStruct(msg)
		if err != nil {
			return status.Error(codes.InvalidArgument, err.Error())
		}

		if err := sample.Validate(); err != nil {
			return status.Error(codes.InvalidArgument, err.Error())
		}

		if sample.Timestamp.IsZero() {
			sample.Timestamp = s.now()
		}

		if err := s.service.FeedMotion(sample); err != nil {
			return toStatus(err)
		}

		accepted++
	}
}

// ReportPosition updates the cached location.
func (s *Server) ReportPosition(_ context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	position, err := pb.PositionFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err := position.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if position.Timestamp.IsZero() {
		position.Timestamp = s.now()
	}

	if err := s.service.UpdatePosition(position); err != nil {
		return nil, toStatus(err)
	}

	return new(emptypb.Empty), nil
}

func encodeSnapshot(snapshot *domain.Snapshot) (*structpb.Struct, error) {
	msg, err := pb.SnapshotToStruct(snapshot)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode snapshot")
	}

	return msg, nil
}

// toStatus maps session errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, session.ErrAlreadyStarted), errors.Is(err, session.ErrNotStarted):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, session.ErrControllerClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
