package walk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/safe-walk/internal/domain/walk"
	pb "github.com/oshokin/safe-walk/internal/pb/v1"
	"github.com/oshokin/safe-walk/internal/session"
)

// fakeService implements the Service interface for unit testing the transport.
type fakeService struct {
	// mu protects everything below.
	mu sync.Mutex
	// state is the current session state.
	state domain.State
	// sosErr is returned by TriggerManualSOS.
	sosErr error
	// samples collects fed motion samples.
	samples []domain.MotionSample
	// positions collects reported positions.
	positions []domain.PositionSample
	// updates is handed out by Subscribe.
	updates chan *domain.Snapshot
}

func (f *fakeService) snapshot() *domain.Snapshot {
	return &domain.Snapshot{
		SessionID: "session-1",
		State:     f.state,
		At:        time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC),
	}
}

func (f *fakeService) Start(context.Context) (*domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.Active() {
		return nil, session.ErrAlreadyStarted
	}

	f.state = domain.StateGracePeriod

	return f.snapshot(), nil
}

func (f *fakeService) Stop(context.Context) (*domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = domain.StateNotStarted

	return f.snapshot(), nil
}

func (f *fakeService) AcknowledgeSafe(context.Context) (*domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.state.Active() {
		return nil, session.ErrNotStarted
	}

	f.state = domain.StateMonitoring

	return f.snapshot(), nil
}

func (f *fakeService) TriggerManualSOS(_ context.Context, address string) (domain.AlertRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	alert := domain.AlertRecord{
		ID:        "alert-1",
		SessionID: "session-1",
		Address:   address,
		CreatedAt: time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC),
	}

	return alert, f.sosErr
}

func (f *fakeService) Snapshot() *domain.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.snapshot()
}

func (f *fakeService) Subscribe() (<-chan *domain.Snapshot, func()) {
	return f.updates, func() {}
}

func (f *fakeService) FeedMotion(sample domain.MotionSample) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.samples = append(f.samples, sample)

	return nil
}

func (f *fakeService) UpdatePosition(p domain.PositionSample) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.positions = append(f.positions, p)

	return nil
}

// TestServer_SessionCommands exercises start, acknowledge and stop.
func TestServer_SessionCommands(t *testing.T) {
	t.Parallel()

	s := NewServer(new(fakeService))
	ctx := context.Background()

	_, err := s.AcknowledgeSafe(ctx, new(emptypb.Empty))
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	response, err := s.StartSession(ctx, new(emptypb.Empty))
	require.NoError(t, err)

	snapshot, err := pb.SnapshotFromStruct(response)
	require.NoError(t, err)
	require.Equal(t, domain.StateGracePeriod, snapshot.State)
	require.Equal(t, "session-1", snapshot.SessionID)

	_, err = s.StartSession(ctx, new(emptypb.Empty))
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	response, err = s.AcknowledgeSafe(ctx, new(emptypb.Empty))
	require.NoError(t, err)

	snapshot, err = pb.SnapshotFromStruct(response)
	require.NoError(t, err)
	require.Equal(t, domain.StateMonitoring, snapshot.State)

	response, err = s.StopSession(ctx, new(emptypb.Empty))
	require.NoError(t, err)

	snapshot, err = pb.SnapshotFromStruct(response)
	require.NoError(t, err)
	require.Equal(t, domain.StateNotStarted, snapshot.State)

	response, err = s.GetSnapshot(ctx, new(emptypb.Empty))
	require.NoError(t, err)

	snapshot, err = pb.SnapshotFromStruct(response)
	require.NoError(t, err)
	require.Equal(t, domain.StateNotStarted, snapshot.State)
}

// TestServer_TriggerSOS covers delivery failure and precondition errors.
func TestServer_TriggerSOS(t *testing.T) {
	t.Parallel()

	service := new(fakeService)
	s := NewServer(service)

	response, err := s.TriggerSOS(context.Background(), pb.SOSRequest("Park entrance"))
	require.NoError(t, err)
	require.Empty(t, response.GetFields()[pb.FieldDispatchError].GetStringValue())

	alert, err := pb.AlertFromStruct(response)
	require.NoError(t, err)
	require.Equal(t, "Park entrance", alert.Address)

	service.sosErr = fmt.Errorf("%w: broker down", session.ErrDispatchFailed)

	response, err = s.TriggerSOS(context.Background(), pb.SOSRequest(""))
	require.NoError(t, err)
	require.Contains(t, response.GetFields()[pb.FieldDispatchError].GetStringValue(), "broker down")

	service.sosErr = session.ErrNotStarted

	_, err = s.TriggerSOS(context.Background(), pb.SOSRequest(""))
	require.Equal(t, codes.FailedPrecondition, status.Code(err))
}

// TestServer_ReportPosition_Validation ensures incomplete fixes are rejected.
func TestServer_ReportPosition_Validation(t *testing.T) {
	t.Parallel()

	service := new(fakeService)
	s := NewServer(service)

	_, err := s.ReportPosition(context.Background(), new(structpb.Struct))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	outOfRange, err := pb.PositionToStruct(domain.PositionSample{Latitude: 91})
	require.NoError(t, err)

	_, err = s.ReportPosition(context.Background(), outOfRange)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
	require.Empty(t, service.positions)

	fixed := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	request, err := pb.PositionToStruct(domain.PositionSample{Latitude: 52.52, Longitude: 13.405})
	require.NoError(t, err)

	_, err = s.ReportPosition(context.Background(), request)
	require.NoError(t, err)
	require.Len(t, service.positions, 1)
	require.True(t, service.positions[0].Timestamp.Equal(fixed))
}

// fakeMotionStream replays messages to StreamMotion.
type fakeMotionStream struct {
	grpc.ServerStream

	messages []*structpb.Struct
	reply    *structpb.Struct
}

func (f *fakeMotionStream) Recv() (*structpb.Struct, error) {
	if len(f.messages) == 0 {
		return nil, io.EOF
	}

	msg := f.messages[0]
	f.messages = f.messages[1:]

	return msg, nil
}

func (f *fakeMotionStream) SendAndClose(reply *structpb.Struct) error {
	f.reply = reply

	return nil
}

// TestServer_StreamMotion counts accepted samples and rejects malformed ones.
func TestServer_StreamMotion(t *testing.T) {
	t.Parallel()

	service := new(fakeService)
	s := NewServer(service)

	stream := &fakeMotionStream{
		messages: []*structpb.Struct{
			pb.MotionToStruct(domain.MotionSample{Z: 9.8}),
			pb.MotionToStruct(domain.MotionSample{Z: 25, Timestamp: time.UnixMilli(1772366400000)}),
		},
	}

	require.NoError(t, s.StreamMotion(stream))
	require.Equal(t, 2, pb.Accepted(stream.reply))
	require.Len(t, service.samples, 2)
	require.False(t, service.samples[0].Timestamp.IsZero())

	stream = &fakeMotionStream{messages: []*structpb.Struct{new(structpb.Struct)}}

	err := s.StreamMotion(stream)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	// Non-finite readings never reach the detector.
	stream = &fakeMotionStream{messages: []*structpb.Struct{
		pb.MotionToStruct(domain.MotionSample{X: math.NaN(), Z: 9.8}),
	}}

	err = s.StreamMotion(stream)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
	require.Len(t, service.samples, 2)
}

// fakeWatchStream collects snapshots sent by WatchSnapshots.
type fakeWatchStream struct {
	grpc.ServerStream

	ctx  context.Context
	sent []*structpb.Struct
}

func (f *fakeWatchStream) Context() context.Context { return f.ctx }

func (f *fakeWatchStream) Send(msg *structpb.Struct) error {
	f.sent = append(f.sent, msg)

	return nil
}

// TestServer_WatchSnapshots forwards updates until the controller stops.
func TestServer_WatchSnapshots(t *testing.T) {
	t.Parallel()

	updates := make(chan *domain.Snapshot, 2)
	updates <- &domain.Snapshot{State: domain.StateGracePeriod}
	updates <- &domain.Snapshot{State: domain.StateMonitoring}
	close(updates)

	s := NewServer(&fakeService{updates: updates})
	stream := &fakeWatchStream{ctx: context.Background()}

	err := s.WatchSnapshots(new(emptypb.Empty), stream)
	require.Equal(t, codes.Unavailable, status.Code(err))
	require.Len(t, stream.sent, 2)

	last, err := pb.SnapshotFromStruct(stream.sent[1])
	require.NoError(t, err)
	require.Equal(t, domain.StateMonitoring, last.State)
}

// TestToStatus checks the error to status code mapping.
func TestToStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		code codes.Code
	}{
		{err: session.ErrAlreadyStarted, code: codes.FailedPrecondition},
		{err: session.ErrNotStarted, code: codes.FailedPrecondition},
		{err: session.ErrControllerClosed, code: codes.Unavailable},
		{err: context.DeadlineExceeded, code: codes.DeadlineExceeded},
		{err: context.Canceled, code: codes.Canceled},
		{err: errors.New("boom"), code: codes.Internal},
	}

	for _, tt := range tests {
		require.Equal(t, tt.code, status.Code(toStatus(tt.err)), tt.err.Error())
	}
}
