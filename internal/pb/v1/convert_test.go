package pb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/safe-walk/internal/domain/walk"
)

// TestSnapshotStruct_Roundtrip checks nested countdown, location and alert survive the wire.
func TestSnapshotStruct_Roundtrip(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 11, 5, 18, 30, 0, 0, time.UTC)
	want := &walk.Snapshot{
		Sequence:               42,
		SessionID:              "3f1c",
		State:                  walk.StateFallSuspected,
		Elapsed:                95 * time.Second,
		StartedAt:              at.Add(-95 * time.Second),
		ArmedAt:                at.Add(-92 * time.Second),
		FallSuspected:          true,
		FallDetectionAvailable: true,
		Countdown:              &walk.CountdownState{Remaining: 12 * time.Second, Total: 30 * time.Second},
		Location:               &walk.PositionSample{Latitude: 43.6532, Longitude: -79.3832, Accuracy: 8, Timestamp: at},
		LastAlert: &walk.AlertOutcome{
			Record: &walk.AlertRecord{
				ID:            "a-1",
				SessionID:     "3f1c",
				Latitude:      43.6532,
				Longitude:     -79.3832,
				LocationKnown: true,
				Address:       walk.ManualAlertAddress,
				Reporter:      &walk.Actor{Hostname: "phone", Username: "walker"},
				CreatedAt:     at,
			},
			Err: "mqtt: connection refused",
		},
		At: at,
	}

	msg, err := SnapshotToStruct(want)
	require.NoError(t, err)

	got, err := SnapshotFromStruct(msg)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// TestSnapshotStruct_Idle checks the empty optional parts decode as nil.
func TestSnapshotStruct_Idle(t *testing.T) {
	t.Parallel()

	msg, err := SnapshotToStruct(&walk.Snapshot{State: walk.StateNotStarted, FallDetectionAvailable: true})
	require.NoError(t, err)

	got, err := SnapshotFromStruct(msg)
	require.NoError(t, err)
	require.Nil(t, got.Countdown)
	require.Nil(t, got.Location)
	require.Nil(t, got.LastAlert)
	require.True(t, got.At.IsZero())
	require.True(t, got.StartedAt.IsZero())
	require.True(t, got.ArmedAt.IsZero())

	msg.Fields["state"] = structpb.NewStringValue("walking")
	_, err = SnapshotFromStruct(msg)
	require.ErrorIs(t, err, ErrUnknownState)
}

// TestAlertJSON ensures the protojson payload parses back to the same alert.
func TestAlertJSON(t *testing.T) {
	t.Parallel()

	want := &walk.AlertRecord{
		ID:          "a-2",
		IsAutomatic: true,
		Address:     walk.AutomaticAlertAddress,
		CreatedAt:   time.Date(2024, 11, 5, 18, 31, 0, 0, time.UTC),
	}

	data, err := MarshalAlertJSON(want)
	require.NoError(t, err)
	require.Contains(t, string(data), `"is_automatic":true`)

	got, err := UnmarshalAlertJSON(data)
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = UnmarshalAlertJSON([]byte(`{"address":"x"}`))
	require.ErrorIs(t, err, ErrMissingField)
}

// TestMotionAndPosition_Validation covers required fields of intake messages.
func TestMotionAndPosition_Validation(t *testing.T) {
	t.Parallel()

	sample := walk.MotionSample{X: 0.1, Y: -0.2, Z: 9.7}

	got, err := MotionFromStruct(MotionToStruct(sample))
	require.NoError(t, err)
	require.Equal(t, sample, got)

	_, err = MotionFromStruct(&structpb.Struct{})
	require.ErrorIs(t, err, ErrMissingField)

	_, err = PositionFromStruct(&structpb.Struct{})
	require.ErrorIs(t, err, ErrMissingField)

	bad := MotionToStruct(sample)
	bad.Fields["timestamp"] = structpb.NewStringValue("yesterday")
	_, err = MotionFromStruct(bad)
	require.Error(t, err)

	require.Equal(t, 17, Accepted(AcceptedResponse(17)))
	require.Equal(t, "park", SOSAddress(SOSRequest("park")))
}
