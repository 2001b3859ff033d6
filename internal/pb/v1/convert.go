package pb

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/safe-walk/internal/domain/walk"
)

var (
	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing field")
	// ErrUnknownState is returned for an unrecognised state name.
	ErrUnknownState = errors.New("unknown session state")
)

// Field names shared by the encoder and decoder.
const (
	fieldSequence      = "sequence"
	fieldSessionID     = "session_id"
	fieldState         = "state"
	fieldElapsedMs     = "elapsed_ms"
	fieldStartedAt     = "started_at"
	fieldArmedAt       = "armed_at"
	fieldFallSuspected = "fall_suspected"
	fieldFallDetection = "fall_detection_available"
	fieldCountdown     = "countdown"
	fieldRemainingMs   = "remaining_ms"
	fieldTotalMs       = "total_ms"
	fieldLocation      = "location"
	fieldLastAlert     = "last_alert"
	fieldAlert         = "alert"
	fieldError         = "error"
	fieldPending       = "pending"
	fieldAt            = "at"
	fieldID            = "id"
	fieldLatitude      = "latitude"
	fieldLongitude     = "longitude"
	fieldAccuracy      = "accuracy"
	fieldLocationKnown = "location_known"
	fieldIsAutomatic   = "is_automatic"
	fieldAddress       = "address"
	fieldReporter      = "reporter"
	fieldHostname      = "hostname"
	fieldUsername      = "username"
	fieldCreatedAt     = "created_at"
	fieldTimestamp     = "timestamp"
	fieldX             = "x"
	fieldY             = "y"
	fieldZ             = "z"
	fieldAccepted      = "accepted"
	FieldDispatchError = "dispatch_error"
)

// SnapshotToStruct encodes a session snapshot.
func SnapshotToStruct(s *walk.Snapshot) (*structpb.Struct, error) {
	fields := map[string]any{
		fieldSequence:      s.Sequence,
		fieldSessionID:     s.SessionID,
		fieldState:         s.State.String(),
		fieldElapsedMs:     s.Elapsed.Milliseconds(),
		fieldStartedAt:     formatTime(s.StartedAt),
		fieldArmedAt:       formatTime(s.ArmedAt),
		fieldFallSuspected: s.FallSuspected,
		fieldFallDetection: s.FallDetectionAvailable,
		fieldCountdown:     nil,
		fieldLocation:      nil,
		fieldLastAlert:     nil,
		fieldAt:            formatTime(s.At),
	}

	if s.Countdown != nil {
		fields[fieldCountdown] = map[string]any{
			fieldRemainingMs: s.Countdown.Remaining.Milliseconds(),
			fieldTotalMs:     s.Countdown.Total.Milliseconds(),
		}
	}

	if s.Location != nil {
		fields[fieldLocation] = positionFields(s.Location)
	}

	if s.LastAlert != nil {
		outcome := map[string]any{
			fieldAlert:   nil,
			fieldError:   s.LastAlert.Err,
			fieldPending: s.LastAlert.Pending,
		}

		if s.LastAlert.Record != nil {
			outcome[fieldAlert] = alertFields(s.LastAlert.Record)
		}

		fields[fieldLastAlert] = outcome
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	return out, nil
}

// SnapshotFromStruct decodes a session snapshot.
func SnapshotFromStruct(in *structpb.Struct) (*walk.Snapshot, error) {
	f := in.GetFields()

	state, ok := walk.ParseState(f[fieldState].GetStringValue())
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, f[fieldState].GetStringValue())
	}

	at, err := parseTime(f[fieldAt].GetStringValue())
	if err != nil {
		return nil, err
	}

	startedAt, err := parseTime(f[fieldStartedAt].GetStringValue())
	if err != nil {
		return nil, err
	}

	armedAt, err := parseTime(f[fieldArmedAt].GetStringValue())
	if err != nil {
		return nil, err
	}

	s := &walk.Snapshot{
		Sequence:               uint64(f[fieldSequence].GetNumberValue()),
		SessionID:              f[fieldSessionID].GetStringValue(),
		State:                  state,
		Elapsed:                millis(f[fieldElapsedMs].GetNumberValue()),
		StartedAt:              startedAt,
		ArmedAt:                armedAt,
		FallSuspected:          f[fieldFallSuspected].GetBoolValue(),
		FallDetectionAvailable: f[fieldFallDetection].GetBoolValue(),
		At:                     at,
	}

	if countdown := f[fieldCountdown].GetStructValue(); countdown != nil {
		cf := countdown.GetFields()
		s.Countdown = &walk.CountdownState{
			Remaining: millis(cf[fieldRemainingMs].GetNumberValue()),
			Total:     millis(cf[fieldTotalMs].GetNumberValue()),
		}
	}

	if loc := f[fieldLocation].GetStructValue(); loc != nil {
		p, err := PositionFromStruct(loc)
		if err != nil {
			return nil, err
		}

		s.Location = &p
	}

	if outcome := f[fieldLastAlert].GetStructValue(); outcome != nil {
		of := outcome.GetFields()
		s.LastAlert = &walk.AlertOutcome{
			Err:     of[fieldError].GetStringValue(),
			Pending: of[fieldPending].GetBoolValue(),
		}

		if alert := of[fieldAlert].GetStructValue(); alert != nil {
			record, err := AlertFromStruct(alert)
			if err != nil {
				return nil, err
			}

			s.LastAlert.Record = record
		}
	}

	return s, nil
}

// AlertToStruct encodes an alert record.
func AlertToStruct(r *walk.AlertRecord) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(alertFields(r))
	if err != nil {
		return nil, fmt.Errorf("encode alert: %w", err)
	}

	return out, nil
}

// AlertFromStruct decodes an alert record.
func AlertFromStruct(in *structpb.Struct) (*walk.AlertRecord, error) {
	f := in.GetFields()

	if f[fieldID].GetStringValue() == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, fieldID)
	}

	createdAt, err := parseTime(f[fieldCreatedAt].GetStringValue())
	if err != nil {
		return nil, err
	}

	r := &walk.AlertRecord{
		ID:            f[fieldID].GetStringValue(),
		SessionID:     f[fieldSessionID].GetStringValue(),
		Latitude:      f[fieldLatitude].GetNumberValue(),
		Longitude:     f[fieldLongitude].GetNumberValue(),
		LocationKnown: f[fieldLocationKnown].GetBoolValue(),
		IsAutomatic:   f[fieldIsAutomatic].GetBoolValue(),
		Address:       f[fieldAddress].GetStringValue(),
		CreatedAt:     createdAt,
	}

	if reporter := f[fieldReporter].GetStructValue(); reporter != nil {
		rf := reporter.GetFields()
		r.Reporter = &walk.Actor{
			Hostname: rf[fieldHostname].GetStringValue(),
			Username: rf[fieldUsername].GetStringValue(),
		}
	}

	return r, nil
}

// MarshalAlertJSON renders an alert as compact protobuf JSON.
func MarshalAlertJSON(r *walk.AlertRecord) ([]byte, error) {
	msg, err := AlertToStruct(r)
	if err != nil {
		return nil, err
	}

	data, err := protojson.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal alert: %w", err)
	}

	return data, nil
}

// UnmarshalAlertJSON parses the output of MarshalAlertJSON.
func UnmarshalAlertJSON(data []byte) (*walk.AlertRecord, error) {
	msg := new(structpb.Struct)
	if err := protojson.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("unmarshal alert: %w", err)
	}

	return AlertFromStruct(msg)
}

// SOSRequest builds a TriggerSOS request.
func SOSRequest(address string) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			fieldAddress: structpb.NewStringValue(address),
		},
	}
}

// SOSAddress reads the address of a TriggerSOS request.
func SOSAddress(in *structpb.Struct) string {
	return in.GetFields()[fieldAddress].GetStringValue()
}

// SOSResponse encodes the alert produced by TriggerSOS together with its
// dispatch outcome. dispatchErr is empty on success.
func SOSResponse(r *walk.AlertRecord, dispatchErr string) (*structpb.Struct, error) {
	out, err := AlertToStruct(r)
	if err != nil {
		return nil, err
	}

	out.Fields[FieldDispatchError] = structpb.NewStringValue(dispatchErr)

	return out, nil
}

// MotionToStruct encodes one accelerometer sample.
func MotionToStruct(s walk.MotionSample) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			fieldX:         structpb.NewNumberValue(s.X),
			fieldY:         structpb.NewNumberValue(s.Y),
			fieldZ:         structpb.NewNumberValue(s.Z),
			fieldTimestamp: structpb.NewStringValue(formatTime(s.Timestamp)),
		},
	}
}

// MotionFromStruct decodes one accelerometer sample.
// A missing timestamp decodes as the zero time.
func MotionFromStruct(in *structpb.Struct) (walk.MotionSample, error) {
	f := in.GetFields()

	for _, axis := range []string{fieldX, fieldY, fieldZ} {
		if _, ok := f[axis]; !ok {
			return walk.MotionSample{}, fmt.Errorf("%w: %s", ErrMissingField, axis)
		}
	}

	ts, err := parseTime(f[fieldTimestamp].GetStringValue())
	if err != nil {
		return walk.MotionSample{}, err
	}

	return walk.MotionSample{
		X:         f[fieldX].GetNumberValue(),
		Y:         f[fieldY].GetNumberValue(),
		Z:         f[fieldZ].GetNumberValue(),
		Timestamp: ts,
	}, nil
}

// PositionToStruct encodes one position fix.
func PositionToStruct(p walk.PositionSample) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(positionFields(&p))
	if err != nil {
		return nil, fmt.Errorf("encode position: %w", err)
	}

	return out, nil
}

// PositionFromStruct decodes one position fix.
func PositionFromStruct(in *structpb.Struct) (walk.PositionSample, error) {
	f := in.GetFields()

	for _, key := range []string{fieldLatitude, fieldLongitude} {
		if _, ok := f[key]; !ok {
			return walk.PositionSample{}, fmt.Errorf("%w: %s", ErrMissingField, key)
		}
	}

	ts, err := parseTime(f[fieldTimestamp].GetStringValue())
	if err != nil {
		return walk.PositionSample{}, err
	}

	return walk.PositionSample{
		Latitude:  f[fieldLatitude].GetNumberValue(),
		Longitude: f[fieldLongitude].GetNumberValue(),
		Accuracy:  f[fieldAccuracy].GetNumberValue(),
		Timestamp: ts,
	}, nil
}

// AcceptedResponse is the StreamMotion reply.
func AcceptedResponse(accepted int) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			fieldAccepted: structpb.NewNumberValue(float64(accepted)),
		},
	}
}

// Accepted reads the StreamMotion reply.
func Accepted(in *structpb.Struct) int {
	return int(in.GetFields()[fieldAccepted].GetNumberValue())
}

func alertFields(r *walk.AlertRecord) map[string]any {
	fields := map[string]any{
		fieldID:            r.ID,
		fieldSessionID:     r.SessionID,
		fieldLatitude:      r.Latitude,
		fieldLongitude:     r.Longitude,
		fieldLocationKnown: r.LocationKnown,
		fieldIsAutomatic:   r.IsAutomatic,
		fieldAddress:       r.Address,
		fieldReporter:      nil,
		fieldCreatedAt:     formatTime(r.CreatedAt),
	}

	if r.Reporter != nil {
		fields[fieldReporter] = map[string]any{
			fieldHostname: r.Reporter.Hostname,
			fieldUsername: r.Reporter.Username,
		}
	}

	return fields
}

func positionFields(p *walk.PositionSample) map[string]any {
	return map[string]any{
		fieldLatitude:  p.Latitude,
		fieldLongitude: p.Longitude,
		fieldAccuracy:  p.Accuracy,
		fieldTimestamp: formatTime(p.Timestamp),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}

	return t, nil
}

func millis(v float64) time.Duration {
	return time.Duration(v) * time.Millisecond
}
