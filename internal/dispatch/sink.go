package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/oshokin/safe-walk/internal/domain/walk"
	"github.com/oshokin/safe-walk/internal/logger"
	"github.com/oshokin/safe-walk/internal/repository/journal"
)

// ErrNoSinks is returned by a MultiSink without members.
var ErrNoSinks = errors.New("no alert sinks configured")

// Sink receives alert records.
type Sink interface {
	Dispatch(ctx context.Context, alert walk.AlertRecord) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, alert walk.AlertRecord) error

// Dispatch calls f.
func (f SinkFunc) Dispatch(ctx context.Context, alert walk.AlertRecord) error {
	return f(ctx, alert)
}

// PositionRecorder persists the location trail of a session.
type PositionRecorder interface {
	RecordPosition(ctx context.Context, sessionID string, p walk.PositionSample) error
}

// LogSink writes every alert to the context logger.
type LogSink struct{}

// Dispatch logs the alert at warning level.
func (LogSink) Dispatch(ctx context.Context, alert walk.AlertRecord) error {
	logger.WarnKV(ctx, "SOS alert raised",
		"alert_id", alert.ID,
		"kind", alert.Kind(),
		"latitude", alert.Latitude,
		"longitude", alert.Longitude,
		"location_known", alert.LocationKnown,
		"address", alert.Address,
		"reporter", alert.Reporter.String(),
	)

	return nil
}

// RepositorySink stores alerts in a journal repository.
type RepositorySink struct {
	repo journal.Repository
}

// NewRepositorySink wraps repo.
func NewRepositorySink(repo journal.Repository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

// Dispatch saves the alert.
func (s *RepositorySink) Dispatch(ctx context.Context, alert walk.AlertRecord) error {
	if err := s.repo.SaveAlert(ctx, &alert); err != nil {
		return fmt.Errorf("journal alert: %w", err)
	}

	return nil
}

// MultiSink fans an alert out to every member. All members are attempted;
// the combined error lists every failure.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a fan-out over the non-nil sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := new(MultiSink)

	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}

	return m
}

// Len returns the number of members.
func (m *MultiSink) Len() int {
	return len(m.sinks)
}

// Dispatch delivers alert to every member.
func (m *MultiSink) Dispatch(ctx context.Context, alert walk.AlertRecord) error {
	if len(m.sinks) == 0 {
		return ErrNoSinks
	}

	var err error

	for _, s := range m.sinks {
		err = multierr.Append(err, s.Dispatch(ctx, alert))
	}

	return err
}
