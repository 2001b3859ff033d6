package dispatch

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/safe-walk/internal/domain/walk"
	"github.com/oshokin/safe-walk/internal/repository/journal"
)

type recordingSink struct {
	mu     sync.Mutex
	alerts []walk.AlertRecord
	err    error
}

func (s *recordingSink) Dispatch(_ context.Context, alert walk.AlertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts = append(s.alerts, alert)

	return s.err
}

func (s *recordingSink) received() []walk.AlertRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]walk.AlertRecord(nil), s.alerts...)
}

func sampleAlert() walk.AlertRecord {
	return walk.AlertRecord{
		ID:            "alert-1",
		SessionID:     "session-1",
		Latitude:      52.52,
		Longitude:     13.405,
		LocationKnown: true,
		IsAutomatic:   true,
		Address:       walk.AutomaticAlertAddress,
		Reporter:      &walk.Actor{Hostname: "phone", Username: "alice"},
		CreatedAt:     time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC),
	}
}

func TestMultiSink_AttemptsEveryMember(t *testing.T) {
	t.Parallel()

	errFirst := errors.New("first failed")
	errThird := errors.New("third failed")

	first := &recordingSink{err: errFirst}
	second := new(recordingSink)
	third := &recordingSink{err: errThird}

	multi := NewMultiSink(first, nil, second, third)
	require.Equal(t, 3, multi.Len())

	err := multi.Dispatch(context.Background(), sampleAlert())
	require.ErrorIs(t, err, errFirst)
	require.ErrorIs(t, err, errThird)

	for _, s := range []*recordingSink{first, second, third} {
		require.Len(t, s.received(), 1)
		require.Equal(t, "alert-1", s.received()[0].ID)
	}
}

func TestMultiSink_Empty(t *testing.T) {
	t.Parallel()

	err := NewMultiSink().Dispatch(context.Background(), sampleAlert())
	require.ErrorIs(t, err, ErrNoSinks)
}

func TestRepositorySink(t *testing.T) {
	t.Parallel()

	repo := journal.NewFileRepository(filepath.Join(t.TempDir(), "alerts.jsonl"))
	sink := NewRepositorySink(repo)

	alert := sampleAlert()
	require.NoError(t, sink.Dispatch(context.Background(), alert))

	stored, err := repo.ListAlerts(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, alert.ID, stored[0].ID)
	require.Equal(t, alert.Reporter, stored[0].Reporter)
}

func TestSinkFuncAndLogSink(t *testing.T) {
	t.Parallel()

	var called bool

	sink := NewMultiSink(LogSink{}, SinkFunc(func(_ context.Context, alert walk.AlertRecord) error {
		called = alert.IsAutomatic

		return nil
	}))

	require.NoError(t, sink.Dispatch(context.Background(), sampleAlert()))
	require.True(t, called)
}
